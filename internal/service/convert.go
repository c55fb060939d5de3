package service

import (
	"digital-surveyor/internal/model"
	"digital-surveyor/pkg/geometry"
	"digital-surveyor/pkg/models"
)

// damageToReport преобразует повреждение из базы данных в элемент отчета
func damageToReport(d *model.Damage) models.DamageReport {
	report := models.DamageReport{
		ID:         d.ID,
		Type:       d.DamageType,
		RawLabel:   d.RawLabel,
		Part:       d.PartName,
		Severity:   d.Severity,
		Action:     d.Action,
		Cost:       d.Cost,
		Box:        geometry.NewBox(d.X1, d.Y1, d.X2, d.Y2),
		Confidence: d.Confidence,
		HeatmapURL: d.HeatmapPath,
		Status:     d.Status,
	}

	if d.Status == model.DamageStatusVerified {
		report.Refinement = &models.Refinement{
			SeverityScores: d.SeverityScores,
			FinalSeverity:  d.Severity,
			Confidence:     d.ConfidenceLevel,
			StdDeviation:   d.StdDeviation,
			CloseupURLs:    d.CloseupPaths,
		}
	}
	return report
}

// modelToResponse преобразует модель базы данных в ответ API
func modelToResponse(scan *model.Scan) *ScanResponse {
	response := &ScanResponse{
		ID:     scan.ID,
		UserID: scan.UserID,
		VehicleInfo: models.VehicleInfo{
			CarName:         scan.CarName,
			IsLuxury:        scan.IsLuxury,
			PriceMultiplier: scan.PriceMultiplier,
		},
		Strategy:          scan.Strategy,
		Currency:          scan.Currency,
		Status:            scan.Status,
		TotalCost:         scan.TotalCost,
		Damages:           make([]models.DamageReport, 0, len(scan.Damages)),
		OriginalFilename:  scan.OriginalFilename,
		OriginalImageURL:  scan.OriginalImagePath,
		ProcessedImageURL: scan.ProcessedPath,
		HeatmapImageURL:   scan.HeatmapPath,
		CreatedAt:         scan.CreatedAt,
	}

	for i := range scan.Damages {
		response.Damages = append(response.Damages, damageToReport(&scan.Damages[i]))
	}
	return response
}
