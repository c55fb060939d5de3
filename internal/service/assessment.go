package service

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"digital-surveyor/internal/engine"
	"digital-surveyor/internal/imaging"
	"digital-surveyor/internal/model"
	"digital-surveyor/internal/pricing"
	"digital-surveyor/internal/quality"
	"digital-surveyor/internal/repository"
	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/models"
)

// Version версия сервиса в ответе проверки здоровья
const Version = "1.0.0"

// AssessmentOptions параметры запуска детекторов и ограничение по времени
type AssessmentOptions struct {
	Parts   engine.DetectOptions
	Damage  engine.DetectOptions
	Timeout time.Duration
}

// AssessmentService сервис оценки повреждений по снимку
type AssessmentService struct {
	inference InferenceClient
	gate      *quality.Gate
	engine    *engine.Engine
	scanRepo  repository.ScanRepository
	store     *ArtifactStore
	opts      AssessmentOptions
	logger    *logrus.Logger
}

// NewAssessmentService создает сервис оценки
func NewAssessmentService(
	inference InferenceClient,
	gate *quality.Gate,
	eng *engine.Engine,
	scanRepo repository.ScanRepository,
	store *ArtifactStore,
	opts AssessmentOptions,
	logger *logrus.Logger,
) *AssessmentService {
	return &AssessmentService{
		inference: inference,
		gate:      gate,
		engine:    eng,
		scanRepo:  scanRepo,
		store:     store,
		opts:      opts,
		logger:    logger,
	}
}

// Analyze проверяет качество снимка, находит детали и повреждения, оценивает
// их и сохраняет скан. Снимок плохого качества не является ошибкой: ответ
// получает статус rejected и причину.
func (s *AssessmentService) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	s.logger.Infof("Начинаем оценку снимка %s", req.Filename)
	startTime := time.Now()

	mat, err := imaging.Decode(req.ImageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	defer mat.Close()

	// 1. Проверка качества
	check, err := s.gate.Check(mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if !check.Passed() {
		s.logger.WithFields(logrus.Fields{
			"issue":      check.Issue,
			"sharpness":  check.Sharpness,
			"brightness": check.Brightness,
			"glare":      check.GlareShare,
		}).Info("Снимок отклонен проверкой качества")
		return &models.AnalyzeResponse{
			Status:       StatusRejected,
			Message:      check.Issue.Message(),
			QualityIssue: string(check.Issue),
			Damages:      []models.DamageReport{},
		}, nil
	}

	// 2. Детекция деталей по исходному снимку, повреждений по снимку с CLAHE
	original, err := imaging.ToImage(mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	enhancedMat := imaging.EnhanceContrast(mat)
	defer enhancedMat.Close()
	enhanced, err := imaging.ToImage(enhancedMat)
	if err != nil {
		return nil, fmt.Errorf("failed to convert enhanced image: %w", err)
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	parts, damages, err := s.detect(ctx, original, enhanced)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Детектор вернул %d деталей и %d повреждений", len(parts), len(damages))

	// 3. Оценка повреждений
	vehicle := pricing.Vehicle(req.CarName)
	result, err := s.engine.Assess(ctx, engine.Input{
		Image:           original,
		Parts:           parts,
		Damages:         damages,
		PriceMultiplier: vehicle.PriceMultiplier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assess damages: %w", err)
	}

	// 4. Сохранение изображений и скана
	scanID := uuid.New().String()
	scan := s.buildScan(scanID, req, vehicle, result)
	s.saveArtifacts(scan, req, mat, original, result)

	if err := s.scanRepo.Create(scan); err != nil {
		s.logger.Errorf("Ошибка сохранения скана в БД: %v", err)
		if rmErr := s.store.RemoveScan(scanID); rmErr != nil {
			s.logger.Warnf("Не удалось удалить файлы скана %s: %v", scanID, rmErr)
		}
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}

	s.logger.Infof("Оценка завершена за %v: %d повреждений, итог %.0f %s",
		time.Since(startTime), len(result.Records), result.TotalCost, result.Currency)

	response := modelToResponse(scan)
	return &models.AnalyzeResponse{
		Status:            StatusSuccess,
		Message:           fmt.Sprintf("Найдено повреждений: %d", len(response.Damages)),
		ScanID:            scan.ID,
		Strategy:          scan.Strategy,
		Damages:           response.Damages,
		TotalCost:         scan.TotalCost,
		Currency:          scan.Currency,
		VehicleInfo:       &response.VehicleInfo,
		OriginalImageURL:  scan.OriginalImagePath,
		ProcessedImageURL: scan.ProcessedPath,
		HeatmapImageURL:   scan.HeatmapPath,
	}, nil
}

// detect запускает оба детектора параллельно. Без деталей оценка продолжается
// (все повреждения получат деталь unknown), без повреждений нет.
func (s *AssessmentService) detect(ctx context.Context, original, enhanced image.Image) ([]models.Detection, []models.Detection, error) {
	var (
		wg                  sync.WaitGroup
		parts, damages      []models.Detection
		partsErr, damageErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		parts, partsErr = s.inference.Detect(ctx, original, engine.ModelParts, s.opts.Parts)
	}()
	go func() {
		defer wg.Done()
		damages, damageErr = s.inference.Detect(ctx, enhanced, engine.ModelDamage, s.opts.Damage)
	}()
	wg.Wait()

	if damageErr != nil {
		s.logger.Errorf("Ошибка детекции повреждений: %v", damageErr)
		return nil, nil, fmt.Errorf("failed to detect damages: %w", damageErr)
	}
	if partsErr != nil {
		s.logger.WithError(partsErr).Warn("Детекция деталей не удалась, продолжаем без деталей")
		parts = nil
	}
	return parts, damages, nil
}

func (s *AssessmentService) buildScan(scanID string, req models.AnalyzeRequest, vehicle models.VehicleInfo, result *engine.Result) *model.Scan {
	scan := &model.Scan{
		ID:               scanID,
		UserID:           req.UserID,
		CarName:          vehicle.CarName,
		IsLuxury:         vehicle.IsLuxury,
		PriceMultiplier:  vehicle.PriceMultiplier,
		Strategy:         result.Strategy,
		Currency:         result.Currency,
		Status:           ScanStatusCompleted,
		TotalCost:        result.TotalCost,
		DamageCount:      len(result.Records),
		OriginalFilename: req.Filename,
		CreatedAt:        time.Now(),
	}

	for _, r := range result.Records {
		b := r.Detection.Box
		scan.Damages = append(scan.Damages, model.Damage{
			ID:                  uuid.New().String(),
			ScanID:              scanID,
			Index:               r.Index,
			PartName:            string(r.Match.Part),
			PartLabel:           r.Match.Label,
			DamageType:          string(r.Kind),
			RawLabel:            r.Detection.Label,
			Confidence:          r.Detection.Confidence,
			X1:                  b.X1,
			Y1:                  b.Y1,
			X2:                  b.X2,
			Y2:                  b.Y2,
			PreliminarySeverity: r.Estimate.Severity,
			PreliminaryCost:     r.Decision.Cost,
			SeverityFallback:    string(r.Estimate.Fallback),
			Severity:            r.Estimate.Severity,
			Action:              string(r.Decision.Action),
			Cost:                r.Decision.Cost,
			Status:              model.DamageStatusPreliminary,
			DetectionSource:     "ai",
		})
	}
	return scan
}

// saveArtifacts сохраняет исходный снимок, размеченный снимок, тепловую карту
// скана и карты глубины вмятин. Ошибки только логируются: отчет без картинок
// остается полезным.
func (s *AssessmentService) saveArtifacts(scan *model.Scan, req models.AnalyzeRequest, mat gocv.Mat, original image.Image, result *engine.Result) {
	if url, err := s.store.Save(scan.ID, "original"+ImageExt(req.Filename), req.ImageData); err != nil {
		s.logger.Warnf("Не удалось сохранить исходный снимок: %v", err)
	} else {
		scan.OriginalImagePath = url
	}

	annotations := make([]imaging.Annotation, 0, len(result.Records))
	spots := make([]imaging.HeatSpot, 0, len(result.Records))
	for _, r := range result.Records {
		annotations = append(annotations, imaging.Annotation{
			Box:   r.Detection.Box,
			Label: fmt.Sprintf("%s %d%%", taxonomy.Title(string(r.Kind)), r.Estimate.Severity),
		})
		spots = append(spots, imaging.HeatSpot{Box: r.Detection.Box, Severity: r.Estimate.Severity})
	}

	processed := imaging.Annotate(mat, annotations)
	scan.ProcessedPath = s.saveMat(scan.ID, "processed.png", processed)
	processed.Close()

	heatmap, err := imaging.ScanHeatmap(mat, spots)
	if err != nil {
		s.logger.Warnf("Не удалось построить тепловую карту: %v", err)
	} else {
		scan.HeatmapPath = s.saveMat(scan.ID, "heatmap.png", heatmap)
		heatmap.Close()
	}

	for i, r := range result.Records {
		if r.Estimate.Depth == nil {
			continue
		}
		name := fmt.Sprintf("damage_%d_depth.png", r.Index)
		scan.Damages[i].HeatmapPath = s.saveDepthOverlay(scan.ID, name, engine.Crop(original, r.Detection.Box), r.Estimate.Depth)
	}
}

func (s *AssessmentService) saveDepthOverlay(scanID, name string, crop image.Image, depth models.DepthMap) string {
	cropMat, err := imaging.FromImage(crop)
	if err != nil {
		s.logger.Warnf("Не удалось подготовить фрагмент %s: %v", name, err)
		return ""
	}
	defer cropMat.Close()

	overlay, err := imaging.DepthOverlay(cropMat, depth)
	if err != nil {
		s.logger.Warnf("Не удалось построить карту глубины %s: %v", name, err)
		return ""
	}
	defer overlay.Close()
	return s.saveMat(scanID, name, overlay)
}

func (s *AssessmentService) saveMat(scanID, name string, mat gocv.Mat) string {
	data, err := imaging.EncodePNG(mat)
	if err != nil {
		s.logger.Warnf("Не удалось закодировать %s: %v", name, err)
		return ""
	}
	url, err := s.store.Save(scanID, name, data)
	if err != nil {
		s.logger.Warnf("Не удалось сохранить %s: %v", name, err)
		return ""
	}
	return url
}

// CheckHealth проверяет состояние сервиса моделей
func (s *AssessmentService) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	s.logger.Debug("Проверяем состояние сервиса моделей")

	health, err := s.inference.CheckHealth(ctx)
	if err != nil {
		s.logger.Errorf("Сервис моделей недоступен: %v", err)
		return &models.HealthResponse{
			Status:      "unhealthy",
			ModelLoaded: false,
			Version:     Version,
		}, err
	}
	return health, nil
}
