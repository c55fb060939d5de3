package service

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"digital-surveyor/internal/imaging"
	"digital-surveyor/internal/model"
	"digital-surveyor/internal/pricing"
	"digital-surveyor/internal/refinement"
	"digital-surveyor/internal/repository"
	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/models"
)

// Названия ракурсов уточнения
var angleNames = [refinement.Angles]string{"left", "center", "right"}

// ScanService сервис для работы с сохраненными сканами
type ScanService struct {
	scanRepo repository.ScanRepository
	refiner  *refinement.Refiner
	store    *ArtifactStore
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewScanService создает новый сервис для работы со сканами.
// timeout ограничивает одно уточнение, 0 означает без ограничения.
func NewScanService(scanRepo repository.ScanRepository, refiner *refinement.Refiner, store *ArtifactStore, timeout time.Duration, logger *logrus.Logger) *ScanService {
	return &ScanService{
		scanRepo: scanRepo,
		refiner:  refiner,
		store:    store,
		timeout:  timeout,
		logger:   logger,
	}
}

// GetScan получает скан по ID
func (s *ScanService) GetScan(scanID string) (*ScanResponse, error) {
	s.logger.Infof("Получаем скан %s из базы данных", scanID)

	scan, err := s.scanRepo.GetByID(scanID)
	if err != nil {
		s.logger.Errorf("Ошибка получения скана: %v", err)
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return modelToResponse(scan), nil
}

// ListScans получает список сканов с пагинацией
func (s *ScanService) ListScans(userID string, page, pageSize int) ([]ScanResponse, int64, error) {
	s.logger.Infof("Получаем список сканов: пользователь %q, страница %d, размер %d", userID, page, pageSize)

	scans, total, err := s.scanRepo.List(userID, page, pageSize)
	if err != nil {
		s.logger.Errorf("Ошибка получения списка сканов: %v", err)
		return nil, 0, fmt.Errorf("failed to list scans: %w", err)
	}

	responses := make([]ScanResponse, len(scans))
	for i, scan := range scans {
		responses[i] = *modelToResponse(scan)
	}
	return responses, total, nil
}

// DeleteScan удаляет скан и его изображения
func (s *ScanService) DeleteScan(scanID string) error {
	s.logger.Infof("Удаляем скан %s", scanID)

	if err := s.scanRepo.Delete(scanID); err != nil {
		s.logger.Errorf("Ошибка удаления скана из БД: %v", err)
		return fmt.Errorf("failed to delete scan: %w", err)
	}

	if err := s.store.RemoveScan(scanID); err != nil {
		s.logger.Warnf("Не удалось удалить файлы скана %s: %v", scanID, err)
	}
	return nil
}

// GetDamage получает повреждение по ID
func (s *ScanService) GetDamage(damageID string) (*models.DamageReport, error) {
	damage, err := s.scanRepo.GetDamage(damageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get damage: %w", err)
	}
	report := damageToReport(damage)
	return &report, nil
}

// Refine пересчитывает повреждение по трем снимкам крупного плана и помечает
// его проверенным. Деталь и тип из запроса влияют только на расчет и не
// сохраняются. Повторное уточнение запрещено.
func (s *ScanService) Refine(ctx context.Context, req models.RefineRequest) (*models.RefineResponse, error) {
	s.logger.Infof("Уточняем повреждение %s по трем ракурсам", req.DamageID)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	damage, err := s.scanRepo.GetDamage(req.DamageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get damage: %w", err)
	}
	if damage.Status == model.DamageStatusVerified {
		return nil, fmt.Errorf("damage %s: %w", damage.ID, ErrAlreadyRefined)
	}

	scan, err := s.scanRepo.GetByID(damage.ScanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	strategy, err := pricing.NewStrategy(scan.Strategy)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", scan.ID, err)
	}

	var images [refinement.Angles]image.Image
	for i, ri := range req.Images {
		img, err := decodeImage(ri.Data)
		if err != nil {
			return nil, fmt.Errorf("%s close-up: %w", angleNames[i], err)
		}
		images[i] = img
	}

	// Цена ищется по сырому названию детали, таблица цен подробнее словаря деталей
	partLabel := damage.PartLabel
	if partLabel == "" {
		partLabel = damage.PartName
	}
	if p := strings.TrimSpace(req.PartName); p != "" {
		partLabel = p
	}
	kind := taxonomy.DamageKind(damage.DamageType)
	if t := strings.TrimSpace(req.DamageType); t != "" {
		kind = taxonomy.NormalizeDamage(t)
	}

	verdict := s.refiner.Refine(ctx, images, kind, strategy.RefinementBaseCost(partLabel))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refinement interrupted: %w", err)
	}

	closeups := make([]string, 0, refinement.Angles)
	for i, ri := range req.Images {
		name := fmt.Sprintf("closeups/%s_%s%s", damage.ID, angleNames[i], ImageExt(ri.Filename))
		url, err := s.store.Save(damage.ScanID, name, ri.Data)
		if err != nil {
			s.logger.Warnf("Не удалось сохранить снимок %s: %v", name, err)
			continue
		}
		closeups = append(closeups, url)
	}

	damage.Severity = verdict.FinalSeverity
	damage.Action = string(verdict.Action)
	damage.Cost = verdict.Cost
	damage.ConfidenceLevel = verdict.Confidence
	damage.StdDeviation = verdict.StdDeviation
	damage.SeverityScores = verdict.SeverityScores[:]
	damage.CloseupPaths = closeups
	damage.Status = model.DamageStatusVerified

	if err := s.scanRepo.ApplyRefinement(damage); err != nil {
		s.logger.Errorf("Ошибка сохранения уточнения: %v", err)
		return nil, fmt.Errorf("failed to save refinement: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"damage_id":  damage.ID,
		"part":       partLabel,
		"severity":   verdict.FinalSeverity,
		"confidence": verdict.Confidence,
		"std":        verdict.StdDeviation,
		"cost":       verdict.Cost,
		"currency":   strategy.Currency(),
	}).Info("Повреждение уточнено")

	return &models.RefineResponse{
		Status:         StatusSuccess,
		DamageID:       damage.ID,
		SeverityScores: damage.SeverityScores,
		FinalSeverity:  verdict.FinalSeverity,
		Action:         damage.Action,
		Cost:           verdict.Cost,
		Currency:       strategy.Currency(),
		Confidence:     verdict.Confidence,
		StdDeviation:   verdict.StdDeviation,
		CloseupURLs:    closeups,
	}, nil
}

func decodeImage(data []byte) (image.Image, error) {
	mat, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	defer mat.Close()

	img, err := imaging.ToImage(mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return img, nil
}
