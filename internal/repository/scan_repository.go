package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"digital-surveyor/internal/model"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("record not found")

// ErrAlreadyRefined повреждение уже уточнено
var ErrAlreadyRefined = errors.New("damage already refined")

// refinementColumns поля, которые меняет уточнение
var refinementColumns = []string{
	"severity", "action", "cost", "status",
	"severity_scores", "confidence_level", "std_deviation", "closeup_paths", "updated_at",
}

// ScanRepository интерфейс для работы со сканами и повреждениями
type ScanRepository interface {
	Create(scan *model.Scan) error
	GetByID(id string) (*model.Scan, error)
	List(userID string, page, pageSize int) ([]*model.Scan, int64, error)
	Delete(id string) error
	GetDamage(id string) (*model.Damage, error)
	ApplyRefinement(damage *model.Damage) error
}

// scanRepository реализация ScanRepository
type scanRepository struct {
	db *gorm.DB
}

// NewScanRepository создает новый instance ScanRepository
func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepository{
		db: db,
	}
}

// Create создает скан вместе с повреждениями в одной транзакции
func (r *scanRepository) Create(scan *model.Scan) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	// Повреждения создаем отдельно, чтобы проставить ScanID
	if err := tx.Omit("Damages").Create(scan).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create scan: %w", err)
	}

	for i := range scan.Damages {
		scan.Damages[i].ScanID = scan.ID
		if err := tx.Create(&scan.Damages[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create damage %d: %w", i, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID получает скан по ID вместе с повреждениями в порядке детекции
func (r *scanRepository) GetByID(id string) (*model.Scan, error) {
	var scan model.Scan
	err := r.db.Preload("Damages", func(db *gorm.DB) *gorm.DB {
		return db.Order("damages.damage_index ASC")
	}).Where("id = ?", id).First(&scan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("scan with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &scan, nil
}

// List получает сканы пользователя с пагинацией (все сканы, если userID пуст)
func (r *scanRepository) List(userID string, page, pageSize int) ([]*model.Scan, int64, error) {
	var scans []*model.Scan
	var total int64

	query := r.db.Model(&model.Scan{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	// Подсчитываем общее количество
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count scans: %w", err)
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Damages", func(db *gorm.DB) *gorm.DB {
		return db.Order("damages.damage_index ASC")
	}).
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&scans).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scans: %w", err)
	}

	return scans, total, nil
}

// Delete удаляет скан и его повреждения
func (r *scanRepository) Delete(id string) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	// Сначала удаляем повреждения
	if err := tx.Where("scan_id = ?", id).Delete(&model.Damage{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete damages: %w", err)
	}

	// Затем удаляем скан
	result := tx.Where("id = ?", id).Delete(&model.Scan{})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete scan: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("scan with id %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetDamage получает повреждение по ID
func (r *scanRepository) GetDamage(id string) (*model.Damage, error) {
	var damage model.Damage
	err := r.db.Where("id = ?", id).First(&damage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("damage with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get damage: %w", err)
	}
	return &damage, nil
}

// ApplyRefinement сохраняет уточненное повреждение и пересчитывает итог скана.
// Обновляется только предварительное повреждение, иначе ErrAlreadyRefined.
func (r *scanRepository) ApplyRefinement(damage *model.Damage) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	result := tx.Model(damage).
		Where("status = ?", model.DamageStatusPreliminary).
		Select(refinementColumns).
		Updates(damage)
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update damage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("damage %s: %w", damage.ID, ErrAlreadyRefined)
	}

	var total float64
	if err := tx.Model(&model.Damage{}).
		Where("scan_id = ?", damage.ScanID).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&total).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to sum scan cost: %w", err)
	}

	if err := tx.Model(&model.Scan{}).
		Where("id = ?", damage.ScanID).
		Update("total_cost", total).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update scan total: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
