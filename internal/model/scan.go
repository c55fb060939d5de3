package model

import (
	"time"

	"gorm.io/gorm"
)

// Статусы записи о повреждении
const (
	DamageStatusPreliminary = "preliminary"
	DamageStatusVerified    = "verified"
)

// Scan представляет один снимок автомобиля и его оценку в базе данных
type Scan struct {
	ID              string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string  `gorm:"type:varchar(64);not null;index" json:"user_id"`
	CarName         string  `gorm:"type:varchar(255)" json:"car_name"`
	IsLuxury        bool    `gorm:"not null;default:false" json:"is_luxury"`
	PriceMultiplier float64 `gorm:"not null;default:1" json:"price_multiplier"`
	Strategy        string  `gorm:"type:varchar(32);not null" json:"strategy"`
	Currency        string  `gorm:"type:varchar(8);not null" json:"currency"`
	Status          string  `gorm:"type:varchar(32);not null" json:"status"`

	// Итоги
	TotalCost   float64 `gorm:"not null;default:0" json:"total_cost"`
	DamageCount int     `gorm:"not null;default:0" json:"damage_count"`

	// Сохраненные изображения
	OriginalFilename  string `gorm:"type:varchar(255)" json:"original_filename"`
	OriginalImagePath string `gorm:"type:varchar(500)" json:"original_image_path"`
	ProcessedPath     string `gorm:"type:varchar(500)" json:"processed_image_path"`
	HeatmapPath       string `gorm:"type:varchar(500)" json:"heatmap_image_path"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Связь с повреждениями
	Damages []Damage `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE" json:"damages"`
}

// Damage представляет одно повреждение скана в базе данных
type Damage struct {
	ID         string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ScanID     string  `gorm:"type:varchar(36);not null;index" json:"scan_id"`
	Index      int     `gorm:"column:damage_index;not null" json:"index"`
	PartName   string  `gorm:"type:varchar(64);not null" json:"part_name"`
	PartLabel  string  `gorm:"type:varchar(128)" json:"part_label,omitempty"`
	DamageType string  `gorm:"type:varchar(64);not null" json:"damage_type"`
	RawLabel   string  `gorm:"type:varchar(128)" json:"raw_label"`
	Confidence float64 `gorm:"not null;default:0" json:"confidence"`
	X1         float64 `gorm:"not null" json:"x1"`
	Y1         float64 `gorm:"not null" json:"y1"`
	X2         float64 `gorm:"not null" json:"x2"`
	Y2         float64 `gorm:"not null" json:"y2"`

	// Предварительная оценка сохраняется и после уточнения
	PreliminarySeverity int     `gorm:"not null" json:"preliminary_severity"`
	PreliminaryCost     float64 `gorm:"not null" json:"preliminary_cost"`
	SeverityFallback    string  `gorm:"type:varchar(64)" json:"severity_fallback,omitempty"`

	// Текущая оценка
	Severity    int     `gorm:"not null" json:"severity"`
	Action      string  `gorm:"type:varchar(64);not null" json:"action"`
	Cost        float64 `gorm:"not null" json:"cost"`
	HeatmapPath string  `gorm:"type:varchar(500)" json:"heatmap_path,omitempty"`
	Status      string  `gorm:"type:varchar(32);not null;default:preliminary" json:"status"`

	// Уточнение по трем ракурсам
	SeverityScores  []int    `gorm:"serializer:json" json:"severity_scores,omitempty"`
	ConfidenceLevel string   `gorm:"type:varchar(16)" json:"confidence_level,omitempty"`
	StdDeviation    float64  `gorm:"not null;default:0" json:"std_deviation"`
	CloseupPaths    []string `gorm:"serializer:json" json:"closeup_paths,omitempty"`
	DetectionSource string   `gorm:"type:varchar(16);not null;default:ai" json:"detection_source"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName указывает имя таблицы для Scan
func (Scan) TableName() string {
	return "scans"
}

// TableName указывает имя таблицы для Damage
func (Damage) TableName() string {
	return "damages"
}
