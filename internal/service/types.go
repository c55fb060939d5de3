package service

import (
	"context"
	"errors"
	"time"

	"digital-surveyor/internal/engine"
	"digital-surveyor/internal/repository"
	"digital-surveyor/pkg/models"
)

var (
	// ErrInvalidImage загруженный файл не является изображением
	ErrInvalidImage = errors.New("invalid image")
	// ErrAlreadyRefined повреждение уже уточнено по трем ракурсам
	ErrAlreadyRefined = repository.ErrAlreadyRefined
)

// Статусы ответа на оценку
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
)

// ScanStatusCompleted скан оценен и сохранен
const ScanStatusCompleted = "completed"

// InferenceClient внешний сервис моделей
type InferenceClient interface {
	engine.Detector
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// ScanResponse ответ с информацией о скане
type ScanResponse struct {
	ID                string                `json:"id"`
	UserID            string                `json:"user_id"`
	VehicleInfo       models.VehicleInfo    `json:"vehicle_info"`
	Strategy          string                `json:"strategy"`
	Currency          string                `json:"currency"`
	Status            string                `json:"status"`
	TotalCost         float64               `json:"total_cost"`
	Damages           []models.DamageReport `json:"damages"`
	OriginalFilename  string                `json:"original_filename,omitempty"`
	OriginalImageURL  string                `json:"original_image_url,omitempty"`
	ProcessedImageURL string                `json:"processed_image_url,omitempty"`
	HeatmapImageURL   string                `json:"heatmap_image_url,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// ListScansResponse ответ со списком сканов
type ListScansResponse struct {
	Scans []ScanResponse `json:"scans"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}
