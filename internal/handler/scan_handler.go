package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"digital-surveyor/internal/repository"
	"digital-surveyor/internal/service"
	"digital-surveyor/pkg/models"
)

// maxUploadMemory лимит памяти на разбор multipart формы
const maxUploadMemory = 32 << 20

// Поля формы со снимками крупного плана в порядке ракурсов
var closeupFields = [3]string{"file_left", "file_center", "file_right"}

// Analyzer оценивает снимок автомобиля
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// Scans работает с сохраненными сканами
type Scans interface {
	GetScan(scanID string) (*service.ScanResponse, error)
	ListScans(userID string, page, pageSize int) ([]service.ScanResponse, int64, error)
	DeleteScan(scanID string) error
	GetDamage(damageID string) (*models.DamageReport, error)
	Refine(ctx context.Context, req models.RefineRequest) (*models.RefineResponse, error)
}

// ScanHandler обрабатывает HTTP запросы оценки повреждений
type ScanHandler struct {
	analyzer Analyzer
	scans    Scans
	logger   *logrus.Logger
}

// NewScanHandler создает новый экземпляр ScanHandler
func NewScanHandler(analyzer Analyzer, scans Scans, logger *logrus.Logger) *ScanHandler {
	return &ScanHandler{
		analyzer: analyzer,
		scans:    scans,
		logger:   logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *ScanHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/analyze", h.Analyze)
		api.GET("/scans", h.ListScans)
		api.GET("/scans/:id", h.GetScan)
		api.DELETE("/scans/:id", h.DeleteScan)
		api.GET("/damages/:id", h.GetDamage)
		api.POST("/damages/:id/refine", h.RefineDamage)
		api.GET("/health", h.CheckHealth)
	}
}

// Analyze обрабатывает загрузку снимка на оценку
func (h *ScanHandler) Analyze(c *gin.Context) {
	h.logger.Info("Получен запрос на оценку повреждений")

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Errorf("Ошибка парсинга multipart form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка парсинга формы"})
		return
	}

	data, filename, err := readFormFile(c, "file")
	if err != nil {
		h.logger.Errorf("Ошибка получения файла: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл изображения обязателен"})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), models.AnalyzeRequest{
		ImageData: data,
		Filename:  filename,
		UserID:    c.PostForm("user_id"),
		CarName:   c.PostForm("car_name"),
	})
	if err != nil {
		h.respondError(c, err, "Ошибка оценки повреждений")
		return
	}

	if result.Status == service.StatusRejected {
		h.logger.Infof("Снимок отклонен: %s", result.QualityIssue)
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	h.logger.Infof("Оценка завершена, скан %s", result.ScanID)
	c.JSON(http.StatusOK, result)
}

// RefineDamage уточняет повреждение по трем снимкам крупного плана
func (h *ScanHandler) RefineDamage(c *gin.Context) {
	damageID := c.Param("id")
	h.logger.Infof("Получен запрос на уточнение повреждения %s", damageID)

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Errorf("Ошибка парсинга multipart form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка парсинга формы"})
		return
	}

	req := models.RefineRequest{
		DamageID:   damageID,
		PartName:   c.PostForm("part_name"),
		DamageType: c.PostForm("damage_type"),
	}
	for i, field := range closeupFields {
		data, filename, err := readFormFile(c, field)
		if err != nil {
			h.logger.Errorf("Ошибка получения файла %s: %v", field, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Требуются три снимка: file_left, file_center, file_right"})
			return
		}
		req.Images[i] = models.RefineImage{Data: data, Filename: filename}
	}

	result, err := h.scans.Refine(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Ошибка уточнения повреждения")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListScans возвращает список сканов с пагинацией
func (h *ScanHandler) ListScans(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	scans, total, err := h.scans.ListScans(c.Query("user_id"), page, size)
	if err != nil {
		h.respondError(c, err, "Ошибка получения списка сканов")
		return
	}

	c.JSON(http.StatusOK, service.ListScansResponse{
		Scans: scans,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// GetScan возвращает скан по ID
func (h *ScanHandler) GetScan(c *gin.Context) {
	scan, err := h.scans.GetScan(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Ошибка получения скана")
		return
	}
	c.JSON(http.StatusOK, scan)
}

// DeleteScan удаляет скан по ID
func (h *ScanHandler) DeleteScan(c *gin.Context) {
	if err := h.scans.DeleteScan(c.Param("id")); err != nil {
		h.respondError(c, err, "Ошибка удаления скана")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Скан успешно удален"})
}

// GetDamage возвращает повреждение по ID
func (h *ScanHandler) GetDamage(c *gin.Context) {
	damage, err := h.scans.GetDamage(c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Ошибка получения повреждения")
		return
	}
	c.JSON(http.StatusOK, damage)
}

// CheckHealth проверяет состояние сервиса
func (h *ScanHandler) CheckHealth(c *gin.Context) {
	health, err := h.analyzer.CheckHealth(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Сервис моделей недоступен: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "Сервис моделей недоступен",
		})
		return
	}
	c.JSON(http.StatusOK, health)
}

// respondError переводит ошибку сервиса в HTTP статус
func (h *ScanHandler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Запись не найдена"})
	case errors.Is(err, service.ErrInvalidImage):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Файл не является изображением"})
	case errors.Is(err, service.ErrAlreadyRefined):
		c.JSON(http.StatusConflict, gin.H{"error": "Повреждение уже уточнено"})
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Errorf("%s: %v", message, err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Превышено время оценки"})
	default:
		h.logger.Errorf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

// readFormFile читает файл формы целиком
func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}
