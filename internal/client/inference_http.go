// Package client содержит клиенты внешнего сервиса инференса (детекторы и модель глубины).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"digital-surveyor/internal/engine"
	"digital-surveyor/internal/imaging"
	"digital-surveyor/pkg/models"
)

// HTTPInferenceClient клиент сервиса инференса по HTTP
type HTTPInferenceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewHTTPInferenceClient создает новый клиент сервиса инференса
func NewHTTPInferenceClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *HTTPInferenceClient {
	return &HTTPInferenceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Detect отправляет снимок на детекцию моделью model ("parts" или "damage")
func (c *HTTPInferenceClient) Detect(ctx context.Context, img image.Image, model string, opts engine.DetectOptions) ([]models.Detection, error) {
	c.logger.WithField("model", model).Debug("Отправка снимка на детекцию")

	fields := map[string]string{
		"model":      model,
		"confidence": strconv.FormatFloat(opts.Confidence, 'f', -1, 64),
		"iou":        strconv.FormatFloat(opts.IoU, 'f', -1, 64),
	}

	var resp models.DetectResponse
	if err := c.postImage(ctx, "/detect", img, fields, &resp); err != nil {
		return nil, fmt.Errorf("detect %s: %w", model, err)
	}
	return resp.ToDetections(), nil
}

// EstimateDepth отправляет фрагмент в модель глубины
func (c *HTTPInferenceClient) EstimateDepth(ctx context.Context, crop image.Image) (models.DepthMap, error) {
	var resp models.DepthResponse
	if err := c.postImage(ctx, "/depth", crop, nil, &resp); err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	return models.DepthMap(resp.Depth), nil
}

func (c *HTTPInferenceClient) postImage(ctx context.Context, path string, img image.Image, fields map[string]string, out any) error {
	data, err := imaging.EncodeImagePNG(img)
	if err != nil {
		return fmt.Errorf("ошибка кодирования изображения: %w", err)
	}

	// Создаем multipart form-data
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	imageWriter, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return fmt.Errorf("ошибка создания form field для изображения: %w", err)
	}
	if _, err := imageWriter.Write(data); err != nil {
		return fmt.Errorf("ошибка записи данных изображения: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("ошибка записи %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debugf("Отправка POST запроса на %s", url)
	return c.do(req, out)
}

// CheckHealth проверяет состояние сервиса инференса
func (c *HTTPInferenceClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса инференса")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	var health models.HealthResponse
	if err := c.do(req, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *HTTPInferenceClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервис инференса вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	return nil
}
