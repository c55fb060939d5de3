package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"digital-surveyor/internal/engine"
	"digital-surveyor/internal/imaging"
	"digital-surveyor/pkg/models"
)

// Методы сервиса инференса. Тела запросов и ответов передаются как
// google.protobuf.Struct с теми же полями, что и в HTTP API.
const (
	InferenceService    = "surveyor.inference.v1.Inference"
	methodDetect        = "/" + InferenceService + "/Detect"
	methodEstimateDepth = "/" + InferenceService + "/EstimateDepth"
)

// GRPCInferenceClient клиент сервиса инференса по gRPC
type GRPCInferenceClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	logger *logrus.Logger
}

// NewGRPCInferenceClient создает клиент. Соединение устанавливается лениво.
func NewGRPCInferenceClient(addr string, logger *logrus.Logger, opts ...grpc.DialOption) (*GRPCInferenceClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client for %s: %w", addr, err)
	}
	return &GRPCInferenceClient{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		logger: logger,
	}, nil
}

// Detect отправляет снимок на детекцию моделью model
func (c *GRPCInferenceClient) Detect(ctx context.Context, img image.Image, model string, opts engine.DetectOptions) ([]models.Detection, error) {
	encoded, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	req, err := structpb.NewStruct(map[string]any{
		"image":      encoded,
		"model":      model,
		"confidence": opts.Confidence,
		"iou":        opts.IoU,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}

	var resp models.DetectResponse
	if err := c.invoke(ctx, methodDetect, req, &resp); err != nil {
		return nil, fmt.Errorf("detect %s: %w", model, err)
	}
	return resp.ToDetections(), nil
}

// EstimateDepth отправляет фрагмент в модель глубины
func (c *GRPCInferenceClient) EstimateDepth(ctx context.Context, crop image.Image) (models.DepthMap, error) {
	encoded, err := encodeImage(crop)
	if err != nil {
		return nil, err
	}

	req, err := structpb.NewStruct(map[string]any{"image": encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to build depth request: %w", err)
	}

	var resp models.DepthResponse
	if err := c.invoke(ctx, methodEstimateDepth, req, &resp); err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	return models.DepthMap(resp.Depth), nil
}

// CheckHealth опрашивает стандартный gRPC health сервис
func (c *GRPCInferenceClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: InferenceService})
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	serving := resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	status := "healthy"
	if !serving {
		status = "unhealthy"
	}
	return &models.HealthResponse{Status: status, ModelLoaded: serving}, nil
}

// Close закрывает соединение
func (c *GRPCInferenceClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCInferenceClient) invoke(ctx context.Context, method string, req *structpb.Struct, out any) error {
	c.logger.WithField("method", method).Debug("Вызов gRPC метода")

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return err
	}

	// Struct -> JSON -> DTO, чтобы HTTP и gRPC разбирали одни и те же типы
	data, err := protojson.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func encodeImage(img image.Image) (string, error) {
	data, err := imaging.EncodeImagePNG(img)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
