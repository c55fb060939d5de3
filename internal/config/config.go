package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
	}
	Inference struct {
		Transport string // http или grpc
		BaseURL   string
		GRPCAddr  string
		Timeout   time.Duration
	}
	Depth struct {
		Backend     string // http, grpc или onnx
		ModelPath   string
		LibraryPath string
	}
	Database struct {
		Driver   string // postgres или mysql
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		SSLMode  string
	}
	Assessment struct {
		Strategy         string // detailed или coarse
		MaxWorkers       int
		Timeout          time.Duration
		MergeDistance    float64
		DamageConfidence float64
		DamageIoU        float64
		PartsConfidence  float64
		PartsIoU         float64
	}
	Storage struct {
		StaticDir string
	}
	Logging struct {
		Level string
	}
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файл .env, если он есть, подхватывается до чтения переменных.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")

	// Конфигурация сервиса инференса
	cfg.Inference.Transport = strings.ToLower(getEnv("INFERENCE_TRANSPORT", "http"))
	cfg.Inference.BaseURL = getEnv("INFERENCE_BASE_URL", "http://localhost:8000")
	cfg.Inference.GRPCAddr = getEnv("INFERENCE_GRPC_ADDR", "localhost:50051")
	cfg.Inference.Timeout = getEnvSeconds("INFERENCE_TIMEOUT_SECONDS", 120)

	// Конфигурация модели глубины
	cfg.Depth.Backend = strings.ToLower(getEnv("DEPTH_BACKEND", cfg.Inference.Transport))
	cfg.Depth.ModelPath = getEnv("DEPTH_MODEL_PATH", "models/depth_anything_small.onnx")
	cfg.Depth.LibraryPath = getEnv("ONNX_LIBRARY_PATH", "")

	// Конфигурация базы данных
	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", defaultDBPort(cfg.Database.Driver))
	cfg.Database.Name = getEnv("DB_NAME", "digital_surveyor")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres123")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	// Конфигурация оценки
	cfg.Assessment.Strategy = strings.ToLower(getEnv("ASSESSMENT_STRATEGY", "detailed"))
	cfg.Assessment.MaxWorkers = getEnvInt("ASSESSMENT_MAX_WORKERS", 4)
	cfg.Assessment.Timeout = getEnvSeconds("ASSESSMENT_TIMEOUT_SECONDS", 300) // 5 минут по умолчанию
	cfg.Assessment.MergeDistance = getEnvFloat("MERGE_DISTANCE_PX", 50)
	cfg.Assessment.DamageConfidence = getEnvFloat("DAMAGE_CONFIDENCE", 0.40)
	cfg.Assessment.DamageIoU = getEnvFloat("DAMAGE_IOU", 0.5)
	cfg.Assessment.PartsConfidence = getEnvFloat("PARTS_CONFIDENCE", 0.25)
	cfg.Assessment.PartsIoU = getEnvFloat("PARTS_IOU", 0.45)

	// Хранилище изображений
	cfg.Storage.StaticDir = getEnv("STATIC_DIR", "static")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения перечислимых параметров
func (c *Config) Validate() error {
	if !oneOf(c.Inference.Transport, "http", "grpc") {
		return fmt.Errorf("INFERENCE_TRANSPORT must be http or grpc, got %q", c.Inference.Transport)
	}
	if !oneOf(c.Depth.Backend, "http", "grpc", "onnx") {
		return fmt.Errorf("DEPTH_BACKEND must be http, grpc or onnx, got %q", c.Depth.Backend)
	}
	if !oneOf(c.Database.Driver, "postgres", "mysql") {
		return fmt.Errorf("DB_DRIVER must be postgres or mysql, got %q", c.Database.Driver)
	}
	if !oneOf(c.Assessment.Strategy, "detailed", "coarse") {
		return fmt.Errorf("ASSESSMENT_STRATEGY must be detailed or coarse, got %q", c.Assessment.Strategy)
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func defaultDBPort(driver string) string {
	if driver == "mysql" {
		return "3306"
	}
	return "5432"
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает float значение переменной окружения или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvSeconds читает число секунд и возвращает time.Duration
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
