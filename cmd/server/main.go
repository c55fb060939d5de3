package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"digital-surveyor/internal/client"
	"digital-surveyor/internal/config"
	"digital-surveyor/internal/database"
	"digital-surveyor/internal/depth"
	"digital-surveyor/internal/detection"
	"digital-surveyor/internal/engine"
	"digital-surveyor/internal/handler"
	"digital-surveyor/internal/pricing"
	"digital-surveyor/internal/quality"
	"digital-surveyor/internal/refinement"
	"digital-surveyor/internal/repository"
	"digital-surveyor/internal/service"
	"digital-surveyor/internal/severity"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск Digital Surveyor API Server")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Неизвестный уровень логирования %q, используем info", cfg.Logging.Level)
	}

	// Инициализируем базу данных
	logger.Info("Подключение к базе данных...")
	db, err := database.Connect(database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}, logger)
	if err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer database.Close(db)

	logger.Info("Выполнение миграций базы данных...")
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}
	if err := database.HealthCheck(db); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}
	logger.Info("База данных успешно подключена и готова к работе")

	// Создаем папку для статических файлов
	staticDir := cfg.Storage.StaticDir
	if err := os.MkdirAll(staticDir, 0755); err != nil {
		logger.Fatalf("Ошибка создания папки для статических файлов: %v", err)
	}

	// Клиенты моделей
	httpClient := client.NewHTTPInferenceClient(cfg.Inference.BaseURL, cfg.Inference.Timeout, logger)
	var grpcClient *client.GRPCInferenceClient
	if cfg.Inference.Transport == "grpc" || cfg.Depth.Backend == "grpc" {
		grpcClient, err = client.NewGRPCInferenceClient(cfg.Inference.GRPCAddr, logger)
		if err != nil {
			logger.Fatalf("Ошибка подключения к gRPC сервису моделей: %v", err)
		}
		defer grpcClient.Close()
	}

	var inference service.InferenceClient = httpClient
	if cfg.Inference.Transport == "grpc" {
		inference = grpcClient
	}

	var depthEstimator severity.DepthEstimator
	switch cfg.Depth.Backend {
	case "onnx":
		onnx, err := depth.NewONNXEstimator(cfg.Depth.ModelPath, cfg.Depth.LibraryPath, logger)
		if err != nil {
			logger.Fatalf("Ошибка загрузки модели глубины: %v", err)
		}
		defer onnx.Close()
		depthEstimator = onnx
	case "grpc":
		depthEstimator = grpcClient
	default:
		depthEstimator = httpClient
	}
	logger.Infof("Детектор: %s, модель глубины: %s", cfg.Inference.Transport, cfg.Depth.Backend)

	// Собираем оценщик
	strategy, err := pricing.NewStrategy(cfg.Assessment.Strategy)
	if err != nil {
		logger.Fatalf("Ошибка выбора правил оценки: %v", err)
	}
	postCfg := detection.DefaultConfig()
	postCfg.MergeDistance = cfg.Assessment.MergeDistance

	estimator := severity.NewEstimator(depthEstimator, logger)
	eng := engine.NewEngine(detection.NewPostProcessor(postCfg), estimator, strategy, cfg.Assessment.MaxWorkers, logger)

	// Инициализируем репозитории и сервисы
	scanRepo := repository.NewScanRepository(db)
	store := service.NewArtifactStore(staticDir, logger)

	assessmentService := service.NewAssessmentService(
		inference,
		quality.NewGate(quality.DefaultThresholds()),
		eng,
		scanRepo,
		store,
		service.AssessmentOptions{
			Parts:   engine.DetectOptions{Confidence: cfg.Assessment.PartsConfidence, IoU: cfg.Assessment.PartsIoU},
			Damage:  engine.DetectOptions{Confidence: cfg.Assessment.DamageConfidence, IoU: cfg.Assessment.DamageIoU},
			Timeout: cfg.Assessment.Timeout,
		},
		logger,
	)
	scanService := service.NewScanService(scanRepo, refinement.NewRefiner(estimator, logger), store, cfg.Assessment.Timeout, logger)

	scanHandler := handler.NewScanHandler(assessmentService, scanService, logger)

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.Static(service.StaticURLPrefix, staticDir)
	scanHandler.RegisterRoutes(router)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Digital Surveyor API Server",
			"version":  service.Version,
			"status":   "running",
			"strategy": strategy.Name(),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Сервер запущен на %s", serverAddr)
	logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)

	if err := router.Run(serverAddr); err != nil {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
