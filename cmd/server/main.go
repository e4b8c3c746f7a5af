package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stopped-vehicle-detector-go/internal/archive"
	"stopped-vehicle-detector-go/internal/client"
	"stopped-vehicle-detector-go/internal/config"
	"stopped-vehicle-detector-go/internal/database"
	"stopped-vehicle-detector-go/internal/handler"
	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/publisher"
	"stopped-vehicle-detector-go/internal/repository"
	"stopped-vehicle-detector-go/internal/scanner"
	"stopped-vehicle-detector-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthPollInterval = 30 * time.Second

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск Stopped Vehicle Detector API Server")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Неизвестный уровень логирования %q, используется info", cfg.Logging.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем базу данных
	logger.Info("Подключение к базе данных...")
	db, err := database.Connect(cfg.DSN(), database.DefaultPoolConfig(), logger)
	if err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	logger.Info("Выполнение миграций базы данных...")
	if err := db.Migrate(); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}
	if err := db.HealthCheck(); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}
	logger.Info("База данных успешно подключена и готова к работе")

	// Репозитории
	detectionRepo := repository.NewDetectionRepository(db.DB)
	stoppedRepo := repository.NewStoppedVehicleRepository(db.DB)
	runRepo := repository.NewAnalysisRunRepository(db.DB)

	detectorAPI := client.NewDetectorAPIClient(cfg.DetectorAPI.BaseURL, cfg.DetectorAPI.Timeout, logger)

	detector, err := longterm.NewDetector(cfg.Detector, longterm.WithLogger(logger))
	if err != nil {
		logger.Fatalf("Некорректные параметры детектора: %v", err)
	}

	var opts []service.AnalysisOption
	if cfg.Kafka.Enabled {
		kafka, err := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic, logger)
		if err != nil {
			logger.Fatalf("Ошибка подключения к Kafka: %v", err)
		}
		defer kafka.Close()
		opts = append(opts, service.WithAlertPublisher(kafka))
		logger.Infof("Оповещения публикуются в топик %s", cfg.Kafka.AlertTopic)
	}
	if cfg.Archive.Enabled {
		archiver, err := archive.NewS3Archiver(ctx, cfg.Archive.Region, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		if err != nil {
			logger.Fatalf("Ошибка инициализации архива S3: %v", err)
		}
		opts = append(opts, service.WithReportArchiver(archiver))
		logger.Infof("Отчеты архивируются в s3://%s/%s", cfg.Archive.Bucket, cfg.Archive.Prefix)
	}

	// Сервисы
	clock := service.SystemClock{}
	detectionService := service.NewDetectionService(detectionRepo, detectorAPI, clock, cfg.DetectorAPI.MinConfidence, logger)
	analysisService := service.NewAnalysisService(detectionRepo, stoppedRepo, runRepo, detector, clock, logger, opts...)

	// Обработчики
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(
		handler.NewDetectionHandler(detectionService, logger),
		handler.NewAnalysisHandler(analysisService, logger),
		handler.NewHealthHandler(db.HealthCheck, detectionService, logger),
	)

	if cfg.Scanner.Enabled {
		sc := scanner.New(analysisService, scanner.Config{
			Interval:   cfg.Scanner.Interval,
			Workers:    cfg.Scanner.Workers,
			DaysBack:   cfg.Scanner.DaysBack,
			Regions:    cfg.Scanner.Regions,
			RunOnStart: true,
		}, logger)
		if err := sc.Start(ctx); err != nil {
			logger.Fatalf("Ошибка запуска планировщика: %v", err)
		}
		defer sc.Stop()
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := serveHealth(ctx, cfg.Server.GRPCPort, db.HealthCheck, logger); err != nil {
			logger.Errorf("Ошибка gRPC health сервера: %v", err)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Сервер запущен на порту %d", cfg.Server.Port)
		logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Ошибка запуска сервера: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Остановка сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки HTTP сервера: %v", err)
		_ = server.Close()
	}

	wg.Wait()
	logger.Info("Сервер остановлен")
}

// serveHealth отдает стандартный gRPC health check, статус берется из проверки базы
func serveHealth(ctx context.Context, port int, check func() error, logger *logrus.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if err := check(); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warnf("База данных недоступна: %v", err)
		}
		healthServer.SetServingStatus("", status)
	}
	update()

	go func() {
		ticker := time.NewTicker(healthPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				healthServer.Shutdown()
				grpcServer.GracefulStop()
				return
			case <-ticker.C:
				update()
			}
		}
	}()

	logger.Infof("gRPC health сервер запущен на порту %d", port)
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
