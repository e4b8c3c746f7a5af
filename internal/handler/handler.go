package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/internal/service"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DetectionService операции с детекциями, нужные обработчикам
type DetectionService interface {
	Ingest(ctx context.Context, detections []models.Detection) ([]models.Detection, error)
	IngestImage(ctx context.Context, req service.ImageIngestRequest) (*service.ImageIngestResult, error)
	Search(ctx context.Context, q service.SearchQuery) ([]models.Detection, error)
	CheckDetector(ctx context.Context) (*models.HealthResponse, error)
}

// AnalysisService операции анализа, нужные обработчикам
type AnalysisService interface {
	AnalyzeArea(ctx context.Context, q service.AreaQuery) (*service.AnalysisResult, error)
	AnalyzeDetections(req service.AnalyzeRequest) (*longterm.Report, error)
	VehicleHistory(ctx context.Context, detectionID string) (*service.VehicleHistory, error)
	AreaSummary(ctx context.Context, q service.AreaQuery) (*service.AreaSummary, error)
	GetRun(ctx context.Context, id string) (*service.RunResponse, error)
	ListRuns(ctx context.Context, page, pageSize int) (*service.ListRunsResponse, error)
	ListStoppedVehicles(ctx context.Context, page, pageSize int, status model.StoppedVehicleStatus) (*service.ListStoppedVehiclesResponse, error)
	UpdateStoppedVehicleStatus(ctx context.Context, trackKey string, status model.StoppedVehicleStatus, notes string) (*model.StoppedVehicleRecord, error)
}

const (
	defaultRadiusDeg = 0.01
	defaultDaysBack  = 7
)

// NewRouter собирает gin router со всеми маршрутами API
func NewRouter(detections *DetectionHandler, analysis *AnalysisHandler, health *HealthHandler) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CorsMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Stopped Vehicle Detector API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	api := router.Group("/api/v1")
	detections.RegisterRoutes(api)
	analysis.RegisterRoutes(api)
	health.RegisterRoutes(api)

	return router
}

// CorsMiddleware добавляет заголовки CORS
func CorsMiddleware() gin.HandlerFunc {
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

// writeError отвечает кодом по типу ошибки: входные данные 400, нет записи 404, остальное 500
func writeError(c *gin.Context, logger *logrus.Logger, err error, message string) {
	switch {
	case service.IsBadRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Запись не найдена"})
	default:
		logger.Errorf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

// parseFloat парсит строку в float64
func parseFloat(value, fieldName string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("%s обязателен", fieldName)
	}

	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s должен быть числом", fieldName)
	}

	return result, nil
}

// parseCenter читает обязательные lat и lng
func parseCenter(get func(string) string) (models.Coordinates, error) {
	lat, err := parseFloat(get("lat"), "lat")
	if err != nil {
		return models.Coordinates{}, err
	}
	lng, err := parseFloat(get("lng"), "lng")
	if err != nil {
		return models.Coordinates{}, err
	}
	return models.Coordinates{Lat: lat, Lon: lng}, nil
}

// parseAreaQuery читает lat, lng, radius и days_back из строки запроса
func parseAreaQuery(c *gin.Context) (service.AreaQuery, error) {
	center, err := parseCenter(c.Query)
	if err != nil {
		return service.AreaQuery{}, err
	}

	q := service.AreaQuery{
		Region:    c.Query("region"),
		Center:    center,
		RadiusDeg: defaultRadiusDeg,
		DaysBack:  defaultDaysBack,
	}

	if raw := c.Query("radius"); raw != "" {
		if q.RadiusDeg, err = parseFloat(raw, "radius"); err != nil {
			return service.AreaQuery{}, err
		}
	}
	if raw := c.Query("days_back"); raw != "" {
		if q.DaysBack, err = strconv.Atoi(raw); err != nil {
			return service.AreaQuery{}, fmt.Errorf("days_back должен быть целым числом")
		}
	}

	return q, nil
}

// pagination читает page и size
func pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > 100 {
		size = 20
	}

	return page, size
}
