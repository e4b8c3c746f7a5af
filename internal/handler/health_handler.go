package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler проверка состояния сервиса и его зависимостей
type HealthHandler struct {
	database   func() error
	detections DetectionService
	logger     *logrus.Logger
}

// NewHealthHandler создает новый экземпляр HealthHandler
func NewHealthHandler(database func() error, detections DetectionService, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		database:   database,
		detections: detections,
		logger:     logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *HealthHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.CheckHealth)
}

// CheckHealth проверяет базу данных и сервис распознавания.
// Без распознавания сервис работает с ограничениями и отвечает статусом degraded.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	h.logger.Debug("Получен запрос проверки здоровья")

	if err := h.database(); err != nil {
		h.logger.Errorf("База данных недоступна: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unavailable",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	detector, err := h.detections.CheckDetector(ctx)
	if err != nil {
		h.logger.Warnf("Сервис распознавания недоступен: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"status":   "degraded",
			"database": "ok",
			"detector": "unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "ok",
		"detector": detector,
	})
}
