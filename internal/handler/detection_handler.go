package handler

import (
	"io"
	"net/http"
	"time"

	"stopped-vehicle-detector-go/internal/service"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DetectionHandler обрабатывает HTTP запросы приема и поиска детекций
type DetectionHandler struct {
	detections DetectionService
	logger     *logrus.Logger
}

// NewDetectionHandler создает новый экземпляр DetectionHandler
func NewDetectionHandler(detections DetectionService, logger *logrus.Logger) *DetectionHandler {
	return &DetectionHandler{
		detections: detections,
		logger:     logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *DetectionHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/detections", h.IngestDetections)
	api.POST("/detections/image", h.IngestImage)
	api.GET("/detections/search", h.SearchDetections)
}

type ingestRequest struct {
	Detections []models.Detection `json:"detections"`
}

// IngestDetections принимает пакет детекций в JSON
func (h *DetectionHandler) IngestDetections(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат JSON"})
		return
	}
	if len(req.Detections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Список детекций пуст"})
		return
	}

	stored, err := h.detections.Ingest(c.Request.Context(), req.Detections)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка сохранения детекций")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"saved":      len(stored),
		"detections": stored,
	})
}

// IngestImage принимает снимок, распознает на нем автомобили и сохраняет их
func (h *DetectionHandler) IngestImage(c *gin.Context) {
	h.logger.Info("Получен снимок для распознавания")

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		h.logger.Errorf("Ошибка парсинга multipart form: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка парсинга формы"})
		return
	}

	center, err := parseCenter(c.PostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := service.ImageIngestRequest{Center: center}

	if raw := c.PostForm("captured_at"); raw != "" {
		if req.CapturedAt, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "captured_at должен быть в формате RFC3339"})
			return
		}
	}
	if raw := c.PostForm("degrees_per_pixel"); raw != "" {
		if req.DegreesPerPixel, err = parseFloat(raw, "degrees_per_pixel"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл снимка обязателен"})
		return
	}
	defer file.Close()

	req.Image, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения снимка"})
		return
	}
	req.Filename = header.Filename

	result, err := h.detections.IngestImage(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка обработки снимка")
		return
	}

	h.logger.Infof("Снимок %s обработан: сохранено %d детекций", header.Filename, len(result.Detections))
	c.JSON(http.StatusOK, result)
}

// SearchDetections ищет детекции в области
func (h *DetectionHandler) SearchDetections(c *gin.Context) {
	center, err := parseCenter(c.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := service.SearchQuery{
		Center:       center,
		RadiusDeg:    defaultRadiusDeg,
		VehicleClass: models.VehicleClass(c.Query("type")),
		TimeRange:    c.DefaultQuery("time_range", "24h"),
	}
	if raw := c.Query("radius"); raw != "" {
		if q.RadiusDeg, err = parseFloat(raw, "radius"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	found, err := h.detections.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка поиска детекций")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"detections":  found,
		"total_found": len(found),
		"search_area": gin.H{"center": center, "radius": q.RadiusDeg},
		"time_range":  q.TimeRange,
	})
}
