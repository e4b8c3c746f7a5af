package handler

import (
	"net/http"

	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnalysisHandler обрабатывает HTTP запросы анализа длительных остановок
type AnalysisHandler struct {
	analysis AnalysisService
	logger   *logrus.Logger
}

// NewAnalysisHandler создает новый экземпляр AnalysisHandler
func NewAnalysisHandler(analysis AnalysisService, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		logger:   logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *AnalysisHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/long-term-stopped", h.LongTermStopped)
	api.GET("/vehicle-history/:id", h.VehicleHistory)
	api.GET("/area-summary", h.AreaSummary)
	api.POST("/analyze", h.Analyze)
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:id", h.GetRun)
	api.GET("/stopped-vehicles", h.ListStoppedVehicles)
	api.PATCH("/stopped-vehicles/:key/status", h.UpdateStoppedVehicleStatus)
}

// LongTermStopped запускает анализ области и возвращает отчет
func (h *AnalysisHandler) LongTermStopped(c *gin.Context) {
	q, err := parseAreaQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Infof("Анализ длительных остановок: (%.6f, %.6f) радиус %.4f, %d дн.", q.Center.Lat, q.Center.Lon, q.RadiusDeg, q.DaysBack)

	result, err := h.analysis.AnalyzeArea(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка анализа области")
		return
	}

	c.JSON(http.StatusOK, result)
}

// VehicleHistory возвращает историю автомобиля по ID детекции
func (h *AnalysisHandler) VehicleHistory(c *gin.Context) {
	history, err := h.analysis.VehicleHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "Ошибка получения истории автомобиля")
		return
	}

	c.JSON(http.StatusOK, history)
}

// AreaSummary возвращает сводку по области
func (h *AnalysisHandler) AreaSummary(c *gin.Context) {
	q, err := parseAreaQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.analysis.AreaSummary(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка построения сводки")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Analyze анализирует детекции из тела запроса, ничего не сохраняя
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req service.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат JSON"})
		return
	}

	report, err := h.analysis.AnalyzeDetections(req)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка анализа")
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListRuns возвращает список запусков анализа
func (h *AnalysisHandler) ListRuns(c *gin.Context) {
	page, size := pagination(c)

	runs, err := h.analysis.ListRuns(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка получения списка запусков")
		return
	}

	c.JSON(http.StatusOK, runs)
}

// GetRun возвращает запуск анализа с отчетом
func (h *AnalysisHandler) GetRun(c *gin.Context) {
	run, err := h.analysis.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "Ошибка получения запуска")
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListStoppedVehicles возвращает историю длительно стоящих автомобилей
func (h *AnalysisHandler) ListStoppedVehicles(c *gin.Context) {
	page, size := pagination(c)
	status := model.StoppedVehicleStatus(c.Query("status"))

	vehicles, err := h.analysis.ListStoppedVehicles(c.Request.Context(), page, size, status)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка получения списка автомобилей")
		return
	}

	c.JSON(http.StatusOK, vehicles)
}

type statusRequest struct {
	Status model.StoppedVehicleStatus `json:"status" binding:"required"`
	Notes  string                     `json:"notes"`
}

// UpdateStoppedVehicleStatus меняет статус разбора автомобиля
func (h *AnalysisHandler) UpdateStoppedVehicleStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Поле status обязательно"})
		return
	}

	record, err := h.analysis.UpdateStoppedVehicleStatus(c.Request.Context(), c.Param("key"), req.Status, req.Notes)
	if err != nil {
		writeError(c, h.logger, err, "Ошибка обновления статуса")
		return
	}

	c.JSON(http.StatusOK, record)
}
