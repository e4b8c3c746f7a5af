package service

import (
	"time"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/pkg/models"
)

// AreaQuery область и глубина анализа
type AreaQuery struct {
	Region    string             `json:"region,omitempty"`
	Center    models.Coordinates `json:"center"`
	RadiusDeg float64            `json:"radius"`
	DaysBack  int                `json:"days_back"`
}

// SearchQuery параметры поиска детекций
type SearchQuery struct {
	Center       models.Coordinates  `json:"center"`
	RadiusDeg    float64             `json:"radius"`
	VehicleClass models.VehicleClass `json:"vehicle_type,omitempty"`
	TimeRange    string              `json:"time_range"` // 24h, 7d, 30d
	Limit        int                 `json:"limit,omitempty"`
}

// ImageIngestRequest снимок с привязкой к местности
type ImageIngestRequest struct {
	Image           []byte
	Filename        string
	Center          models.Coordinates
	CapturedAt      time.Time
	DegreesPerPixel float64
}

// ImageIngestResult итог обработки снимка
type ImageIngestResult struct {
	ImageWidth  int                `json:"image_width"`
	ImageHeight int                `json:"image_height"`
	RawObjects  int                `json:"raw_objects"`
	Skipped     int                `json:"skipped"`
	Detections  []models.Detection `json:"detections"`
}

// AnalysisResult результат анализа области
type AnalysisResult struct {
	RunID  string           `json:"run_id"`
	Query  AreaQuery        `json:"query"`
	Report *longterm.Report `json:"report"`
}

// AnalyzeRequest запрос на анализ переданных детекций без обращения к базе
type AnalyzeRequest struct {
	Detections []models.Detection `json:"detections"`
	Now        time.Time          `json:"now"`
	Since      *time.Time         `json:"since,omitempty"`
	Config     *longterm.Config   `json:"config,omitempty"`
}

// VehicleHistory история автомобиля рядом с выбранной детекцией
type VehicleHistory struct {
	Detection       models.Detection            `json:"detection"`
	TrackKey        string                      `json:"track_key"`
	Detections      []models.Detection          `json:"history"`
	Pattern         longterm.MovementPattern    `json:"movement_analysis"`
	LongTermStopped bool                        `json:"is_long_term_stopped"`
	Record          *model.StoppedVehicleRecord `json:"record,omitempty"`
}

// AreaSummary сводка по области
type AreaSummary struct {
	Query           AreaQuery                   `json:"query"`
	TotalDetections int                         `json:"total_detections"`
	ByClass         map[models.VehicleClass]int `json:"vehicle_types"`
	StoppedVehicles int                         `json:"long_term_stopped"`
	StopClusters    int                         `json:"stop_clusters"`
	Alerts          int                         `json:"alerts"`
	RiskAssessment  longterm.AreaRiskAssessment `json:"risk_assessment"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}

// RunResponse запуск анализа с полным отчетом
type RunResponse struct {
	*model.AnalysisRunRecord
	Report *longterm.Report `json:"report,omitempty"`
}

// ListRunsResponse ответ со списком запусков
type ListRunsResponse struct {
	Runs  []*model.AnalysisRunRecord `json:"runs"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Size  int                        `json:"size"`
}

// ListStoppedVehiclesResponse ответ со списком длительно стоящих автомобилей
type ListStoppedVehiclesResponse struct {
	Vehicles []*model.StoppedVehicleRecord `json:"vehicles"`
	Total    int64                         `json:"total"`
	Page     int                           `json:"page"`
	Size     int                           `json:"size"`
}
