package longterm

import (
	"time"

	"stopped-vehicle-detector-go/pkg/models"
)

// Track последовательность детекций, которые считаются одним автомобилем.
// Детекции упорядочены по времени.
type Track struct {
	ID         string             `json:"id"`
	Detections []models.Detection `json:"detections"`
}

// StopInterval интервал, в течение которого автомобиль не двигался
type StopInterval struct {
	StartTime     time.Time          `json:"start_time"`
	EndTime       time.Time          `json:"end_time"`
	DurationHours float64            `json:"duration_hours"`
	Location      models.Coordinates `json:"location"`
	Confidence    float64            `json:"confidence"`
}

// MovementPattern агрегированные характеристики движения трека
type MovementPattern struct {
	TotalDetections    int            `json:"total_detections"`
	TotalDistanceKm    float64        `json:"total_distance_km"`
	TotalTimeHours     float64        `json:"total_time_hours"`
	AvgSpeedKmh        float64        `json:"avg_speed_kmh"`
	StopIntervals      []StopInterval `json:"stop_periods"`
	TotalStopTimeHours float64        `json:"total_stop_time_hours"`
	StopConfidence     float64        `json:"stop_confidence"`
	MovementScore      float64        `json:"movement_score"`
	FirstSeen          *time.Time     `json:"first_seen"`
	LastSeen           *time.Time     `json:"last_seen"`
}

// LongestStopHours длительность самого длинного интервала остановки
func (p MovementPattern) LongestStopHours() float64 {
	longest := 0.0
	for _, sp := range p.StopIntervals {
		if sp.DurationHours > longest {
			longest = sp.DurationHours
		}
	}
	return longest
}

// FlaggedVehicle трек, классифицированный как длительно стоящий
type FlaggedVehicle struct {
	TrackID           string              `json:"vehicle_id"`
	TrackKey          string              `json:"track_key"`
	VehicleClass      models.VehicleClass `json:"vehicle_type"`
	Location          models.Coordinates  `json:"location"`
	StopDurationHours float64             `json:"stop_duration_hours"`
	Confidence        float64             `json:"confidence"`
	FirstSeen         time.Time           `json:"first_seen"`
	LastSeen          time.Time           `json:"last_seen"`
	DetectionCount    int                 `json:"detection_count"`
	Pattern           MovementPattern     `json:"pattern"`
}

// RiskLevel уровень риска
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Cluster группа стоящих рядом автомобилей (горячая точка)
type Cluster struct {
	ID                 int                `json:"cluster_id"`
	Center             models.Coordinates `json:"center"`
	VehicleCount       int                `json:"vehicle_count"`
	Vehicles           []FlaggedVehicle   `json:"vehicles"`
	TotalStopTimeHours float64            `json:"total_stop_time"`
	AvgConfidence      float64            `json:"avg_confidence"`
	LastSeen           time.Time          `json:"last_seen"`
	HoursSinceLastSeen float64            `json:"hours_since_last_seen"`
	RiskLevel          RiskLevel          `json:"risk_level"`
}

// AreaRiskAssessment оценка риска по области
type AreaRiskAssessment struct {
	Level           RiskLevel `json:"level"`
	Score           int       `json:"score"`
	Description     string    `json:"description"`
	Recommendations []string  `json:"recommendations"`
}

// AlertKind тип оповещения
type AlertKind string

const (
	AlertLongTermStop AlertKind = "LONG_TERM_STOP"
	AlertStopCluster  AlertKind = "STOP_CLUSTER"
)

// Severity важность оповещения
type Severity string

const SeverityHigh Severity = "HIGH"

// AlertPayload детали оповещения
type AlertPayload struct {
	TrackID            string  `json:"vehicle_id,omitempty"`
	ClusterID          *int    `json:"cluster_id,omitempty"`
	VehicleCount       int     `json:"vehicle_count,omitempty"`
	DurationHours      float64 `json:"duration_hours,omitempty"`
	TotalStopTimeHours float64 `json:"total_stop_time,omitempty"`
	Message            string  `json:"message"`
}

// Alert оповещение для оператора
type Alert struct {
	Kind      AlertKind          `json:"type"`
	Severity  Severity           `json:"severity"`
	Location  models.Coordinates `json:"location"`
	Payload   AlertPayload       `json:"payload"`
	Timestamp time.Time          `json:"timestamp"`
}

// Input входные данные одного запуска анализа
type Input struct {
	Detections []models.Detection
	// Now опорное время анализа, обязательно
	Now time.Time
	// Since если задано, более ранние детекции отбрасываются
	Since time.Time
}

// Report результат анализа
type Report struct {
	TotalDetectionsAnalyzed int                `json:"total_vehicles_analyzed"`
	TracksAnalyzed          int                `json:"tracks_analyzed"`
	StoppedVehiclesFound    int                `json:"stopped_vehicles_found"`
	StopClusters            int                `json:"stop_clusters"`
	StoppedVehicles         []FlaggedVehicle   `json:"stopped_vehicles"`
	Clusters                []Cluster          `json:"clusters"`
	Noise                   []FlaggedVehicle   `json:"unclustered_vehicles"`
	Alerts                  []Alert            `json:"alerts"`
	AnalysisPeriodHours     float64            `json:"analysis_period_hours"`
	RiskAssessment          AreaRiskAssessment `json:"risk_assessment"`
	GeneratedAt             time.Time          `json:"generated_at"`
}
