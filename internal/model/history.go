package model

import (
	"time"

	"gorm.io/gorm"
)

// StoppedVehicleStatus статус разбора длительно стоящего автомобиля
type StoppedVehicleStatus string

const (
	StatusDetected      StoppedVehicleStatus = "DETECTED"
	StatusInvestigating StoppedVehicleStatus = "INVESTIGATING"
	StatusResolved      StoppedVehicleStatus = "RESOLVED"
)

// Valid проверяет, что статус известен
func (s StoppedVehicleStatus) Valid() bool {
	switch s {
	case StatusDetected, StatusInvestigating, StatusResolved:
		return true
	}
	return false
}

// StoppedVehicleRecord история длительно стоящего автомобиля между запусками анализа
type StoppedVehicleRecord struct {
	ID            uint                 `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackKey      string               `gorm:"type:varchar(64);not null;uniqueIndex" json:"track_key"`
	VehicleClass  string               `gorm:"type:varchar(16);not null" json:"vehicle_type"`
	Latitude      float64              `gorm:"not null" json:"latitude"`
	Longitude     float64              `gorm:"not null" json:"longitude"`
	RiskLevel     string               `gorm:"type:varchar(8);not null" json:"risk_level"`
	FirstDetected time.Time            `gorm:"not null" json:"first_detected"`
	LastChecked   time.Time            `gorm:"not null;index" json:"last_checked"`
	LastSeen      time.Time            `gorm:"not null" json:"last_seen"`
	Observations  int                  `gorm:"not null;default:0" json:"observations"`
	AvgConfidence float64              `gorm:"not null;default:0" json:"avg_confidence"`
	MaxConfidence float64              `gorm:"not null;default:0" json:"max_confidence"`
	MaxStopHours  float64              `gorm:"not null;default:0" json:"max_stop_hours"`
	Status        StoppedVehicleStatus `gorm:"type:varchar(16);not null;default:DETECTED;index" json:"status"`
	Notes         string               `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName указывает имя таблицы для StoppedVehicleRecord
func (StoppedVehicleRecord) TableName() string {
	return "stopped_vehicle_history"
}

// AnalysisRunRecord запуск анализа области
type AnalysisRunRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Region    string    `gorm:"type:varchar(128);index" json:"region"`
	CenterLat float64   `gorm:"not null" json:"center_lat"`
	CenterLon float64   `gorm:"not null" json:"center_lon"`
	RadiusDeg float64   `gorm:"not null" json:"radius_deg"`
	DaysBack  int       `gorm:"not null" json:"days_back"`
	RunAt     time.Time `gorm:"not null;index" json:"run_at"`

	// Итоги
	TotalDetections int     `gorm:"not null;default:0" json:"total_detections"`
	TracksAnalyzed  int     `gorm:"not null;default:0" json:"tracks_analyzed"`
	StoppedVehicles int     `gorm:"not null;default:0" json:"stopped_vehicles"`
	StopClusters    int     `gorm:"not null;default:0" json:"stop_clusters"`
	Alerts          int     `gorm:"not null;default:0" json:"alerts"`
	RiskLevel       string  `gorm:"type:varchar(8);not null" json:"risk_level"`
	RiskScore       int     `gorm:"not null;default:0" json:"risk_score"`
	PeriodHours     float64 `gorm:"not null;default:0" json:"period_hours"`

	// Полный отчет в JSON
	Report []byte `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName указывает имя таблицы для AnalysisRunRecord
func (AnalysisRunRecord) TableName() string {
	return "analysis_runs"
}
