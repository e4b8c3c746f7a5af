package model

import (
	"time"

	"gorm.io/gorm"
)

// DetectionRecord детекция автомобиля в базе данных
type DetectionRecord struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Latitude     float64   `gorm:"not null;index:idx_detections_location" json:"latitude"`
	Longitude    float64   `gorm:"not null;index:idx_detections_location" json:"longitude"`
	Confidence   float64   `gorm:"not null" json:"confidence"`
	VehicleClass string    `gorm:"type:varchar(16);not null;index" json:"vehicle_type"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`

	// Положение на исходном снимке
	ImageX      *float64 `json:"image_x,omitempty"`
	ImageY      *float64 `json:"image_y,omitempty"`
	SourceImage string   `gorm:"type:varchar(255)" json:"source_image,omitempty"`

	// Дополнительные данные, если их передал источник
	Altitude *float64 `json:"altitude,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName указывает имя таблицы для DetectionRecord
func (DetectionRecord) TableName() string {
	return "detections"
}
