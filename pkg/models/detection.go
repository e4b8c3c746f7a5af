package models

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates представляет географические координаты
type Coordinates struct {
	Lat float64 `json:"lat"` // Широта
	Lon float64 `json:"lon"` // Долгота
}

// VehicleClass тип транспортного средства, который возвращает детектор
type VehicleClass string

const (
	VehicleCar   VehicleClass = "car"
	VehicleTruck VehicleClass = "truck"
	VehicleBus   VehicleClass = "bus"
	VehicleVan   VehicleClass = "van"
)

// Valid проверяет, что класс известен
func (c VehicleClass) Valid() bool {
	switch c {
	case VehicleCar, VehicleTruck, VehicleBus, VehicleVan:
		return true
	}
	return false
}

// ParseVehicleClass разбирает строковое значение класса
func ParseVehicleClass(s string) (VehicleClass, error) {
	c := VehicleClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown vehicle class %q", s)
	}
	return c, nil
}

// ImageCoords позиция объекта на исходном снимке в пикселях
type ImageCoords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection одно наблюдение транспортного средства внешним детектором
type Detection struct {
	ID           string       `json:"id,omitempty"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	Confidence   float64      `json:"confidence"`
	VehicleClass VehicleClass `json:"vehicle_type"`
	Timestamp    time.Time    `json:"timestamp"`
	ImageCoords  *ImageCoords `json:"image_coords,omitempty"`

	// Дополнительные данные съемки, движком не используются
	Altitude *float64 `json:"altitude,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
}

// Location возвращает координаты детекции
func (d Detection) Location() Coordinates {
	return Coordinates{Lat: d.Latitude, Lon: d.Longitude}
}

// RawDetection объект, найденный нейронной сетью на снимке (в пикселях)
type RawDetection struct {
	X          float64 `json:"x"`          // Центр по горизонтали
	Y          float64 `json:"y"`          // Центр по вертикали
	Width      float64 `json:"width"`      // Ширина рамки
	Height     float64 `json:"height"`     // Высота рамки
	Confidence float64 `json:"confidence"` // Уверенность модели
	Class      string  `json:"class"`      // Класс объекта
}

// DetectorResponse ответ внешнего сервиса детекции
type DetectorResponse struct {
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	ImageWidth  int            `json:"image_width"`
	ImageHeight int            `json:"image_height"`
	Detections  []RawDetection `json:"detections"`
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружена ли модель нейронной сети
	Version     string `json:"version"`      // Версия сервиса
}
