package longterm

import (
	"fmt"
	"math"
)

// Фиксированные параметры алгоритма
const (
	groupingWindowHours   = 24.0
	speedCapKmh           = 50.0
	distanceCapMeters     = 10000.0
	minTimeHours          = 0.1
	highConfidence        = 0.7
	recentStopWindowHours = 24.0
	recentStopMinHours    = 12.0
	clusterMinSamples     = 2
)

// Config пороги детектора длительных остановок
type Config struct {
	// StopThresholdHours суммарное время стоянки, после которого автомобиль помечается
	StopThresholdHours float64 `json:"stop_threshold_hours"`
	// MovementThresholdMeters максимальное смещение, которое еще считается стоянкой
	MovementThresholdMeters float64 `json:"movement_threshold_meters"`
	// ClusterRadiusMeters радиус горячей точки
	ClusterRadiusMeters float64 `json:"cluster_radius_meters"`
	// MinStopDurationHours минимальная длительность интервала, который записывается
	MinStopDurationHours float64 `json:"min_stop_duration_hours"`
}

// DefaultConfig возвращает пороги по умолчанию
func DefaultConfig() Config {
	return Config{
		StopThresholdHours:      24.0,
		MovementThresholdMeters: 50.0,
		ClusterRadiusMeters:     100.0,
		MinStopDurationHours:    6.0,
	}
}

// Validate проверяет пороги
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"stop_threshold_hours", c.StopThresholdHours},
		{"movement_threshold_meters", c.MovementThresholdMeters},
		{"cluster_radius_meters", c.ClusterRadiusMeters},
		{"min_stop_duration_hours", c.MinStopDurationHours},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return fmt.Errorf("%w: %s must be a positive number, got %v", ErrInvalidConfig, f.name, f.value)
		}
	}
	if c.MinStopDurationHours > c.StopThresholdHours {
		return fmt.Errorf("%w: min_stop_duration_hours (%v) exceeds stop_threshold_hours (%v)",
			ErrInvalidConfig, c.MinStopDurationHours, c.StopThresholdHours)
	}
	return nil
}
