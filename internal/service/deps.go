package service

import (
	"context"
	"time"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/pkg/models"
)

// Clock источник опорного времени анализа
type Clock interface {
	Now() time.Time
}

// SystemClock системное время в UTC
type SystemClock struct{}

// Now текущее время
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ImageDetector распознает автомобили на снимке
type ImageDetector interface {
	DetectImage(ctx context.Context, image []byte, filename string) (*models.DetectorResponse, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// AlertPublisher доставляет оповещения во внешние системы
type AlertPublisher interface {
	Publish(ctx context.Context, region, runID string, alerts []longterm.Alert) error
}

// ReportArchiver сохраняет отчеты во внешнее хранилище
type ReportArchiver interface {
	Archive(ctx context.Context, runID string, report *longterm.Report) error
}
