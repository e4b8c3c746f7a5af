package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/pkg/models"

	"gorm.io/gorm"
)

// AreaFilter условия выборки детекций в квадрате вокруг точки
type AreaFilter struct {
	Center       models.Coordinates
	RadiusDeg    float64
	Since        time.Time
	VehicleClass models.VehicleClass // пусто - любые классы
	Limit        int
}

// DetectionRepository интерфейс для работы с детекциями
type DetectionRepository interface {
	CreateBatch(ctx context.Context, records []*model.DetectionRecord) error
	GetByID(ctx context.Context, id string) (*model.DetectionRecord, error)
	FindInArea(ctx context.Context, filter AreaFilter) ([]*model.DetectionRecord, error)
	FindSimilar(ctx context.Context, reference *model.DetectionRecord, radiusDeg float64) ([]*model.DetectionRecord, error)
}

// detectionRepository реализация DetectionRepository
type detectionRepository struct {
	db *gorm.DB
}

// NewDetectionRepository создает новый instance DetectionRepository
func NewDetectionRepository(db *gorm.DB) DetectionRepository {
	return &detectionRepository{db: db}
}

// CreateBatch сохраняет детекции одной транзакцией
func (r *detectionRepository) CreateBatch(ctx context.Context, records []*model.DetectionRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(records, 500).Error; err != nil {
			return fmt.Errorf("failed to create detections: %w", err)
		}
		return nil
	})
}

// GetByID получает детекцию по ID
func (r *detectionRepository) GetByID(ctx context.Context, id string) (*model.DetectionRecord, error) {
	var record model.DetectionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("detection with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get detection: %w", err)
	}
	return &record, nil
}

// FindInArea получает детекции в квадрате center±radius, упорядоченные по времени
func (r *detectionRepository) FindInArea(ctx context.Context, filter AreaFilter) ([]*model.DetectionRecord, error) {
	var records []*model.DetectionRecord

	query := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", filter.Center.Lat-filter.RadiusDeg, filter.Center.Lat+filter.RadiusDeg).
		Where("longitude BETWEEN ? AND ?", filter.Center.Lon-filter.RadiusDeg, filter.Center.Lon+filter.RadiusDeg)

	if !filter.Since.IsZero() {
		query = query.Where("timestamp >= ?", filter.Since)
	}
	if filter.VehicleClass != "" {
		query = query.Where("vehicle_class = ?", string(filter.VehicleClass))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("timestamp ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find detections by area: %w", err)
	}

	return records, nil
}

// FindSimilar получает детекции того же класса рядом с опорной
func (r *detectionRepository) FindSimilar(ctx context.Context, reference *model.DetectionRecord, radiusDeg float64) ([]*model.DetectionRecord, error) {
	return r.FindInArea(ctx, AreaFilter{
		Center:       models.Coordinates{Lat: reference.Latitude, Lon: reference.Longitude},
		RadiusDeg:    radiusDeg,
		VehicleClass: models.VehicleClass(reference.VehicleClass),
	})
}
