package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Observation одно наблюдение длительно стоящего автомобиля в запуске анализа
type Observation struct {
	TrackKey     string
	VehicleClass models.VehicleClass
	Location     models.Coordinates
	RiskLevel    string
	Confidence   float64
	StopHours    float64
	FirstSeen    time.Time
	LastSeen     time.Time
	CheckedAt    time.Time
}

// StoppedVehicleRepository интерфейс для истории длительно стоящих автомобилей
type StoppedVehicleRepository interface {
	Upsert(ctx context.Context, obs Observation) (*model.StoppedVehicleRecord, error)
	GetByKey(ctx context.Context, trackKey string) (*model.StoppedVehicleRecord, error)
	List(ctx context.Context, page, pageSize int, status model.StoppedVehicleStatus) ([]*model.StoppedVehicleRecord, int64, error)
	UpdateStatus(ctx context.Context, trackKey string, status model.StoppedVehicleStatus, notes string) (*model.StoppedVehicleRecord, error)
}

// stoppedVehicleRepository реализация StoppedVehicleRepository
type stoppedVehicleRepository struct {
	db *gorm.DB
}

// NewStoppedVehicleRepository создает новый instance StoppedVehicleRepository
func NewStoppedVehicleRepository(db *gorm.DB) StoppedVehicleRepository {
	return &stoppedVehicleRepository{db: db}
}

// Upsert создает запись или дополняет существующую новым наблюдением
func (r *stoppedVehicleRepository) Upsert(ctx context.Context, obs Observation) (*model.StoppedVehicleRecord, error) {
	var record *model.StoppedVehicleRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = upsertObservation(tx, obs)
		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// upsertObservation применяет наблюдение внутри транзакции tx.
// Существующая строка блокируется FOR UPDATE. Если ту же запись одновременно
// вставила другая транзакция, вставка пропускается и строка перечитывается.
func upsertObservation(tx *gorm.DB, obs Observation) (*model.StoppedVehicleRecord, error) {
	var record model.StoppedVehicleRecord

	err := lockedByKey(tx, obs.TrackKey).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = NewStoppedVehicleRecord(obs)
		res := insertIfAbsent(tx).Create(&record)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to create stopped vehicle: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return &record, nil
		}

		record = model.StoppedVehicleRecord{}
		err = lockedByKey(tx, obs.TrackKey).First(&record).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stopped vehicle: %w", err)
	}

	MergeObservation(&record, obs)
	record.DeletedAt = gorm.DeletedAt{}
	if err := tx.Unscoped().Save(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to update stopped vehicle: %w", err)
	}
	return &record, nil
}

// lockedByKey выборка записи по ключу с блокировкой строки, включая удаленные
func lockedByKey(tx *gorm.DB, trackKey string) *gorm.DB {
	return tx.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("track_key = ?", trackKey)
}

// insertIfAbsent вставка, которая не падает на уникальном индексе track_key
func insertIfAbsent(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "track_key"}},
		DoNothing: true,
	})
}

// GetByKey получает запись по ключу трека
func (r *stoppedVehicleRepository) GetByKey(ctx context.Context, trackKey string) (*model.StoppedVehicleRecord, error) {
	var record model.StoppedVehicleRecord
	err := r.db.WithContext(ctx).Where("track_key = ?", trackKey).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("stopped vehicle %s: %w", trackKey, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stopped vehicle: %w", err)
	}
	return &record, nil
}

// List получает список с пагинацией, status пустой - все статусы
func (r *stoppedVehicleRepository) List(ctx context.Context, page, pageSize int, status model.StoppedVehicleStatus) ([]*model.StoppedVehicleRecord, int64, error) {
	var records []*model.StoppedVehicleRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.StoppedVehicleRecord{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	// Подсчитываем общее количество
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stopped vehicles: %w", err)
	}

	offset := (page - 1) * pageSize
	err := query.
		Offset(offset).
		Limit(pageSize).
		Order("last_checked DESC").
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stopped vehicles: %w", err)
	}

	return records, total, nil
}

// UpdateStatus меняет статус разбора
func (r *stoppedVehicleRepository) UpdateStatus(ctx context.Context, trackKey string, status model.StoppedVehicleStatus, notes string) (*model.StoppedVehicleRecord, error) {
	var record model.StoppedVehicleRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_key = ?", trackKey).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("stopped vehicle %s: %w", trackKey, ErrNotFound)
			}
			return fmt.Errorf("failed to get stopped vehicle: %w", err)
		}

		record.Status = status
		if notes != "" {
			record.Notes = notes
		}
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// NewStoppedVehicleRecord запись по первому наблюдению
func NewStoppedVehicleRecord(obs Observation) model.StoppedVehicleRecord {
	return model.StoppedVehicleRecord{
		TrackKey:      obs.TrackKey,
		VehicleClass:  string(obs.VehicleClass),
		Latitude:      obs.Location.Lat,
		Longitude:     obs.Location.Lon,
		RiskLevel:     obs.RiskLevel,
		FirstDetected: obs.FirstSeen,
		LastChecked:   obs.CheckedAt,
		LastSeen:      obs.LastSeen,
		Observations:  1,
		AvgConfidence: obs.Confidence,
		MaxConfidence: obs.Confidence,
		MaxStopHours:  obs.StopHours,
		Status:        model.StatusDetected,
	}
}

// MergeObservation дополняет запись новым наблюдением.
// Автомобиль, снова найденный после закрытия, возвращается в статус DETECTED.
func MergeObservation(record *model.StoppedVehicleRecord, obs Observation) {
	n := float64(record.Observations)
	record.AvgConfidence = (record.AvgConfidence*n + obs.Confidence) / (n + 1)
	record.Observations++
	record.MaxConfidence = math.Max(record.MaxConfidence, obs.Confidence)
	record.MaxStopHours = math.Max(record.MaxStopHours, obs.StopHours)

	record.Latitude = obs.Location.Lat
	record.Longitude = obs.Location.Lon
	record.RiskLevel = obs.RiskLevel

	if obs.FirstSeen.Before(record.FirstDetected) {
		record.FirstDetected = obs.FirstSeen
	}
	if obs.LastSeen.After(record.LastSeen) {
		record.LastSeen = obs.LastSeen
	}
	if obs.CheckedAt.After(record.LastChecked) {
		record.LastChecked = obs.CheckedAt
	}

	if record.Status == model.StatusResolved {
		record.Status = model.StatusDetected
	}
}
