package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"stopped-vehicle-detector-go/internal/model"

	"gorm.io/gorm"
)

// AnalysisRunRepository интерфейс для журнала запусков анализа
type AnalysisRunRepository interface {
	Record(ctx context.Context, run *model.AnalysisRunRecord, observations []Observation) error
	GetByID(ctx context.Context, id string) (*model.AnalysisRunRecord, error)
	List(ctx context.Context, page, pageSize int) ([]*model.AnalysisRunRecord, int64, error)
}

// analysisRunRepository реализация AnalysisRunRepository
type analysisRunRepository struct {
	db *gorm.DB
}

// NewAnalysisRunRepository создает новый instance AnalysisRunRepository
func NewAnalysisRunRepository(db *gorm.DB) AnalysisRunRepository {
	return &analysisRunRepository{db: db}
}

// Record сохраняет запуск вместе с наблюдениями в истории одной транзакцией.
// Наблюдения применяются в порядке ключей, чтобы параллельные запуски
// с пересекающимися областями брали блокировки строк в одном порядке.
func (r *analysisRunRepository) Record(ctx context.Context, run *model.AnalysisRunRecord, observations []Observation) error {
	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TrackKey < sorted[j].TrackKey })

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, obs := range sorted {
			if _, err := upsertObservation(tx, obs); err != nil {
				return fmt.Errorf("failed to update stopped vehicle history: %w", err)
			}
		}
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to create analysis run: %w", err)
		}
		return nil
	})
}

// GetByID получает запуск по ID
func (r *analysisRunRepository) GetByID(ctx context.Context, id string) (*model.AnalysisRunRecord, error) {
	var run model.AnalysisRunRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("analysis run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	return &run, nil
}

// List получает список запусков с пагинацией, новые первыми
func (r *analysisRunRepository) List(ctx context.Context, page, pageSize int) ([]*model.AnalysisRunRecord, int64, error) {
	var runs []*model.AnalysisRunRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.AnalysisRunRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count analysis runs: %w", err)
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Omit("report").
		Offset(offset).
		Limit(pageSize).
		Order("run_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analysis runs: %w", err)
	}

	return runs, total, nil
}
