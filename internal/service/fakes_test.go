package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/internal/repository"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func hoursAgo(h float64) time.Time {
	return testNow.Add(-time.Duration(h * float64(time.Hour)))
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeDetectionRepo struct {
	mu      sync.Mutex
	records []*model.DetectionRecord
	err     error
}

func (r *fakeDetectionRepo) CreateBatch(_ context.Context, records []*model.DetectionRecord) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *fakeDetectionRepo) GetByID(_ context.Context, id string) (*model.DetectionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("detection with id %s: %w", id, repository.ErrNotFound)
}

func (r *fakeDetectionRepo) FindInArea(_ context.Context, f repository.AreaFilter) ([]*model.DetectionRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.DetectionRecord
	for _, rec := range r.records {
		if rec.Latitude < f.Center.Lat-f.RadiusDeg || rec.Latitude > f.Center.Lat+f.RadiusDeg {
			continue
		}
		if rec.Longitude < f.Center.Lon-f.RadiusDeg || rec.Longitude > f.Center.Lon+f.RadiusDeg {
			continue
		}
		if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
			continue
		}
		if f.VehicleClass != "" && rec.VehicleClass != string(f.VehicleClass) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *fakeDetectionRepo) FindSimilar(ctx context.Context, ref *model.DetectionRecord, radiusDeg float64) ([]*model.DetectionRecord, error) {
	return r.FindInArea(ctx, repository.AreaFilter{
		Center:       models.Coordinates{Lat: ref.Latitude, Lon: ref.Longitude},
		RadiusDeg:    radiusDeg,
		VehicleClass: models.VehicleClass(ref.VehicleClass),
	})
}

type fakeStoppedRepo struct {
	mu      sync.Mutex
	records map[string]*model.StoppedVehicleRecord
}

func newFakeStoppedRepo() *fakeStoppedRepo {
	return &fakeStoppedRepo{records: make(map[string]*model.StoppedVehicleRecord)}
}

func (r *fakeStoppedRepo) Upsert(_ context.Context, obs repository.Observation) (*model.StoppedVehicleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[obs.TrackKey]
	if !ok {
		created := repository.NewStoppedVehicleRecord(obs)
		r.records[obs.TrackKey] = &created
		return &created, nil
	}
	repository.MergeObservation(rec, obs)
	return rec, nil
}

func (r *fakeStoppedRepo) GetByKey(_ context.Context, key string) (*model.StoppedVehicleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[key]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("stopped vehicle %s: %w", key, repository.ErrNotFound)
}

func (r *fakeStoppedRepo) List(_ context.Context, page, size int, status model.StoppedVehicleStatus) ([]*model.StoppedVehicleRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.StoppedVehicleRecord
	for _, rec := range r.records {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackKey < out[j].TrackKey })
	total := int64(len(out))
	start := (page - 1) * size
	if start > len(out) {
		start = len(out)
	}
	end := start + size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *fakeStoppedRepo) UpdateStatus(_ context.Context, key string, status model.StoppedVehicleStatus, notes string) (*model.StoppedVehicleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, fmt.Errorf("stopped vehicle %s: %w", key, repository.ErrNotFound)
	}
	rec.Status = status
	if notes != "" {
		rec.Notes = notes
	}
	return rec, nil
}

// fakeRunRepo пишет запуск и историю вместе, как транзакция в базе
type fakeRunRepo struct {
	mu      sync.Mutex
	runs    []*model.AnalysisRunRecord
	stopped *fakeStoppedRepo
	err     error
}

func (r *fakeRunRepo) Record(ctx context.Context, run *model.AnalysisRunRecord, observations []repository.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, obs := range observations {
		if _, err := r.stopped.Upsert(ctx, obs); err != nil {
			return err
		}
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRunRepo) GetByID(_ context.Context, id string) (*model.AnalysisRunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, fmt.Errorf("analysis run %s: %w", id, repository.ErrNotFound)
}

func (r *fakeRunRepo) List(_ context.Context, page, size int) ([]*model.AnalysisRunRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs, int64(len(r.runs)), nil
}

type fakeImageDetector struct {
	resp *models.DetectorResponse
	err  error
}

func (d *fakeImageDetector) DetectImage(context.Context, []byte, string) (*models.DetectorResponse, error) {
	return d.resp, d.err
}

func (d *fakeImageDetector) CheckHealth(context.Context) (*models.HealthResponse, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &models.HealthResponse{Status: "healthy", ModelLoaded: true}, nil
}

type publishCall struct {
	region string
	runID  string
	alerts []longterm.Alert
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, region, runID string, alerts []longterm.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{region: region, runID: runID, alerts: alerts})
	return p.err
}

type fakeArchiver struct {
	mu     sync.Mutex
	runIDs []string
}

func (a *fakeArchiver) Archive(_ context.Context, runID string, _ *longterm.Report) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runIDs = append(a.runIDs, runID)
	return errors.New("bucket unavailable")
}
