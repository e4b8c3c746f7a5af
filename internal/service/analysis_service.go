package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"stopped-vehicle-detector-go/internal/geo"
	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/internal/repository"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// similarRadiusDeg квадрат поиска истории автомобиля (~100 м)
const similarRadiusDeg = 0.001

// AnalysisService сервис анализа длительных остановок
type AnalysisService struct {
	detections repository.DetectionRepository
	stopped    repository.StoppedVehicleRepository
	runs       repository.AnalysisRunRepository
	detector   *longterm.Detector
	clock      Clock
	publisher  AlertPublisher
	archiver   ReportArchiver
	calc       *geo.Calculator
	logger     *logrus.Logger
}

// AnalysisOption настраивает AnalysisService
type AnalysisOption func(*AnalysisService)

// WithAlertPublisher включает отправку оповещений
func WithAlertPublisher(p AlertPublisher) AnalysisOption {
	return func(s *AnalysisService) { s.publisher = p }
}

// WithReportArchiver включает архивирование отчетов
func WithReportArchiver(a ReportArchiver) AnalysisOption {
	return func(s *AnalysisService) { s.archiver = a }
}

// NewAnalysisService создает новый сервис анализа
func NewAnalysisService(
	detections repository.DetectionRepository,
	stopped repository.StoppedVehicleRepository,
	runs repository.AnalysisRunRepository,
	detector *longterm.Detector,
	clock Clock,
	logger *logrus.Logger,
	opts ...AnalysisOption,
) *AnalysisService {
	s := &AnalysisService{
		detections: detections,
		stopped:    stopped,
		runs:       runs,
		detector:   detector,
		clock:      clock,
		calc:       geo.NewCalculator(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeArea анализирует детекции области за последние DaysBack суток,
// сохраняет запуск и историю найденных автомобилей, рассылает оповещения.
func (s *AnalysisService) AnalyzeArea(ctx context.Context, q AreaQuery) (*AnalysisResult, error) {
	if err := validateAreaQuery(q); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"region": q.Region,
		"lat":    q.Center.Lat,
		"lon":    q.Center.Lon,
	})

	report, _, err := s.analyze(ctx, q)
	if err != nil {
		log.Errorf("Ошибка анализа области: %v", err)
		return nil, err
	}

	runID := uuid.New().String()
	log = log.WithField("run_id", runID)

	// Запуск и история пишутся вместе: при ошибке не сохраняется ничего
	if err := s.saveRun(ctx, runID, q, report); err != nil {
		log.Errorf("Ошибка сохранения запуска: %v", err)
		return nil, err
	}

	// Доставка во внешние системы не влияет на результат анализа
	if s.publisher != nil && len(report.Alerts) > 0 {
		if err := s.publisher.Publish(ctx, q.Region, runID, report.Alerts); err != nil {
			log.Warnf("Не удалось отправить оповещения: %v", err)
		}
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, runID, report); err != nil {
			log.Warnf("Не удалось заархивировать отчет: %v", err)
		}
	}

	log.WithFields(logrus.Fields{
		"detections": report.TotalDetectionsAnalyzed,
		"stopped":    report.StoppedVehiclesFound,
		"clusters":   report.StopClusters,
		"alerts":     len(report.Alerts),
	}).Infof("Анализ области завершен, риск %s", report.RiskAssessment.Level)

	return &AnalysisResult{RunID: runID, Query: q, Report: report}, nil
}

// AnalyzeDetections анализирует переданные детекции без обращения к базе.
// Если в запросе заданы свои пороги, для него создается отдельный детектор.
func (s *AnalysisService) AnalyzeDetections(req AnalyzeRequest) (*longterm.Report, error) {
	detector := s.detector
	if req.Config != nil {
		d, err := longterm.NewDetector(*req.Config, longterm.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		detector = d
	}

	// Опорное время обязательно, часы сервиса не подставляются
	in := longterm.Input{Detections: req.Detections, Now: req.Now}
	if req.Since != nil {
		in.Since = *req.Since
	}

	return detector.Analyze(in)
}

// VehicleHistory собирает историю автомобиля по одной его детекции:
// все детекции того же класса в квадрате ~100 м и их анализ движения.
func (s *AnalysisService) VehicleHistory(ctx context.Context, detectionID string) (*VehicleHistory, error) {
	reference, err := s.detections.GetByID(ctx, detectionID)
	if err != nil {
		return nil, err
	}

	records, err := s.detections.FindSimilar(ctx, reference, similarRadiusDeg)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar detections: %w", err)
	}

	history := toDetections(records)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})

	points := make([]models.Coordinates, len(history))
	for i, det := range history {
		points[i] = det.Location()
	}
	center := s.calc.Center(points)
	if len(points) == 0 {
		center = models.Coordinates{Lat: reference.Latitude, Lon: reference.Longitude}
	}

	pattern := s.detector.AnalyzeMovement(history)
	result := &VehicleHistory{
		Detection:       toDetection(reference),
		TrackKey:        longterm.TrackKey(models.VehicleClass(reference.VehicleClass), center),
		Detections:      history,
		Pattern:         pattern,
		LongTermStopped: s.detector.IsLongTermStopped(pattern, s.clock.Now()),
	}

	record, err := s.stopped.GetByKey(ctx, result.TrackKey)
	switch {
	case err == nil:
		result.Record = record
	case !IsNotFound(err):
		return nil, fmt.Errorf("failed to get stopped vehicle history: %w", err)
	}

	return result, nil
}

// AreaSummary сводка по области без сохранения запуска
func (s *AnalysisService) AreaSummary(ctx context.Context, q AreaQuery) (*AreaSummary, error) {
	if err := validateAreaQuery(q); err != nil {
		return nil, err
	}

	report, detections, err := s.analyze(ctx, q)
	if err != nil {
		return nil, err
	}

	byClass := make(map[models.VehicleClass]int)
	for _, det := range detections {
		byClass[det.VehicleClass]++
	}

	return &AreaSummary{
		Query:           q,
		TotalDetections: report.TotalDetectionsAnalyzed,
		ByClass:         byClass,
		StoppedVehicles: report.StoppedVehiclesFound,
		StopClusters:    report.StopClusters,
		Alerts:          len(report.Alerts),
		RiskAssessment:  report.RiskAssessment,
		GeneratedAt:     report.GeneratedAt,
	}, nil
}

// GetRun получает запуск с отчетом
func (s *AnalysisService) GetRun(ctx context.Context, id string) (*RunResponse, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &RunResponse{AnalysisRunRecord: run}
	if len(run.Report) > 0 {
		var report longterm.Report
		if err := json.Unmarshal(run.Report, &report); err != nil {
			return nil, fmt.Errorf("failed to decode report of run %s: %w", id, err)
		}
		resp.Report = &report
	}
	return resp, nil
}

// ListRuns список запусков
func (s *AnalysisService) ListRuns(ctx context.Context, page, pageSize int) (*ListRunsResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	runs, total, err := s.runs.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return &ListRunsResponse{Runs: runs, Total: total, Page: page, Size: pageSize}, nil
}

// ListStoppedVehicles список автомобилей из истории
func (s *AnalysisService) ListStoppedVehicles(ctx context.Context, page, pageSize int, status model.StoppedVehicleStatus) (*ListStoppedVehiclesResponse, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, status)
	}
	page, pageSize = normalizePage(page, pageSize)

	vehicles, total, err := s.stopped.List(ctx, page, pageSize, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list stopped vehicles: %w", err)
	}

	return &ListStoppedVehiclesResponse{Vehicles: vehicles, Total: total, Page: page, Size: pageSize}, nil
}

// UpdateStoppedVehicleStatus меняет статус разбора автомобиля
func (s *AnalysisService) UpdateStoppedVehicleStatus(ctx context.Context, trackKey string, status model.StoppedVehicleStatus, notes string) (*model.StoppedVehicleRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, status)
	}

	record, err := s.stopped.UpdateStatus(ctx, trackKey, status, notes)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Статус автомобиля %s изменен на %s", trackKey, status)
	return record, nil
}

func (s *AnalysisService) analyze(ctx context.Context, q AreaQuery) (*longterm.Report, []models.Detection, error) {
	now := s.clock.Now()
	since := now.Add(-time.Duration(q.DaysBack) * 24 * time.Hour)

	records, err := s.detections.FindInArea(ctx, repository.AreaFilter{
		Center:    q.Center,
		RadiusDeg: q.RadiusDeg,
		Since:     since,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load detections: %w", err)
	}

	detections := toDetections(records)
	report, err := s.detector.Analyze(longterm.Input{
		Detections: detections,
		Now:        now,
		Since:      since,
	})
	if err != nil {
		return nil, nil, err
	}
	return report, detections, nil
}

func (s *AnalysisService) saveRun(ctx context.Context, runID string, q AreaQuery, report *longterm.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	run := &model.AnalysisRunRecord{
		ID:              runID,
		Region:          q.Region,
		CenterLat:       q.Center.Lat,
		CenterLon:       q.Center.Lon,
		RadiusDeg:       q.RadiusDeg,
		DaysBack:        q.DaysBack,
		RunAt:           report.GeneratedAt,
		TotalDetections: report.TotalDetectionsAnalyzed,
		TracksAnalyzed:  report.TracksAnalyzed,
		StoppedVehicles: report.StoppedVehiclesFound,
		StopClusters:    report.StopClusters,
		Alerts:          len(report.Alerts),
		RiskLevel:       string(report.RiskAssessment.Level),
		RiskScore:       report.RiskAssessment.Score,
		PeriodHours:     report.AnalysisPeriodHours,
		Report:          payload,
	}

	if err := s.runs.Record(ctx, run, observations(report)); err != nil {
		return fmt.Errorf("failed to save analysis run: %w", err)
	}
	return nil
}

// observations наблюдения для истории. Автомобиль в кластере получает риск кластера,
// одиночный - общий риск области.
func observations(report *longterm.Report) []repository.Observation {
	risk := make(map[string]longterm.RiskLevel)
	for _, c := range report.Clusters {
		for _, v := range c.Vehicles {
			risk[v.TrackID] = c.RiskLevel
		}
	}

	out := make([]repository.Observation, 0, len(report.StoppedVehicles))
	for _, v := range report.StoppedVehicles {
		level, ok := risk[v.TrackID]
		if !ok {
			level = report.RiskAssessment.Level
		}
		out = append(out, repository.Observation{
			TrackKey:     v.TrackKey,
			VehicleClass: v.VehicleClass,
			Location:     v.Location,
			RiskLevel:    string(level),
			Confidence:   v.Confidence,
			StopHours:    v.StopDurationHours,
			FirstSeen:    v.FirstSeen,
			LastSeen:     v.LastSeen,
			CheckedAt:    report.GeneratedAt,
		})
	}
	return out
}

func validateAreaQuery(q AreaQuery) error {
	if err := validateArea(q.Center, q.RadiusDeg); err != nil {
		return err
	}
	if q.DaysBack <= 0 || q.DaysBack > 365 {
		return fmt.Errorf("%w: days_back must be in [1, 365]", ErrInvalidQuery)
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
