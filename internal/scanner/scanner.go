package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stopped-vehicle-detector-go/internal/config"
	"stopped-vehicle-detector-go/internal/service"

	"github.com/sirupsen/logrus"
)

// AreaAnalyzer анализирует одну область
type AreaAnalyzer interface {
	AnalyzeArea(ctx context.Context, q service.AreaQuery) (*service.AnalysisResult, error)
}

// Config настройки планировщика
type Config struct {
	Interval   time.Duration
	Workers    int
	DaysBack   int
	Regions    []config.Region
	RunOnStart bool
}

// RegionResult итог сканирования одной области
type RegionResult struct {
	Region          string `json:"region"`
	RunID           string `json:"run_id,omitempty"`
	StoppedVehicles int    `json:"stopped_vehicles"`
	Alerts          int    `json:"alerts"`
	RiskLevel       string `json:"risk_level,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ScanSummary итог одного прохода по всем областям
type ScanSummary struct {
	StartedAt       time.Time      `json:"started_at"`
	Duration        time.Duration  `json:"duration"`
	Succeeded       int            `json:"succeeded"`
	Failed          int            `json:"failed"`
	StoppedVehicles int            `json:"stopped_vehicles"`
	Alerts          int            `json:"alerts"`
	Regions         []RegionResult `json:"regions"`
}

// Scanner периодически анализирует заданные области
type Scanner struct {
	analyzer AreaAnalyzer
	cfg      Config
	logger   *logrus.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    *ScanSummary
}

// New создает планировщик
func New(analyzer AreaAnalyzer, cfg Config, logger *logrus.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 7
	}
	return &Scanner{
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start запускает сканирование по расписанию. Не блокирует.
func (s *Scanner) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %v", s.cfg.Interval)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scanner already running")
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Infof("Планировщик запущен: %d областей, интервал %v", len(s.cfg.Regions), s.cfg.Interval)
	go s.run(ctx, done)
	return nil
}

// Stop останавливает планировщик и ждет завершения текущего прохода
func (s *Scanner) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsRunning запущен ли планировщик
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastSummary итог последнего завершенного прохода
func (s *Scanner) LastSummary() *ScanSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scanner) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	if s.cfg.RunOnStart {
		s.ScanOnce(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Планировщик остановлен")
			return
		case <-ticker.C:
			s.ScanOnce(ctx)
		}
	}
}

// ScanOnce анализирует все области пулом воркеров.
// Ошибка в одной области не прерывает остальные.
func (s *Scanner) ScanOnce(ctx context.Context) ScanSummary {
	summary := ScanSummary{
		StartedAt: time.Now(),
		Regions:   make([]RegionResult, len(s.cfg.Regions)),
	}

	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup

	for i, region := range s.cfg.Regions {
		if ctx.Err() != nil {
			summary.Regions[i] = RegionResult{Region: region.Name, Error: ctx.Err().Error()}
			continue
		}

		select {
		case <-ctx.Done():
			summary.Regions[i] = RegionResult{Region: region.Name, Error: ctx.Err().Error()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, region config.Region) {
			defer wg.Done()
			defer func() { <-sem }()

			summary.Regions[i] = s.scanRegion(ctx, region)
		}(i, region)
	}

	wg.Wait()

	for _, r := range summary.Regions {
		if r.Error != "" {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.StoppedVehicles += r.StoppedVehicles
		summary.Alerts += r.Alerts
	}
	summary.Duration = time.Since(summary.StartedAt)

	s.mu.Lock()
	s.last = &summary
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"stopped":   summary.StoppedVehicles,
		"alerts":    summary.Alerts,
	}).Infof("Сканирование областей завершено за %v", summary.Duration)

	return summary
}

func (s *Scanner) scanRegion(ctx context.Context, region config.Region) RegionResult {
	result, err := s.analyzer.AnalyzeArea(ctx, service.AreaQuery{
		Region:    region.Name,
		Center:    region.Center,
		RadiusDeg: region.RadiusDeg,
		DaysBack:  s.cfg.DaysBack,
	})
	if err != nil {
		s.logger.Errorf("Ошибка сканирования области %s: %v", region.Name, err)
		return RegionResult{Region: region.Name, Error: err.Error()}
	}

	return RegionResult{
		Region:          region.Name,
		RunID:           result.RunID,
		StoppedVehicles: result.Report.StoppedVehiclesFound,
		Alerts:          len(result.Report.Alerts),
		RiskLevel:       string(result.Report.RiskAssessment.Level),
	}
}
