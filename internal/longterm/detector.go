package longterm

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"stopped-vehicle-detector-go/internal/geo"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// Detector выявляет автомобили, которые долго стоят на одном месте.
// Каждый вызов Analyze независим и не хранит состояния между вызовами,
// поэтому один Detector можно использовать из нескольких горутин.
type Detector struct {
	cfg    Config
	calc   *geo.Calculator
	logger logrus.FieldLogger
}

// Option настраивает Detector
type Option func(*Detector)

// WithLogger задает логгер для отладочных сообщений
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector создает детектор, проверяя пороги
func NewDetector(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	silent := logrus.New()
	silent.SetOutput(io.Discard)

	d := &Detector{
		cfg:    cfg,
		calc:   geo.NewCalculator(),
		logger: silent,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config возвращает пороги детектора
func (d *Detector) Config() Config {
	return d.cfg
}

// ValidateDetections проверяет поля детекций. Первая ошибка прерывает проверку.
func ValidateDetections(detections []models.Detection) error {
	for i, det := range detections {
		if err := validateDetection(i, det); err != nil {
			return err
		}
	}
	return nil
}

func validateDetection(i int, det models.Detection) error {
	if math.IsNaN(det.Latitude) || det.Latitude < -90 || det.Latitude > 90 {
		return &ValidationError{Index: i, Field: "latitude", Reason: fmt.Sprintf("out of range [-90, 90]: %v", det.Latitude)}
	}
	if math.IsNaN(det.Longitude) || det.Longitude < -180 || det.Longitude > 180 {
		return &ValidationError{Index: i, Field: "longitude", Reason: fmt.Sprintf("out of range [-180, 180]: %v", det.Longitude)}
	}
	if math.IsNaN(det.Confidence) || det.Confidence < 0 || det.Confidence > 1 {
		return &ValidationError{Index: i, Field: "confidence", Reason: fmt.Sprintf("out of range [0, 1]: %v", det.Confidence)}
	}
	if !det.VehicleClass.Valid() {
		return &ValidationError{Index: i, Field: "vehicle_type", Reason: fmt.Sprintf("unknown class %q", det.VehicleClass)}
	}
	if det.Timestamp.IsZero() {
		return &ValidationError{Index: i, Field: "timestamp", Reason: "is required"}
	}
	return nil
}

// Analyze выполняет полный анализ набора детекций
func (d *Detector) Analyze(in Input) (*Report, error) {
	if in.Now.IsZero() {
		return nil, ErrMissingReferenceTime
	}
	if err := ValidateDetections(in.Detections); err != nil {
		return nil, err
	}

	detections := in.Detections
	if !in.Since.IsZero() {
		detections = make([]models.Detection, 0, len(in.Detections))
		for _, det := range in.Detections {
			if !det.Timestamp.Before(in.Since) {
				detections = append(detections, det)
			}
		}
	}

	if len(detections) == 0 {
		return emptyReport(in.Now), nil
	}

	tracks := d.GroupTracks(detections)
	report := d.buildReport(tracks, in.Now)
	report.TotalDetectionsAnalyzed = len(detections)

	if !in.Since.IsZero() {
		report.AnalysisPeriodHours = in.Now.Sub(in.Since).Hours()
	} else {
		report.AnalysisPeriodHours = in.Now.Sub(earliest(detections)).Hours()
	}

	return report, nil
}

// AnalyzeTracks анализирует заранее собранные треки без повторной группировки
func (d *Detector) AnalyzeTracks(tracks []Track, now time.Time) (*Report, error) {
	if now.IsZero() {
		return nil, ErrMissingReferenceTime
	}

	total := 0
	var first time.Time
	ordered := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		for _, det := range track.Detections {
			if err := validateDetection(total, det); err != nil {
				return nil, err
			}
			if total == 0 || det.Timestamp.Before(first) {
				first = det.Timestamp
			}
			total++
		}
		ordered = append(ordered, Track{ID: track.ID, Detections: sortedByTime(track.Detections)})
	}

	if total == 0 {
		return emptyReport(now), nil
	}

	report := d.buildReport(ordered, now)
	report.TotalDetectionsAnalyzed = total
	report.AnalysisPeriodHours = now.Sub(first).Hours()
	return report, nil
}

func (d *Detector) buildReport(tracks []Track, now time.Time) *Report {
	flagged := make([]FlaggedVehicle, 0)
	for _, track := range tracks {
		if len(track.Detections) == 0 {
			continue
		}

		pattern := d.AnalyzeMovement(track.Detections)
		if !d.IsLongTermStopped(pattern, now) {
			continue
		}
		flagged = append(flagged, d.flag(track, pattern))
	}

	clusters, noise := d.ClusterVehicles(flagged, now)
	alerts := d.GenerateAlerts(flagged, clusters, now)
	risk := d.AssessRisk(flagged, clusters)

	d.logger.WithFields(logrus.Fields{
		"tracks":   len(tracks),
		"flagged":  len(flagged),
		"clusters": len(clusters),
		"alerts":   len(alerts),
		"risk":     risk.Level,
	}).Debug("Анализ длительных остановок завершен")

	return &Report{
		TracksAnalyzed:       len(tracks),
		StoppedVehiclesFound: len(flagged),
		StopClusters:         len(clusters),
		StoppedVehicles:      flagged,
		Clusters:             clusters,
		Noise:                noise,
		Alerts:               alerts,
		RiskAssessment:       risk,
		GeneratedAt:          now,
	}
}

func (d *Detector) flag(track Track, pattern MovementPattern) FlaggedVehicle {
	points := make([]models.Coordinates, len(track.Detections))
	for i, det := range track.Detections {
		points[i] = det.Location()
	}
	center := d.calc.Center(points)
	first := track.Detections[0]

	return FlaggedVehicle{
		TrackID:           track.ID,
		TrackKey:          TrackKey(first.VehicleClass, center),
		VehicleClass:      first.VehicleClass,
		Location:          center,
		StopDurationHours: pattern.TotalStopTimeHours,
		Confidence:        pattern.StopConfidence,
		FirstSeen:         first.Timestamp,
		LastSeen:          track.Detections[len(track.Detections)-1].Timestamp,
		DetectionCount:    len(track.Detections),
		Pattern:           pattern,
	}
}

func emptyReport(now time.Time) *Report {
	return &Report{
		StoppedVehicles: []FlaggedVehicle{},
		Clusters:        []Cluster{},
		Noise:           []FlaggedVehicle{},
		Alerts:          []Alert{},
		RiskAssessment: AreaRiskAssessment{
			Level:           RiskLow,
			Score:           0,
			Description:     "No data available",
			Recommendations: []string{},
		},
		GeneratedAt: now,
	}
}

func sortedByTime(detections []models.Detection) []models.Detection {
	sorted := make([]models.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

func earliest(detections []models.Detection) time.Time {
	first := detections[0].Timestamp
	for _, det := range detections[1:] {
		if det.Timestamp.Before(first) {
			first = det.Timestamp
		}
	}
	return first
}
