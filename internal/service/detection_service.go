package service

import (
	"context"
	"fmt"
	"time"

	"stopped-vehicle-detector-go/internal/geo"
	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/internal/repository"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// timeRanges допустимые окна поиска
var timeRanges = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// DetectionService сервис приема и поиска детекций
type DetectionService struct {
	repo          repository.DetectionRepository
	detector      ImageDetector
	clock         Clock
	calc          *geo.Calculator
	minConfidence float64
	logger        *logrus.Logger
}

// NewDetectionService создает новый сервис детекций
func NewDetectionService(repo repository.DetectionRepository, detector ImageDetector, clock Clock, minConfidence float64, logger *logrus.Logger) *DetectionService {
	return &DetectionService{
		repo:          repo,
		detector:      detector,
		clock:         clock,
		calc:          geo.NewCalculator(),
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Ingest проверяет и сохраняет детекции. Ошибка в любой детекции отклоняет весь пакет.
func (s *DetectionService) Ingest(ctx context.Context, detections []models.Detection) ([]models.Detection, error) {
	return s.ingest(ctx, detections, "")
}

func (s *DetectionService) ingest(ctx context.Context, detections []models.Detection, sourceImage string) ([]models.Detection, error) {
	if err := longterm.ValidateDetections(detections); err != nil {
		return nil, err
	}

	stored := make([]models.Detection, len(detections))
	records := make([]*model.DetectionRecord, len(detections))
	for i, det := range detections {
		if det.ID == "" {
			det.ID = uuid.New().String()
		}
		stored[i] = det
		records[i] = toRecord(det, sourceImage)
	}

	if err := s.repo.CreateBatch(ctx, records); err != nil {
		s.logger.Errorf("Ошибка сохранения детекций: %v", err)
		return nil, fmt.Errorf("failed to save detections: %w", err)
	}

	s.logger.Infof("Сохранено %d детекций", len(stored))
	return stored, nil
}

// IngestImage распознает автомобили на снимке и сохраняет их как детекции.
// Объекты других классов и ниже порога уверенности отбрасываются.
func (s *DetectionService) IngestImage(ctx context.Context, req ImageIngestRequest) (*ImageIngestResult, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidQuery)
	}
	if !geo.ValidCoordinates(req.Center.Lat, req.Center.Lon) {
		return nil, fmt.Errorf("%w: image center out of range", ErrInvalidQuery)
	}

	resp, err := s.detector.DetectImage(ctx, req.Image, req.Filename)
	if err != nil {
		s.logger.Errorf("Ошибка распознавания снимка %s: %v", req.Filename, err)
		return nil, fmt.Errorf("failed to detect vehicles: %w", err)
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.clock.Now()
	}

	result := &ImageIngestResult{
		ImageWidth:  resp.ImageWidth,
		ImageHeight: resp.ImageHeight,
		RawObjects:  len(resp.Detections),
		Detections:  []models.Detection{},
	}

	detections := make([]models.Detection, 0, len(resp.Detections))
	for _, raw := range resp.Detections {
		class, err := models.ParseVehicleClass(raw.Class)
		if err != nil || raw.Confidence < s.minConfidence {
			result.Skipped++
			continue
		}

		location := s.calc.PixelToCoordinates(req.Center, raw.X, raw.Y, resp.ImageWidth, resp.ImageHeight, req.DegreesPerPixel)
		detections = append(detections, models.Detection{
			Latitude:     location.Lat,
			Longitude:    location.Lon,
			Confidence:   raw.Confidence,
			VehicleClass: class,
			Timestamp:    capturedAt,
			ImageCoords:  &models.ImageCoords{X: raw.X, Y: raw.Y},
		})
	}

	if len(detections) == 0 {
		s.logger.Infof("На снимке %s автомобили не найдены", req.Filename)
		return result, nil
	}

	stored, err := s.ingest(ctx, detections, req.Filename)
	if err != nil {
		return nil, err
	}
	result.Detections = stored

	return result, nil
}

// Search ищет детекции в области за выбранный период
func (s *DetectionService) Search(ctx context.Context, q SearchQuery) ([]models.Detection, error) {
	if err := validateArea(q.Center, q.RadiusDeg); err != nil {
		return nil, err
	}
	if q.VehicleClass != "" && !q.VehicleClass.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidQuery, q.VehicleClass)
	}

	timeRange := q.TimeRange
	if timeRange == "" {
		timeRange = "24h"
	}
	window, ok := timeRanges[timeRange]
	if !ok {
		return nil, fmt.Errorf("%w: time_range must be one of 24h, 7d, 30d", ErrInvalidQuery)
	}

	records, err := s.repo.FindInArea(ctx, repository.AreaFilter{
		Center:       q.Center,
		RadiusDeg:    q.RadiusDeg,
		Since:        s.clock.Now().Add(-window),
		VehicleClass: q.VehicleClass,
		Limit:        q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search detections: %w", err)
	}

	return toDetections(records), nil
}

// CheckDetector проверяет сервис распознавания
func (s *DetectionService) CheckDetector(ctx context.Context) (*models.HealthResponse, error) {
	return s.detector.CheckHealth(ctx)
}

func validateArea(center models.Coordinates, radiusDeg float64) error {
	if !geo.ValidCoordinates(center.Lat, center.Lon) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidQuery)
	}
	if radiusDeg <= 0 || radiusDeg > 1 {
		return fmt.Errorf("%w: radius must be in (0, 1] degrees", ErrInvalidQuery)
	}
	return nil
}
