package longterm

import (
	"testing"
	"time"

	"stopped-vehicle-detector-go/pkg/models"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func at(hours float64) time.Time {
	return t0.Add(time.Duration(hours * float64(time.Hour)))
}

func det(lat, lon float64, class models.VehicleClass, hours, confidence float64) models.Detection {
	return models.Detection{
		Latitude:     lat,
		Longitude:    lon,
		Confidence:   confidence,
		VehicleClass: class,
		Timestamp:    at(hours),
	}
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)
	return d
}

// scenarioA три детекции одной машины за 30 часов
func scenarioA() []models.Detection {
	return []models.Detection{
		det(37.50000, 127.00000, models.VehicleCar, 0, 0.9),
		det(37.50002, 127.00003, models.VehicleCar, 10, 0.9),
		det(37.50001, 127.00001, models.VehicleCar, 30, 0.9),
	}
}
