package longterm

import (
	"fmt"
	"math"

	"stopped-vehicle-detector-go/pkg/models"
)

// TrackKey ключ автомобиля для сопоставления между запусками:
// класс и координаты, округленные до 4 знаков (~11 м).
func TrackKey(class models.VehicleClass, location models.Coordinates) string {
	return fmt.Sprintf("%s:%.4f:%.4f", class, roundTo4(location.Lat), roundTo4(location.Lon))
}

func roundTo4(v float64) float64 {
	r := math.Round(v*10000) / 10000
	if r == 0 {
		return 0 // без "-0.0000"
	}
	return r
}
