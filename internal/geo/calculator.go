package geo

import (
	"math"

	"stopped-vehicle-detector-go/pkg/models"

	"gonum.org/v1/gonum/stat"
)

const (
	// EarthRadiusMeters радиус Земли для формулы гаверсинуса
	EarthRadiusMeters = 6371000.0

	// MetersPerDegree грубый перевод метров в градусы, используется только при кластеризации
	MetersPerDegree = 111000.0

	// DefaultDegreesPerPixel шаг сетки снимка по умолчанию
	DefaultDegreesPerPixel = 0.0001
)

// Calculator для географических вычислений
type Calculator struct{}

// NewCalculator создает новый калькулятор
func NewCalculator() *Calculator {
	return &Calculator{}
}

// DistanceMeters вычисляет расстояние между двумя точками в метрах
// Использует формулу гаверсинуса
func (c *Calculator) DistanceMeters(point1, point2 models.Coordinates) float64 {
	lat1Rad := point1.Lat * math.Pi / 180
	lat2Rad := point2.Lat * math.Pi / 180
	deltaLat := (point2.Lat - point1.Lat) * math.Pi / 180
	deltaLon := (point2.Lon - point1.Lon) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	chord := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * chord
}

// MetersToDegrees переводит метры в угловой радиус (1° ≈ 111 км)
func (c *Calculator) MetersToDegrees(meters float64) float64 {
	return meters / MetersPerDegree
}

// Center вычисляет центр группы точек как среднее арифметическое
func (c *Calculator) Center(points []models.Coordinates) models.Coordinates {
	if len(points) == 0 {
		return models.Coordinates{}
	}

	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}

	return models.Coordinates{
		Lat: stat.Mean(lats, nil),
		Lon: stat.Mean(lons, nil),
	}
}

// PixelToCoordinates переводит позицию на снимке в географические координаты
// center - координаты центра снимка, degreesPerPixel - шаг сетки
func (c *Calculator) PixelToCoordinates(center models.Coordinates, x, y float64, width, height int, degreesPerPixel float64) models.Coordinates {
	if degreesPerPixel <= 0 {
		degreesPerPixel = DefaultDegreesPerPixel
	}

	return models.Coordinates{
		Lat: center.Lat + (y-float64(height)/2)*degreesPerPixel,
		Lon: center.Lon + (x-float64(width)/2)*degreesPerPixel,
	}
}

// InBounds проверяет, что точка внутри прямоугольной области
func (c *Calculator) InBounds(point, northEast, southWest models.Coordinates) bool {
	return point.Lat >= southWest.Lat && point.Lat <= northEast.Lat &&
		point.Lon >= southWest.Lon && point.Lon <= northEast.Lon
}

// ValidCoordinates проверяет диапазоны широты и долготы
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
