package longterm

import (
	"math"
	"sort"
	"time"

	"stopped-vehicle-detector-go/pkg/models"

	"gonum.org/v1/gonum/stat"
)

// cellKey координаты ячейки сетки
type cellKey struct {
	x, y int64
}

// spatialIndex равномерная сетка для поиска соседей в DBSCAN.
// Размер ячейки равен eps, поэтому соседи лежат в окрестности 3x3 ячеек.
type spatialIndex struct {
	cellSize float64
	grid     map[cellKey][]int
}

func newSpatialIndex(cellSize float64, points []models.Coordinates) *spatialIndex {
	si := &spatialIndex{
		cellSize: cellSize,
		grid:     make(map[cellKey][]int, len(points)),
	}
	for i, p := range points {
		key := si.cell(p)
		si.grid[key] = append(si.grid[key], i)
	}
	return si
}

func (si *spatialIndex) cell(p models.Coordinates) cellKey {
	return cellKey{
		x: int64(math.Floor(p.Lat / si.cellSize)),
		y: int64(math.Floor(p.Lon / si.cellSize)),
	}
}

// regionQuery возвращает индексы точек на расстоянии не больше eps, включая саму точку
func (si *spatialIndex) regionQuery(points []models.Coordinates, idx int, eps float64) []int {
	p := points[idx]
	base := si.cell(p)
	eps2 := eps * eps

	neighbors := []int{}
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, candidateIdx := range si.grid[cellKey{x: base.x + dx, y: base.y + dy}] {
				c := points[candidateIdx]
				dLat := c.Lat - p.Lat
				dLon := c.Lon - p.Lon
				if dLat*dLat+dLon*dLon <= eps2 {
					neighbors = append(neighbors, candidateIdx)
				}
			}
		}
	}
	sort.Ints(neighbors)
	return neighbors
}

// ClusterVehicles группирует помеченные автомобили в горячие точки алгоритмом DBSCAN.
//
// Расстояние считается в градусах широты/долготы, радиус переводится из метров
// делением на 111000. Возвращает кластеры и автомобили, не попавшие ни в один кластер.
func (d *Detector) ClusterVehicles(flagged []FlaggedVehicle, now time.Time) ([]Cluster, []FlaggedVehicle) {
	clusters := make([]Cluster, 0)
	if len(flagged) < clusterMinSamples {
		noise := make([]FlaggedVehicle, len(flagged))
		copy(noise, flagged)
		return clusters, noise
	}

	points := make([]models.Coordinates, len(flagged))
	for i, v := range flagged {
		points[i] = v.Location
	}

	eps := d.calc.MetersToDegrees(d.cfg.ClusterRadiusMeters)
	labels := dbscan(points, eps, clusterMinSamples)

	maxLabel := 0
	for _, l := range labels {
		if l > maxLabel {
			maxLabel = l
		}
	}

	noise := make([]FlaggedVehicle, 0)
	members := make([][]FlaggedVehicle, maxLabel+1)
	for i, l := range labels {
		if l < 0 {
			noise = append(noise, flagged[i])
			continue
		}
		members[l] = append(members[l], flagged[i])
	}

	for cid := 1; cid <= maxLabel; cid++ {
		clusters = append(clusters, d.buildCluster(cid-1, members[cid], now))
	}

	return clusters, noise
}

// dbscan возвращает метки точек: -1 шум, >0 номер кластера
func dbscan(points []models.Coordinates, eps float64, minPts int) []int {
	labels := make([]int, len(points)) // 0 - не посещена
	index := newSpatialIndex(eps, points)
	clusterID := 0

	for i := range points {
		if labels[i] != 0 {
			continue
		}

		neighbors := index.regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = -1
			continue
		}

		clusterID++
		labels[i] = clusterID

		for j := 0; j < len(neighbors); j++ {
			idx := neighbors[j]
			if labels[idx] == -1 {
				labels[idx] = clusterID // Шум становится граничной точкой
			}
			if labels[idx] != 0 {
				continue
			}

			labels[idx] = clusterID
			next := index.regionQuery(points, idx, eps)
			if len(next) >= minPts {
				neighbors = append(neighbors, next...)
			}
		}
	}

	return labels
}

func (d *Detector) buildCluster(id int, vehicles []FlaggedVehicle, now time.Time) Cluster {
	points := make([]models.Coordinates, len(vehicles))
	confidences := make([]float64, len(vehicles))
	totalStop := 0.0
	var lastSeen time.Time

	for i, v := range vehicles {
		points[i] = v.Location
		confidences[i] = v.Confidence
		totalStop += v.StopDurationHours
		if v.LastSeen.After(lastSeen) {
			lastSeen = v.LastSeen
		}
	}

	avgConfidence := stat.Mean(confidences, nil)

	return Cluster{
		ID:                 id,
		Center:             d.calc.Center(points),
		VehicleCount:       len(vehicles),
		Vehicles:           vehicles,
		TotalStopTimeHours: totalStop,
		AvgConfidence:      avgConfidence,
		LastSeen:           lastSeen,
		HoursSinceLastSeen: now.Sub(lastSeen).Hours(),
		RiskLevel:          ClusterRisk(avgConfidence, len(vehicles)),
	}
}

// ClusterRisk уровень риска кластера по средней уверенности и числу автомобилей
func ClusterRisk(avgConfidence float64, vehicleCount int) RiskLevel {
	switch {
	case avgConfidence > 0.8 && vehicleCount >= 3:
		return RiskHigh
	case avgConfidence > 0.6 && vehicleCount >= 2:
		return RiskMedium
	default:
		return RiskLow
	}
}
