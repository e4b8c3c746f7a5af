package longterm

import (
	"math"
	"time"

	"stopped-vehicle-detector-go/pkg/models"
)

// AnalyzeMovement строит MovementPattern по упорядоченным по времени детекциям трека.
//
// Пары соседних детекций проходятся автоматом из двух состояний: движение и стоянка.
// Смещение меньше порога открывает окно стоянки на более ранней детекции,
// смещение не меньше порога закрывает его на текущей. Окно, открытое в конце трека,
// тоже закрывается. Интервалы короче MinStopDurationHours отбрасываются.
func (d *Detector) AnalyzeMovement(detections []models.Detection) MovementPattern {
	if len(detections) == 0 {
		return emptyPattern()
	}

	first := detections[0].Timestamp
	last := detections[len(detections)-1].Timestamp

	if len(detections) < 2 {
		pattern := emptyPattern()
		pattern.TotalDetections = 1
		pattern.FirstSeen = &first
		pattern.LastSeen = &last
		return pattern
	}

	var (
		totalDistance float64 // м
		totalTime     float64 // ч
		inStop        bool
		stopStart     time.Time
		stopLocation  models.Coordinates
	)
	stops := make([]StopInterval, 0)

	for i := 1; i < len(detections); i++ {
		prev := detections[i-1]
		curr := detections[i]

		distance := d.calc.DistanceMeters(prev.Location(), curr.Location())
		totalDistance += distance
		totalTime += curr.Timestamp.Sub(prev.Timestamp).Hours()

		if distance < d.cfg.MovementThresholdMeters {
			if !inStop {
				inStop = true
				stopStart = prev.Timestamp
				stopLocation = prev.Location()
			}
			continue
		}

		if inStop {
			stops = d.commitStop(stops, stopStart, curr.Timestamp, stopLocation)
			inStop = false
		}
	}

	// Автомобиль все еще стоит в конце окна наблюдения
	if inStop {
		stops = d.commitStop(stops, stopStart, last, stopLocation)
	}

	totalStop := 0.0
	for _, sp := range stops {
		totalStop += sp.DurationHours
	}

	avgSpeed := (totalDistance / 1000) / math.Max(totalTime, minTimeHours)

	pattern := MovementPattern{
		TotalDetections:    len(detections),
		TotalDistanceKm:    totalDistance / 1000,
		TotalTimeHours:     totalTime,
		AvgSpeedKmh:        avgSpeed,
		StopIntervals:      stops,
		TotalStopTimeHours: totalStop,
		MovementScore:      movementScore(avgSpeed, totalDistance, totalTime),
		FirstSeen:          &first,
		LastSeen:           &last,
	}
	pattern.StopConfidence = d.ScoreStopConfidence(pattern)

	return pattern
}

// commitStop добавляет интервал, если он не короче минимальной длительности
func (d *Detector) commitStop(stops []StopInterval, start, end time.Time, location models.Coordinates) []StopInterval {
	duration := end.Sub(start).Hours()
	if duration < d.cfg.MinStopDurationHours {
		return stops
	}

	return append(stops, StopInterval{
		StartTime:     start,
		EndTime:       end,
		DurationHours: duration,
		Location:      location,
		Confidence:    math.Min(duration/d.cfg.StopThresholdHours, 1.0),
	})
}

// movementScore оценка подвижности: среднее нормированных скорости и пробега
func movementScore(avgSpeedKmh, totalDistanceMeters, totalTimeHours float64) float64 {
	if totalTimeHours == 0 {
		return 0
	}

	speedScore := clamp01(avgSpeedKmh / speedCapKmh)
	distanceScore := clamp01(totalDistanceMeters / distanceCapMeters)

	return (speedScore + distanceScore) / 2
}

func emptyPattern() MovementPattern {
	return MovementPattern{
		StopIntervals: []StopInterval{},
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
