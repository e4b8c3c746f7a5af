package longterm

import (
	"fmt"

	"stopped-vehicle-detector-go/pkg/models"
)

// GroupTracks собирает анонимные детекции в треки-кандидаты.
//
// Детекции сортируются по времени, затем каждая нераспределенная детекция
// открывает новый трек и забирает все оставшиеся детекции того же класса,
// которые ближе MovementThresholdMeters к первой детекции трека и отстоят
// от последней добавленной менее чем на 24 часа. Треки после первого прохода
// не объединяются. Сложность O(n²) по числу детекций окна.
func (d *Detector) GroupTracks(detections []models.Detection) []Track {
	tracks := make([]Track, 0)
	if len(detections) == 0 {
		return tracks
	}

	sorted := sortedByTime(detections)
	assigned := make([]bool, len(sorted))

	for i, seed := range sorted {
		if assigned[i] {
			continue
		}
		assigned[i] = true

		members := []models.Detection{seed}
		last := seed.Timestamp

		for j := i + 1; j < len(sorted); j++ {
			if assigned[j] {
				continue
			}
			candidate := sorted[j]

			if candidate.VehicleClass != seed.VehicleClass {
				continue
			}
			if d.calc.DistanceMeters(seed.Location(), candidate.Location()) >= d.cfg.MovementThresholdMeters {
				continue
			}
			if candidate.Timestamp.Sub(last).Hours() >= groupingWindowHours {
				continue
			}

			members = append(members, candidate)
			assigned[j] = true
			last = candidate.Timestamp
		}

		tracks = append(tracks, Track{
			ID:         fmt.Sprintf("vehicle_%d", len(tracks)),
			Detections: members,
		})
	}

	return tracks
}
