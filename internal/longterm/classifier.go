package longterm

import "time"

// IsLongTermStopped решает, стоит ли автомобиль длительно.
// Достаточно любого из условий:
//  1. суммарное время стоянки не меньше StopThresholdHours;
//  2. уверенность выше 0.7;
//  3. есть интервал длиннее 12 часов, закончившийся менее суток назад относительно now.
func (d *Detector) IsLongTermStopped(p MovementPattern, now time.Time) bool {
	if p.TotalStopTimeHours < d.cfg.MinStopDurationHours {
		return false
	}

	if p.TotalStopTimeHours >= d.cfg.StopThresholdHours {
		return true
	}

	if p.StopConfidence > highConfidence {
		return true
	}

	for _, sp := range p.StopIntervals {
		if now.Sub(sp.EndTime).Hours() < recentStopWindowHours && sp.DurationHours > recentStopMinHours {
			return true
		}
	}

	return false
}
