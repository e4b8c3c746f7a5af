package longterm

import "math"

// ScoreStopConfidence оценивает уверенность в том, что автомобиль брошен.
//
//	0.4·доля стоянки + 0.3·фактор скорости + 0.2·фактор числа стоянок + 0.1·фактор самой длинной стоянки
//
// Одна длинная стоянка на низкой скорости весит больше, чем много коротких.
func (d *Detector) ScoreStopConfidence(p MovementPattern) float64 {
	if p.TotalTimeHours == 0 {
		return 0
	}

	stopRatio := p.TotalStopTimeHours / p.TotalTimeHours
	speedFactor := math.Max(0, 1-p.AvgSpeedKmh/speedCapKmh)
	stopCountFactor := 1.0 / (1.0 + 0.1*float64(len(p.StopIntervals)))
	longestStopFactor := math.Min(p.LongestStopHours()/d.cfg.StopThresholdHours, 1.0)

	confidence := stopRatio*0.4 +
		speedFactor*0.3 +
		stopCountFactor*0.2 +
		longestStopFactor*0.1

	return clamp01(confidence)
}
