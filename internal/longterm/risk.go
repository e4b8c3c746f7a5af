package longterm

import (
	"fmt"
	"time"
)

// AssessRisk оценивает риск по области
func (d *Detector) AssessRisk(flagged []FlaggedVehicle, clusters []Cluster) AreaRiskAssessment {
	if len(flagged) == 0 {
		return AreaRiskAssessment{
			Level:           RiskLow,
			Score:           0,
			Description:     "No stopped vehicles detected",
			Recommendations: []string{},
		}
	}

	highConfidenceVehicles := 0
	for _, v := range flagged {
		if v.Confidence > 0.8 {
			highConfidenceVehicles++
		}
	}

	highRiskClusters := 0
	for _, c := range clusters {
		if c.RiskLevel == RiskHigh {
			highRiskClusters++
		}
	}

	score := len(flagged)*10 + highConfidenceVehicles*20 + highRiskClusters*30

	level := RiskLow
	switch {
	case score >= 100:
		level = RiskHigh
	case score >= 50:
		level = RiskMedium
	}

	return AreaRiskAssessment{
		Level:           level,
		Score:           score,
		Description:     fmt.Sprintf("%d stopped vehicles, %d high-risk clusters", len(flagged), highRiskClusters),
		Recommendations: Recommendations(level),
	}
}

// Recommendations рекомендации оператору для уровня риска
func Recommendations(level RiskLevel) []string {
	switch level {
	case RiskHigh:
		return []string{
			"Immediate investigation recommended",
			"Consider deploying surveillance",
			"Check for abandoned vehicles",
			"Monitor for illegal parking",
		}
	case RiskMedium:
		return []string{
			"Periodic monitoring recommended",
			"Check for parking violations",
			"Verify vehicle ownership",
		}
	default:
		return []string{
			"Routine monitoring sufficient",
			"Standard parking enforcement",
		}
	}
}

// GenerateAlerts формирует оповещения: сначала по отдельным автомобилям, затем по кластерам
func (d *Detector) GenerateAlerts(flagged []FlaggedVehicle, clusters []Cluster, now time.Time) []Alert {
	alerts := make([]Alert, 0)

	for _, v := range flagged {
		if v.StopDurationHours <= d.cfg.StopThresholdHours*2 {
			continue
		}
		alerts = append(alerts, Alert{
			Kind:     AlertLongTermStop,
			Severity: SeverityHigh,
			Location: v.Location,
			Payload: AlertPayload{
				TrackID:       v.TrackID,
				VehicleCount:  1,
				DurationHours: v.StopDurationHours,
				Message:       fmt.Sprintf("Vehicle stopped for %.1f hours", v.StopDurationHours),
			},
			Timestamp: v.LastSeen,
		})
	}

	for _, c := range clusters {
		if c.RiskLevel != RiskHigh {
			continue
		}
		id := c.ID
		alerts = append(alerts, Alert{
			Kind:     AlertStopCluster,
			Severity: SeverityHigh,
			Location: c.Center,
			Payload: AlertPayload{
				ClusterID:          &id,
				VehicleCount:       c.VehicleCount,
				TotalStopTimeHours: c.TotalStopTimeHours,
				Message:            fmt.Sprintf("%d vehicles stopped in same area", c.VehicleCount),
			},
			Timestamp: now,
		})
	}

	return alerts
}
