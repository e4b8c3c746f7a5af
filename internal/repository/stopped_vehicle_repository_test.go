package repository

import (
	"testing"
	"time"

	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func observation(hours int, confidence, stop float64) Observation {
	return Observation{
		TrackKey:     "car:37.5000:127.0000",
		VehicleClass: models.VehicleCar,
		Location:     models.Coordinates{Lat: 37.5, Lon: 127.0},
		RiskLevel:    "LOW",
		Confidence:   confidence,
		StopHours:    stop,
		FirstSeen:    base.Add(time.Duration(hours) * time.Hour),
		LastSeen:     base.Add(time.Duration(hours+int(stop)) * time.Hour),
		CheckedAt:    base.Add(time.Duration(hours+int(stop)+1) * time.Hour),
	}
}

func TestNewStoppedVehicleRecord(t *testing.T) {
	rec := NewStoppedVehicleRecord(observation(0, 0.9, 30))

	assert.Equal(t, "car:37.5000:127.0000", rec.TrackKey)
	assert.Equal(t, "car", rec.VehicleClass)
	assert.Equal(t, 1, rec.Observations)
	assert.Equal(t, 0.9, rec.AvgConfidence)
	assert.Equal(t, 0.9, rec.MaxConfidence)
	assert.Equal(t, 30.0, rec.MaxStopHours)
	assert.Equal(t, model.StatusDetected, rec.Status)
	assert.Equal(t, base, rec.FirstDetected)
}

func TestMergeObservation(t *testing.T) {
	rec := NewStoppedVehicleRecord(observation(0, 0.9, 30))

	next := observation(12, 0.7, 40)
	next.RiskLevel = "HIGH"
	next.Location = models.Coordinates{Lat: 37.50001, Lon: 127.00002}
	MergeObservation(&rec, next)

	assert.Equal(t, 2, rec.Observations)
	assert.InDelta(t, 0.8, rec.AvgConfidence, 1e-9)
	assert.Equal(t, 0.9, rec.MaxConfidence)
	assert.Equal(t, 40.0, rec.MaxStopHours)
	assert.Equal(t, "HIGH", rec.RiskLevel)
	assert.Equal(t, 37.50001, rec.Latitude)
	assert.Equal(t, base, rec.FirstDetected)
	assert.Equal(t, next.LastSeen, rec.LastSeen)
	assert.Equal(t, next.CheckedAt, rec.LastChecked)
}

func TestMergeObservation_StatusTransitions(t *testing.T) {
	rec := NewStoppedVehicleRecord(observation(0, 0.9, 30))

	rec.Status = model.StatusInvestigating
	MergeObservation(&rec, observation(10, 0.9, 30))
	assert.Equal(t, model.StatusInvestigating, rec.Status)

	rec.Status = model.StatusResolved
	MergeObservation(&rec, observation(20, 0.9, 30))
	assert.Equal(t, model.StatusDetected, rec.Status)
}

func TestMergeObservation_OlderObservationKeepsLatestTimes(t *testing.T) {
	rec := NewStoppedVehicleRecord(observation(24, 0.9, 30))
	latestChecked := rec.LastChecked

	MergeObservation(&rec, observation(0, 0.9, 10))
	assert.Equal(t, base, rec.FirstDetected)
	assert.Equal(t, latestChecked, rec.LastChecked)
}
