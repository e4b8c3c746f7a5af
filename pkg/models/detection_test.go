package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVehicleClass(t *testing.T) {
	tests := []struct {
		in      string
		want    VehicleClass
		wantErr bool
	}{
		{"car", VehicleCar, false},
		{" Truck ", VehicleTruck, false},
		{"BUS", VehicleBus, false},
		{"van", VehicleVan, false},
		{"bicycle", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVehicleClass(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectionJSON(t *testing.T) {
	raw := `{"latitude": 37.5, "longitude": 127.1, "confidence": 0.8, "vehicle_type": "truck",
		"timestamp": "2026-03-01T10:00:00Z", "image_coords": {"x": 12, "y": 40}}`

	var d Detection
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, Coordinates{Lat: 37.5, Lon: 127.1}, d.Location())
	assert.Equal(t, VehicleTruck, d.VehicleClass)
	assert.True(t, d.Timestamp.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	require.NotNil(t, d.ImageCoords)
	assert.Equal(t, 40.0, d.ImageCoords.Y)
	assert.Nil(t, d.Altitude)
}
