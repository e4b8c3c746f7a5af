package longterm

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 24.0, cfg.StopThresholdHours)
	assert.Equal(t, 50.0, cfg.MovementThresholdMeters)
	assert.Equal(t, 100.0, cfg.ClusterRadiusMeters)
	assert.Equal(t, 6.0, cfg.MinStopDurationHours)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*Config)
	}{
		{"zero stop threshold", func(c *Config) { c.StopThresholdHours = 0 }},
		{"negative movement", func(c *Config) { c.MovementThresholdMeters = -1 }},
		{"nan radius", func(c *Config) { c.ClusterRadiusMeters = math.NaN() }},
		{"inf min stop", func(c *Config) { c.MinStopDurationHours = math.Inf(1) }},
		{"min stop above threshold", func(c *Config) { c.MinStopDurationHours = 30 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			_, err = NewDetector(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
