// File: internal/config/config_test.go
package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "replay-cli", cfg.Logger().ServiceName)

	assert.False(t, cfg.Engine().StopOnError)
	assert.False(t, cfg.Engine().SkipOnNotFound)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine().BaseDelay)
	assert.Equal(t, 0.5, cfg.Engine().JitterFactor)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine().PauseCheckInterval)

	assert.Equal(t, 2*time.Second, cfg.Locator().FindTimeout)
	assert.Equal(t, 120*time.Millisecond, cfg.Locator().RetryInterval)
	assert.Equal(t, 3, cfg.Locator().MinTextLength)

	assert.Equal(t, 30*time.Second, cfg.Wait().Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Wait().PollInterval)

	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 90*time.Second, cfg.Browser().NavigationTimeout)

	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper_OverridesDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
logger:
  level: debug
engine:
  stop_on_error: true
  base_delay: 10ms
wait:
  timeout: 5s
`)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.True(t, cfg.Engine().StopOnError)
	assert.Equal(t, 10*time.Millisecond, cfg.Engine().BaseDelay)
	assert.Equal(t, 5*time.Second, cfg.Wait().Timeout)
	// Untouched sections keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Locator().FindTimeout)
}

func TestNewConfigFromViper_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero poll interval", "wait:\n  poll_interval: 0s\n", "poll_interval"},
		{"zero wait timeout", "wait:\n  timeout: 0s\n", "timeout"},
		{"zero find timeout", "locator:\n  find_timeout: 0s\n", "find_timeout"},
		{"negative jitter", "engine:\n  jitter_factor: -0.1\n", "jitter_factor"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.SetConfigType("yaml")
			require.NoError(t, v.ReadConfig(strings.NewReader(tc.yaml)))

			_, err := NewConfigFromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.SetEngineStopOnError(true)
	cfg.SetEngineSkipOnNotFound(true)
	cfg.SetEngineBaseDelay(42 * time.Millisecond)
	cfg.SetBrowserHeadless(false)
	cfg.SetBrowserNavigationTimeout(time.Minute)

	assert.True(t, cfg.Engine().StopOnError)
	assert.True(t, cfg.Engine().SkipOnNotFound)
	assert.Equal(t, 42*time.Millisecond, cfg.Engine().BaseDelay)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, time.Minute, cfg.Browser().NavigationTimeout)
}
