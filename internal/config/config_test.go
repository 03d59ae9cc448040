package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agusx1211/fluorescent/internal/hum"
	"github.com/agusx1211/fluorescent/internal/timeline"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(New())
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost", cfg.MQTT.Broker)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "homeassistant/fluorescent", cfg.MQTT.Topic)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, hum.DefaultConfig(), cfg.Audio.Hum)
	assert.Equal(t, 60, cfg.Lamp.FPS)
	assert.Equal(t, 256, cfg.Lamp.LUTSize)
	assert.Equal(t, timeline.DefaultControlPoints(), cfg.Lamp.ControlPoints)
	assert.Equal(t, timeline.DefaultParams(), cfg.Generator)
	assert.Equal(t, 32, cfg.Analyzer.Samples)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MQTT_BROKER", "ssl://broker.lan")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_TOPIC", "home/tube/")
	t.Setenv("SAMPLE_RATE", "48000")
	t.Setenv("LAMP_FPS", "30")
	t.Setenv("STATE_FILE", "/tmp/tube.json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromViper(New())
	require.NoError(t, err)
	assert.Equal(t, "ssl://broker.lan", cfg.MQTT.Broker)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.Equal(t, "home/tube", cfg.MQTT.Topic)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 30, cfg.Lamp.FPS)
	assert.Equal(t, "/tmp/tube.json", cfg.StateFile)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
lamp:
  duration: 3.5
  control_points:
    - {id: 1, x: 0.1}
    - {id: 2, x: 0.4}
generator:
  stable_hold: 1.25
  pulse_count: {min: 2, max: 4}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.5, cfg.Lamp.Duration)
	assert.Equal(t, []timeline.ControlPoint{{ID: 1, X: 0.1}, {ID: 2, X: 0.4}}, cfg.Lamp.ControlPoints)
	assert.Equal(t, 1.25, cfg.Generator.StableHold)
	assert.Equal(t, timeline.IntRange{Min: 2, Max: 4}, cfg.Generator.PulseCount)
	assert.Equal(t, timeline.DefaultParams().BaseGain, cfg.Generator.BaseGain, "untouched keys keep defaults")

	opts := cfg.LampOptions()
	assert.Equal(t, 3.5, opts.Duration)
	assert.Equal(t, 1.25, opts.Params.StableHold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := FromViper(New())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.MQTT.Port = 0 }, "mqtt.port"},
		{"empty topic", func(c *Config) { c.MQTT.Topic = "" }, "mqtt.topic"},
		{"bad fps", func(c *Config) { c.Lamp.FPS = 0 }, "lamp.fps"},
		{"huge fps", func(c *Config) { c.Lamp.FPS = 2_000_000_000 }, "lamp.fps"},
		{"tiny lut", func(c *Config) { c.Lamp.LUTSize = 1 }, "lamp.lut_size"},
		{"lut below visual floor", func(c *Config) { c.Lamp.LUTSize = 4 }, "at least 128"},
		{"audio rate", func(c *Config) { c.Audio.Enabled = true; c.Audio.SampleRate = 0 }, "audio.sample_rate"},
		{"buzz color", func(c *Config) { c.Audio.Hum.BuzzColor = "violet" }, "audio.hum.buzz_color"},
		{"duplicate ids", func(c *Config) {
			c.Lamp.ControlPoints = []timeline.ControlPoint{{ID: 1}, {ID: 1, X: 0.2}}
		}, "duplicate id 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	floor := *base
	floor.Lamp.LUTSize = 128
	assert.NoError(t, floor.Validate())

	off := *base
	off.MQTT.Enabled = false
	off.MQTT.Port = 0
	assert.NoError(t, off.Validate(), "mqtt settings are ignored when disabled")
}
