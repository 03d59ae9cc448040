package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/agusx1211/fluorescent/internal/analyzer"
	"github.com/agusx1211/fluorescent/internal/curve"
	"github.com/agusx1211/fluorescent/internal/hum"
	"github.com/agusx1211/fluorescent/internal/lamp"
	"github.com/agusx1211/fluorescent/internal/noise"
	"github.com/agusx1211/fluorescent/internal/timeline"
)

var ErrInvalidConfig = errors.New("invalid config")

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
	// PublishRate caps state messages per second while the tube is animating.
	PublishRate float64 `mapstructure:"publish_rate"`
}

type AudioConfig struct {
	Enabled    bool       `mapstructure:"enabled"`
	SampleRate int        `mapstructure:"sample_rate"`
	BufferSize int        `mapstructure:"buffer_size"`
	Hum        hum.Config `mapstructure:"hum"`
}

type LampConfig struct {
	FPS           int                     `mapstructure:"fps"`
	LUTSize       int                     `mapstructure:"lut_size"`
	Duration      float64                 `mapstructure:"duration"`
	ControlPoints []timeline.ControlPoint `mapstructure:"control_points"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
	ServiceName string `mapstructure:"service_name"`
}

type Config struct {
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Lamp      LampConfig      `mapstructure:"lamp"`
	Generator timeline.Params `mapstructure:"generator"`
	Analyzer  analyzer.Config `mapstructure:"analyzer"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	StateFile string          `mapstructure:"state_file"`
}

// SetDefaults registers every scalar key so that it can be overridden from the
// environment (MQTT_BROKER, AUDIO_SAMPLE_RATE, LAMP_FPS, ...).
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mqtt.enabled", true)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.user", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "homeassistant/fluorescent")
	v.SetDefault("mqtt.publish_rate", 10.0)

	h := hum.DefaultConfig()
	v.SetDefault("audio.enabled", false)
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.buffer_size", 1024)
	v.SetDefault("audio.hum.frequency", h.Frequency)
	v.SetDefault("audio.hum.harmonic", h.Harmonic)
	v.SetDefault("audio.hum.base_gain", h.BaseGain)
	v.SetDefault("audio.hum.buzz", h.Buzz)
	v.SetDefault("audio.hum.buzz_color", h.BuzzColor)
	v.SetDefault("audio.hum.buzz_cutoff", h.BuzzCutoff)
	v.SetDefault("audio.hum.smoothing", h.Smoothing)
	v.SetDefault("audio.hum.click_frequency", h.ClickFrequency)
	v.SetDefault("audio.hum.click_gain", h.ClickGain)
	v.SetDefault("audio.hum.click_length", h.ClickLength)

	v.SetDefault("lamp.fps", 60)
	v.SetDefault("lamp.lut_size", 256)
	v.SetDefault("lamp.duration", 2.0)

	a := analyzer.DefaultConfig()
	v.SetDefault("analyzer.samples", a.Samples)
	v.SetDefault("analyzer.ema_alpha", a.EMAAlpha)
	v.SetDefault("analyzer.flash_threshold", a.FlashThreshold)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.service_name", "fluorescent")

	v.SetDefault("state_file", "/var/lib/fluorescent/state.json")
}

// New returns a viper instance with defaults and environment binding. The
// legacy names without a section prefix (SAMPLE_RATE, BUFFER_SIZE) are bound
// explicitly.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("audio.sample_rate", "AUDIO_SAMPLE_RATE", "SAMPLE_RATE")
	_ = v.BindEnv("audio.buffer_size", "AUDIO_BUFFER_SIZE", "BUFFER_SIZE")
	_ = v.BindEnv("logger.level", "LOGGER_LEVEL", "LOG_LEVEL")
	return v
}

// Load reads path (if non-empty) and the environment into a Config.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes v on top of the built-in generator defaults. An empty
// control point list selects timeline.DefaultControlPoints.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{Generator: timeline.DefaultParams()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if len(cfg.Lamp.ControlPoints) == 0 {
		cfg.Lamp.ControlPoints = timeline.DefaultControlPoints()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if !strings.HasPrefix(c.MQTT.Broker, "tcp://") && !strings.HasPrefix(c.MQTT.Broker, "ssl://") &&
		!strings.HasPrefix(c.MQTT.Broker, "ws://") && !strings.HasPrefix(c.MQTT.Broker, "wss://") {
		c.MQTT.Broker = "tcp://" + c.MQTT.Broker
	}
	c.MQTT.Topic = strings.TrimSuffix(c.MQTT.Topic, "/")
}

func (c *Config) Validate() error {
	var errs []error
	if c.MQTT.Enabled {
		if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			errs = append(errs, fmt.Errorf("mqtt.port %d out of range", c.MQTT.Port))
		}
		if c.MQTT.Topic == "" {
			errs = append(errs, errors.New("mqtt.topic must not be empty"))
		}
	}
	if c.Audio.Enabled && c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if _, err := noise.ParseColor(c.Audio.Hum.BuzzColor); err != nil {
		errs = append(errs, fmt.Errorf("audio.hum.buzz_color: %w", err))
	}
	if c.Lamp.FPS <= 0 || c.Lamp.FPS > lamp.MaxFPS {
		errs = append(errs, fmt.Errorf("lamp.fps must be in [1, %d], got %d", lamp.MaxFPS, c.Lamp.FPS))
	}
	if c.Lamp.LUTSize < curve.MinResolution {
		errs = append(errs, fmt.Errorf("lamp.lut_size must be at least %d, got %d", curve.MinResolution, c.Lamp.LUTSize))
	}
	seen := make(map[int]bool, len(c.Lamp.ControlPoints))
	for _, cp := range c.Lamp.ControlPoints {
		if seen[cp.ID] {
			errs = append(errs, fmt.Errorf("lamp.control_points: duplicate id %d", cp.ID))
		}
		seen[cp.ID] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LampOptions builds the lamp.Options described by c.
func (c *Config) LampOptions() lamp.Options {
	return lamp.Options{
		Resolution:    c.Lamp.LUTSize,
		Duration:      c.Lamp.Duration,
		ControlPoints: c.Lamp.ControlPoints,
		Params:        c.Generator,
		Analyzer:      c.Analyzer,
	}
}
