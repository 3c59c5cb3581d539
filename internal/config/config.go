// Package config loads the playback core's tunables from a config file
// and STITCHGRID_-prefixed environment variables. Every knob has a
// working default; a missing config file is not an error.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the navigation and playback layers.
type Config struct {
	Nav struct {
		DisplacementThreshold float64 `mapstructure:"displacement_threshold"`
		VelocityThreshold     float64 `mapstructure:"velocity_threshold"`
		DominanceRatio        float64 `mapstructure:"dominance_ratio"`
		StepX                 float64 `mapstructure:"step_x"`
		StepY                 float64 `mapstructure:"step_y"`
	} `mapstructure:"nav"`

	Slot struct {
		MinViewDurationMS int `mapstructure:"min_view_duration_ms"`
		KeepWindow        int `mapstructure:"keep_window"`
	} `mapstructure:"slot"`

	Journal struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"journal"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// MinViewDuration returns the slot gate duration as a time.Duration.
func (c *Config) MinViewDuration() time.Duration {
	return time.Duration(c.Slot.MinViewDurationMS) * time.Millisecond
}

// Load reads config.yaml from the given search paths (falling back to
// the current directory) merged with STITCHGRID_ environment variables.
// Precedence: environment, then file, then defaults.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STITCHGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"nav.displacement_threshold",
		"nav.velocity_threshold",
		"nav.dominance_ratio",
		"nav.step_x",
		"nav.step_y",
		"slot.min_view_duration_ms",
		"slot.keep_window",
		"journal.path",
		"log.level",
	} {
		v.BindEnv(key)
	}

	v.SetDefault("nav.displacement_threshold", 50.0)
	v.SetDefault("nav.velocity_threshold", 800.0)
	v.SetDefault("nav.dominance_ratio", 3.0)
	v.SetDefault("nav.step_x", 390.0)
	v.SetDefault("nav.step_y", 844.0)
	v.SetDefault("slot.min_view_duration_ms", 500)
	v.SetDefault("slot.keep_window", 1)
	v.SetDefault("journal.path", "stitchgrid.db")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		// Environment-only operation is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Nav.DisplacementThreshold <= 0 {
		return fmt.Errorf("nav.displacement_threshold must be positive, got %v", c.Nav.DisplacementThreshold)
	}
	if c.Nav.VelocityThreshold <= 0 {
		return fmt.Errorf("nav.velocity_threshold must be positive, got %v", c.Nav.VelocityThreshold)
	}
	if c.Nav.DominanceRatio < 1 {
		return fmt.Errorf("nav.dominance_ratio must be at least 1, got %v", c.Nav.DominanceRatio)
	}
	if c.Slot.MinViewDurationMS <= 0 {
		return fmt.Errorf("slot.min_view_duration_ms must be positive, got %d", c.Slot.MinViewDurationMS)
	}
	return nil
}
