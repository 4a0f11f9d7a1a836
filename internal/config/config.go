// Package config loads the inspector.yaml used by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "inspector.yaml"

// Config is the CLI configuration.
type Config struct {
	Listen       string        `mapstructure:"listen" validate:"required"`
	LogLevel     string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string        `mapstructure:"log_format" validate:"oneof=text json"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gte=0"`
	TreeSelect   bool          `mapstructure:"tree_select"`
	ArchiveDir   string        `mapstructure:"archive_dir"`
	Redis        Redis         `mapstructure:"redis"`
	RateLimit    RateLimit     `mapstructure:"rate_limit"`
}

// Redis enables the event publisher and the controller lease when Addr is set.
type Redis struct {
	Addr     string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0,lte=15"`
	Channel  string        `mapstructure:"channel" validate:"required_with=Addr"`
	LeaseTTL time.Duration `mapstructure:"lease_ttl" validate:"gte=0"`
}

// RateLimit throttles inbound commands per websocket connection.
// A zero RPS disables throttling.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=0"`
}

// Enabled reports whether Redis is configured.
func (r Redis) Enabled() bool { return r.Addr != "" }

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Listen:    ":8089",
		LogLevel:  "info",
		LogFormat: "text",
		Redis: Redis{
			Channel:  "inspector:events",
			LeaseTTL: time.Hour,
		},
		RateLimit: RateLimit{RPS: 50, Burst: 100},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML (or JSON) data into cfg and validates the result.
// Keys absent from data keep their current value.
func Parse(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
