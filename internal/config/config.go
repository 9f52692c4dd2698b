// Package config loads NeoBank runtime configuration.
//
// Sources are applied in order: YAML file, NEOBANK_* environment
// variables, then defaults for anything still unset. The result is
// validated before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/neobank/internal/model"
)

// Defaults applied after the file and environment.
const (
	DefaultDatabasePath  = "neobank.db"
	DefaultLogLevel      = "info"
	DefaultCrankSchedule = "@every 1m"
	DefaultServiceName   = "neobank"
)

// Config holds all runtime configuration.
type Config struct {
	Database struct {
		Path string `yaml:"path" env:"NEOBANK_DB_PATH" validate:"required"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level" env:"NEOBANK_LOG_LEVEL" validate:"oneof=debug info warn error"`
	} `yaml:"log"`
	Crank struct {
		Schedule string `yaml:"schedule" env:"NEOBANK_CRANK_SCHEDULE" validate:"required,cron"`
	} `yaml:"crank"`
	Metrics struct {
		Listen string `yaml:"listen" env:"NEOBANK_METRICS_LISTEN" validate:"omitempty,hostname_port"`
	} `yaml:"metrics"`
	Telemetry struct {
		Endpoint    string `yaml:"endpoint" env:"NEOBANK_OTLP_ENDPOINT" validate:"omitempty,url"`
		ServiceName string `yaml:"service_name" env:"NEOBANK_SERVICE_NAME"`
	} `yaml:"telemetry"`
	Connectors struct {
		// StakePool is the JitoSOL deposit account. Empty uses the derived
		// default pool.
		StakePool string `yaml:"stake_pool" env:"NEOBANK_STAKE_POOL" validate:"omitempty,identity"`
	} `yaml:"connectors"`
}

// Load reads path (if non-empty), overlays the environment, applies
// defaults and validates. A missing file is an error only when path was
// given explicitly.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos fail loudly.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Crank.Schedule == "" {
		c.Crank.Schedule = DefaultCrankSchedule
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	v, err := NewValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewValidator returns a validator with the NeoBank tags registered:
// identity (base58 32-byte key) and cron (robfig schedule spec).
func NewValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			panic(fmt.Errorf("%q is not a string", fl.FieldName()))
		}
		_, err := model.ParseIdentity(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	err = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			panic(fmt.Errorf("%q is not a string", fl.FieldName()))
		}
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v, err
}

// SlogLevel maps Log.Level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StakePool returns the configured JitoSOL pool account.
func (c *Config) StakePool() model.Identity {
	if c.Connectors.StakePool == "" {
		return model.StakePoolAddress()
	}
	// Validate has already accepted the value.
	return model.MustParseIdentity(c.Connectors.StakePool)
}
