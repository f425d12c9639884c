// Package config loads and validates the trader configuration file.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BinanceConfig holds the credentials for the Binance gateway.
type BinanceConfig struct {
	APIKey    string `yaml:"api_key" validate:"required"`
	APISecret string `yaml:"api_secret" validate:"required"`
	// Testnet routes all traffic to the Binance testnet endpoints.
	Testnet bool `yaml:"testnet"`
}

// PaperConfig holds the settings of the built-in paper gateway.
type PaperConfig struct {
	// Balance is the starting account balance; zero keeps the default.
	Balance float64 `yaml:"balance" validate:"gte=0"`
}

// GatewaysConfig enables and configures gateways. A nil section leaves the
// gateway disabled.
type GatewaysConfig struct {
	Binance *BinanceConfig `yaml:"binance,omitempty"`
	Paper   *PaperConfig   `yaml:"paper,omitempty"`
}

// EventConfig tunes the event engine.
type EventConfig struct {
	// TimerInterval is the period of the recurring timer event; zero keeps
	// the default of one second.
	TimerInterval time.Duration `yaml:"timer_interval"`
	DisableTimer  bool          `yaml:"disable_timer"`
}

// StorageConfig points at the DuckDB database file. An empty path disables
// persistence.
type StorageConfig struct {
	Path string `yaml:"path"`
	// Record persists incoming ticks and their one-minute bars, building
	// warm-up history while the engine runs live.
	Record bool `yaml:"record"`
}

// StrategyConfig declares one strategy instance.
type StrategyConfig struct {
	// Name is the unique instance name.
	Name string `yaml:"name" validate:"required"`
	// Type selects the strategy implementation, e.g. "double_ma".
	Type string `yaml:"type" validate:"required"`
	// Symbol is the instrument the instance trades.
	Symbol string `yaml:"symbol" validate:"required"`
	// AutoStart switches the strategy to trading right after init.
	AutoStart bool `yaml:"auto_start"`
	// Settings carries implementation-specific parameters.
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Config is the root of the trader configuration.
type Config struct {
	Gateway    string           `yaml:"gateway" validate:"required"`
	Gateways   GatewaysConfig   `yaml:"gateways"`
	Event      EventConfig      `yaml:"event"`
	Storage    StorageConfig    `yaml:"storage"`
	Strategies []StrategyConfig `yaml:"strategies" validate:"dive"`
}

// Load reads, parses and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigReadFailed, "failed to read config file", err)
	}

	return Parse(data)
}

// Parse parses and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigParseFailed, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural constraints and cross-field consistency.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid config", err)
	}

	switch c.Gateway {
	case "binance":
		if c.Gateways.Binance == nil {
			return errors.New(errors.ErrCodeConfigInvalid, "gateway binance selected but not configured")
		}
	case "paper":
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid, "unknown gateway %q", c.Gateway)
	}

	seen := make(map[string]struct{}, len(c.Strategies))

	for _, sc := range c.Strategies {
		if _, dup := seen[sc.Name]; dup {
			return errors.Newf(errors.ErrCodeConfigInvalid, "duplicate strategy name %q", sc.Name)
		}

		seen[sc.Name] = struct{}{}
	}

	return nil
}
