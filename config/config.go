// Package config loads counterctl settings from the environment and the
// deployment manifest
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/logging"
)

var ErrNoContractAddress = errors.New("no contract address configured")

// Config holds every COUNTER_* setting. Command-line flags override it.
type Config struct {
	NodeURL         string   `env:"COUNTER_NODE_URL"        envDefault:"http://127.0.0.1:8545"`
	ListenAddress   string   `env:"COUNTER_LISTEN_ADDRESS"  envDefault:"127.0.0.1:8545"`
	AllowedOrigins  []string `env:"COUNTER_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ContractAddress string   `env:"COUNTER_CONTRACT_ADDRESS"`
	ManifestPath    string   `env:"COUNTER_MANIFEST"        envDefault:"deployment.yaml"`
	StartValue      uint64   `env:"COUNTER_START_VALUE"     envDefault:"0"`

	Mnemonic     string `env:"COUNTER_MNEMONIC"`
	AccountIndex uint32 `env:"COUNTER_ACCOUNT_INDEX" envDefault:"0"`
	PrivateKey   string `env:"COUNTER_PRIVATE_KEY"`

	DataDir     string `env:"COUNTER_DATA_DIR"  envDefault:"./data"`
	ContextType string `env:"COUNTER_CONTEXT"   envDefault:"db"`
	GasLimit    int64  `env:"COUNTER_GAS_LIMIT" envDefault:"1000000"`

	SurfaceReadErrors    bool `env:"COUNTER_SURFACE_READ_ERRORS"`
	RefreshAfterMutation bool `env:"COUNTER_REFRESH_AFTER_MUTATION"`

	LogLevel      string `env:"COUNTER_LOG_LEVEL"       envDefault:"info"`
	LogFormat     string `env:"COUNTER_LOG_FORMAT"      envDefault:"text"`
	LogFile       string `env:"COUNTER_LOG_FILE"`
	LogMaxSizeMB  int    `env:"COUNTER_LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"COUNTER_LOG_MAX_BACKUPS" envDefault:"3"`
}

// Load parses the environment
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Logging returns the logger settings
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
	}
}

// ResolveContractAddress prefers COUNTER_CONTRACT_ADDRESS and falls back to
// the address recorded in the deployment manifest
func (c *Config) ResolveContractAddress() (core.Address, error) {
	if c.ContractAddress != "" {
		addr, err := core.ParseAddress(c.ContractAddress)
		if err != nil {
			return core.ZeroAddress, fmt.Errorf("COUNTER_CONTRACT_ADDRESS: %w", err)
		}
		return addr, nil
	}
	m, err := LoadManifest(c.ManifestPath)
	if errors.Is(err, os.ErrNotExist) {
		return core.ZeroAddress, ErrNoContractAddress
	}
	if err != nil {
		return core.ZeroAddress, err
	}
	if m.ContractAddress == "" {
		return core.ZeroAddress, ErrNoContractAddress
	}
	addr, err := core.ParseAddress(m.ContractAddress)
	if err != nil {
		return core.ZeroAddress, fmt.Errorf("manifest %s: %w", c.ManifestPath, err)
	}
	return addr, nil
}
