package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PatchPath string // hcl or yaml file, or a directory of them

	LogFormat       string
	LogLevel        string
	ListenAddr      string
	HealthcheckPort int
	// LoadLatency delays every processor load on the recording substrate.
	LoadLatency time.Duration
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	case "":
		cfg.LogLevel = "info"
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	case "":
		cfg.LogFormat = "text"
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.LoadLatency < 0 {
		return nil, errors.New("load latency cannot be negative")
	}
	return &cfg, nil
}
