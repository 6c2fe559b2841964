// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config provides configuration loading for the build-graph
// service.
//
// Configuration is a YAML file with environment-variable overrides for the
// settings that differ between deployments. Every loaded configuration is
// validated before use; the service refuses to start on an invalid one.
//
// Thread Safety:
//
//	Load returns an independent value; concurrent loads are safe.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// MaxConfigFileSize is the maximum allowed config file size (1MB).
	// Prevents memory issues from corrupt files.
	MaxConfigFileSize = 1024 * 1024
)

// Config is the root service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Compaction CompactionConfig `yaml:"compaction"`
	Limits     LimitsConfig     `yaml:"limits"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the HTTP query surface.
type ServerConfig struct {
	// Port is the listen port.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// RateLimitRPS is the sustained request rate admitted per instance.
	// Zero disables rate limiting.
	RateLimitRPS float64 `yaml:"rate_limit_rps" validate:"gte=0"`

	// RateLimitBurst is the burst size admitted above the sustained rate.
	RateLimitBurst int `yaml:"rate_limit_burst" validate:"gte=0"`
}

// CompactionConfig controls the history retention policy.
type CompactionConfig struct {
	// KeepGenerations is the number of most recent generations retained
	// by an explicit compaction request. Zero means history is unbounded
	// and compaction requests are rejected.
	KeepGenerations int `yaml:"keep_generations" validate:"gte=0"`
}

// LimitsConfig caps per-index store growth.
type LimitsConfig struct {
	MaxTargets       int `yaml:"max_targets" validate:"gt=0"`
	MaxDepsPerTarget int `yaml:"max_deps_per_target" validate:"gt=0"`
}

// TelemetryConfig selects trace and metric exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables JSON file logging when non-empty.
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			RateLimitRPS:   200,
			RateLimitBurst: 400,
		},
		Compaction: CompactionConfig{
			KeepGenerations: 0,
		},
		Limits: LimitsConfig{
			MaxTargets:       1_000_000,
			MaxDepsPerTarget: 100_000,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads, overrides, and validates the configuration.
//
// Description:
//
//	Starts from Default(), merges the YAML file at path (if non-empty),
//	then applies environment overrides:
//
//	  BUILDGRAPH_PORT       - server port
//	  BUILDGRAPH_LOG_LEVEL  - logging level
//	  OTEL_EXPORTER_OTLP_ENDPOINT - OTLP endpoint
//
// Errors:
//
//	Non-nil if the file is unreadable, oversized, malformed, or the
//	resulting configuration fails validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if info.Size() > MaxConfigFileSize {
			return Config{}, fmt.Errorf("config: %s exceeds %d bytes", path, MaxConfigFileSize)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("BUILDGRAPH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: BUILDGRAPH_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("BUILDGRAPH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against its declared constraints.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
