// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads Agora configuration from YAML files, the
// environment, and command-line overrides, in that order of
// precedence.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full Agora configuration.
type Config struct {
	Log        LogConfig       `koanf:"log"`
	Storage    StorageConfig   `koanf:"storage"`
	Audit      AuditConfig     `koanf:"audit"`
	Telemetry  TelemetryConfig `koanf:"telemetry"`
	Roster     []string        `koanf:"roster"`
	RosterFile string          `koanf:"roster_file"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type StorageConfig struct {
	Backend    string `koanf:"backend"` // file, sqlite
	Root       string `koanf:"root"`
	SQLitePath string `koanf:"sqlite_path"`
}

type AuditConfig struct {
	RetentionDays int    `koanf:"retention_days"`
	KeyEnvVar     string `koanf:"key_env_var"`
	OnDecodeError string `koanf:"on_decode_error"` // skip, abort, collect
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Global k instance
var k = koanf.New(".")

// Load reads configuration from an optional YAML file and the
// environment (AGORA_ prefix, AGORA_STORAGE_ROOT -> storage.root).
func Load(path string) (*Config, error) {
	k = koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("storage.backend", "file")
	k.Set("storage.root", ".agora")
	k.Set("storage.sqlite_path", ".agora/agora.db")

	k.Set("audit.retention_days", 30)
	k.Set("audit.key_env_var", "AGORA_AUDIT_KEY")
	k.Set("audit.on_decode_error", "skip")

	k.Set("telemetry.exporter", "stdout")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (AGORA_AUDIT_RETENTION_DAYS -> audit.retention_days)
	if err := k.Load(env.Provider("AGORA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "AGORA_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithCLI loads configuration and then applies key=value overrides
// from the command line, e.g. "storage.backend=sqlite".
func LoadWithCLI(overrides []string) (*Config, error) {
	path := ""
	var pairs [][2]string
	for _, arg := range overrides {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			// A bare argument is treated as the config file path.
			path = arg
			continue
		}
		pairs = append(pairs, [2]string{key, value})
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		k.Set(p[0], p[1])
	}
	if len(pairs) > 0 {
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
