// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the analysis service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file probed in the project root.
const DefaultFileName = "bering.config.yaml"

// Config is the full service configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
}

// AnalysisConfig tunes graph construction.
type AnalysisConfig struct {
	// Languages restricts analysis; empty means all supported.
	Languages []string `yaml:"languages" validate:"dive,oneof=python javascript typescript java csharp"`

	// ExcludedPaths lists directory names or globs to skip.
	ExcludedPaths []string `yaml:"excluded_paths"`

	// Policy classifies unmatched absolute imports.
	Policy string `yaml:"policy" validate:"oneof=lenient strict"`

	// PythonExtraPaths are additional Python source roots.
	PythonExtraPaths []string `yaml:"python_extra_paths"`

	// MaxSymbols caps the symbol index. Zero keeps the built-in cap.
	MaxSymbols int `yaml:"max_symbols" validate:"gte=0"`

	// Parallelism bounds the parse worker pool. Zero means GOMAXPROCS.
	Parallelism int `yaml:"parallelism" validate:"gte=0"`

	// GraphCacheSize bounds the session's retained graphs.
	GraphCacheSize int `yaml:"graph_cache_size" validate:"gte=0"`

	// MergeScript analyzes JavaScript and TypeScript as one module space.
	MergeScript bool `yaml:"merge_script"`
}

// ServerConfig tunes the HTTP service.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// StorageConfig tunes snapshot persistence.
type StorageConfig struct {
	// Dir is the badger database directory. Empty disables persistence.
	Dir string `yaml:"dir"`

	// RetainSnapshots caps how many graph snapshots are kept per project.
	RetainSnapshots int `yaml:"retain_snapshots" validate:"gte=0"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Policy:         "lenient",
			GraphCacheSize: 10,
		},
		Server: ServerConfig{
			Addr:            ":8730",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			RetainSnapshots: 20,
		},
	}
}

// Load reads the config file at path, layered over Default.
//
// Errors:
//   - file read and YAML syntax errors, wrapped with the path.
//   - validation errors from the validate tags.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadForProject probes root for the default config file, falling back
// to Default when absent. A present but broken file is an error, not a
// silent fallback.
func LoadForProject(root string) (*Config, error) {
	path := filepath.Join(root, DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return Load(path)
}

// Validate checks a config against its declared constraints.
func Validate(cfg *Config) error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
}
