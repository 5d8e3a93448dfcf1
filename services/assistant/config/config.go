// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the assistant configuration: embedded defaults,
// then an optional YAML file, then BIORAG_* environment overrides.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed defaults.yaml
var defaultsYAML []byte

// MaxYAMLFileSize caps user-supplied config files at 1 MiB.
const MaxYAMLFileSize = 1 << 20

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the full assistant configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Matching   MatchingConfig   `yaml:"matching"`
	Generation GenerationConfig `yaml:"generation"`
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Storage    StorageConfig    `yaml:"storage"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"gt=0,lte=65535"`
}

// DatasetConfig locates the disease-symptom CSV.
type DatasetConfig struct {
	// Path is the CSV file holding disease rows with symptom columns.
	Path string `yaml:"path" validate:"required"`

	// Watch enables live reload of the dataset file.
	Watch bool `yaml:"watch"`
}

// MatchingConfig holds the cascade acceptance thresholds.
type MatchingConfig struct {
	// FuzzyThreshold is the minimum string similarity for a fuzzy match.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" validate:"gt=0,lte=1"`

	// SemanticThreshold is the minimum cosine similarity for a semantic match.
	SemanticThreshold float64 `yaml:"semantic_threshold" validate:"gt=0,lte=1"`
}

// GenerationConfig tunes the response tiers.
type GenerationConfig struct {
	// TertiaryThreshold is the looser similarity floor for the last-resort scan.
	TertiaryThreshold float64 `yaml:"tertiary_threshold" validate:"gt=0,lte=1"`

	// PrimaryTimeoutSeconds bounds one LLM generation call.
	PrimaryTimeoutSeconds int `yaml:"primary_timeout_seconds" validate:"gt=0"`

	// Temperature for LLM generation.
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens for LLM generation.
	MaxTokens int `yaml:"max_tokens" validate:"gt=0"`
}

// LLMConfig selects the primary-tier chat backend.
type LLMConfig struct {
	// Provider is one of: ollama, openai, none.
	Provider string `yaml:"provider" validate:"oneof=ollama openai none"`

	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`

	// APIKey is required only for the openai provider. Prefer the
	// BIORAG_LLM_API_KEY environment variable over the config file.
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig points at the Ollama embedding endpoint used by the
// semantic matcher.
type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url" validate:"required"`
	Model   string `yaml:"model" validate:"required"`
}

// StorageConfig locates the BadgerDB directory.
type StorageConfig struct {
	// Path is the BadgerDB directory. Empty disables persistence.
	Path string `yaml:"path"`
}

// =============================================================================
// Loading
// =============================================================================

// Load builds the effective configuration.
//
// Description:
//
//	Starts from the embedded defaults, overlays the optional YAML file at
//	path (missing path means defaults only), then applies BIORAG_*
//	environment overrides, and finally validates the result.
//
// Inputs:
//
//	path - Optional YAML config file. Empty string skips the file layer.
//	logger - May be nil.
//
// Outputs:
//
//	*Config - The validated configuration. Never nil on success.
//	error - Non-nil if reading, parsing, or validation failed.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if len(data) > MaxYAMLFileSize {
			return nil, fmt.Errorf("config: %s exceeds maximum size (%d > %d)", path, len(data), MaxYAMLFileSize)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		logger.Info("config file loaded", slog.String("path", path))
	}

	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("config: llm provider openai requires an api key (BIORAG_LLM_API_KEY)")
	}

	return &cfg, nil
}

// applyEnvOverrides layers BIORAG_* environment variables over the config.
// Unparseable numeric values are ignored in favor of the file value.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "BIORAG_SERVER_HOST")
	setInt(&cfg.Server.Port, "BIORAG_SERVER_PORT")

	setString(&cfg.Dataset.Path, "BIORAG_DATASET_PATH")
	setBool(&cfg.Dataset.Watch, "BIORAG_DATASET_WATCH")

	setFloat(&cfg.Matching.FuzzyThreshold, "BIORAG_FUZZY_THRESHOLD")
	setFloat(&cfg.Matching.SemanticThreshold, "BIORAG_SEMANTIC_THRESHOLD")

	setFloat(&cfg.Generation.TertiaryThreshold, "BIORAG_TERTIARY_THRESHOLD")
	setInt(&cfg.Generation.PrimaryTimeoutSeconds, "BIORAG_PRIMARY_TIMEOUT_SECONDS")

	setString(&cfg.LLM.Provider, "BIORAG_LLM_PROVIDER")
	setString(&cfg.LLM.Model, "BIORAG_LLM_MODEL")
	setString(&cfg.LLM.BaseURL, "BIORAG_LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "BIORAG_LLM_API_KEY")

	setString(&cfg.Embedding.BaseURL, "BIORAG_EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.Model, "BIORAG_EMBEDDING_MODEL")

	setString(&cfg.Storage.Path, "BIORAG_STORAGE_PATH")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
