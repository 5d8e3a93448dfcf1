// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"fmt"
	"log/slog"
)

// Provider identifiers accepted by the factory.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// ValidProviders lists the accepted provider identifiers.
var ValidProviders = []string{ProviderOllama, ProviderOpenAI, ProviderNone}

// ProviderConfig selects and parameterizes a chat backend.
type ProviderConfig struct {
	// Provider is one of ValidProviders. Empty means ProviderNone.
	Provider string

	// Model is the provider-specific model name.
	Model string

	// BaseURL overrides the backend endpoint (Ollama only).
	BaseURL string

	// APIKey authenticates cloud providers (OpenAI only).
	APIKey string
}

// NewChatClient creates the ChatClient for the given provider config.
//
// # Description
//
// The central capability decision: callers get back either a working
// backend adapter or the Unavailable variant — never nil, and never an
// error for the "no LLM" case, which is a supported degraded mode. A
// construction failure for a configured provider also degrades to
// Unavailable (logged), because the reliability contract says the pipeline
// must keep answering without it.
//
// # Inputs
//
//   - cfg: Provider selection and parameters.
//   - logger: Logger for degradation warnings. May be nil.
//
// # Outputs
//
//   - ChatClient: Never nil.
func NewChatClient(cfg ProviderConfig, logger *slog.Logger) ChatClient {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case ProviderOllama:
		client, err := NewOllamaChatAdapter(cfg.BaseURL, cfg.Model)
		if err != nil {
			return degraded(logger, cfg.Provider, err)
		}
		logger.Info("chat provider configured",
			slog.String("provider", ProviderOllama),
			slog.String("model", cfg.Model),
		)
		return client

	case ProviderOpenAI:
		client, err := NewOpenAIChatAdapter(cfg.APIKey, cfg.Model)
		if err != nil {
			return degraded(logger, cfg.Provider, err)
		}
		logger.Info("chat provider configured",
			slog.String("provider", ProviderOpenAI),
			slog.String("model", cfg.Model),
		)
		return client

	case ProviderNone, "":
		logger.Info("no chat provider configured, rule-based responses only")
		return NewUnavailableChatClient("provider disabled by configuration")

	default:
		return degraded(logger, cfg.Provider,
			fmt.Errorf("unsupported provider %q (valid: %v)", cfg.Provider, ValidProviders))
	}
}

// degraded logs a provider construction failure and returns the
// Unavailable variant.
func degraded(logger *slog.Logger, provider string, err error) ChatClient {
	logger.Warn("chat provider unavailable, falling back to rule-based responses",
		slog.String("provider", provider),
		slog.String("error", err.Error()),
	)
	return NewUnavailableChatClient(err.Error())
}
