// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/providers"
)

// =============================================================================
// Primary Tier — LLM Generation
// =============================================================================

// DefaultPrimaryTimeout bounds the generative call. On timeout, control
// passes synchronously to the secondary tier — no retry, no queue.
const DefaultPrimaryTimeout = 8 * time.Second

// primarySystemPrompt frames the assistant role and pins the model to the
// retrieved facts. Advisory framing is deliberate: the system makes no
// medical accuracy guarantee.
const primarySystemPrompt = `You are a helpful medical assistant providing information about diseases and symptoms.
Use ONLY the information provided in the knowledge base to answer the query.
If the information is not in the knowledge base, acknowledge that you don't have that information.
Format your response in a clear, concise manner.`

// PrimaryGenerator produces answers via the configured chat backend.
//
// # Thread Safety
//
// Safe for concurrent use.
type PrimaryGenerator struct {
	client      providers.ChatClient
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

// NewPrimaryGenerator creates the LLM-backed tier.
//
// # Inputs
//
//   - client: Chat backend (possibly the Unavailable variant). Must not be nil.
//   - timeout: Per-call budget. <= 0 uses DefaultPrimaryTimeout.
//   - temperature: Sampling temperature. <= 0 uses 0.2.
//   - maxTokens: Output token cap. <= 0 uses 512.
func NewPrimaryGenerator(client providers.ChatClient, timeout time.Duration, temperature float64, maxTokens int) *PrimaryGenerator {
	if timeout <= 0 {
		timeout = DefaultPrimaryTimeout
	}
	if temperature <= 0 {
		temperature = 0.2
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &PrimaryGenerator{
		client:      client,
		timeout:     timeout,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate produces an LLM answer for the query given the extracted facts.
//
// # Description
//
// Fails — returning a wrapped ErrGenerationUnavailable so the caller falls
// through to the secondary tier — when the backend is unreachable, the
// timeout is exceeded, or the output is empty after trimming.
//
// # Outputs
//
//   - string: Non-empty answer text on success.
//   - error: Non-nil on any failure; always treated as fallthrough.
func (p *PrimaryGenerator) Generate(ctx context.Context, question string, facts FactSet) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []datatypes.Message{
		{Role: "system", Content: primarySystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %s\n\n%s\n\nAnswer:", question, FormatFacts(facts))},
	}

	text, err := p.client.Chat(callCtx, messages, providers.ChatOptions{
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("primary generation: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("primary generation: %w: empty output", datatypes.ErrGenerationUnavailable)
	}
	return text, nil
}

// Available reports whether a real backend is configured.
func (p *PrimaryGenerator) Available() bool {
	return p.client.Available()
}
