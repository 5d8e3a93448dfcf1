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
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// OpenAIChatAdapter implements ChatClient against the OpenAI API via
// langchaingo.
//
// # Thread Safety
//
// Safe for concurrent use.
type OpenAIChatAdapter struct {
	llm   *openai.LLM
	model string
}

// NewOpenAIChatAdapter creates an OpenAIChatAdapter.
//
// # Inputs
//
//   - apiKey: OpenAI API key. Must not be empty.
//   - model: Model name (e.g. "gpt-4o-mini"). Must not be empty.
//
// # Outputs
//
//   - *OpenAIChatAdapter: The configured adapter.
//   - error: Non-nil if the client cannot be constructed.
func NewOpenAIChatAdapter(apiKey, model string) (*OpenAIChatAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY required for OpenAI provider")
	}
	if model == "" {
		return nil, fmt.Errorf("openai model must not be empty")
	}

	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	return &OpenAIChatAdapter{llm: llm, model: model}, nil
}

// Chat implements ChatClient.
func (a *OpenAIChatAdapter) Chat(ctx context.Context, messages []datatypes.Message, opts ChatOptions) (string, error) {
	ctx, span := otel.Tracer(chatTracerName).Start(ctx, "providers.OpenAIChatAdapter.Chat",
		trace.WithAttributes(
			attribute.String("provider", "openai"),
			attribute.String("model", a.model),
			attribute.Int("message_count", len(messages)),
		),
	)
	defer span.End()

	text, err := generateContent(ctx, a.llm, messages, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "openai chat failed")
		return "", fmt.Errorf("%w: openai: %v", datatypes.ErrGenerationUnavailable, err)
	}
	return text, nil
}

// Available implements ChatClient.
func (a *OpenAIChatAdapter) Available() bool {
	return true
}
