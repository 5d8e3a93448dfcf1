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

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

const chatTracerName = "biorag.assistant.providers"

// OllamaChatAdapter implements ChatClient against a local Ollama server via
// langchaingo.
//
// # Thread Safety
//
// Safe for concurrent use.
type OllamaChatAdapter struct {
	llm   *ollama.LLM
	model string
}

// NewOllamaChatAdapter creates an OllamaChatAdapter.
//
// # Inputs
//
//   - serverURL: Ollama base URL (e.g. http://localhost:11434). Empty uses
//     the client library default.
//   - model: Model name (e.g. "llama3.2"). Must not be empty.
//
// # Outputs
//
//   - *OllamaChatAdapter: The configured adapter.
//   - error: Non-nil if the client cannot be constructed.
func NewOllamaChatAdapter(serverURL, model string) (*OllamaChatAdapter, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama model must not be empty")
	}

	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &OllamaChatAdapter{llm: llm, model: model}, nil
}

// Chat implements ChatClient.
func (a *OllamaChatAdapter) Chat(ctx context.Context, messages []datatypes.Message, opts ChatOptions) (string, error) {
	ctx, span := otel.Tracer(chatTracerName).Start(ctx, "providers.OllamaChatAdapter.Chat",
		trace.WithAttributes(
			attribute.String("provider", "ollama"),
			attribute.String("model", a.model),
			attribute.Int("message_count", len(messages)),
		),
	)
	defer span.End()

	text, err := generateContent(ctx, a.llm, messages, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ollama chat failed")
		return "", fmt.Errorf("%w: ollama: %v", datatypes.ErrGenerationUnavailable, err)
	}
	return text, nil
}

// Available implements ChatClient.
func (a *OllamaChatAdapter) Available() bool {
	return true
}

// generateContent converts messages to langchaingo content and runs one
// generation. Shared by the Ollama and OpenAI adapters.
func generateContent(ctx context.Context, model llms.Model, messages []datatypes.Message, opts ChatOptions) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case "system":
			role = llms.ChatMessageTypeSystem
		case "assistant":
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Content, nil
}
