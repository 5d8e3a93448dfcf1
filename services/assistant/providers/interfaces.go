// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers defines the provider-agnostic chat interface used by
// the response generator's Primary tier, and adapters for the supported
// backends (Ollama, OpenAI) plus an explicit Unavailable variant.
//
// Availability is a capability decided once at construction time: the
// factory returns either a working ChatClient or the Unavailable variant,
// and the generator never probes the backend ad hoc per call.
//
// Thread Safety:
//
//	All interfaces in this package must be implemented as safe for
//	concurrent use.
package providers

import (
	"context"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// ChatClient is the minimal interface the Primary generation tier needs.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ChatClient interface {
	// Chat sends messages and returns the assistant's response text.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout. The caller applies the
	//     generation timeout; implementations must honor it.
	//   - messages: Conversation messages (system, user).
	//   - opts: Provider-agnostic chat options.
	//
	// Outputs:
	//   - string: The assistant's response text.
	//   - error: Non-nil on failure. datatypes.ErrGenerationUnavailable
	//     (possibly wrapped) when the backend is not usable at all.
	Chat(ctx context.Context, messages []datatypes.Message, opts ChatOptions) (string, error)

	// Available reports whether this client can reach a real backend.
	// False only for the Unavailable variant.
	Available() bool
}

// ChatOptions holds provider-agnostic options for a chat request.
type ChatOptions struct {
	// Temperature controls randomness (0.0-1.0). 0.0 is most deterministic.
	Temperature float64

	// MaxTokens limits the response length. <= 0 uses the provider default.
	MaxTokens int
}
