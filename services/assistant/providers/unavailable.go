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

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// UnavailableChatClient is the "no LLM" capability variant.
//
// # Description
//
// Selected at construction time when no generative backend is configured
// (or construction of the real one failed). Every Chat call returns
// datatypes.ErrGenerationUnavailable immediately, which sends the response
// generator straight to the rule-based tier. This keeps the Primary tier's
// control flow identical whether or not an LLM exists.
//
// # Thread Safety
//
// Stateless; safe for concurrent use.
type UnavailableChatClient struct {
	// Reason records why no backend is available, for logs.
	Reason string
}

// NewUnavailableChatClient creates the unavailable variant.
func NewUnavailableChatClient(reason string) *UnavailableChatClient {
	if reason == "" {
		reason = "no provider configured"
	}
	return &UnavailableChatClient{Reason: reason}
}

// Chat implements ChatClient. Always fails with ErrGenerationUnavailable.
func (c *UnavailableChatClient) Chat(_ context.Context, _ []datatypes.Message, _ ChatOptions) (string, error) {
	return "", fmt.Errorf("%w: %s", datatypes.ErrGenerationUnavailable, c.Reason)
}

// Available implements ChatClient.
func (c *UnavailableChatClient) Available() bool {
	return false
}
