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
	"errors"
	"strings"
	"testing"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/index"
	"github.com/KaustubhAs/BioRAG/services/assistant/providers"
)

// fakeChat is a scriptable ChatClient for exercising tier fallthrough.
type fakeChat struct {
	reply     string
	err       error
	available bool
}

func (f fakeChat) Chat(_ context.Context, _ []datatypes.Message, _ providers.ChatOptions) (string, error) {
	return f.reply, f.err
}

func (f fakeChat) Available() bool { return f.available }

func newTestGenerator(t *testing.T, chat providers.ChatClient) *TieredGenerator {
	t.Helper()
	g := buildFactsGraph(t)
	return NewTieredGenerator(
		NewPrimaryGenerator(chat, 0, 0, 0),
		NewSecondaryGenerator(),
		NewTertiaryGenerator(index.Build(g), g, 0),
		nil,
	)
}

// =============================================================================
// TieredGenerator Tests
// =============================================================================

func TestTieredGenerate_PrimarySucceeds(t *testing.T) {
	gen := newTestGenerator(t, fakeChat{reply: "Malaria commonly presents with fever and chills.", available: true})
	g := buildFactsGraph(t)
	matched := []datatypes.Entity{malariaEntity()}
	facts := ExtractFacts(g, matched, nil)

	text, tier := gen.Generate(context.Background(), "What are the symptoms of Malaria?", matched, facts)

	if tier != datatypes.ResponseTierPrimary {
		t.Errorf("tier = %s, want primary", tier)
	}
	if text != "Malaria commonly presents with fever and chills." {
		t.Errorf("unexpected answer: %q", text)
	}
}

func TestTieredGenerate_PrimaryErrorFallsToSecondary(t *testing.T) {
	gen := newTestGenerator(t, fakeChat{err: errors.New("backend down"), available: true})
	g := buildFactsGraph(t)
	matched := []datatypes.Entity{malariaEntity()}
	facts := ExtractFacts(g, matched, nil)

	text, tier := gen.Generate(context.Background(), "What are the symptoms of Malaria?", matched, facts)

	if tier != datatypes.ResponseTierSecondary {
		t.Errorf("tier = %s, want secondary", tier)
	}
	if !strings.Contains(text, "The symptoms of Malaria include:") {
		t.Errorf("expected templated answer, got %q", text)
	}
}

func TestTieredGenerate_PrimaryEmptyOutputFallsThrough(t *testing.T) {
	gen := newTestGenerator(t, fakeChat{reply: "   \n", available: true})
	g := buildFactsGraph(t)
	matched := []datatypes.Entity{malariaEntity()}
	facts := ExtractFacts(g, matched, nil)

	_, tier := gen.Generate(context.Background(), "What are the symptoms of Malaria?", matched, facts)

	if tier != datatypes.ResponseTierSecondary {
		t.Errorf("tier = %s, want secondary after empty LLM output", tier)
	}
}

func TestTieredGenerate_UnavailableBackendSkipsPrimary(t *testing.T) {
	gen := newTestGenerator(t, providers.NewUnavailableChatClient("not configured"))
	g := buildFactsGraph(t)
	matched := []datatypes.Entity{malariaEntity()}
	facts := ExtractFacts(g, matched, nil)

	text, tier := gen.Generate(context.Background(), "What are the symptoms of Malaria?", matched, facts)

	if tier != datatypes.ResponseTierSecondary {
		t.Errorf("tier = %s, want secondary when no backend configured", tier)
	}
	if text == "" {
		t.Error("answer must not be empty")
	}
}

func TestTieredGenerate_NoMatchesReachesTertiary(t *testing.T) {
	gen := newTestGenerator(t, fakeChat{available: false})

	text, tier := gen.Generate(context.Background(), "completely unrelated gibberish", nil, FactSet{})

	if tier != datatypes.ResponseTierTertiary {
		t.Errorf("tier = %s, want tertiary", tier)
	}
	if text != fallbackMessage {
		t.Errorf("expected fallback message, got %q", text)
	}
}

// =============================================================================
// PrimaryGenerator Tests
// =============================================================================

func TestPrimaryGenerate_TrimsOutput(t *testing.T) {
	p := NewPrimaryGenerator(fakeChat{reply: "  answer text \n", available: true}, 0, 0, 0)

	text, err := p.Generate(context.Background(), "q", FactSet{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "answer text" {
		t.Errorf("got %q, want trimmed output", text)
	}
}

func TestPrimaryGenerate_EmptyOutputIsUnavailable(t *testing.T) {
	p := NewPrimaryGenerator(fakeChat{reply: "", available: true}, 0, 0, 0)

	_, err := p.Generate(context.Background(), "q", FactSet{})
	if !errors.Is(err, datatypes.ErrGenerationUnavailable) {
		t.Errorf("error = %v, want ErrGenerationUnavailable", err)
	}
}
