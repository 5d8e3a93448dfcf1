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
	"strings"
	"testing"

	"github.com/KaustubhAs/BioRAG/services/assistant/index"
)

func TestTertiaryGenerate_LooseScanRecovers(t *testing.T) {
	g := buildFactsGraph(t)
	gen := NewTertiaryGenerator(index.Build(g), g, 0)

	// "malarria" misses exact and would also miss a stricter threshold in a
	// noisy question, but the loose scan still finds the disease.
	text := gen.Generate("what are the symptoms of malarria")

	if !strings.HasPrefix(text, "I think you may be asking about Malaria.") {
		t.Errorf("expected loose-scan preamble, got %q", text)
	}
	if !strings.Contains(text, "symptoms of Malaria") {
		t.Errorf("expected templated facts after the preamble, got %q", text)
	}
}

func TestTertiaryGenerate_NoLeadReturnsFallback(t *testing.T) {
	g := buildFactsGraph(t)
	gen := NewTertiaryGenerator(index.Build(g), g, 0)

	text := gen.Generate("completely unrelated gibberish")

	if text != fallbackMessage {
		t.Errorf("expected the fixed fallback message, got %q", text)
	}
	if text == "" {
		t.Error("tertiary tier must never return an empty answer")
	}
}

func TestTertiaryGenerate_ShortTokensIgnored(t *testing.T) {
	g := buildFactsGraph(t)
	gen := NewTertiaryGenerator(index.Build(g), g, 0)

	// Tokens of 3 characters or fewer never enter the scan.
	if text := gen.Generate("a of up it"); text != fallbackMessage {
		t.Errorf("expected fallback for short-token question, got %q", text)
	}
}
