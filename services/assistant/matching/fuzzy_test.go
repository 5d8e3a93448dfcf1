// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matching

import (
	"context"
	"math"
	"testing"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/graph"
	"github.com/KaustubhAs/BioRAG/services/assistant/index"
)

func buildMatchIndex(t *testing.T) *index.EntityIndex {
	t.Helper()
	rows := []graph.DatasetRow{
		{Disease: "Malaria", Symptoms: []string{"fever", "chills", "headache"}},
		{Disease: "Diabetes", Symptoms: []string{"fatigue", "increased thirst"}},
		{Disease: "Common Cold", Symptoms: []string{"cough", "fever"}},
	}
	g, err := graph.Build(rows, nil)
	if err != nil {
		t.Fatalf("Build graph failed: %v", err)
	}
	return index.Build(g)
}

// =============================================================================
// StringSimilarity Tests
// =============================================================================

func TestStringSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "malaria", "malaria", 1.0},
		{"containment scores 0.9", "malari", "malaria", 0.9},
		{"containment reversed", "common cold", "cold", 0.9},
		{"short strings exact only", "flu", "flue", 0.0},
		{"one-char typo in 8 chars", "diabetis", "diabetes", 1.0 - 1.0/8.0},
		{"unrelated", "zzzzzzz", "malaria", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StringSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("StringSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestStringSimilarity_TypoClearsThreshold(t *testing.T) {
	if got := StringSimilarity("diabetis", "diabetes"); got < DefaultFuzzyThreshold {
		t.Errorf("one-char typo score %v should clear threshold %v", got, DefaultFuzzyThreshold)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"diabetis", "diabetes", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// =============================================================================
// FuzzyMatcher Tests
// =============================================================================

func TestFuzzyMatcher_ResolvesTypo(t *testing.T) {
	m := NewFuzzyMatcher(buildMatchIndex(t), 0)

	res, err := m.Attempt(context.Background(), "diabetis")
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a match for diabetis")
	}
	if res.Entity.NormalizedName != "diabetes" {
		t.Errorf("matched %q, want diabetes", res.Entity.NormalizedName)
	}
	if res.Tier != datatypes.MatchTierFuzzy {
		t.Errorf("tier = %s, want fuzzy", res.Tier)
	}
	if res.Confidence < DefaultFuzzyThreshold || res.Confidence >= 1.0 {
		t.Errorf("confidence %v outside (threshold, 1)", res.Confidence)
	}
}

func TestFuzzyMatcher_ShortPhraseSkipped(t *testing.T) {
	m := NewFuzzyMatcher(buildMatchIndex(t), 0)

	res, err := m.Attempt(context.Background(), "flu")
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	if res != nil {
		t.Errorf("expected no match for 3-char phrase, got %+v", res)
	}
}

func TestFuzzyMatcher_NoMatchBelowThreshold(t *testing.T) {
	m := NewFuzzyMatcher(buildMatchIndex(t), 0)

	res, err := m.Attempt(context.Background(), "xyzqwkjh")
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	if res != nil {
		t.Errorf("expected no match for gibberish, got %+v", res)
	}
}

func TestFuzzyMatcher_DiseaseWinsEqualScore(t *testing.T) {
	// "fever" (symptom) and a hypothetical disease "Fever" would tie; with
	// this dataset, test that a phrase contained in both a disease and
	// symptom name resolves to the disease.
	rows := []graph.DatasetRow{
		{Disease: "Yellow Fever", Symptoms: []string{"high fever"}},
	}
	g, err := graph.Build(rows, nil)
	if err != nil {
		t.Fatalf("Build graph failed: %v", err)
	}
	m := NewFuzzyMatcher(index.Build(g), 0)

	res, err := m.Attempt(context.Background(), "fever")
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a containment match")
	}
	if res.Entity.Kind != datatypes.KindDisease {
		t.Errorf("equal-score match resolved to %s, want Disease", res.Entity.Kind)
	}
}

func TestFuzzyMatcher_DiseaseWinsOverLongerSymptomName(t *testing.T) {
	// "malar" is contained in both names, so both score 0.9. The symptom
	// name is the longer of the two; the longer-name tie-break must not
	// cross kinds and the disease must still win.
	rows := []graph.DatasetRow{
		{Disease: "Malaria", Symptoms: []string{"malarial rash"}},
	}
	g, err := graph.Build(rows, nil)
	if err != nil {
		t.Fatalf("Build graph failed: %v", err)
	}
	m := NewFuzzyMatcher(index.Build(g), 0)

	res, err := m.Attempt(context.Background(), "malar")
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a containment match")
	}
	if res.Entity.Kind != datatypes.KindDisease || res.Entity.NormalizedName != "malaria" {
		t.Errorf("matched %s %q, want the disease malaria",
			res.Entity.Kind, res.Entity.NormalizedName)
	}
	if math.Abs(res.Confidence-substringSimilarity) > 1e-9 {
		t.Errorf("confidence = %v, want %v", res.Confidence, substringSimilarity)
	}
}
