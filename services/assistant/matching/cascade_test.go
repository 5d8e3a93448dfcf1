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
	"errors"
	"testing"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/graph"
	"github.com/KaustubhAs/BioRAG/services/assistant/index"
)

// failingStrategy always errors, to verify the cascade continues.
type failingStrategy struct{}

func (failingStrategy) Tier() datatypes.MatchTier { return datatypes.MatchTierSemantic }

func (failingStrategy) Attempt(context.Context, string) (*datatypes.MatchResult, error) {
	return nil, errors.New("backend down")
}

func newTestCascade(t *testing.T, extra ...Strategy) *Cascade {
	t.Helper()
	idx := buildMatchIndex(t)
	strategies := []Strategy{
		NewExactMatcher(idx),
		NewFuzzyMatcher(idx, 0),
	}
	strategies = append(strategies, extra...)
	return NewCascade(strategies, idx.MaxNameTokens(), nil)
}

func TestCascadeRun_ExactMatchFullConfidence(t *testing.T) {
	c := newTestCascade(t)

	results := c.Run(context.Background(), "What are the symptoms of Malaria?")

	var match *datatypes.MatchResult
	for i := range results {
		if results[i].Matched() {
			match = &results[i]
		}
	}
	if match == nil {
		t.Fatal("expected a match for malaria")
	}
	if match.Tier != datatypes.MatchTierExact || match.Confidence != 1.0 {
		t.Errorf("got tier=%s confidence=%v, want exact/1.0", match.Tier, match.Confidence)
	}
	if match.Entity.NormalizedName != "malaria" {
		t.Errorf("matched %q, want malaria", match.Entity.NormalizedName)
	}
}

func TestCascadeRun_MultiTokenPhraseConsumesSpan(t *testing.T) {
	c := newTestCascade(t)

	results := c.Run(context.Background(), "I have increased thirst")

	matched := 0
	for _, r := range results {
		if !r.Matched() {
			continue
		}
		matched++
		if r.Entity.NormalizedName != "increased thirst" {
			t.Errorf("matched %q, want the bigram entity", r.Entity.NormalizedName)
		}
	}
	// The bigram wins; "increased" and "thirst" alone must not produce
	// additional results.
	if matched != 1 {
		t.Errorf("expected exactly 1 match, got %d", matched)
	}
}

func TestCascadeRun_NonsenseProducesNoMatch(t *testing.T) {
	c := newTestCascade(t)

	results := c.Run(context.Background(), "asdkjasd qwelkjqwe")

	for _, r := range results {
		if r.Matched() {
			t.Errorf("unexpected match %+v for nonsense input", r)
		}
		if r.Tier != datatypes.MatchTierNone {
			t.Errorf("tier = %s, want none", r.Tier)
		}
	}
	if len(results) == 0 {
		t.Error("expected tier-none records for unmatched single tokens")
	}
}

func TestCascadeRun_StrategyErrorDoesNotAbort(t *testing.T) {
	// The failing strategy sits first; exact matching must still resolve.
	idx := buildMatchIndex(t)
	c := NewCascade([]Strategy{failingStrategy{}, NewExactMatcher(idx)}, idx.MaxNameTokens(), nil)

	results := c.Run(context.Background(), "malaria")

	found := false
	for _, r := range results {
		if r.Matched() && r.Entity.NormalizedName == "malaria" {
			found = true
		}
	}
	if !found {
		t.Error("expected exact match despite earlier strategy failure")
	}
}

func TestCascadeRun_DedupesEntities(t *testing.T) {
	c := newTestCascade(t)

	// "fever" appears twice; the entity must be reported once.
	results := c.Run(context.Background(), "fever or fever")

	count := 0
	for _, r := range results {
		if r.Matched() && r.Entity.ID == "symptom:fever" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected fever reported once, got %d", count)
	}
}

func TestCascadeRun_FourTokenNameResolvesExact(t *testing.T) {
	// The n-gram cap comes from the longest indexed name, so even a
	// four-token disease name must resolve through the exact tier at
	// full confidence rather than a fuzzy partial.
	rows := []graph.DatasetRow{
		{Disease: "Vertigo Paroymsal Positional Vertigo", Symptoms: []string{"dizziness"}},
	}
	g, err := graph.Build(rows, nil)
	if err != nil {
		t.Fatalf("Build graph failed: %v", err)
	}
	idx := index.Build(g)
	c := NewCascade([]Strategy{
		NewExactMatcher(idx),
		NewFuzzyMatcher(idx, 0),
	}, idx.MaxNameTokens(), nil)

	results := c.Run(context.Background(), "Tell me the symptoms of Vertigo Paroymsal Positional Vertigo")

	var match *datatypes.MatchResult
	for i := range results {
		if results[i].Matched() {
			match = &results[i]
		}
	}
	if match == nil {
		t.Fatal("expected a match for the four-token disease name")
	}
	if match.Entity.NormalizedName != "vertigo paroymsal positional vertigo" {
		t.Errorf("matched %q, want the full disease name", match.Entity.NormalizedName)
	}
	if match.Tier != datatypes.MatchTierExact || match.Confidence != 1.0 {
		t.Errorf("got tier=%s confidence=%v, want exact/1.0", match.Tier, match.Confidence)
	}
}

func TestCascadeRun_EmptyQuestion(t *testing.T) {
	c := newTestCascade(t)
	if results := c.Run(context.Background(), ""); len(results) != 0 {
		t.Errorf("expected no results for empty question, got %d", len(results))
	}
}
