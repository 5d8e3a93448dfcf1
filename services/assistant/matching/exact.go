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

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/index"
)

// ExactMatcher resolves a phrase by O(1) lookup in the entity index.
//
// # Thread Safety
//
// Safe for concurrent use; the index is immutable.
type ExactMatcher struct {
	idx *index.EntityIndex
}

// NewExactMatcher creates the exact-lookup tier.
func NewExactMatcher(idx *index.EntityIndex) *ExactMatcher {
	return &ExactMatcher{idx: idx}
}

// Tier implements Strategy.
func (m *ExactMatcher) Tier() datatypes.MatchTier {
	return datatypes.MatchTierExact
}

// Attempt implements Strategy.
//
// A hit carries confidence 1.0. When the same name exists as both a disease
// and a symptom, the disease wins: diseases are rarer and more specific,
// and the index orders collision slices disease-first.
func (m *ExactMatcher) Attempt(_ context.Context, phrase string) (*datatypes.MatchResult, error) {
	entities := m.idx.Lookup(phrase)
	if len(entities) == 0 {
		return nil, nil
	}
	return &datatypes.MatchResult{
		QueryText:  phrase,
		Entity:     entities[0],
		Tier:       datatypes.MatchTierExact,
		Confidence: 1.0,
	}, nil
}
