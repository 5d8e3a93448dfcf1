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
	"strings"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/index"
)

// =============================================================================
// Fuzzy Matching
// =============================================================================

// DefaultFuzzyThreshold is the minimum similarity for the fuzzy tier to
// accept a match.
const DefaultFuzzyThreshold = 0.70

// fuzzyMinTermLen is the minimum phrase length for fuzzy comparison.
// Very short terms ("flu") produce too many near-collisions; they must
// match exactly or not at all.
const fuzzyMinTermLen = 4

// substringSimilarity is the fixed score assigned when one string contains
// the other. Containment is a strong signal ("malari" in "malaria") but not
// certainty, so it scores below exact and above the acceptance threshold.
const substringSimilarity = 0.9

// FuzzyMatcher resolves typos and partial names via string similarity.
//
// # Description
//
// Scans every known entity name and scores it against the phrase:
// containment scores a flat 0.9, otherwise 1 - editDistance/maxLen
// (normalized Levenshtein). The best score wins if it clears the threshold.
//
// Tie-breaks, in order: prefer Disease over Symptom (diseases are rarer and
// more specific), then, within a kind, prefer the longer matched name.
//
// # Thread Safety
//
// Safe for concurrent use; all state is immutable.
type FuzzyMatcher struct {
	idx       *index.EntityIndex
	threshold float64
}

// NewFuzzyMatcher creates the fuzzy tier.
//
// # Inputs
//
//   - idx: Entity index. Must not be nil.
//   - threshold: Minimum similarity to accept. <= 0 uses DefaultFuzzyThreshold.
func NewFuzzyMatcher(idx *index.EntityIndex, threshold float64) *FuzzyMatcher {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &FuzzyMatcher{idx: idx, threshold: threshold}
}

// Tier implements Strategy.
func (m *FuzzyMatcher) Tier() datatypes.MatchTier {
	return datatypes.MatchTierFuzzy
}

// Attempt implements Strategy.
func (m *FuzzyMatcher) Attempt(_ context.Context, phrase string) (*datatypes.MatchResult, error) {
	if len(phrase) < fuzzyMinTermLen {
		return nil, nil
	}

	var (
		best      *datatypes.Entity
		bestScore float64
	)

	// Disease names first so that equal scores resolve to the disease. The
	// longer-name tie-break applies within a kind only; an equal-scoring
	// symptom never displaces a disease.
	for _, kind := range []datatypes.Kind{datatypes.KindDisease, datatypes.KindSymptom} {
		for _, e := range m.idx.AllEntities(kind) {
			score := StringSimilarity(phrase, e.NormalizedName)
			if score < m.threshold {
				continue
			}
			if best == nil || score > bestScore ||
				(score == bestScore && e.Kind == best.Kind &&
					len(e.NormalizedName) > len(best.NormalizedName)) {
				best = e
				bestScore = score
			}
		}
	}

	if best == nil {
		return nil, nil
	}
	return &datatypes.MatchResult{
		QueryText:  phrase,
		Entity:     best,
		Tier:       datatypes.MatchTierFuzzy,
		Confidence: bestScore,
	}, nil
}

// StringSimilarity scores two normalized strings in [0, 1].
//
// # Description
//
// Containment of one string in the other scores a flat 0.9. Strings shorter
// than fuzzyMinTermLen only match exactly (1.0 or 0.0). Otherwise the score
// is 1 - levenshtein(a, b)/max(len(a), len(b)), so one character-level typo
// in a seven-letter name ("diabetis" vs "diabetes") still clears 0.70.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if containsWord(a, b) || containsWord(b, a) {
		return substringSimilarity
	}
	if len(a) < fuzzyMinTermLen || len(b) < fuzzyMinTermLen {
		return 0.0
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := levenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// containsWord reports whether needle occurs inside haystack. Trivial
// needles (under the fuzzy minimum) never count as containment.
func containsWord(needle, haystack string) bool {
	if len(needle) < fuzzyMinTermLen {
		return false
	}
	return strings.Contains(haystack, needle)
}

// levenshteinDistance calculates the edit distance between two strings
// using the two-row dynamic programming formulation.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
