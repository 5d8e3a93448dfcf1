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
	"fmt"
	"strings"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/index"
	"github.com/KaustubhAs/BioRAG/services/assistant/matching"
)

// =============================================================================
// Tertiary Tier — Text Fallback Floor
// =============================================================================

// DefaultTertiaryThreshold is the looser acceptance threshold used by the
// last-resort keyword scan — below the fuzzy tier's 0.70, because at this
// point a weak lead beats no answer.
const DefaultTertiaryThreshold = 0.60

// fallbackMessage is the fixed floor response, naming example supported
// queries so the user can rephrase.
const fallbackMessage = `I could not understand your question. I can answer questions about diseases and their symptoms, for example:
- "What are the symptoms of Malaria?"
- "Which diseases cause fever and headache?"
- "Tell me about Diabetes."`

// TertiaryGenerator is the system's non-failure floor.
//
// # Description
//
// Used only when no entity was matched by the cascade. Performs a
// last-resort substring/similarity scan of the raw question against every
// entity name at the looser threshold; if a lead is found, answers with
// that entity's facts, otherwise returns the fixed fallback message. This
// tier never fails — it enforces the reliability contract.
//
// # Thread Safety
//
// Safe for concurrent use; all state is immutable.
type TertiaryGenerator struct {
	idx       *index.EntityIndex
	graph     GraphReader
	threshold float64
}

// NewTertiaryGenerator creates the floor tier.
//
// # Inputs
//
//   - idx: Entity index for the keyword scan. Must not be nil.
//   - g: Graph reader for fact lookup on a late hit. Must not be nil.
//   - threshold: Looser similarity threshold. <= 0 uses DefaultTertiaryThreshold.
func NewTertiaryGenerator(idx *index.EntityIndex, g GraphReader, threshold float64) *TertiaryGenerator {
	if threshold <= 0 {
		threshold = DefaultTertiaryThreshold
	}
	return &TertiaryGenerator{idx: idx, graph: g, threshold: threshold}
}

// Generate produces the floor answer. Never fails.
//
// # Outputs
//
//   - string: Non-empty answer text, always.
func (t *TertiaryGenerator) Generate(question string) string {
	if e := t.scan(question); e != nil {
		facts := ExtractFacts(t.graph, []datatypes.Entity{*e}, nil)
		if !facts.Empty() {
			answer, err := NewSecondaryGenerator().Generate(question, []datatypes.Entity{*e}, facts)
			if err == nil {
				return fmt.Sprintf("I think you may be asking about %s.\n\n%s", e.Name, answer)
			}
		}
		return fmt.Sprintf("I think you may be asking about %s, but I have no further information recorded for it.", e.Name)
	}
	return fallbackMessage
}

// scan looks for the best loose match of any question token against any
// entity name. Diseases are scanned before symptoms so equal scores
// resolve to the disease.
func (t *TertiaryGenerator) scan(question string) *datatypes.Entity {
	tokens := strings.Fields(datatypes.Normalize(question))

	var (
		best      *datatypes.Entity
		bestScore float64
	)
	for _, kind := range []datatypes.Kind{datatypes.KindDisease, datatypes.KindSymptom} {
		for _, e := range t.idx.AllEntities(kind) {
			for _, tok := range tokens {
				if len(tok) <= 3 {
					continue
				}
				score := matching.StringSimilarity(tok, e.NormalizedName)
				if score >= t.threshold && (best == nil || score > bestScore) {
					best = e
					bestScore = score
				}
			}
		}
	}
	return best
}
