// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package matching resolves free-text question phrases to knowledge-graph
// entities through an ordered cascade of strategies: exact lookup, fuzzy
// string similarity, and embedding-space semantic similarity.
package matching

import (
	"strings"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// =============================================================================
// Phrase Segmentation
// =============================================================================

// defaultMaxPhraseTokens bounds candidate phrase length when the caller
// gives no bound. Most disease and symptom names are a few words
// ("abdominal pain", "chronic cholestasis"), but the bound must come from
// the dataset — the cascade passes the longest indexed name's token count
// so names like "(vertigo) Paroymsal Positional Vertigo" still surface as
// full-name candidates.
const defaultMaxPhraseTokens = 3

// stopwords are question-scaffolding words that never form part of an
// entity name. The set covers the common-word list the query pipeline has
// always skipped plus bare interrogatives.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "can": true,
	"cause": true, "causes": true, "condition": true, "conditions": true,
	"disease": true, "diseases": true, "do": true, "does": true,
	"for": true, "have": true, "i": true, "in": true, "is": true,
	"me": true, "my": true, "of": true, "or": true, "sign": true,
	"signs": true, "symptom": true, "symptoms": true, "tell": true,
	"that": true, "the": true, "what": true, "which": true, "with": true,
}

// Phrase is one candidate entity mention extracted from a question.
type Phrase struct {
	// Text is the normalized phrase text.
	Text string

	// Start and End are the token span [Start, End) in the filtered token
	// sequence, used to mark spans as consumed once matched.
	Start, End int
}

// Segment extracts candidate entity phrases from a question.
//
// # Description
//
// Normalizes the question, strips punctuation and stopwords, then emits all
// contiguous n-grams of the remaining tokens, longest first. The cascade
// tries phrases in this order and marks token spans consumed on a match, so
// "abdominal pain" wins over separate "abdominal" and "pain" attempts. This
// is deliberate heuristic segmentation, not NLP parsing.
//
// # Inputs
//
//   - question: Raw question text. Empty input yields no phrases.
//   - maxTokens: Longest n-gram to emit, typically the longest entity
//     name's token count (index.EntityIndex.MaxNameTokens). <= 0 uses
//     defaultMaxPhraseTokens.
//
// # Outputs
//
//   - []Phrase: Candidate phrases, longest first, left to right within a length.
func Segment(question string, maxTokens int) []Phrase {
	if maxTokens <= 0 {
		maxTokens = defaultMaxPhraseTokens
	}
	tokens := tokenize(question)
	if len(tokens) == 0 {
		return nil
	}

	var phrases []Phrase
	for n := maxTokens; n >= 1; n-- {
		for start := 0; start+n <= len(tokens); start++ {
			phrases = append(phrases, Phrase{
				Text:  strings.Join(tokens[start:start+n], " "),
				Start: start,
				End:   start + n,
			})
		}
	}
	return phrases
}

// tokenize normalizes the question and returns its non-stopword tokens.
func tokenize(question string) []string {
	normalized := datatypes.Normalize(stripPunctuation(question))
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// stripPunctuation replaces punctuation with spaces so "Malaria?" tokenizes
// as "malaria". Hyphens are kept: some symptom names contain them.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '?', '!', '.', ',', ';', ':', '(', ')', '"', '\'':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
