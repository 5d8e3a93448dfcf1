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
)

// =============================================================================
// Secondary Tier — Rule-Based Templates
// =============================================================================

// SecondaryGenerator assembles deterministic answers directly from graph
// facts, keyed by detected question intent. No external dependency; it
// succeeds whenever at least one entity was matched.
//
// # Thread Safety
//
// Stateless; safe for concurrent use.
type SecondaryGenerator struct{}

// NewSecondaryGenerator creates the rule-based tier.
func NewSecondaryGenerator() *SecondaryGenerator {
	return &SecondaryGenerator{}
}

// Generate produces a templated answer from the fact set.
//
// # Description
//
// Template selection by intent:
//
//   - symptoms_of_disease: symptom lists of the matched diseases.
//   - diseases_for_symptoms: ranked candidate diseases for the symptoms.
//   - general (or ambiguous phrasing): a generic facts dump of everything
//     retrieved.
//
// Fails only when no entity was matched at all (ErrUnrecognizedIntent) —
// the tertiary floor handles that case.
//
// # Outputs
//
//   - string: Non-empty answer on success.
//   - error: datatypes.ErrUnrecognizedIntent when there is nothing to
//     template from.
func (s *SecondaryGenerator) Generate(question string, matched []datatypes.Entity, facts FactSet) (string, error) {
	if len(matched) == 0 {
		return "", fmt.Errorf("secondary generation: %w", datatypes.ErrUnrecognizedIntent)
	}

	intent := ClassifyIntent(question)

	switch intent {
	case IntentSymptomsOfDisease:
		if text := s.symptomsAnswer(facts); text != "" {
			return text, nil
		}
	case IntentDiseasesForSymptoms:
		if text := s.diseasesAnswer(facts); text != "" {
			return text, nil
		}
	}

	// General intent, or the intent-specific facts came up empty:
	// dump whatever was retrieved.
	return s.genericAnswer(matched, facts), nil
}

// symptomsAnswer templates "symptoms of X" answers.
func (s *SecondaryGenerator) symptomsAnswer(facts FactSet) string {
	if len(facts.DiseaseFacts) == 0 {
		return ""
	}
	var b strings.Builder
	for i, df := range facts.DiseaseFacts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if len(df.Symptoms) == 0 {
			fmt.Fprintf(&b, "No symptoms are recorded for %s in the knowledge base.", df.Disease.Name)
			continue
		}
		fmt.Fprintf(&b, "The symptoms of %s include: %s.",
			df.Disease.Name, strings.Join(df.Symptoms, ", "))
	}
	return b.String()
}

// diseasesAnswer templates "what causes Y" answers.
func (s *SecondaryGenerator) diseasesAnswer(facts FactSet) string {
	if len(facts.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conditions associated with those symptoms, ordered by how many they explain:\n")
	for _, c := range facts.Candidates {
		fmt.Fprintf(&b, "- %s (explains %d of the mentioned symptoms)\n",
			c.Entity.Name, c.MatchedSymptoms)
	}
	return strings.TrimRight(b.String(), "\n")
}

// genericAnswer dumps all retrieved facts, the template of last resort for
// recognized entities with ambiguous phrasing.
func (s *SecondaryGenerator) genericAnswer(matched []datatypes.Entity, facts FactSet) string {
	var b strings.Builder
	b.WriteString("Here's what I found related to your query:\n\n")

	if facts.Empty() {
		names := make([]string, 0, len(matched))
		for _, e := range matched {
			names = append(names, e.Name)
		}
		fmt.Fprintf(&b, "Recognized: %s. No further information is recorded in the knowledge base.",
			strings.Join(names, ", "))
		return b.String()
	}

	for _, df := range facts.DiseaseFacts {
		fmt.Fprintf(&b, "Disease: %s\nSymptoms: %s\n\n",
			df.Disease.Name, strings.Join(df.Symptoms, ", "))
	}
	if len(facts.Candidates) > 0 {
		b.WriteString("Possible conditions for the mentioned symptoms:\n")
		for _, c := range facts.Candidates {
			fmt.Fprintf(&b, "- %s\n", c.Entity.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
