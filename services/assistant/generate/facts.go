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
	"log/slog"
	"strconv"
	"strings"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/graph"
)

// =============================================================================
// Fact Extraction
// =============================================================================

// GraphReader is the read-only slice of the knowledge graph the generator
// consumes.
type GraphReader interface {
	SymptomsOf(diseaseID string) ([]*datatypes.Entity, error)
	DiseasesFor(symptomIDs []string) ([]graph.DiseaseRank, error)
}

// DiseaseFact is one disease with its known symptoms.
type DiseaseFact struct {
	Disease  datatypes.Entity `json:"disease"`
	Symptoms []string         `json:"symptoms"`
}

// FactSet is the graph context assembled for one query: the symptom lists
// of every matched disease plus the ranked candidate diseases for the
// matched symptoms.
type FactSet struct {
	DiseaseFacts []DiseaseFact       `json:"disease_facts"`
	Candidates   []graph.DiseaseRank `json:"candidate_diseases"`
}

// Empty reports whether no facts were retrievable.
func (f FactSet) Empty() bool {
	return len(f.DiseaseFacts) == 0 && len(f.Candidates) == 0
}

// ExtractFacts gathers graph facts for the matched entities.
//
// # Description
//
// For each matched disease, retrieves its symptoms; for the set of matched
// symptoms, retrieves the ranked candidate diseases. A lookup miss
// (EntityNotFoundError) means "no facts for that entity" and is logged at
// debug level, never propagated — a matched entity whose facts are missing
// must not abort the query.
//
// # Inputs
//
//   - g: Graph reader. Must not be nil.
//   - matched: Deduplicated matched entities.
//   - logger: May be nil.
//
// # Outputs
//
//   - FactSet: Possibly empty, never an error.
func ExtractFacts(g GraphReader, matched []datatypes.Entity, logger *slog.Logger) FactSet {
	if logger == nil {
		logger = slog.Default()
	}

	var facts FactSet
	var symptomIDs []string

	for _, e := range matched {
		switch e.Kind {
		case datatypes.KindDisease:
			symptoms, err := g.SymptomsOf(e.ID)
			if err != nil {
				logger.Debug("no facts for matched disease",
					slog.String("entity", e.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			names := make([]string, 0, len(symptoms))
			for _, s := range symptoms {
				names = append(names, s.Name)
			}
			facts.DiseaseFacts = append(facts.DiseaseFacts, DiseaseFact{
				Disease:  e,
				Symptoms: names,
			})

		case datatypes.KindSymptom:
			symptomIDs = append(symptomIDs, e.ID)
		}
	}

	if len(symptomIDs) > 0 {
		candidates, err := g.DiseasesFor(symptomIDs)
		if err != nil {
			logger.Debug("no candidate diseases for matched symptoms",
				slog.String("error", err.Error()),
			)
		} else {
			facts.Candidates = candidates
		}
	}

	return facts
}

// FormatFacts renders a FactSet as the knowledge-base context block given
// to the LLM prompt.
func FormatFacts(facts FactSet) string {
	if facts.Empty() {
		return "No relevant information found in the knowledge base."
	}

	var b strings.Builder
	b.WriteString("Knowledge Base Information:\n\n")
	for _, df := range facts.DiseaseFacts {
		b.WriteString("Disease: ")
		b.WriteString(df.Disease.Name)
		b.WriteString("\nSymptoms: ")
		b.WriteString(strings.Join(df.Symptoms, ", "))
		b.WriteString("\n\n")
	}
	for _, c := range facts.Candidates {
		b.WriteString("Candidate disease: ")
		b.WriteString(c.Entity.Name)
		b.WriteString(" (explains ")
		b.WriteString(strconv.Itoa(c.MatchedSymptoms))
		b.WriteString(" of the mentioned symptoms)\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
