// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds and serves the disease-symptom knowledge graph.
//
// The graph is constructed once from tabular input and is immutable
// afterwards: a snapshot shared read-only by every concurrent query.
// Hot-reload (dataset file change) builds a fresh snapshot and swaps the
// pointer; it never mutates a live graph.
package graph

import (
	"sort"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// =============================================================================
// KnowledgeGraph
// =============================================================================

// KnowledgeGraph is the immutable disease-symptom graph snapshot.
//
// # Thread Safety
//
// Immutable after Build returns. Safe for concurrent use without
// synchronization.
type KnowledgeGraph struct {
	// entities is the primary index: ID → entity.
	entities map[string]*datatypes.Entity

	// diseaseSymptoms maps disease ID → symptom ID → co-occurrence weight.
	diseaseSymptoms map[string]map[string]int

	// symptomDiseases maps symptom ID → disease IDs (adjacency, deduplicated).
	symptomDiseases map[string][]string

	// edgeCount is the number of unique disease-symptom edges.
	edgeCount int
}

// Stats summarizes graph shape for the health/stats endpoints.
type Stats struct {
	Diseases      int `json:"diseases"`
	Symptoms      int `json:"symptoms"`
	Relationships int `json:"relationships"`
}

// DiseaseRank is one entry of a ranked disease listing.
type DiseaseRank struct {
	Entity datatypes.Entity `json:"entity"`

	// MatchedSymptoms is how many of the input symptoms this disease explains
	// (DiseasesFor) or the disease's total symptom count (top listing).
	MatchedSymptoms int `json:"matched_symptoms"`

	// TotalSymptoms is the disease's total symptom degree.
	TotalSymptoms int `json:"total_symptoms"`
}

// Entity returns the entity with the given ID.
//
// # Outputs
//
//   - *datatypes.Entity: The entity. Never nil on success.
//   - error: *datatypes.EntityNotFoundError if the ID is absent.
func (g *KnowledgeGraph) Entity(id string) (*datatypes.Entity, error) {
	e, ok := g.entities[id]
	if !ok {
		return nil, &datatypes.EntityNotFoundError{ID: id}
	}
	return e, nil
}

// Entities returns all entities of the given kind, sorted by normalized name.
//
// The returned slice is freshly allocated; callers may reorder it but must
// not mutate the pointed-to entities.
func (g *KnowledgeGraph) Entities(kind datatypes.Kind) []*datatypes.Entity {
	out := make([]*datatypes.Entity, 0, len(g.entities))
	for _, e := range g.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NormalizedName < out[j].NormalizedName
	})
	return out
}

// SymptomsOf returns the symptoms linked to a disease.
//
// # Description
//
// O(degree) against the adjacency map. Results are sorted by normalized
// name for deterministic output.
//
// # Inputs
//
//   - diseaseID: Entity ID of a disease node.
//
// # Outputs
//
//   - []*datatypes.Entity: Symptom entities. May be empty for an isolated node.
//   - error: *datatypes.EntityNotFoundError if diseaseID is absent.
func (g *KnowledgeGraph) SymptomsOf(diseaseID string) ([]*datatypes.Entity, error) {
	if _, ok := g.entities[diseaseID]; !ok {
		return nil, &datatypes.EntityNotFoundError{ID: diseaseID}
	}

	adj := g.diseaseSymptoms[diseaseID]
	out := make([]*datatypes.Entity, 0, len(adj))
	for symptomID := range adj {
		if s, ok := g.entities[symptomID]; ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NormalizedName < out[j].NormalizedName
	})
	return out, nil
}

// DiseasesFor ranks diseases by how many of the input symptoms they explain.
//
// # Description
//
// For each disease adjacent to at least one input symptom, counts how many
// of the input symptoms it explains. Ranking is:
//
//  1. Explained-symptom count, descending.
//  2. Total symptom count of the disease, ascending — a disease with fewer
//     total symptoms is more specific and ranks higher on ties.
//  3. Normalized name, ascending, for full determinism.
//
// Unknown symptom IDs produce an EntityNotFoundError; the caller treats
// that as "no facts available" rather than a fatal condition.
//
// # Inputs
//
//   - symptomIDs: Entity IDs of symptom nodes. Duplicates are collapsed.
//
// # Outputs
//
//   - []DiseaseRank: Ranked candidate diseases. Empty when no disease is adjacent.
//   - error: *datatypes.EntityNotFoundError for the first unknown ID.
func (g *KnowledgeGraph) DiseasesFor(symptomIDs []string) ([]DiseaseRank, error) {
	seen := make(map[string]bool, len(symptomIDs))
	counts := make(map[string]int)

	for _, sid := range symptomIDs {
		if seen[sid] {
			continue
		}
		seen[sid] = true

		if _, ok := g.entities[sid]; !ok {
			return nil, &datatypes.EntityNotFoundError{ID: sid}
		}
		for _, did := range g.symptomDiseases[sid] {
			counts[did]++
		}
	}

	out := make([]DiseaseRank, 0, len(counts))
	for did, matched := range counts {
		d, ok := g.entities[did]
		if !ok {
			continue
		}
		out = append(out, DiseaseRank{
			Entity:          *d,
			MatchedSymptoms: matched,
			TotalSymptoms:   len(g.diseaseSymptoms[did]),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchedSymptoms != out[j].MatchedSymptoms {
			return out[i].MatchedSymptoms > out[j].MatchedSymptoms
		}
		if out[i].TotalSymptoms != out[j].TotalSymptoms {
			return out[i].TotalSymptoms < out[j].TotalSymptoms
		}
		return out[i].Entity.NormalizedName < out[j].Entity.NormalizedName
	})
	return out, nil
}

// TopDiseasesBySymptomCount returns the n diseases with the most symptoms.
//
// Used by the stats endpoint and as context for the response generator.
// Ties are broken by normalized name for determinism. n <= 0 returns an
// empty slice.
func (g *KnowledgeGraph) TopDiseasesBySymptomCount(n int) []DiseaseRank {
	if n <= 0 {
		return []DiseaseRank{}
	}

	out := make([]DiseaseRank, 0, len(g.diseaseSymptoms))
	for _, e := range g.entities {
		if e.Kind != datatypes.KindDisease {
			continue
		}
		degree := len(g.diseaseSymptoms[e.ID])
		out = append(out, DiseaseRank{
			Entity:          *e,
			MatchedSymptoms: degree,
			TotalSymptoms:   degree,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSymptoms != out[j].TotalSymptoms {
			return out[i].TotalSymptoms > out[j].TotalSymptoms
		}
		return out[i].Entity.NormalizedName < out[j].Entity.NormalizedName
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Stats returns entity and edge counts.
func (g *KnowledgeGraph) Stats() Stats {
	var diseases, symptoms int
	for _, e := range g.entities {
		switch e.Kind {
		case datatypes.KindDisease:
			diseases++
		case datatypes.KindSymptom:
			symptoms++
		}
	}
	return Stats{
		Diseases:      diseases,
		Symptoms:      symptoms,
		Relationships: g.edgeCount,
	}
}
