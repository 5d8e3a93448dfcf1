// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"log/slog"
	"sort"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// =============================================================================
// Graph Construction
// =============================================================================

// diseaseIDPrefix and symptomIDPrefix namespace entity IDs so that a name
// used both as a disease and a symptom yields two distinct nodes.
const (
	diseaseIDPrefix = "disease:"
	symptomIDPrefix = "symptom:"
)

// DiseaseID returns the entity ID for a disease name.
func DiseaseID(name string) string {
	return diseaseIDPrefix + datatypes.Normalize(name)
}

// SymptomID returns the entity ID for a symptom name.
func SymptomID(name string) string {
	return symptomIDPrefix + datatypes.Normalize(name)
}

// Build constructs an immutable KnowledgeGraph from dataset rows.
//
// # Description
//
// Entities are deduplicated by (kind, normalized name); the first display
// name seen for a key wins. Edges are deduplicated, with the co-occurrence
// weight counting how many rows exhibited the pair. Every relationship
// references entities created in the same pass, so the graph can never hold
// a dangling edge.
//
// An empty entity set after deduplication is the one startup-fatal
// condition: it means the dataset was empty or unreadable, and no query
// should be accepted against it.
//
// # Inputs
//
//   - rows: Dataset rows from LoadCSV/ReadCSV. Rows with no symptoms still
//     create the disease node.
//   - logger: Logger for build diagnostics. May be nil.
//
// # Outputs
//
//   - *KnowledgeGraph: The immutable snapshot. Never nil on success.
//   - error: datatypes.ErrEmptyGraph when no entities were produced.
//
// # Thread Safety
//
// Build itself is single-threaded; the returned graph is safe for
// concurrent readers.
func Build(rows []DatasetRow, logger *slog.Logger) (*KnowledgeGraph, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := &KnowledgeGraph{
		entities:        make(map[string]*datatypes.Entity),
		diseaseSymptoms: make(map[string]map[string]int),
		symptomDiseases: make(map[string][]string),
	}

	addEntity := func(name string, kind datatypes.Kind, id string) {
		if _, ok := g.entities[id]; ok {
			return
		}
		g.entities[id] = &datatypes.Entity{
			ID:             id,
			Name:           name,
			Kind:           kind,
			NormalizedName: datatypes.Normalize(name),
		}
	}

	for _, row := range rows {
		if datatypes.Normalize(row.Disease) == "" {
			continue
		}
		did := DiseaseID(row.Disease)
		addEntity(row.Disease, datatypes.KindDisease, did)

		for _, symptom := range row.Symptoms {
			if datatypes.Normalize(symptom) == "" {
				continue
			}
			sid := SymptomID(symptom)
			addEntity(symptom, datatypes.KindSymptom, sid)

			adj := g.diseaseSymptoms[did]
			if adj == nil {
				adj = make(map[string]int)
				g.diseaseSymptoms[did] = adj
			}
			if adj[sid] == 0 {
				g.edgeCount++
				g.symptomDiseases[sid] = append(g.symptomDiseases[sid], did)
			}
			adj[sid]++
		}
	}

	if len(g.entities) == 0 {
		return nil, datatypes.ErrEmptyGraph
	}

	stats := g.Stats()
	logger.Info("knowledge graph built",
		slog.Int("diseases", stats.Diseases),
		slog.Int("symptoms", stats.Symptoms),
		slog.Int("relationships", stats.Relationships),
	)
	return g, nil
}

// Relationships returns the deduplicated edge list with co-occurrence
// weights, sorted by (disease ID, symptom ID). Used by snapshot export and
// tests; query paths use the adjacency maps directly.
func (g *KnowledgeGraph) Relationships() []datatypes.Relationship {
	out := make([]datatypes.Relationship, 0, g.edgeCount)
	for did, adj := range g.diseaseSymptoms {
		for sid, weight := range adj {
			out = append(out, datatypes.Relationship{
				DiseaseID: did,
				SymptomID: sid,
				Weight:    weight,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DiseaseID != out[j].DiseaseID {
			return out[i].DiseaseID < out[j].DiseaseID
		}
		return out[i].SymptomID < out[j].SymptomID
	})
	return out
}
