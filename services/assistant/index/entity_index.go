// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index provides the entity-name index used by the matcher cascade.
package index

import (
	"sort"
	"strings"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/graph"
)

// EntityIndex maps normalized entity names to canonical graph entities.
//
// # Description
//
// Built once from a KnowledgeGraph snapshot. Lookup is O(1) via a hash map;
// AllNames/AllEntities return pre-sorted slices for the fuzzy and semantic
// tiers to scan. A normalized name identifies at most one entity per kind,
// but the same name may exist as both a disease and a symptom, so Lookup
// returns a slice.
//
// # Thread Safety
//
// Immutable after construction. Safe for concurrent use.
type EntityIndex struct {
	byName map[string][]*datatypes.Entity

	// names and entities are per-kind, sorted by normalized name.
	names    map[datatypes.Kind][]string
	entities map[datatypes.Kind][]*datatypes.Entity

	// maxNameTokens is the token count of the longest entity name; phrase
	// segmentation uses it as the n-gram cap so full names always appear
	// as candidate phrases.
	maxNameTokens int
}

// Build constructs an EntityIndex from a graph snapshot.
//
// # Inputs
//
//   - g: The knowledge graph. Must not be nil.
//
// # Outputs
//
//   - *EntityIndex: The constructed index. Never nil.
func Build(g *graph.KnowledgeGraph) *EntityIndex {
	idx := &EntityIndex{
		byName:   make(map[string][]*datatypes.Entity),
		names:    make(map[datatypes.Kind][]string),
		entities: make(map[datatypes.Kind][]*datatypes.Entity),
	}

	for _, kind := range []datatypes.Kind{datatypes.KindDisease, datatypes.KindSymptom} {
		ents := g.Entities(kind) // already sorted by normalized name
		idx.entities[kind] = ents

		names := make([]string, 0, len(ents))
		for _, e := range ents {
			idx.byName[e.NormalizedName] = append(idx.byName[e.NormalizedName], e)
			names = append(names, e.NormalizedName)
			if n := len(strings.Fields(e.NormalizedName)); n > idx.maxNameTokens {
				idx.maxNameTokens = n
			}
		}
		idx.names[kind] = names
	}

	// Keep cross-kind collision slices in deterministic order: Disease first.
	for _, ents := range idx.byName {
		sort.Slice(ents, func(i, j int) bool {
			return ents[i].Kind == datatypes.KindDisease && ents[j].Kind != datatypes.KindDisease
		})
	}

	return idx
}

// Lookup returns the entities whose normalized name equals the given key.
//
// The input must already be normalized (datatypes.Normalize). Returns nil
// when no entity carries that name. When a name exists as both kinds, the
// disease entry comes first.
func (idx *EntityIndex) Lookup(normalized string) []*datatypes.Entity {
	return idx.byName[normalized]
}

// AllNames returns the normalized names of all entities of a kind, sorted.
//
// The returned slice is shared; callers must not mutate it.
func (idx *EntityIndex) AllNames(kind datatypes.Kind) []string {
	return idx.names[kind]
}

// AllEntities returns all entities of a kind, sorted by normalized name.
//
// The returned slice is shared; callers must not mutate it.
func (idx *EntityIndex) AllEntities(kind datatypes.Kind) []*datatypes.Entity {
	return idx.entities[kind]
}

// MaxNameTokens returns the token count of the longest indexed entity name.
func (idx *EntityIndex) MaxNameTokens() int {
	return idx.maxNameTokens
}

// Size returns the total number of indexed entities.
func (idx *EntityIndex) Size() int {
	return len(idx.entities[datatypes.KindDisease]) + len(idx.entities[datatypes.KindSymptom])
}
