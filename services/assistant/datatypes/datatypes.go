// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared types exchanged between the
// assistant's graph, matching, generation, and orchestration packages.
//
// All types here are plain value types with no behavior beyond formatting.
// Entities and relationships are immutable once the knowledge graph has
// been built; callers must not mutate them.
package datatypes

import "time"

// =============================================================================
// Entity Kinds
// =============================================================================

// Kind classifies a knowledge-graph node as a disease or a symptom.
type Kind string

const (
	// KindDisease labels disease nodes.
	KindDisease Kind = "Disease"

	// KindSymptom labels symptom nodes.
	KindSymptom Kind = "Symptom"
)

// =============================================================================
// Graph Types
// =============================================================================

// Entity is a disease or symptom node in the knowledge graph.
//
// NormalizedName is the lower-cased, whitespace-collapsed form of Name and
// is the key used by all matching tiers. It uniquely identifies at most one
// entity per kind; collisions across kinds are allowed.
type Entity struct {
	// ID is the stable entity identifier, e.g. "disease:malaria".
	ID string `json:"id"`

	// Name is the display name as it appeared in the dataset.
	Name string `json:"name"`

	// Kind is Disease or Symptom.
	Kind Kind `json:"kind"`

	// NormalizedName is the matching key (lowercase, collapsed whitespace).
	NormalizedName string `json:"normalized_name"`
}

// Relationship is an undirected disease-symptom edge.
//
// Weight is the co-occurrence count: the number of dataset records in which
// the pair appeared together. Edges are deduplicated; multiplicity beyond
// Weight is not tracked.
type Relationship struct {
	DiseaseID string `json:"disease_id"`
	SymptomID string `json:"symptom_id"`
	Weight    int    `json:"weight"`
}

// =============================================================================
// Matching Types
// =============================================================================

// MatchTier identifies which matching strategy resolved a phrase.
type MatchTier string

const (
	MatchTierExact    MatchTier = "exact"
	MatchTierFuzzy    MatchTier = "fuzzy"
	MatchTierSemantic MatchTier = "semantic"
	MatchTierNone     MatchTier = "none"
)

// MatchResult is the outcome of running the matcher cascade on one phrase.
//
// Entity is nil when Tier is MatchTierNone. Confidence is in [0, 1];
// exact matches always carry 1.0.
type MatchResult struct {
	// QueryText is the phrase that was matched (normalized form).
	QueryText string `json:"query_text"`

	// Entity is the resolved graph entity, or nil for an unmatched phrase.
	Entity *Entity `json:"entity,omitempty"`

	// Tier is the strategy that produced this result.
	Tier MatchTier `json:"tier"`

	// Confidence is the match strength in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Matched reports whether the phrase resolved to an entity.
func (m MatchResult) Matched() bool {
	return m.Entity != nil && m.Tier != MatchTierNone
}

// =============================================================================
// Response Types
// =============================================================================

// ResponseTier identifies which generation tier produced the final answer.
type ResponseTier string

const (
	// ResponseTierPrimary is LLM-backed generation.
	ResponseTierPrimary ResponseTier = "primary"

	// ResponseTierSecondary is deterministic template generation from graph facts.
	ResponseTierSecondary ResponseTier = "secondary"

	// ResponseTierTertiary is the non-failure floor (keyword scan or fixed message).
	ResponseTierTertiary ResponseTier = "tertiary"
)

// Answer is the orchestrator's result for one question.
type Answer struct {
	// Text is the natural-language answer. Never empty.
	Text string `json:"answer"`

	// Tier is the generation tier that actually produced Text.
	Tier ResponseTier `json:"tier_used"`

	// Matched lists the deduplicated entities resolved from the question.
	Matched []Entity `json:"matched_entities"`
}

// =============================================================================
// History Types
// =============================================================================

// QueryRecord is one entry of the append-only query history.
//
// Records are never mutated after being appended and are ordered by call
// sequence, not by timestamp.
type QueryRecord struct {
	// ID is a unique record identifier (UUID).
	ID string `json:"id"`

	// Timestamp is when the query was answered.
	Timestamp time.Time `json:"timestamp"`

	// Question is the raw input question.
	Question string `json:"question"`

	// Answer is the final answer text.
	Answer string `json:"answer"`

	// Tier is the generation tier that answered.
	Tier ResponseTier `json:"tier_used"`
}

// =============================================================================
// Chat Types
// =============================================================================

// Message is a single turn of a chat conversation sent to an LLM provider.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}
