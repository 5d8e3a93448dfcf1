// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Taxonomy
// =============================================================================
//
// None of these errors reach the orchestrator's caller. They signal tier
// fallthrough inside the pipeline:
//
//   - EntityNotFoundError: graph lookup miss → treated as "no facts".
//   - ErrGenerationUnavailable: Primary tier failure → fall to Secondary.
//   - ErrUnrecognizedIntent: Secondary tier cannot template → fall to Tertiary.
//   - ErrEmptyGraph: the only startup-fatal condition (corrupt graph).

// ErrGenerationUnavailable signals that the generative backend is not
// configured, unreachable, timed out, or returned unusable output.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// ErrUnrecognizedIntent signals that the rule-based tier has no template
// applicable to the query (no matched entities to template from).
var ErrUnrecognizedIntent = errors.New("unrecognized intent")

// ErrEmptyGraph signals a fundamentally corrupt knowledge graph (empty
// entity set). Surfaced at build time, before any query is accepted.
var ErrEmptyGraph = errors.New("knowledge graph has no entities")

// EntityNotFoundError reports a graph lookup for an ID absent from the graph.
//
// Callers treat this as "no facts available", never as a fatal condition.
type EntityNotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.ID)
}

// IsEntityNotFound reports whether err wraps an EntityNotFoundError.
func IsEntityNotFound(err error) bool {
	var enf *EntityNotFoundError
	return errors.As(err, &enf)
}
