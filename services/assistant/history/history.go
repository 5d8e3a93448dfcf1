// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history records answered queries in an append-only log.
//
// The store is explicit state owned by the caller (server session, CLI
// process) and injected into the orchestrator — never shared module
// state. The orchestrator only appends; nothing in the pipeline reads the
// log back for its own decisions.
package history

import (
	"context"
	"sync"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// Store is the append-only query history log.
//
// # Thread Safety
//
// Implementations must serialize appends behind a single writer and be
// safe for concurrent use.
type Store interface {
	// Append adds one record. Records are never mutated afterwards.
	Append(ctx context.Context, record datatypes.QueryRecord) error

	// Records returns all records in append order.
	Records(ctx context.Context) ([]datatypes.QueryRecord, error)

	// Len returns the number of records.
	Len(ctx context.Context) (int, error)
}

// MemoryStore keeps the history in process memory for the session.
//
// # Thread Safety
//
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	records []datatypes.QueryRecord
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, record datatypes.QueryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records implements Store. The returned slice is a copy.
func (s *MemoryStore) Records(_ context.Context) ([]datatypes.QueryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datatypes.QueryRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}
