// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matching

// =============================================================================
// Embedding Persistence
// =============================================================================
//
// Entity embedding vectors are expensive to compute (one Ollama call per
// entity; a few hundred entities per dataset) but change only when the
// dataset or the embedding model changes. This store persists them in
// BadgerDB between service restarts.
//
// The corpus hash — SHA256 over sorted entity IDs/names plus the model
// name — serves as the cache key. Any dataset or model change produces a
// different hash, so stale vectors simply expire via TTL without an
// explicit invalidation API.
//
// Storage layout:
//
//	assistant/emb/v1/{corpusHash}  →  gob-encoded map[string][]float32
//	                                   (entity ID → unit-normalized vector)
//	                                   TTL: 7 days

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	badgerstore "github.com/KaustubhAs/BioRAG/services/assistant/storage/badger"
)

// embedCacheDefaultTTL is the default lifetime of a cached embedding entry.
const embedCacheDefaultTTL = 7 * 24 * time.Hour

// embedCacheKeyPrefix is prepended to the corpus hash to form the key.
// Versioned (v1) to allow future format changes without collision.
const embedCacheKeyPrefix = "assistant/emb/v1/"

// errCacheMiss distinguishes "key not found" from a storage error.
var errCacheMiss = errors.New("cache miss")

// EmbeddingStore persists entity embedding vectors across restarts.
//
// Both methods are nil-receiver-tolerant at the call site: the
// EntityEmbeddingCache checks for a nil EmbeddingStore and runs in
// in-memory-only mode, which is correct for tests and for deployments
// without a cache directory configured.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type EmbeddingStore interface {
	// LoadEmbeddings retrieves cached unit-normalized vectors for the given
	// corpus hash. Returns (nil, nil) on a miss, (nil, error) on storage
	// failure, (vectors, nil) on a hit.
	LoadEmbeddings(ctx context.Context, corpusHash string) (map[string][]float32, error)

	// SaveEmbeddings persists unit-normalized vectors under the corpus hash
	// with the store's TTL. Failure is non-fatal for callers: vectors are
	// recomputed on the next restart.
	SaveEmbeddings(ctx context.Context, corpusHash string, vectors map[string][]float32) error
}

// BadgerEmbeddingStore implements EmbeddingStore on a shared BadgerDB.
//
// Vectors are gob-encoded; TTL expiry is enforced by Badger's own GC, so an
// expired key just reads as a miss.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerEmbeddingStore struct {
	db     *badgerstore.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerEmbeddingStore creates a BadgerEmbeddingStore.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil; the caller owns its
//     lifecycle.
//   - ttl: Entry lifetime. <= 0 uses the 7-day default.
//   - logger: May be nil.
func NewBadgerEmbeddingStore(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *BadgerEmbeddingStore {
	if db == nil {
		panic("NewBadgerEmbeddingStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = embedCacheDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerEmbeddingStore{db: db, ttl: ttl, logger: logger}
}

// LoadEmbeddings implements EmbeddingStore.
func (s *BadgerEmbeddingStore) LoadEmbeddings(ctx context.Context, corpusHash string) (map[string][]float32, error) {
	key := []byte(embedCacheKeyPrefix + corpusHash)

	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errCacheMiss) {
		s.logger.Debug("embedding store: miss", slog.String("hash", shortHash(corpusHash)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("embedding store load: %w", err)
	}

	var vectors map[string][]float32
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("embedding store decode: %w", err)
	}

	s.logger.Debug("embedding store: hit",
		slog.String("hash", shortHash(corpusHash)),
		slog.Int("entity_count", len(vectors)),
	)
	return vectors, nil
}

// SaveEmbeddings implements EmbeddingStore.
func (s *BadgerEmbeddingStore) SaveEmbeddings(ctx context.Context, corpusHash string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(vectors); err != nil {
		return fmt.Errorf("embedding store encode: %w", err)
	}

	key := []byte(embedCacheKeyPrefix + corpusHash)
	err := s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, buf.Bytes()).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("embedding store save: %w", err)
	}

	s.logger.Debug("embedding store: saved",
		slog.String("hash", shortHash(corpusHash)),
		slog.Int("entity_count", len(vectors)),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// =============================================================================
// Corpus Hash
// =============================================================================

// computeCorpusHash computes a deterministic SHA256 hash over the entity
// corpus and the embedding model name.
//
// The hash captures everything that determines vector content: entity IDs,
// display names (the embedding document is built from them), and the model.
// Entities are sorted by ID for determinism regardless of map ordering.
func computeCorpusHash(entities []*datatypes.Entity, model string) string {
	sorted := make([]*datatypes.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	h := sha256.New()
	for _, e := range sorted {
		fmt.Fprintf(h, "%s\t%s\t%s\n", e.ID, e.Name, e.Kind)
	}
	fmt.Fprintf(h, "model=%s\n", model)
	return hex.EncodeToString(h.Sum(nil))
}

// shortHash returns the first 8 characters of a hash for log display.
func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8] + "..."
	}
	return h
}
