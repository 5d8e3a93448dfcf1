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

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// =============================================================================
// Entity Embedding Cache
// =============================================================================

// DefaultSemanticThreshold is the minimum cosine similarity for the
// semantic tier to accept a match.
const DefaultSemanticThreshold = 0.30

// embeddingWarmConcurrency is the number of parallel embed calls during
// warm-up. 10 concurrent requests saturates a local Ollama without
// overwhelming it.
const embeddingWarmConcurrency = 10

// embeddingQueryTimeout is the per-query embedding call timeout. Attempt()
// is on the hot path; 3 seconds is ample for a local call.
const embeddingQueryTimeout = 3 * time.Second

// ollamaEmbedReq is the Ollama /api/embed request body.
type ollamaEmbedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ollamaEmbedResp is the Ollama /api/embed response body.
type ollamaEmbedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EntityEmbeddingCache pre-computes and caches an embedding vector for
// every entity name at graph-build time, then scores query phrases by
// cosine similarity at match time.
//
// # Description
//
// Embedding-based matching is robust to paraphrase: "sugar sickness" lands
// near "diabetes" in embedding space regardless of surface form. Vectors
// are fetched from Ollama's /api/embed endpoint during Warm() and stored
// unit-normalized so cosine reduces to a dot product.
//
// If the embedding backend is unavailable at startup, the cache degrades
// gracefully: IsWarmed() stays false and the semantic tier is skipped
// entirely (degraded mode, not a failure).
//
// Vectors are persisted through an EmbeddingStore (BadgerDB) between
// restarts, keyed by a hash of the entity corpus plus the model name so a
// dataset or model change invalidates the cache automatically. A nil store
// means in-memory-only mode.
//
// # Thread Safety
//
// Safe for concurrent use. Warm calls serialize: the boot-time warm-up and
// a reload-triggered one may overlap, and the second waits rather than
// double-fetching.
type EntityEmbeddingCache struct {
	// warmMu serializes Warm end to end, separate from the vector lock so
	// Score never blocks behind a warm-up in progress.
	warmMu sync.Mutex

	mu         sync.RWMutex
	vectors    map[string][]float32 // entity ID → unit-normalized vector
	warmed     bool
	corpusHash string // corpus+model the current vectors were built from

	url    string
	model  string
	client *http.Client
	logger *slog.Logger
	store  EmbeddingStore
}

// NewEntityEmbeddingCache creates an unwarmed embedding cache.
//
// # Inputs
//
//   - url: Ollama /api/embed endpoint URL. Must not be empty.
//   - model: Embedding model name. Must not be empty.
//   - store: Optional persistence store. Nil disables persistence.
//   - logger: Logger for warnings and debug output. May be nil.
//
// # Outputs
//
//   - *EntityEmbeddingCache: Unwarmed cache. Never nil.
func NewEntityEmbeddingCache(url, model string, store EmbeddingStore, logger *slog.Logger) *EntityEmbeddingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityEmbeddingCache{
		vectors: make(map[string][]float32),
		url:     url,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second, // warm-up can be slow; query timeout is per-call
		},
		logger: logger,
		store:  store,
	}
}

// Warm pre-computes and caches an embedding vector for every entity.
//
// # Description
//
// Checks the persistence store first; on a hit the warm-up is skipped
// entirely. Otherwise embeds each entity's embedding document ("Disease:
// malaria" / "Symptom: fever" — the kind prefix adds context the raw name
// lacks) in parallel, bounded by embeddingWarmConcurrency.
//
// Individual entity failures are logged and skipped. If every call fails,
// warmed stays false and the semantic tier stays disabled — that is the
// degraded mode, not an error.
//
// # Inputs
//
//   - ctx: Context for the warm-up calls. Cancellation aborts pending embeds.
//   - entities: Entities to embed. Empty slice is a no-op.
//
// # Outputs
//
//   - error: Non-nil only if the endpoint is completely unreachable.
//
// # Thread Safety
//
// Safe to call concurrently: calls serialize, and a call for a corpus the
// cache is already warmed with returns immediately.
func (c *EntityEmbeddingCache) Warm(ctx context.Context, entities []*datatypes.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	c.warmMu.Lock()
	defer c.warmMu.Unlock()

	corpusHash := computeCorpusHash(entities, c.model)
	c.mu.RLock()
	alreadyWarm := c.warmed && c.corpusHash == corpusHash
	c.mu.RUnlock()
	if alreadyWarm {
		return nil
	}

	if c.store != nil {
		cached, err := c.store.LoadEmbeddings(ctx, corpusHash)
		if err != nil {
			c.logger.Warn("embedding cache: store load failed, continuing with warm-up",
				slog.String("error", err.Error()),
			)
		} else if len(cached) > 0 {
			c.mu.Lock()
			c.vectors = cached // already unit-normalized on save
			c.warmed = true
			c.corpusHash = corpusHash
			c.mu.Unlock()
			c.logger.Info("embedding cache: loaded from store, skipping warm-up",
				slog.Int("entity_count", len(cached)),
				slog.String("corpus_hash", shortHash(corpusHash)),
			)
			return nil
		}
	}

	c.logger.Info("embedding cache: starting warm-up",
		slog.Int("entity_count", len(entities)),
		slog.String("url", c.url),
		slog.String("model", c.model),
	)

	type result struct {
		id     string
		vector []float32
	}

	resultCh := make(chan result, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, embeddingWarmConcurrency)

	for _, entity := range entities {
		e := entity
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			vec, err := c.embed(gctx, embeddingDoc(e))
			if err != nil {
				c.logger.Warn("embedding cache: failed to embed entity",
					slog.String("entity", e.ID),
					slog.String("error", err.Error()),
				)
				// Individual failure is not fatal.
				return nil
			}
			resultCh <- result{id: e.ID, vector: vec}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("embedding cache warm-up: %w", err)
	}
	close(resultCh)

	vectors := make(map[string][]float32, len(entities))
	for r := range resultCh {
		if unit := unitNormalize(r.vector); unit != nil {
			vectors[r.id] = unit
		}
	}
	embeddedCount := len(vectors)

	// A fully-failed warm-up keeps whatever corpus was warmed before.
	var toSave map[string][]float32
	if embeddedCount > 0 {
		c.mu.Lock()
		c.vectors = vectors
		c.warmed = true
		c.corpusHash = corpusHash
		c.mu.Unlock()
		if c.store != nil {
			toSave = vectors
		}
	}

	c.logger.Info("embedding cache: warm-up complete",
		slog.Int("embedded_entities", embeddedCount),
		slog.Int("requested_entities", len(entities)),
	)

	// Persistence failure is non-fatal: vectors are already in RAM.
	if toSave != nil {
		if err := c.store.SaveEmbeddings(ctx, corpusHash, toSave); err != nil {
			c.logger.Warn("embedding cache: failed to persist vectors",
				slog.String("error", err.Error()),
				slog.String("corpus_hash", shortHash(corpusHash)),
			)
		}
	}

	return nil
}

// Score embeds the phrase and returns cosine similarity vs each entity.
//
// # Description
//
// Returns (nil, nil) when the cache was never warmed or the embed call for
// the phrase fails — the caller skips the semantic tier in both cases.
//
// # Outputs
//
//   - map[string]float64: Entity ID → cosine similarity. Negative scores
//     are omitted. Nil signals the tier should be skipped.
//   - error: Always nil; failures degrade to a nil map.
//
// # Thread Safety
//
// Safe for concurrent use after Warm() completes.
func (c *EntityEmbeddingCache) Score(ctx context.Context, phrase string) (map[string]float64, error) {
	c.mu.RLock()
	warmed := c.warmed
	c.mu.RUnlock()

	if !warmed {
		return nil, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, embeddingQueryTimeout)
	defer cancel()

	queryVec, err := c.embed(embedCtx, phrase)
	if err != nil {
		c.logger.Warn("embedding cache: query embedding failed, skipping semantic tier",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	queryUnit := unitNormalize(queryVec)
	if queryUnit == nil {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	scores := make(map[string]float64, len(c.vectors))
	for id, vec := range c.vectors {
		if sim := dotProduct(queryUnit, vec); sim > 0 {
			scores[id] = float64(sim)
		}
	}
	return scores, nil
}

// IsWarmed reports whether the cache has been successfully warmed.
//
// # Thread Safety
//
// Safe for concurrent use.
func (c *EntityEmbeddingCache) IsWarmed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warmed
}

// embed calls the Ollama /api/embed endpoint and returns the raw vector.
func (c *EntityEmbeddingCache) embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbedReq{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed HTTP call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed service returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaEmbedResp
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}
	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embed service returned empty vector")
	}
	return parsed.Embeddings[0], nil
}

// =============================================================================
// Semantic Strategy
// =============================================================================

// SemanticMatcher resolves paraphrased mentions via embedding cosine
// similarity against the precomputed entity-name vectors.
//
// # Thread Safety
//
// Safe for concurrent use after the cache is warmed.
type SemanticMatcher struct {
	idx       entityResolver
	cache     *EntityEmbeddingCache
	threshold float64
}

// entityResolver is the slice of the entity index the semantic tier needs.
type entityResolver interface {
	AllEntities(kind datatypes.Kind) []*datatypes.Entity
}

// NewSemanticMatcher creates the semantic tier.
//
// # Inputs
//
//   - idx: Entity index for resolving scored IDs back to entities.
//   - cache: Warmed (or warming) embedding cache. Must not be nil.
//   - threshold: Minimum cosine similarity. <= 0 uses DefaultSemanticThreshold.
func NewSemanticMatcher(idx entityResolver, cache *EntityEmbeddingCache, threshold float64) *SemanticMatcher {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	return &SemanticMatcher{idx: idx, cache: cache, threshold: threshold}
}

// Tier implements Strategy.
func (m *SemanticMatcher) Tier() datatypes.MatchTier {
	return datatypes.MatchTierSemantic
}

// Attempt implements Strategy.
//
// Skipped entirely (nil, nil) when the embedding backend never warmed.
// Accepts the best-scoring entity at or above the threshold; equal scores
// prefer diseases, matching the other tiers.
func (m *SemanticMatcher) Attempt(ctx context.Context, phrase string) (*datatypes.MatchResult, error) {
	scores, err := m.cache.Score(ctx, phrase)
	if err != nil || scores == nil {
		return nil, err
	}

	var (
		best      *datatypes.Entity
		bestScore float64
	)
	for _, kind := range []datatypes.Kind{datatypes.KindDisease, datatypes.KindSymptom} {
		for _, e := range m.idx.AllEntities(kind) {
			score, ok := scores[e.ID]
			if !ok || score < m.threshold {
				continue
			}
			if best == nil || score > bestScore {
				best = e
				bestScore = score
			}
		}
	}

	if best == nil {
		return nil, nil
	}
	return &datatypes.MatchResult{
		QueryText:  phrase,
		Entity:     best,
		Tier:       datatypes.MatchTierSemantic,
		Confidence: bestScore,
	}, nil
}

// =============================================================================
// Helpers
// =============================================================================

// embeddingDoc builds the text embedded for an entity. The kind prefix
// ("Disease: malaria") gives the model context the bare name lacks.
func embeddingDoc(e *datatypes.Entity) string {
	return string(e.Kind) + ": " + e.Name
}

// unitNormalize returns v scaled to unit length, or nil for a zero vector.
func unitNormalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / float32(norm)
	}
	return out
}

// dotProduct computes the dot product of two float32 vectors. Mismatched
// lengths use the shorter.
func dotProduct(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
