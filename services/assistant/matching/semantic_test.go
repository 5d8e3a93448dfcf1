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
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// newEmbedServer returns a mock Ollama /api/embed endpoint that maps input
// text to fixed vectors. Unknown inputs get a default orthogonal vector.
func newEmbedServer(t *testing.T, vectors map[string][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec, ok := vectors[req.Input]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResp{Embeddings: [][]float32{vec}})
	}))
}

func testEntities() []*datatypes.Entity {
	return []*datatypes.Entity{
		{ID: "disease:diabetes", Name: "Diabetes", Kind: datatypes.KindDisease, NormalizedName: "diabetes"},
		{ID: "symptom:fever", Name: "fever", Kind: datatypes.KindSymptom, NormalizedName: "fever"},
	}
}

// staticResolver serves entities without a full graph/index build.
type staticResolver struct {
	diseases []*datatypes.Entity
	symptoms []*datatypes.Entity
}

func (r staticResolver) AllEntities(kind datatypes.Kind) []*datatypes.Entity {
	if kind == datatypes.KindDisease {
		return r.diseases
	}
	return r.symptoms
}

// =============================================================================
// EntityEmbeddingCache Tests
// =============================================================================

func TestWarm_EmbedsAllEntities(t *testing.T) {
	srv := newEmbedServer(t, map[string][]float32{
		"Disease: Diabetes": {1, 0, 0},
		"Symptom: fever":    {0, 1, 0},
	})
	defer srv.Close()

	cache := NewEntityEmbeddingCache(srv.URL, "test-model", nil, nil)
	if err := cache.Warm(context.Background(), testEntities()); err != nil {
		t.Fatalf("Warm failed: %v", err)
	}
	if !cache.IsWarmed() {
		t.Fatal("expected cache warmed")
	}
}

func TestWarm_UnreachableBackendDegrades(t *testing.T) {
	cache := NewEntityEmbeddingCache("http://127.0.0.1:1/api/embed", "test-model", nil, nil)

	// Individual embed failures are swallowed; the cache just stays cold.
	if err := cache.Warm(context.Background(), testEntities()); err != nil {
		t.Fatalf("Warm returned error: %v", err)
	}
	if cache.IsWarmed() {
		t.Error("expected cache to stay cold when backend is unreachable")
	}
}

func TestWarm_RepeatAndConcurrentWarmsFetchOnce(t *testing.T) {
	// The boot-time warm-up and a reload-triggered one can overlap; they
	// must serialize, and a warm for an already-warmed corpus must not
	// re-fetch.
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(ollamaEmbedResp{Embeddings: [][]float32{{1, 0, 0}}})
	}))
	defer srv.Close()

	cache := NewEntityEmbeddingCache(srv.URL, "test-model", nil, nil)
	ents := testEntities()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cache.Warm(context.Background(), ents); err != nil {
				t.Errorf("Warm failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := cache.Warm(context.Background(), ents); err != nil {
		t.Fatalf("repeat Warm failed: %v", err)
	}
	if !cache.IsWarmed() {
		t.Fatal("expected cache warmed")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != len(ents) {
		t.Errorf("embed endpoint called %d times, want %d (one per entity)", calls, len(ents))
	}
}

func TestScore_UnwarmedReturnsNil(t *testing.T) {
	cache := NewEntityEmbeddingCache("http://127.0.0.1:1/api/embed", "test-model", nil, nil)

	scores, err := cache.Score(context.Background(), "sugar sickness")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if scores != nil {
		t.Errorf("expected nil scores for cold cache, got %v", scores)
	}
}

func TestScore_CosineSimilarity(t *testing.T) {
	srv := newEmbedServer(t, map[string][]float32{
		"Disease: Diabetes": {1, 0, 0},
		"Symptom: fever":    {0, 1, 0},
		"sugar sickness":    {2, 0, 0}, // same direction as diabetes
	})
	defer srv.Close()

	cache := NewEntityEmbeddingCache(srv.URL, "test-model", nil, nil)
	if err := cache.Warm(context.Background(), testEntities()); err != nil {
		t.Fatalf("Warm failed: %v", err)
	}

	scores, err := cache.Score(context.Background(), "sugar sickness")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if math.Abs(scores["disease:diabetes"]-1.0) > 1e-6 {
		t.Errorf("diabetes score = %v, want ~1.0", scores["disease:diabetes"])
	}
	// Orthogonal vector: zero similarity, omitted from the map.
	if _, ok := scores["symptom:fever"]; ok {
		t.Errorf("fever score should be omitted, got %v", scores["symptom:fever"])
	}
}

// =============================================================================
// SemanticMatcher Tests
// =============================================================================

func TestSemanticMatcher_ResolvesParaphrase(t *testing.T) {
	srv := newEmbedServer(t, map[string][]float32{
		"Disease: Diabetes": {1, 0, 0},
		"Symptom: fever":    {0, 1, 0},
		"sugar sickness":    {0.9, 0.1, 0},
	})
	defer srv.Close()

	cache := NewEntityEmbeddingCache(srv.URL, "test-model", nil, nil)
	if err := cache.Warm(context.Background(), testEntities()); err != nil {
		t.Fatalf("Warm failed: %v", err)
	}

	ents := testEntities()
	m := NewSemanticMatcher(staticResolver{
		diseases: ents[:1],
		symptoms: ents[1:],
	}, cache, 0)

	res, err := m.Attempt(context.Background(), "sugar sickness")
	if err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a semantic match")
	}
	if res.Entity.ID != "disease:diabetes" {
		t.Errorf("matched %s, want disease:diabetes", res.Entity.ID)
	}
	if res.Tier != datatypes.MatchTierSemantic {
		t.Errorf("tier = %s, want semantic", res.Tier)
	}
	if res.Confidence < DefaultSemanticThreshold {
		t.Errorf("confidence %v below threshold", res.Confidence)
	}
}

func TestSemanticMatcher_ColdCacheSkips(t *testing.T) {
	cache := NewEntityEmbeddingCache("http://127.0.0.1:1/api/embed", "test-model", nil, nil)
	ents := testEntities()
	m := NewSemanticMatcher(staticResolver{diseases: ents[:1], symptoms: ents[1:]}, cache, 0)

	res, err := m.Attempt(context.Background(), "sugar sickness")
	if err != nil {
		t.Fatalf("Attempt returned error: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result for cold cache, got %+v", res)
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestUnitNormalize(t *testing.T) {
	v := unitNormalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("unitNormalize([3 4]) = %v, want [0.6 0.8]", v)
	}
	if unitNormalize([]float32{0, 0}) != nil {
		t.Error("expected nil for zero vector")
	}
}

func TestComputeCorpusHash_SensitiveToModelAndCorpus(t *testing.T) {
	ents := testEntities()
	h1 := computeCorpusHash(ents, "model-a")
	h2 := computeCorpusHash(ents, "model-b")
	if h1 == h2 {
		t.Error("hash must change with the model name")
	}

	h3 := computeCorpusHash(ents[:1], "model-a")
	if h1 == h3 {
		t.Error("hash must change with the entity corpus")
	}

	// Order-insensitive: the hash sorts internally.
	reversed := []*datatypes.Entity{ents[1], ents[0]}
	if computeCorpusHash(reversed, "model-a") != h1 {
		t.Error("hash must not depend on input order")
	}
}

func TestEmbeddingDoc(t *testing.T) {
	doc := embeddingDoc(testEntities()[0])
	if !strings.HasPrefix(doc, "Disease: ") {
		t.Errorf("doc = %q, want Disease: prefix", doc)
	}
}
