// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newTestService(t)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(svc, quietLogger()))
	return router, svc
}

func doJSON(router *gin.Engine, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Query Endpoint Tests
// =============================================================================

func TestHandleQuery_OK(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(QueryRequest{Question: "What are the symptoms of Malaria?"})
	w := doJSON(router, http.MethodPost, "/v1/assistant/query", body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer == "" {
		t.Error("answer must not be empty")
	}
	if resp.Tier == "" {
		t.Error("tier_used must be set")
	}
	if len(resp.Matched) != 1 || resp.Matched[0].Name != "Malaria" {
		t.Errorf("matched = %+v, want Malaria", resp.Matched)
	}
	if resp.ID == "" {
		t.Error("request_id must be minted when the client sends none")
	}
}

func TestHandleQuery_PropagatesRequestID(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(QueryRequest{Question: "fever"})
	w := doJSON(router, http.MethodPost, "/v1/assistant/query", body,
		map[string]string{"X-Request-ID": "req-abc-123"})

	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "req-abc-123" {
		t.Errorf("request_id = %q, want the inbound header value", resp.ID)
	}
}

func TestHandleQuery_MissingQuestion(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/v1/assistant/query", []byte(`{}`), nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "MISSING_PARAMETER" {
		t.Errorf("code = %q, want MISSING_PARAMETER", resp.Code)
	}
}

func TestHandleQuery_WhitespaceQuestion(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(QueryRequest{Question: "   \t  "})
	w := doJSON(router, http.MethodPost, "/v1/assistant/query", body, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "EMPTY_QUESTION" {
		t.Errorf("code = %q, want EMPTY_QUESTION", resp.Code)
	}
}

// =============================================================================
// Stats / History / Health Tests
// =============================================================================

func TestHandleStats(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/assistant/stats", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Diseases != 3 || resp.Relationships != 7 {
		t.Errorf("stats = %+v, want 3 diseases / 7 relationships", resp)
	}
	if len(resp.TopDiseases) != 3 {
		t.Fatalf("top_diseases has %d entries, want 3", len(resp.TopDiseases))
	}
	if resp.TopDiseases[0].Name != "Malaria" || resp.TopDiseases[0].SymptomCount != 3 {
		t.Errorf("top disease = %+v, want Malaria with 3 symptoms", resp.TopDiseases[0])
	}
	if resp.TopDiseases[1].Name != "Common Cold" {
		t.Errorf("equal symptom counts must order by name, got %+v", resp.TopDiseases[1])
	}
}

func TestHandleHistory_LimitKeepsNewest(t *testing.T) {
	router, svc := newTestRouter(t)

	for _, q := range []string{"fever", "chills", "cough"} {
		body, _ := json.Marshal(QueryRequest{Question: q})
		if w := doJSON(router, http.MethodPost, "/v1/assistant/query", body, nil); w.Code != http.StatusOK {
			t.Fatalf("seed query %q failed: %d", q, w.Code)
		}
	}
	if n, _ := svc.Orchestrator().History().Len(context.Background()); n != 3 {
		t.Fatalf("expected 3 seeded records, got %d", n)
	}

	w := doJSON(router, http.MethodGet, "/v1/assistant/history?limit=2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Records[0].Question != "chills" || resp.Records[1].Question != "cough" {
		t.Errorf("limit must keep the newest records, got %+v", resp.Records)
	}
}

func TestHandleHistory_EmptyIsZeroCount(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/v1/assistant/history", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 || resp.Records == nil {
		t.Errorf("expected empty record list, got %+v", resp)
	}
}

func TestHandleHealthAndReady(t *testing.T) {
	router, _ := newTestRouter(t)

	if w := doJSON(router, http.MethodGet, "/v1/assistant/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
	if w := doJSON(router, http.MethodGet, "/v1/assistant/ready", nil, nil); w.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", w.Code)
	}
}
