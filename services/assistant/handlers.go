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
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// topDiseaseCount is how many of the most-connected diseases the stats
// endpoint reports.
const topDiseaseCount = 5

// =============================================================================
// Request/Response Types
// =============================================================================

// QueryRequest is the body of POST /v1/assistant/query.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// QueryResponse is the answer envelope returned to the client.
type QueryResponse struct {
	Answer  string          `json:"answer"`
	Tier    string          `json:"tier_used"`
	Matched []MatchedEntity `json:"matched_entities"`
	ID      string          `json:"request_id,omitempty"`
}

// MatchedEntity is the wire shape of a matched graph entity.
type MatchedEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// StatsResponse reports graph shape for GET /v1/assistant/stats.
type StatsResponse struct {
	Diseases      int          `json:"diseases"`
	Symptoms      int          `json:"symptoms"`
	Relationships int          `json:"relationships"`
	TopDiseases   []TopDisease `json:"top_diseases"`
}

// TopDisease is one entry of the most-connected diseases list.
type TopDisease struct {
	Name         string `json:"name"`
	SymptomCount int    `json:"symptom_count"`
}

// HistoryResponse wraps the query history for GET /v1/assistant/history.
type HistoryResponse struct {
	Count   int                     `json:"count"`
	Records []datatypes.QueryRecord `json:"records"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// =============================================================================
// Handlers
// =============================================================================

// Handlers holds the HTTP handlers for the assistant service.
//
// # Thread Safety
//
// Safe for concurrent use; all state is either immutable or internally
// synchronized. Handlers always read the service's current pipeline
// snapshot, so dataset reloads become visible without restart.
type Handlers struct {
	service *Service
	logger  *slog.Logger
}

// NewHandlers creates the handler set.
//
// # Inputs
//
//   - service: The wired assistant service. Must not be nil.
//   - logger: May be nil.
func NewHandlers(service *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// HandleQuery handles POST /v1/assistant/query.
//
// Description:
//
//	Runs the full question-answering pipeline for the posted question and
//	returns the answer, the tier that produced it, and the matched
//	entities. The pipeline itself never fails for a non-empty question;
//	the only error responses here are request-shape errors.
//
// Response:
//
//	200 OK: QueryResponse
//	400 Bad Request: Missing or empty question
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID))

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "question field is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "question must not be empty",
			Code:  "EMPTY_QUESTION",
		})
		return
	}

	answer := h.service.AnswerQuery(c.Request.Context(), req.Question)

	matched := make([]MatchedEntity, 0, len(answer.Matched))
	for _, e := range answer.Matched {
		matched = append(matched, MatchedEntity{
			ID:   e.ID,
			Name: e.Name,
			Kind: string(e.Kind),
		})
	}

	logger.Info("handled query",
		slog.String("tier", string(answer.Tier)),
		slog.Int("matched_entities", len(matched)),
	)

	c.JSON(http.StatusOK, QueryResponse{
		Answer:  answer.Text,
		Tier:    string(answer.Tier),
		Matched: matched,
		ID:      requestID,
	})
}

// HandleStats handles GET /v1/assistant/stats.
//
// Response:
//
//	200 OK: StatsResponse with entity and relationship counts plus the
//	five diseases with the most recorded symptoms.
//
// Thread Safety: This method is safe for concurrent use. Read-only.
func (h *Handlers) HandleStats(c *gin.Context) {
	g := h.service.Orchestrator().Graph()
	stats := g.Stats()

	ranked := g.TopDiseasesBySymptomCount(topDiseaseCount)
	top := make([]TopDisease, 0, len(ranked))
	for _, r := range ranked {
		top = append(top, TopDisease{
			Name:         r.Entity.Name,
			SymptomCount: r.TotalSymptoms,
		})
	}

	c.JSON(http.StatusOK, StatsResponse{
		Diseases:      stats.Diseases,
		Symptoms:      stats.Symptoms,
		Relationships: stats.Relationships,
		TopDiseases:   top,
	})
}

// HandleHistory handles GET /v1/assistant/history.
//
// Query Parameters:
//
//	limit: Maximum records to return, newest last (optional; default all)
//
// Response:
//
//	200 OK: HistoryResponse in append order
//	500 Internal Server Error: History store read failure
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleHistory(c *gin.Context) {
	records, err := h.service.Orchestrator().History().Records(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read query history",
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to read query history",
			Code:  "HISTORY_READ_FAILED",
		})
		return
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, perr := strconv.Atoi(limitStr); perr == nil && limit >= 0 && limit < len(records) {
			records = records[len(records)-limit:]
		}
	}
	if records == nil {
		records = []datatypes.QueryRecord{}
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Count:   len(records),
		Records: records,
	})
}

// HandleHealth handles GET /v1/assistant/health.
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/assistant/ready. Ready means the graph
// snapshot is loaded and non-empty; the LLM backend is deliberately not
// part of readiness because the lower tiers answer without it.
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleReady(c *gin.Context) {
	stats := h.service.Orchestrator().Graph().Stats()
	if stats.Diseases == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "knowledge graph is empty",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// getOrCreateRequestID returns the inbound X-Request-ID, minting one when
// the client did not send it.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
