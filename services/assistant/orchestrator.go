// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant coordinates the question-answering pipeline: matcher
// cascade → graph fact lookup → tiered response generation → history.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/generate"
	"github.com/KaustubhAs/BioRAG/services/assistant/graph"
	"github.com/KaustubhAs/BioRAG/services/assistant/history"
	"github.com/KaustubhAs/BioRAG/services/assistant/matching"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biorag",
		Subsystem: "assistant",
		Name:      "query_total",
		Help:      "Answered queries by generation tier",
	}, []string{"tier"})

	queryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "biorag",
		Subsystem: "assistant",
		Name:      "query_latency_seconds",
		Help:      "End-to-end query latency",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
	})
)

var orchestratorTracer = otel.Tracer("biorag.assistant.orchestrator")

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator drives the query pipeline end to end.
//
// # Description
//
// A single AnswerQuery call runs on one goroutine in strict tier order —
// the fallback cascade depends on that. The graph and index snapshots are
// immutable and shared; independent questions may be answered in parallel
// by concurrent AnswerQuery calls.
//
// The orchestrator itself cannot fail: the floor tier guarantees a return
// value for any input, and no tier error escapes to the caller.
//
// # Thread Safety
//
// Safe for concurrent use.
type Orchestrator struct {
	graph     *graph.KnowledgeGraph
	cascade   *matching.Cascade
	generator *generate.TieredGenerator
	history   history.Store
	logger    *slog.Logger
}

// NewOrchestrator wires the pipeline.
//
// # Inputs
//
//   - g: Immutable graph snapshot. Must not be nil.
//   - cascade: Matcher cascade. Must not be nil.
//   - generator: Tiered response generator. Must not be nil.
//   - hist: Caller-owned history store. Must not be nil.
//   - logger: May be nil.
func NewOrchestrator(g *graph.KnowledgeGraph, cascade *matching.Cascade, generator *generate.TieredGenerator, hist history.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		graph:     g,
		cascade:   cascade,
		generator: generator,
		history:   hist,
		logger:    logger,
	}
}

// AnswerQuery answers one question.
//
// # Description
//
// Pipeline: segment and match the question's phrases, deduplicate the
// matched entities, gather graph facts (lookup misses are "no facts", not
// errors), generate through the tiers, and append exactly one history
// record. The returned answer text is never empty, whichever tier
// produced it.
//
// # Inputs
//
//   - ctx: Context for cancellation and the primary tier's timeout budget.
//   - question: Raw question text. Whitespace-only input gets the floor answer.
//
// # Outputs
//
//   - datatypes.Answer: The answer, the tier used, and the matched entities.
//
// # Thread Safety
//
// Safe for concurrent use.
func (o *Orchestrator) AnswerQuery(ctx context.Context, question string) datatypes.Answer {
	start := time.Now()
	ctx, span := orchestratorTracer.Start(ctx, "assistant.Orchestrator.AnswerQuery",
		trace.WithAttributes(attribute.Int("question_len", len(question))),
	)
	defer span.End()

	question = strings.TrimSpace(question)

	results := o.cascade.Run(ctx, question)
	matched := matchedEntities(results)

	facts := generate.ExtractFacts(o.graph, matched, o.logger)

	text, tier := o.generator.Generate(ctx, question, matched, facts)

	answer := datatypes.Answer{
		Text:    text,
		Tier:    tier,
		Matched: matched,
	}

	o.appendHistory(ctx, question, answer)

	queryTotal.WithLabelValues(string(tier)).Inc()
	queryLatency.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("tier_used", string(tier)),
		attribute.Int("matched_entities", len(matched)),
	)

	o.logger.Info("query answered",
		slog.String("tier", string(tier)),
		slog.Int("matched_entities", len(matched)),
		slog.Duration("duration", time.Since(start)),
	)
	return answer
}

// History exposes the store for the read-side handlers. The orchestrator
// itself never reads it.
func (o *Orchestrator) History() history.Store {
	return o.history
}

// Graph exposes the immutable graph snapshot for the stats handlers.
func (o *Orchestrator) Graph() *graph.KnowledgeGraph {
	return o.graph
}

// appendHistory records the answered query. A write failure is logged,
// not surfaced: history is observability, never on the answer path.
func (o *Orchestrator) appendHistory(ctx context.Context, question string, answer datatypes.Answer) {
	record := datatypes.QueryRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Question:  question,
		Answer:    answer.Text,
		Tier:      answer.Tier,
	}
	if err := o.history.Append(ctx, record); err != nil {
		o.logger.Warn("failed to append query history",
			slog.String("error", err.Error()),
		)
	}
}

// matchedEntities collapses match results to the deduplicated entity list,
// preserving match order.
func matchedEntities(results []datatypes.MatchResult) []datatypes.Entity {
	seen := make(map[string]bool, len(results))
	out := make([]datatypes.Entity, 0, len(results))
	for _, r := range results {
		if !r.Matched() || seen[r.Entity.ID] {
			continue
		}
		seen[r.Entity.ID] = true
		out = append(out, *r.Entity)
	}
	return out
}
