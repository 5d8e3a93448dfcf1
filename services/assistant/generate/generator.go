// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generate

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	generationTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biorag",
		Subsystem: "generate",
		Name:      "tier_total",
		Help:      "Answers produced by tier: primary, secondary, tertiary",
	}, []string{"tier"})

	generationFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biorag",
		Subsystem: "generate",
		Name:      "fallback_total",
		Help:      "Tier fallthrough events by tier that failed",
	}, []string{"from"})

	primaryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "biorag",
		Subsystem: "generate",
		Name:      "primary_latency_seconds",
		Help:      "Latency of primary (LLM) generation calls",
		Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 3.0, 5.0, 8.0},
	})
)

var generatorTracer = otel.Tracer("biorag.assistant.generate")

// =============================================================================
// Tiered Generator
// =============================================================================

// TieredGenerator runs the three response tiers in strict order, falling
// through on each failure. This cascading fallback is the pipeline's core
// reliability mechanism: the tertiary tier never fails, so Generate always
// returns an answer.
//
// # Thread Safety
//
// Safe for concurrent use; each Generate call is independent.
type TieredGenerator struct {
	primary   *PrimaryGenerator
	secondary *SecondaryGenerator
	tertiary  *TertiaryGenerator
	logger    *slog.Logger
}

// NewTieredGenerator creates the tiered response generator.
//
// # Inputs
//
//   - primary: LLM tier (may wrap the Unavailable client). Must not be nil.
//   - secondary: Rule-based tier. Must not be nil.
//   - tertiary: Floor tier. Must not be nil.
//   - logger: May be nil.
func NewTieredGenerator(primary *PrimaryGenerator, secondary *SecondaryGenerator, tertiary *TertiaryGenerator, logger *slog.Logger) *TieredGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredGenerator{
		primary:   primary,
		secondary: secondary,
		tertiary:  tertiary,
		logger:    logger,
	}
}

// Generate produces the final answer for a question.
//
// # Description
//
// Tier order:
//
//  1. Primary: LLM generation with the extracted facts as context. Skipped
//     outright when no backend is configured; fails through on error,
//     timeout, or empty output.
//  2. Secondary: deterministic templates from graph facts. Fails through
//     only when zero entities matched.
//  3. Tertiary: loose keyword scan, then the fixed fallback message.
//     Cannot fail.
//
// Tiers run strictly in order on the calling goroutine; there is no
// background retry.
//
// # Outputs
//
//   - string: The answer text. Never empty.
//   - datatypes.ResponseTier: The tier that produced it.
func (g *TieredGenerator) Generate(ctx context.Context, question string, matched []datatypes.Entity, facts FactSet) (string, datatypes.ResponseTier) {
	ctx, span := generatorTracer.Start(ctx, "generate.TieredGenerator.Generate",
		trace.WithAttributes(
			attribute.Int("matched_entities", len(matched)),
			attribute.Bool("primary_available", g.primary.Available()),
		),
	)
	defer span.End()

	// Tier 1: generative. Only worth attempting with a real backend and at
	// least one matched entity to ground the prompt.
	if g.primary.Available() && len(matched) > 0 {
		start := time.Now()
		text, err := g.primary.Generate(ctx, question, facts)
		primaryLatency.Observe(time.Since(start).Seconds())

		if err == nil {
			generationTierTotal.WithLabelValues(string(datatypes.ResponseTierPrimary)).Inc()
			span.SetAttributes(attribute.String("tier_used", string(datatypes.ResponseTierPrimary)))
			return text, datatypes.ResponseTierPrimary
		}
		generationFallbackTotal.WithLabelValues(string(datatypes.ResponseTierPrimary)).Inc()
		g.logger.Warn("primary generation failed, falling back to rule-based tier",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
	}

	// Tier 2: rule-based templates.
	text, err := g.secondary.Generate(question, matched, facts)
	if err == nil {
		generationTierTotal.WithLabelValues(string(datatypes.ResponseTierSecondary)).Inc()
		span.SetAttributes(attribute.String("tier_used", string(datatypes.ResponseTierSecondary)))
		return text, datatypes.ResponseTierSecondary
	}
	generationFallbackTotal.WithLabelValues(string(datatypes.ResponseTierSecondary)).Inc()
	g.logger.Info("rule-based generation has nothing to template, using floor tier",
		slog.String("error", err.Error()),
	)

	// Tier 3: the floor. Never fails.
	text = g.tertiary.Generate(question)
	generationTierTotal.WithLabelValues(string(datatypes.ResponseTierTertiary)).Inc()
	span.SetAttributes(attribute.String("tier_used", string(datatypes.ResponseTierTertiary)))
	return text, datatypes.ResponseTierTertiary
}
