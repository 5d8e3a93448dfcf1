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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	matchTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biorag",
		Subsystem: "matching",
		Name:      "tier_total",
		Help:      "Phrase resolution outcomes by tier: exact, fuzzy, semantic, none",
	}, []string{"tier"})

	matchStrategyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "biorag",
		Subsystem: "matching",
		Name:      "strategy_errors_total",
		Help:      "Non-fatal strategy failures by tier (phrase falls through to next tier)",
	}, []string{"tier"})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var cascadeTracer = otel.Tracer("biorag.assistant.matching.cascade")

// =============================================================================
// Strategy Interface
// =============================================================================

// Strategy is one tier of the matcher cascade.
//
// # Description
//
// Attempt resolves a single normalized phrase to an entity, or reports "no
// match" by returning (nil, nil). A non-nil error means the tier itself
// failed (e.g. the embedding backend timed out); the cascade logs it and
// continues with the next tier — strategy errors never abort a query.
//
// Modeling the tiers as an explicit ordered list with this uniform contract
// keeps the fallthrough visible in one loop instead of hiding it in
// exception control flow.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Tier identifies the strategy for results, logs, and metrics.
	Tier() datatypes.MatchTier

	// Attempt resolves one phrase. (nil, nil) means no match.
	Attempt(ctx context.Context, phrase string) (*datatypes.MatchResult, error)
}

// =============================================================================
// Cascade
// =============================================================================

// Cascade runs an ordered list of strategies over the candidate phrases of
// a question, stopping at the first success per phrase.
//
// # Thread Safety
//
// Safe for concurrent use; each Run call is independent and the strategies
// are shared read-only.
type Cascade struct {
	strategies []Strategy
	maxPhrase  int
	logger     *slog.Logger
}

// NewCascade creates a Cascade over the given strategies.
//
// # Inputs
//
//   - strategies: Tiers in strict attempt order (exact, fuzzy, semantic).
//     Must not be empty.
//   - maxPhraseTokens: Longest candidate phrase in tokens, typically the
//     longest indexed entity name (index.EntityIndex.MaxNameTokens) so
//     every full name can resolve exactly. <= 0 uses a conservative
//     default.
//   - logger: Logger instance. May be nil.
//
// # Outputs
//
//   - *Cascade: The constructed cascade. Never nil.
func NewCascade(strategies []Strategy, maxPhraseTokens int, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{strategies: strategies, maxPhrase: maxPhraseTokens, logger: logger}
}

// Run resolves every candidate phrase of a question.
//
// # Description
//
// Segments the question, then for each phrase (longest first) tries each
// strategy in order. A matched phrase consumes its token span so that
// sub-phrases of an already-matched name are not re-attempted. Unmatched
// single-token phrases are recorded with tier "none" — they never abort the
// query; generation proceeds with whatever did match.
//
// Duplicate entities (the same entity matched via different phrases) are
// collapsed, keeping the highest-confidence result.
//
// # Inputs
//
//   - ctx: Context for cancellation; forwarded to strategies.
//   - question: Raw question text.
//
// # Outputs
//
//   - []datatypes.MatchResult: One result per attempted phrase span, in
//     attempt order. Zero matches is a valid outcome.
func (c *Cascade) Run(ctx context.Context, question string) []datatypes.MatchResult {
	ctx, span := cascadeTracer.Start(ctx, "matching.Cascade.Run")
	defer span.End()

	phrases := Segment(question, c.maxPhrase)
	span.SetAttributes(attribute.Int("candidate_phrases", len(phrases)))

	consumed := make([]bool, tokenSpanLen(phrases))
	matchedByEntity := make(map[string]int) // entity ID → index into results

	var results []datatypes.MatchResult
	for _, phrase := range phrases {
		if spanConsumed(consumed, phrase) {
			continue
		}

		res := c.attemptPhrase(ctx, phrase.Text)
		if res == nil {
			// Only record misses for single tokens: a miss on a longer
			// n-gram just means the tokens match individually (or not).
			if phrase.End-phrase.Start == 1 {
				matchTierTotal.WithLabelValues(string(datatypes.MatchTierNone)).Inc()
				results = append(results, datatypes.MatchResult{
					QueryText: phrase.Text,
					Tier:      datatypes.MatchTierNone,
				})
			}
			continue
		}

		markConsumed(consumed, phrase)
		matchTierTotal.WithLabelValues(string(res.Tier)).Inc()

		if prev, ok := matchedByEntity[res.Entity.ID]; ok {
			if res.Confidence > results[prev].Confidence {
				results[prev] = *res
			}
			continue
		}
		matchedByEntity[res.Entity.ID] = len(results)
		results = append(results, *res)
	}

	span.SetAttributes(attribute.Int("matched_entities", len(matchedByEntity)))
	return results
}

// attemptPhrase runs the strategies in order for one phrase.
func (c *Cascade) attemptPhrase(ctx context.Context, phrase string) *datatypes.MatchResult {
	for _, s := range c.strategies {
		res, err := s.Attempt(ctx, phrase)
		if err != nil {
			matchStrategyErrors.WithLabelValues(string(s.Tier())).Inc()
			c.logger.Warn("match strategy failed, continuing cascade",
				slog.String("tier", string(s.Tier())),
				slog.String("phrase", phrase),
				slog.String("error", err.Error()),
			)
			continue
		}
		if res != nil {
			return res
		}
	}
	return nil
}

// tokenSpanLen returns the token count covered by the phrase list.
func tokenSpanLen(phrases []Phrase) int {
	max := 0
	for _, p := range phrases {
		if p.End > max {
			max = p.End
		}
	}
	return max
}

// spanConsumed reports whether any token of the phrase is already matched.
func spanConsumed(consumed []bool, p Phrase) bool {
	for i := p.Start; i < p.End; i++ {
		if consumed[i] {
			return true
		}
	}
	return false
}

// markConsumed marks the phrase's token span as matched.
func markConsumed(consumed []bool, p Phrase) {
	for i := p.Start; i < p.End; i++ {
		consumed[i] = true
	}
}
