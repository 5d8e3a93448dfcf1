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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/KaustubhAs/BioRAG/services/assistant/config"
	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	"github.com/KaustubhAs/BioRAG/services/assistant/generate"
	"github.com/KaustubhAs/BioRAG/services/assistant/graph"
	"github.com/KaustubhAs/BioRAG/services/assistant/history"
	"github.com/KaustubhAs/BioRAG/services/assistant/index"
	"github.com/KaustubhAs/BioRAG/services/assistant/matching"
	"github.com/KaustubhAs/BioRAG/services/assistant/providers"
	badgerstore "github.com/KaustubhAs/BioRAG/services/assistant/storage/badger"
)

// reloadDebounce coalesces bursts of fsnotify events from editors that
// write the dataset file in several operations.
const reloadDebounce = 500 * time.Millisecond

// Service owns the assistant pipeline for one process.
//
// # Description
//
// The pipeline is built from an immutable graph snapshot. Reload builds a
// fresh snapshot off to the side and swaps it in atomically; in-flight
// queries keep the snapshot they started with. The chat client, embedding
// cache, and history store live across reloads.
//
// # Thread Safety
//
// Safe for concurrent use.
type Service struct {
	cfg     *config.Config
	chat    providers.ChatClient
	embed   *matching.EntityEmbeddingCache
	history history.Store
	logger  *slog.Logger

	current atomic.Pointer[Orchestrator]
}

// NewService builds the pipeline from configuration.
//
// Description:
//
//	Loads the dataset CSV, builds the graph and index, wires the matcher
//	cascade and tiered generator, and constructs the orchestrator. The
//	LLM chat client is built with graceful degradation: a missing backend
//	yields a service whose primary tier is skipped, never an error.
//	Embedding warm-up is NOT started here; call WarmEmbeddings.
//
// Inputs:
//
//	cfg - Validated configuration. Must not be nil.
//	db - Optional BadgerDB for embedding and history persistence. May be nil.
//	logger - May be nil.
//
// Outputs:
//
//	*Service - Ready service. Never nil on success.
//	error - Non-nil if the dataset cannot be loaded or the graph is empty.
func NewService(cfg *config.Config, db *badgerstore.DB, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	chat := providers.NewChatClient(providers.ProviderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	}, logger)

	var store matching.EmbeddingStore
	if db != nil {
		store = matching.NewBadgerEmbeddingStore(db, 0, logger)
	}
	embed := matching.NewEntityEmbeddingCache(cfg.Embedding.BaseURL, cfg.Embedding.Model, store, logger)

	var hist history.Store
	if db != nil {
		bs, err := history.NewBadgerStore(db)
		if err != nil {
			return nil, fmt.Errorf("assistant service: %w", err)
		}
		hist = bs
	} else {
		hist = history.NewMemoryStore()
	}

	s := &Service{
		cfg:     cfg,
		chat:    chat,
		embed:   embed,
		history: hist,
		logger:  logger,
	}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// Orchestrator returns the current pipeline snapshot.
func (s *Service) Orchestrator() *Orchestrator {
	return s.current.Load()
}

// AnswerQuery answers one question against the current snapshot.
func (s *Service) AnswerQuery(ctx context.Context, question string) datatypes.Answer {
	return s.current.Load().AnswerQuery(ctx, question)
}

// WarmEmbeddings precomputes entity embeddings for the semantic tier.
//
// Description:
//
//	Blocking; intended to run on a background goroutine at boot. Failure
//	is non-fatal — the semantic tier simply stays cold and the cascade
//	runs exact and fuzzy only.
func (s *Service) WarmEmbeddings(ctx context.Context) {
	o := s.current.Load()
	entities := allEntities(o.graph)
	if err := s.embed.Warm(ctx, entities); err != nil {
		s.logger.Warn("embedding warm-up failed, semantic matching disabled",
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("embedding warm-up complete", slog.Int("entities", len(entities)))
}

// Reload rebuilds the pipeline from the dataset file and swaps it in.
//
// Description:
//
//	A failed reload leaves the current snapshot untouched and returns the
//	error. On success the new snapshot's embeddings are warmed on the
//	calling goroutine.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.rebuild(); err != nil {
		return err
	}
	s.WarmEmbeddings(ctx)
	return nil
}

// Watch reloads the pipeline whenever the dataset file changes.
//
// Description:
//
//	Blocking; run on its own goroutine. Watches the dataset file's parent
//	directory (editors replace files rather than write in place, which
//	drops a watch on the file itself) and debounces event bursts. Returns
//	when ctx is cancelled.
//
// Outputs:
//
//	error - Non-nil only if the watcher cannot be created.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("assistant service: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.cfg.Dataset.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("assistant service: watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.cfg.Dataset.Path)
	s.logger.Info("watching dataset for changes", slog.String("path", target))

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("dataset watcher error", slog.String("error", err.Error()))
		case <-reload:
			s.logger.Info("dataset changed, reloading")
			if err := s.Reload(ctx); err != nil {
				s.logger.Error("dataset reload failed, keeping previous snapshot",
					slog.String("error", err.Error()),
				)
				continue
			}
			stats := s.current.Load().graph.Stats()
			s.logger.Info("dataset reloaded",
				slog.Int("diseases", stats.Diseases),
				slog.Int("symptoms", stats.Symptoms),
				slog.Int("relationships", stats.Relationships),
			)
		}
	}
}

// rebuild constructs a fresh snapshot from the dataset file and stores it.
func (s *Service) rebuild() error {
	rows, err := graph.LoadCSV(s.cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("assistant service: load dataset: %w", err)
	}
	g, err := graph.Build(rows, s.logger)
	if err != nil {
		return fmt.Errorf("assistant service: build graph: %w", err)
	}
	idx := index.Build(g)

	cascade := matching.NewCascade([]matching.Strategy{
		matching.NewExactMatcher(idx),
		matching.NewFuzzyMatcher(idx, s.cfg.Matching.FuzzyThreshold),
		matching.NewSemanticMatcher(idx, s.embed, s.cfg.Matching.SemanticThreshold),
	}, idx.MaxNameTokens(), s.logger)

	primary := generate.NewPrimaryGenerator(s.chat,
		time.Duration(s.cfg.Generation.PrimaryTimeoutSeconds)*time.Second,
		s.cfg.Generation.Temperature,
		s.cfg.Generation.MaxTokens,
	)
	generator := generate.NewTieredGenerator(
		primary,
		generate.NewSecondaryGenerator(),
		generate.NewTertiaryGenerator(idx, g, s.cfg.Generation.TertiaryThreshold),
		s.logger,
	)

	s.current.Store(NewOrchestrator(g, cascade, generator, s.history, s.logger))
	return nil
}

// allEntities flattens the graph's entities for embedding warm-up,
// diseases first.
func allEntities(g *graph.KnowledgeGraph) []*datatypes.Entity {
	out := append([]*datatypes.Entity{}, g.Entities(datatypes.KindDisease)...)
	return append(out, g.Entities(datatypes.KindSymptom)...)
}
