// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/KaustubhAs/BioRAG/services/assistant"
	"github.com/KaustubhAs/BioRAG/services/assistant/config"
	badgerstore "github.com/KaustubhAs/BioRAG/services/assistant/storage/badger"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var traceStdout bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(traceStdout)
		},
	}
	cmd.Flags().BoolVar(&traceStdout, "trace-stdout", false, "Export spans to stdout")
	return cmd
}

func runServe(traceStdout bool) error {
	if debugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTelemetry, err := setupTelemetry(traceStdout)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	cfg, err := config.Load(configPath, slog.Default())
	if err != nil {
		return err
	}

	// BadgerDB persistence is best-effort: without it, embeddings are
	// recomputed each boot and history stays in memory.
	var db *badgerstore.DB
	if cfg.Storage.Path != "" {
		db, err = badgerstore.Open(cfg.Storage.Path, slog.Default())
		if err != nil {
			slog.Warn("BadgerDB unavailable, running without persistence",
				slog.String("path", cfg.Storage.Path),
				slog.String("error", err.Error()),
			)
			db = nil
		} else {
			defer func() {
				if cerr := db.Close(); cerr != nil {
					slog.Warn("failed to close BadgerDB", slog.String("error", cerr.Error()))
				}
			}()
		}
	}

	svc, err := assistant.NewService(cfg, db, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Semantic matching comes online when warm-up finishes; the exact and
	// fuzzy tiers serve queries from the first request.
	go svc.WarmEmbeddings(ctx)

	if cfg.Dataset.Watch {
		go func() {
			if werr := svc.Watch(ctx); werr != nil {
				slog.Warn("dataset watcher disabled", slog.String("error", werr.Error()))
			}
		}()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("biorag-assistant"))
	if debugMode {
		router.Use(gin.Logger())
	}

	handlers := assistant.NewHandlers(svc, slog.Default())
	v1 := router.Group("/v1")
	assistant.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting assistant server", slog.String("address", addr))
		if serr := server.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down assistant server")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		slog.Warn("graceful shutdown incomplete", slog.String("error", err.Error()))
	}
	return nil
}
