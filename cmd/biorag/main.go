// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command biorag runs the disease-symptom assistant.
//
// The assistant answers natural-language questions about diseases and
// their symptoms from a CSV-backed knowledge graph, with a three-tier
// response pipeline (LLM, rule-based templates, text fallback).
//
// Usage:
//
//	biorag serve                      # start the HTTP API on :8080
//	biorag serve --config biorag.yaml
//	biorag ask "What are the symptoms of Malaria?"
//	biorag ask                        # interactive session
//
// With Ollama (for generative answers and semantic matching):
//
//	BIORAG_LLM_BASE_URL=http://localhost:11434 biorag serve
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/assistant/health
//
//	# Ask a question
//	curl -X POST http://localhost:8080/v1/assistant/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"question": "What are the symptoms of Malaria?"}'
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// configPath and debugMode hold persistent flag values.
var (
	configPath string
	debugMode  bool
)

func main() {
	root := &cobra.Command{
		Use:   "biorag",
		Short: "Disease-symptom knowledge graph assistant",
		Long: `BioRAG answers natural-language questions about diseases and their
symptoms from a CSV-backed knowledge graph. Answers come from a tiered
pipeline: LLM generation when a backend is configured, rule-based
templates otherwise, and a fixed fallback as the floor.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (defaults are built in)")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	root.AddCommand(newServeCommand())
	root.AddCommand(newAskCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the process-wide slog default: human-readable
// text on a terminal, JSON when piped or under an init system.
func setupLogging() {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
