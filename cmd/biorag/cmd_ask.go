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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/KaustubhAs/BioRAG/services/assistant"
	"github.com/KaustubhAs/BioRAG/services/assistant/config"
	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
)

func newAskCommand() *cobra.Command {
	var showTier bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the knowledge graph",
		Long: `Ask answers one question and exits, or starts an interactive session
when no question is given and stdin is a terminal. The pipeline runs
in-process; no server is needed.`,
		RunE: func(_ *cobra.Command, args []string) error {
			return runAsk(args, showTier)
		},
	}
	cmd.Flags().BoolVar(&showTier, "show-tier", false, "Print which response tier produced the answer")
	return cmd
}

func runAsk(args []string, showTier bool) error {
	cfg, err := config.Load(configPath, slog.Default())
	if err != nil {
		return err
	}

	// One-shot and interactive use stay in memory; persistence is a server
	// concern.
	svc, err := assistant.NewService(cfg, nil, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm synchronously for one-shot questions so the semantic tier gets a
	// chance to participate; interactive sessions warm in the background.
	if len(args) > 0 {
		svc.WarmEmbeddings(ctx)
		question := strings.Join(args, " ")
		printAnswer(svc.AnswerQuery(ctx, question), showTier)
		return nil
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		// Piped input: answer each line.
		svc.WarmEmbeddings(ctx)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}
			printAnswer(svc.AnswerQuery(ctx, question), showTier)
		}
		return scanner.Err()
	}

	go svc.WarmEmbeddings(ctx)

	fmt.Println("BioRAG assistant. Ask about diseases and symptoms; 'exit' to quit.")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		question := strings.TrimSpace(line)
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		printAnswer(svc.AnswerQuery(ctx, question), showTier)
	}
}

func printAnswer(answer datatypes.Answer, showTier bool) {
	fmt.Println(answer.Text)
	if showTier {
		fmt.Printf("[tier: %s]\n", answer.Tier)
	}
	fmt.Println()
}
