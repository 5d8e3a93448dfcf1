// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps a service-global BadgerDB instance used for embedded
// persistence: precomputed entity embeddings and the query-history journal.
//
// The DB is opened once in main and shared; callers receive transaction
// helpers rather than the raw handle so context cancellation is honored
// uniformly.
package badger

import (
	"context"
	"fmt"
	"log/slog"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// DB wraps a BadgerDB instance.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type DB struct {
	db     *dgbadger.DB
	logger *slog.Logger
}

// Open opens (or creates) a BadgerDB at the given directory.
//
// # Inputs
//
//   - path: Directory for the DB files. Created if absent.
//   - logger: Logger for open diagnostics. May be nil.
//
// # Outputs
//
//   - *DB: Opened DB. Never nil on success.
//   - error: Non-nil if the directory cannot be opened.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := dgbadger.DefaultOptions(path)
	opts = opts.WithLogger(nil) // badger's own logger is too chatty for service logs

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	logger.Info("badger store opened", slog.String("path", path))
	return &DB{db: db, logger: logger}, nil
}

// Close releases the underlying DB.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

// WithTxn runs fn inside a read-write transaction.
//
// The transaction commits when fn returns nil and discards otherwise.
// Context cancellation is checked before the transaction starts; Badger
// transactions themselves are short-lived and not interruptible.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}
