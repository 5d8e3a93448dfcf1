// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/KaustubhAs/BioRAG/services/assistant/datatypes"
	badgerstore "github.com/KaustubhAs/BioRAG/services/assistant/storage/badger"
)

// historyKeyPrefix namespaces the journal inside the shared BadgerDB.
// Keys are the prefix plus a big-endian sequence number, so a prefix scan
// yields records in append order.
const historyKeyPrefix = "assistant/history/v1/"

// BadgerStore journals query records to the shared BadgerDB so history
// survives restarts.
//
// # Thread Safety
//
// Appends are serialized behind a single mutex (one writer, per the
// append-only contract); reads are concurrent.
type BadgerStore struct {
	db *badgerstore.DB

	mu   sync.Mutex
	next uint64
}

// NewBadgerStore opens the journal and positions the sequence counter
// after the last persisted record.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil; caller owns lifecycle.
//
// # Outputs
//
//   - *BadgerStore: Ready store. Never nil on success.
//   - error: Non-nil if the existing journal cannot be scanned.
func NewBadgerStore(db *badgerstore.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("history badger store: db must not be nil")
	}

	s := &BadgerStore{db: db}
	err := db.WithReadTxn(context.Background(), func(txn *dgbadger.Txn) error {
		it := txn.NewIterator(dgbadger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(historyKeyPrefix)
		var count uint64
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		s.next = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history badger store: scan journal: %w", err)
	}
	return s, nil
}

// Append implements Store.
func (s *BadgerStore) Append(ctx context.Context, record datatypes.QueryRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("history append: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := historyKey(s.next)
	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set(key, raw)
	})
	if err != nil {
		return fmt.Errorf("history append: %w", err)
	}
	s.next++
	return nil
}

// Records implements Store.
func (s *BadgerStore) Records(ctx context.Context) ([]datatypes.QueryRecord, error) {
	var out []datatypes.QueryRecord
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		it := txn.NewIterator(dgbadger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(historyKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec datatypes.QueryRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history records: %w", err)
	}
	return out, nil
}

// Len implements Store.
func (s *BadgerStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.next), nil
}

// historyKey builds the journal key for a sequence number.
func historyKey(seq uint64) []byte {
	key := make([]byte, len(historyKeyPrefix)+8)
	copy(key, historyKeyPrefix)
	binary.BigEndian.PutUint64(key[len(historyKeyPrefix):], seq)
	return key
}
