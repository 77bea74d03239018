// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package badger persists import graph snapshots across runs, keyed by
// project root and content signature, so consecutive analyses can be
// diffed without keeping old graphs in memory.
package badger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/beringlabs/bering/services/analysis/graph"
)

const defaultRetain = 20

// ErrSnapshotNotFound is returned when no snapshot matches the query.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one persisted graph dump with its provenance.
type Snapshot struct {
	Root      string      `json:"root"`
	Signature string      `json:"signature"`
	TakenAt   time.Time   `json:"taken_at"`
	Dump      *graph.Dump `json:"dump"`
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetain caps how many snapshots are kept per project root. Older
// snapshots past the cap are pruned on save.
func WithRetain(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.retain = n
		}
	}
}

// Store is a badger-backed snapshot store.
//
// Keys are "snap/<root-hash>/<unix-nanos>/<signature>". The root hash
// keeps keys short and shell-safe; ordering by insertion time makes
// prefix iteration return snapshots oldest first.
//
// Thread Safety: safe for concurrent use; badger provides transaction
// isolation.
type Store struct {
	db     *badger.DB
	retain int
}

// Open opens or creates the store at dir.
func Open(dir string, opts ...StoreOption) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store at %s: %w", dir, err)
	}
	s := &Store{db: db, retain: defaultRetain}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a snapshot and prunes old ones past the retain cap.
func (s *Store) Save(snap *Snapshot) error {
	if snap == nil || snap.Root == "" || snap.Signature == "" || snap.Dump == nil {
		return errors.New("snapshot requires root, signature and dump")
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	key := snapshotKey(snap.Root, snap.TakenAt, snap.Signature)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := s.prune(snap.Root); err != nil {
		slog.Warn("snapshot prune failed", "root", snap.Root, "error", err)
	}
	return nil
}

// Latest returns the most recent snapshot for root, or
// ErrSnapshotNotFound.
func (s *Store) Latest(root string) (*Snapshot, error) {
	var latest *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOptions(root))
		defer it.Close()
		var lastKey []byte
		for it.Rewind(); it.Valid(); it.Next() {
			lastKey = it.Item().KeyCopy(lastKey)
		}
		if lastKey == nil {
			return ErrSnapshotNotFound
		}
		item, err := txn.Get(lastKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			latest = &Snapshot{}
			return json.Unmarshal(val, latest)
		})
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// BySignature returns the newest snapshot for root with the given
// content signature, or ErrSnapshotNotFound.
func (s *Store) BySignature(root, signature string) (*Snapshot, error) {
	var found *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOptions(root))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), "/"+signature) {
				continue
			}
			if err := item.Value(func(val []byte) error {
				found = &Snapshot{}
				return json.Unmarshal(val, found)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrSnapshotNotFound
	}
	return found, nil
}

// List returns the snapshots for root, newest first, dumps omitted.
func (s *Store) List(root string) ([]Snapshot, error) {
	var out []Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOptions(root))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var snap Snapshot
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			}); err != nil {
				return err
			}
			snap.Dump = nil
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	return out, nil
}

// DiffLatest compares the latest stored snapshot against a fresh dump.
// With no stored snapshot the diff reads everything as added.
func (s *Store) DiffLatest(root string, target *graph.Dump) (*graph.DumpDiff, error) {
	prev, err := s.Latest(root)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return graph.DiffDumps(nil, target), nil
		}
		return nil, err
	}
	return graph.DiffDumps(prev.Dump, target), nil
}

// prune deletes the oldest snapshots past the retain cap.
func (s *Store) prune(root string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixIterOptions(root))
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for len(keys) > s.retain {
			if err := txn.Delete(keys[0]); err != nil {
				return err
			}
			keys = keys[1:]
		}
		return nil
	})
}

func rootHash(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:8])
}

func snapshotKey(root string, at time.Time, signature string) []byte {
	return []byte(fmt.Sprintf("snap/%s/%020d/%s", rootHash(root), at.UnixNano(), signature))
}

func prefixIterOptions(root string) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte("snap/" + rootHash(root) + "/")
	return opts
}
