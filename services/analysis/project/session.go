// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/beringlabs/bering/services/analysis/ast"
)

// ErrSessionClosed is returned by Graph after Close.
var ErrSessionClosed = errors.New("analysis session is closed")

const defaultGraphCacheSize = 10

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithGraphCacheSize sets how many built graphs the session retains.
func WithGraphCacheSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxGraphs = n
		}
	}
}

// cacheKey identifies one analysis target inside the session cache.
type cacheKey struct {
	root      string
	languages string
	merged    bool
}

// cacheEntry is one retained graph plus its recency stamp.
type cacheEntry struct {
	graph    *Graph
	lastUsed time.Time
}

// Session owns the graph cache for a sequence of analysis requests.
//
// Description:
//
//	Graphs are cached per (root, language set) and keyed by content
//	signature: a request whose signature matches the cached graph's is
//	served from memory, anything else triggers a rebuild. The cache is
//	bounded; the least recently used graph is evicted when full. All
//	state is owned by the session, so independent sessions never share
//	or invalidate each other's results.
//
// Thread Safety: safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	graphs    map[cacheKey]*cacheEntry
	maxGraphs int
	closed    bool
}

// NewSession creates an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		graphs:    make(map[cacheKey]*cacheEntry),
		maxGraphs: defaultGraphCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Graph returns the project graph for opts, rebuilding only when the
// content signature changed since the cached build.
func (s *Session) Graph(ctx context.Context, opts Options) (*Graph, error) {
	key := keyFor(opts)

	files := opts.Files
	if len(files) == 0 {
		var err error
		files, err = DiscoverFiles(opts.Root, ast.DefaultRegistry(), opts.Languages, opts.ExcludedPaths)
		if err != nil {
			return nil, err
		}
		opts.Files = files
	}
	sig := ContentSignature(opts.Root, files)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if entry, ok := s.graphs[key]; ok && entry.graph.Signature == sig {
		entry.lastUsed = time.Now()
		s.mu.Unlock()
		recordCacheEvent("hit")
		return entry.graph, nil
	}
	s.mu.Unlock()
	recordCacheEvent("miss")

	g, err := Build(ctx, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return g, nil
	}
	s.graphs[key] = &cacheEntry{graph: g, lastUsed: time.Now()}
	s.evictLocked()
	return g, nil
}

// ScriptGraph is Graph for the merged JavaScript + TypeScript space.
func (s *Session) ScriptGraph(ctx context.Context, opts Options) (*Graph, error) {
	opts.Languages = []string{"javascript", "typescript"}
	opts.mergeScript = true
	return s.Graph(ctx, opts)
}

// Invalidate drops every cached graph for the given root.
func (s *Session) Invalidate(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.graphs {
		if key.root == root {
			delete(s.graphs, key)
		}
	}
}

// Len reports how many graphs the session currently retains.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.graphs)
}

// Close drops all cached graphs. Further Graph calls fail with
// ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs = make(map[cacheKey]*cacheEntry)
	s.closed = true
}

// evictLocked removes least recently used entries until the cache fits.
// Caller must hold s.mu.
func (s *Session) evictLocked() {
	for len(s.graphs) > s.maxGraphs {
		var oldestKey cacheKey
		var oldest time.Time
		first := true
		for key, entry := range s.graphs {
			if first || entry.lastUsed.Before(oldest) {
				oldestKey = key
				oldest = entry.lastUsed
				first = false
			}
		}
		delete(s.graphs, oldestKey)
		recordCacheEvent("eviction")
		slog.Debug("session cache evicted graph", "root", oldestKey.root)
	}
}

func keyFor(opts Options) cacheKey {
	return cacheKey{
		root:      opts.Root,
		languages: strings.Join(opts.Languages, ","),
		merged:    opts.mergeScript,
	}
}
