// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analysis exposes the project graph over HTTP: import graph
// dumps, cycle reports, symbol lookups and blast-radius queries.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/beringlabs/bering/services/analysis/config"
	"github.com/beringlabs/bering/services/analysis/project"
	"github.com/beringlabs/bering/services/analysis/resolve"
	"github.com/beringlabs/bering/services/analysis/storage/badger"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSnapshotStore attaches a snapshot store for graph persistence and
// diffing. Without a store the snapshot endpoints report 503.
func WithSnapshotStore(store *badger.Store) ServiceOption {
	return func(s *Service) { s.store = store }
}

// Service owns the analysis session and translates API requests into
// project graph operations.
//
// Thread Safety: safe for concurrent use; the session serializes its
// own cache access and graphs are read-only after build.
type Service struct {
	cfg     *config.Config
	session *project.Session
	store   *badger.Store
}

// NewService creates a service around a fresh session.
func NewService(cfg *config.Config, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	var sessionOpts []project.SessionOption
	if cfg.Analysis.GraphCacheSize > 0 {
		sessionOpts = append(sessionOpts, project.WithGraphCacheSize(cfg.Analysis.GraphCacheSize))
	}
	s := &Service{
		cfg:     cfg,
		session: project.NewSession(sessionOpts...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the session and, when attached, the snapshot store.
func (s *Service) Close() error {
	s.session.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Session exposes the underlying session, for the CLI and tests.
func (s *Service) Session() *project.Session { return s.session }

// buildOptions maps the configured defaults onto a request root.
func (s *Service) buildOptions(root string) project.Options {
	a := s.cfg.Analysis
	return project.Options{
		Root:             root,
		Languages:        a.Languages,
		ExcludedPaths:    a.ExcludedPaths,
		Policy:           resolve.Policy(a.Policy),
		PythonExtraPaths: a.PythonExtraPaths,
		MaxSymbols:       a.MaxSymbols,
		Parallelism:      a.Parallelism,
	}
}

// graphFor returns the (possibly cached) project graph for root.
func (s *Service) graphFor(ctx context.Context, root string) (*project.Graph, error) {
	if root == "" {
		return nil, fmt.Errorf("project root is required")
	}
	opts := s.buildOptions(root)
	if s.cfg.Analysis.MergeScript {
		return s.session.ScriptGraph(ctx, opts)
	}
	g, err := s.session.Graph(ctx, opts)
	if err != nil {
		slog.Error("project graph build failed", "root", root, "error", err)
		return nil, err
	}
	return g, nil
}
