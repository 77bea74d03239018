// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/beringlabs/bering/services/analysis/project"

var (
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bering_project_build_duration_seconds",
		Help:    "Wall time of full project graph builds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	buildFiles = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bering_project_build_files",
		Help:    "Files analyzed per project graph build.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bering_project_cache_events_total",
		Help: "Session graph cache hits, misses and evictions.",
	}, []string{"event"})
)

// startBuildSpan opens an otel span covering one project graph build.
func startBuildSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "project.Build",
		trace.WithAttributes(attribute.String("project.root", root)))
}

// recordBuildMetrics records duration and size metrics for one build.
func recordBuildMetrics(g *Graph) {
	buildDuration.Observe(g.Duration.Seconds())
	buildFiles.Observe(float64(len(g.Files)))
}

func recordCacheEvent(event string) {
	cacheEvents.WithLabelValues(event).Inc()
}
