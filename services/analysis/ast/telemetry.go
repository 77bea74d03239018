// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/beringlabs/bering/services/analysis/ast"

var (
	parseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bering",
		Subsystem: "parse",
		Name:      "duration_seconds",
		Help:      "Time spent parsing one source file.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"language", "ok"})

	parseSymbols = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bering",
		Subsystem: "parse",
		Name:      "symbols_total",
		Help:      "Symbols extracted, by language.",
	}, []string{"language"})
)

// startParseSpan opens an otel span for one Parse call.
func startParseSpan(ctx context.Context, language, filePath string, contentLen int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ast.Parse",
		trace.WithAttributes(
			attribute.String("code.language", language),
			attribute.String("code.filepath", filePath),
			attribute.Int("code.size_bytes", contentLen),
		))
}

// recordParseMetrics records duration and symbol-count metrics for one
// Parse call.
func recordParseMetrics(language string, elapsed time.Duration, symbols int, ok bool) {
	okLabel := "true"
	if !ok {
		okLabel = "false"
	}
	parseDuration.WithLabelValues(language, okLabel).Observe(elapsed.Seconds())
	if symbols > 0 {
		parseSymbols.WithLabelValues(language).Add(float64(symbols))
	}
}
