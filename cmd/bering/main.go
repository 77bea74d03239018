// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command bering analyzes multi-language codebases: per-language import
// resolution, import graphs with cycle detection, a project symbol
// index, and symbol-level dependency graphs for blast-radius queries.
//
// Usage:
//
//	bering analyze /path/to/project
//	bering graph /path/to/project --dump graph.json
//	bering cycles /path/to/project
//	bering impact /path/to/project --symbol "src/billing.py::charge"
//	bering unused /path/to/project
//	bering serve --addr :8730
//	bering watch /path/to/project
//
// Example requests against the server:
//
//	# Health check
//	curl http://localhost:8730/v1/analysis/health
//
//	# Build a project graph
//	curl -X POST http://localhost:8730/v1/analysis/init \
//	  -H "Content-Type: application/json" \
//	  -d '{"root": "/path/to/project"}'
//
//	# Report import cycles
//	curl "http://localhost:8730/v1/analysis/cycles?root=/path/to/project"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/beringlabs/bering/services/analysis"
	"github.com/beringlabs/bering/services/analysis/config"
	"github.com/beringlabs/bering/services/analysis/storage/badger"
)

var (
	configPath  string
	verbose     bool
	traceStdout bool
)

func main() {
	root := &cobra.Command{
		Use:           "bering",
		Short:         "Multi-language project graph analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: bering.config.yaml in the project root)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAnalyzeCommand(),
		newGraphCommand(),
		newCyclesCommand(),
		newImpactCommand(),
		newUnusedCommand(),
		newServeCommand(),
		newWatchCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(".")
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&traceStdout, "trace-stdout", false, "export otel spans to stderr")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if traceStdout {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		defer tp.Shutdown(context.Background())
	}

	var svcOpts []analysis.ServiceOption
	if cfg.Storage.Dir != "" {
		store, err := badger.Open(cfg.Storage.Dir, badger.WithRetain(cfg.Storage.RetainSnapshots))
		if err != nil {
			// Degrade to in-memory only: persistence is an enhancement,
			// not a requirement of the core API.
			slog.Warn("snapshot store unavailable, persistence disabled",
				"dir", cfg.Storage.Dir, "error", err)
		} else {
			svcOpts = append(svcOpts, analysis.WithSnapshotStore(store))
			slog.Info("snapshot store opened", "dir", cfg.Storage.Dir)
		}
	}

	svc := analysis.NewService(cfg, svcOpts...)
	defer svc.Close()
	handlers := analysis.NewHandlers(svc)

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("bering-analysis"))
	if verbose {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	analysis.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting analysis server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down analysis server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadConfig resolves the effective config: the --config file when
// given, otherwise the project's own config file or the defaults.
func loadConfig(root string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadForProject(root)
}
