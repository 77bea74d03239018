// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/beringlabs/bering/services/analysis/ast"
	"github.com/beringlabs/bering/services/analysis/graph"
	"github.com/beringlabs/bering/services/analysis/project"
	"github.com/beringlabs/bering/services/analysis/storage/badger"
)

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handlers holds the HTTP handlers for the analysis API.
type Handlers struct {
	service *Service
}

// NewHandlers creates handlers around a service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Header("X-Request-ID", id)
	return id
}

// InitRequest is the body of POST /v1/analysis/init.
type InitRequest struct {
	Root string `json:"root" binding:"required"`
}

// InitResponse summarizes a freshly built (or cache-served) graph.
type InitResponse struct {
	Root      string      `json:"root"`
	Signature string      `json:"signature"`
	Languages []string    `json:"languages"`
	Files     int         `json:"files"`
	Stats     graph.Stats `json:"stats"`
	Symbols   int         `json:"symbols"`
	Edges     int         `json:"dependency_edges"`
	DurationS float64     `json:"build_duration_seconds"`
}

// HandleInit handles POST /v1/analysis/init.
//
// Description:
//
//	Builds the project graph for the requested root, or serves it from
//	the session cache when the content signature is unchanged.
//
// Response:
//
//	200 OK: InitResponse
//	400 Bad Request: missing root
//	500 Internal Server Error: build failure
func (h *Handlers) HandleInit(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleInit")

	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "root is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	g, err := h.service.graphFor(c.Request.Context(), req.Root)
	if err != nil {
		logger.Error("graph build failed", "root", req.Root, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "BUILD_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, InitResponse{
		Root:      g.Root,
		Signature: g.Signature,
		Languages: g.Languages,
		Files:     len(g.Files),
		Stats:     g.Imports.Stats(),
		Symbols:   g.Symbols.Stats().TotalSymbols,
		Edges:     g.Dependencies.EdgeCount(),
		DurationS: g.Duration.Seconds(),
	})
}

// HandleGraphDump handles GET /v1/analysis/graph/dump.
//
// Query Parameters:
//
//	root: project root directory (required)
//
// Response:
//
//	200 OK: graph.Dump
func (h *Handlers) HandleGraphDump(c *gin.Context) {
	g, ok := h.requireGraph(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, g.Imports.ToDump())
}

// CycleReport is one import cycle with its minimal example.
type CycleReport struct {
	Modules      []string    `json:"modules"`
	Size         int         `json:"size"`
	MinimalCycle [][2]string `json:"minimal_cycle"`
}

// HandleCycles handles GET /v1/analysis/cycles.
//
// Query Parameters:
//
//	root: project root directory (required)
//
// Response:
//
//	200 OK: {"cycles": [CycleReport]}
func (h *Handlers) HandleCycles(c *gin.Context) {
	g, ok := h.requireGraph(c)
	if !ok {
		return
	}

	cycles := make([]CycleReport, 0)
	for _, scc := range g.Imports.SCCs() {
		if !scc.IsCycle() {
			continue
		}
		report := CycleReport{Modules: scc.Modules, Size: len(scc.Modules)}
		for _, e := range g.Imports.MinimalCycleExample(scc) {
			report.MinimalCycle = append(report.MinimalCycle, [2]string{e.Src, e.Dst})
		}
		cycles = append(cycles, report)
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

// HandleSymbols handles GET /v1/analysis/symbols.
//
// Description:
//
//	Facet lookup over the symbol index. Exactly one facet parameter
//	selects the lookup; with none, index stats are returned.
//
// Query Parameters:
//
//	root: project root directory (required)
//	name: exact symbol name
//	qualified_name: "path::name" lookup
//	kind: symbol kind ("function", "class", ...)
//	file: file path, relative to root
//	language: adapter language name
//	pattern: regular expression over names, optionally combined with kind
//	visibility: "public", "private", "protected" or "internal"
//	limit: maximum symbols returned, default 200
//
// Response:
//
//	200 OK: {"symbols": [...], "total": n} or {"stats": {...}}
func (h *Handlers) HandleSymbols(c *gin.Context) {
	g, ok := h.requireGraph(c)
	if !ok {
		return
	}

	limit := 200
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var symbols []*ast.Symbol
	switch {
	case c.Query("qualified_name") != "":
		symbols = g.Symbols.FindByQualifiedName(c.Query("qualified_name"))
	case c.Query("name") != "":
		symbols = g.Symbols.FindByName(c.Query("name"))
	case c.Query("pattern") != "":
		symbols = g.Symbols.FindByPattern(c.Query("pattern"), ast.SymbolKind(c.Query("kind")))
	case c.Query("kind") != "":
		symbols = g.Symbols.FindByKind(ast.SymbolKind(c.Query("kind")))
	case c.Query("file") != "":
		symbols = g.Symbols.FindByFile(c.Query("file"))
	case c.Query("language") != "":
		symbols = g.Symbols.FindByLanguage(c.Query("language"))
	case c.Query("visibility") != "":
		symbols = g.Symbols.FindByVisibility(ast.Visibility(c.Query("visibility")))
	default:
		c.JSON(http.StatusOK, gin.H{"stats": g.Symbols.Stats()})
		return
	}

	total := len(symbols)
	if len(symbols) > limit {
		symbols = symbols[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols, "total": total})
}

// HandleImpact handles GET /v1/analysis/impact.
//
// Description:
//
//	Blast-radius query: what depends on a symbol or a file. Symbol
//	queries also return the transitive dependency chain up to depth.
//
// Query Parameters:
//
//	root: project root directory (required)
//	symbol: qualified name ("path::name"), mutually exclusive with file
//	file: file path relative to root
//	depth: transitive chain depth, default 3
//
// Response:
//
//	200 OK: impacted symbols/files
//	400 Bad Request: neither symbol nor file given
func (h *Handlers) HandleImpact(c *gin.Context) {
	g, ok := h.requireGraph(c)
	if !ok {
		return
	}

	if file := c.Query("file"); file != "" {
		c.JSON(http.StatusOK, gin.H{
			"file":           file,
			"impacted_files": g.Dependencies.GetImpactedFiles(file, g.Symbols),
		})
		return
	}

	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "symbol or file parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	depth := 3
	if raw := c.Query("depth"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			depth = parsed
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":           symbol,
		"impacted_symbols": g.Dependencies.GetImpactedSymbols(symbol),
		"dependencies":     g.Dependencies.GetDependenciesOf(symbol),
		"chain":            g.Dependencies.GetDependencyChain(symbol, depth),
	})
}

// HandleUnused handles GET /v1/analysis/unused.
//
// Response:
//
//	200 OK: {"unused": [UnusedSymbol]}
func (h *Handlers) HandleUnused(c *gin.Context) {
	g, ok := h.requireGraph(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"unused": g.Dependencies.GetUnusedSymbols(g.Symbols)})
}

// HandleCritical handles GET /v1/analysis/critical.
//
// Query Parameters:
//
//	root: project root directory (required)
//	threshold: minimum dependent count, default 10
//
// Response:
//
//	200 OK: {"critical": [CriticalSymbol]}
func (h *Handlers) HandleCritical(c *gin.Context) {
	g, ok := h.requireGraph(c)
	if !ok {
		return
	}
	threshold := 10
	if raw := c.Query("threshold"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			threshold = parsed
		}
	}
	c.JSON(http.StatusOK, gin.H{"critical": g.Dependencies.GetCriticalDependencies(threshold)})
}

// HandleSaveSnapshot handles POST /v1/analysis/snapshot.
//
// Response:
//
//	200 OK: {"signature": ...}
//	503 Service Unavailable: no snapshot store configured
func (h *Handlers) HandleSaveSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSaveSnapshot")

	if h.service.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "snapshot persistence is not configured",
			Code:  "NO_SNAPSHOT_STORE",
		})
		return
	}

	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "root is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	g, err := h.service.graphFor(c.Request.Context(), req.Root)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "BUILD_FAILED"})
		return
	}
	snap := &badger.Snapshot{
		Root:      g.Root,
		Signature: g.Signature,
		TakenAt:   g.BuiltAt,
		Dump:      g.Imports.ToDump(),
	}
	if err := h.service.store.Save(snap); err != nil {
		logger.Error("snapshot save failed", "root", req.Root, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "SNAPSHOT_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"root": g.Root, "signature": g.Signature})
}

// HandleDiffSnapshot handles GET /v1/analysis/snapshot/diff.
//
// Description:
//
//	Compares the latest stored snapshot against the current graph.
//	With no stored snapshot, everything reads as added.
//
// Response:
//
//	200 OK: graph.DumpDiff
//	503 Service Unavailable: no snapshot store configured
func (h *Handlers) HandleDiffSnapshot(c *gin.Context) {
	if h.service.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "snapshot persistence is not configured",
			Code:  "NO_SNAPSHOT_STORE",
		})
		return
	}
	g, ok := h.requireGraph(c)
	if !ok {
		return
	}
	diff, err := h.service.store.DiffLatest(g.Root, g.Imports.ToDump())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "DIFF_FAILED"})
		return
	}
	c.JSON(http.StatusOK, diff)
}

// HandleListSnapshots handles GET /v1/analysis/snapshots.
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	if h.service.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "snapshot persistence is not configured",
			Code:  "NO_SNAPSHOT_STORE",
		})
		return
	}
	root := c.Query("root")
	if root == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "root parameter is required", Code: "MISSING_PARAMETER"})
		return
	}
	snaps, err := h.service.store.List(root)
	if err != nil && !errors.Is(err, badger.ErrSnapshotNotFound) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "LIST_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// HandleHealth handles GET /v1/analysis/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/analysis/ready. The service is ready as
// soon as it is up: graphs are built on demand.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "cached_graphs": h.service.session.Len()})
}

// requireGraph resolves the root query parameter into a project graph,
// writing the error response on failure.
func (h *Handlers) requireGraph(c *gin.Context) (*project.Graph, bool) {
	requestID := getOrCreateRequestID(c)

	root := c.Query("root")
	if root == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "root parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return nil, false
	}
	g, err := h.service.graphFor(c.Request.Context(), root)
	if err != nil {
		slog.Error("graph build failed", "request_id", requestID, "root", root, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "BUILD_FAILED",
		})
		return nil, false
	}
	return g, true
}
