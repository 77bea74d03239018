// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all analysis routes with the router.
//
// Description:
//
//	Registers all /v1/analysis/* endpoints with the given Gin router
//	group. The group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/analysis/init - Build or refresh a project graph
//	GET  /v1/analysis/graph/dump - Export the import graph
//	GET  /v1/analysis/cycles - Report import cycles
//	GET  /v1/analysis/symbols - Facet lookup over the symbol index
//	GET  /v1/analysis/impact - Blast-radius query for a symbol or file
//	GET  /v1/analysis/unused - Likely-unused public symbols
//	GET  /v1/analysis/critical - Heavily depended-upon symbols
//
// Snapshot Endpoints:
//
//	POST /v1/analysis/snapshot - Persist the current graph
//	GET  /v1/analysis/snapshots - List stored snapshots
//	GET  /v1/analysis/snapshot/diff - Diff current graph vs latest snapshot
//
// Health Endpoints:
//
//	GET  /v1/analysis/health - Health check
//	GET  /v1/analysis/ready - Readiness check
//
// Example:
//
//	service := analysis.NewService(cfg)
//	handlers := analysis.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	analysis.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	a := rg.Group("/analysis")
	{
		// Graph lifecycle
		a.POST("/init", handlers.HandleInit)

		// Import graph queries
		a.GET("/graph/dump", handlers.HandleGraphDump)
		a.GET("/cycles", handlers.HandleCycles)

		// Symbol queries
		a.GET("/symbols", handlers.HandleSymbols)
		a.GET("/impact", handlers.HandleImpact)
		a.GET("/unused", handlers.HandleUnused)
		a.GET("/critical", handlers.HandleCritical)

		// Snapshot persistence (diff must be registered before any :id
		// style wildcard that may be added later)
		a.GET("/snapshot/diff", handlers.HandleDiffSnapshot)
		a.POST("/snapshot", handlers.HandleSaveSnapshot)
		a.GET("/snapshots", handlers.HandleListSnapshots)

		// Health checks
		a.GET("/health", handlers.HandleHealth)
		a.GET("/ready", handlers.HandleReady)
	}
}
