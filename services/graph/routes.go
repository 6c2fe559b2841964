// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphsvc

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all graph routes with the router.
//
// Description:
//
//	Registers all /v1/graph/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/graph/repos/:repo/commits - Ingest one commit delta
//	GET  /v1/graph/repos/:repo/commits/:id/targets - List targets as of a commit
//	POST /v1/graph/repos/:repo/commits/:id/deps - Resolve dependencies as of a commit
//	POST /v1/graph/repos/:repo/compact - Compact old history
//	GET  /v1/graph/repos/:repo/stats - Storage statistics
//	GET  /v1/graph/repos - List repositories
//	GET  /v1/graph/health - Health check
//
// Example:
//
//	service := graphsvc.NewService(graphsvc.DefaultServiceConfig(), logger)
//	handlers := graphsvc.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	graphsvc.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	graph := rg.Group("/graph")
	{
		graph.GET("/health", handlers.HandleHealth)
		graph.GET("/repos", handlers.HandleListRepos)

		repos := graph.Group("/repos/:repo")
		{
			// Ingestion
			repos.POST("/commits", handlers.HandleIngest)

			// As-of queries
			repos.GET("/commits/:id/targets", handlers.HandleTargets)
			repos.POST("/commits/:id/deps", handlers.HandleDeps)

			// Maintenance
			repos.POST("/compact", handlers.HandleCompact)
			repos.GET("/stats", handlers.HandleStats)
		}
	}
}
