// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all assistant routes with the router.
//
// Description:
//
//	Registers all /v1/assistant/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/assistant/query - Answer a disease/symptom question
//	GET  /v1/assistant/stats - Knowledge graph shape
//	GET  /v1/assistant/history - Answered query history
//	GET  /v1/assistant/health - Health check
//	GET  /v1/assistant/ready - Readiness check
//
// Example:
//
//	handlers := assistant.NewHandlers(service, logger)
//
//	v1 := router.Group("/v1")
//	assistant.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	assistant := rg.Group("/assistant")
	{
		// Query pipeline
		assistant.POST("/query", handlers.HandleQuery)

		// Read-side endpoints
		assistant.GET("/stats", handlers.HandleStats)
		assistant.GET("/history", handlers.HandleHistory)

		// Health checks
		assistant.GET("/health", handlers.HandleHealth)
		assistant.GET("/ready", handlers.HandleReady)
	}
}
