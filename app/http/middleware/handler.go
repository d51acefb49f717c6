// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package middleware provides shared Gin middleware for the admin HTTP
// surface.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/seakee/jobstore/app/pkg/trace"
	"github.com/sk-pkg/logger"
)

type (
	// Middleware groups all middleware factories used by routers.
	Middleware interface {
		// Cors adds CORS headers and handles preflight requests.
		Cors() gin.HandlerFunc

		// RequestLogger emits structured logs for incoming requests.
		RequestLogger() gin.HandlerFunc

		// SetTraceID attaches trace IDs to requests and responses.
		SetTraceID() gin.HandlerFunc
	}

	// middleware is the default Middleware implementation.
	middleware struct {
		logger  *logger.Manager
		traceID *trace.ID
	}
)

// New creates a middleware factory with shared runtime dependencies.
//
// Parameters:
//   - logger: structured logger manager.
//   - traceID: trace ID generator.
//
// Returns:
//   - Middleware: middleware factory ready to register into Gin.
func New(logger *logger.Manager, traceID *trace.ID) Middleware {
	return &middleware{logger: logger, traceID: traceID}
}
