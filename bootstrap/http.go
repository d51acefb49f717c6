// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seakee/jobstore/app/http/middleware"
	"github.com/seakee/jobstore/app/http/router"
	"go.uber.org/zap"
)

// startHTTPServer creates and runs the Gin-backed HTTP server.
//
// Parameters:
//   - ctx: trace-aware context used for startup and fatal logs.
//
// Returns:
//   - None.
//
// Behavior:
//   - Builds router core dependencies.
//   - Applies timeout and header size limits from config.
//   - Terminates the process only for unexpected ListenAndServe errors.
func (a *App) startHTTPServer(ctx context.Context) {
	gin.SetMode(a.Config.System.RunMode)

	core := &router.Core{
		Logger:     a.Logger,
		Store:      a.Store,
		Middleware: a.Middleware,
	}

	serverHandler := router.New(a.Mux, core)

	readTimeout := a.Config.System.ReadTimeout * time.Second
	writeTimeout := a.Config.System.WriteTimeout * time.Second
	maxHeaderBytes := 1 << 20

	server := &http.Server{
		Addr:           a.Config.System.HTTPPort,
		Handler:        serverHandler,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}

	// Start listening for incoming HTTP requests.
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Logger.Fatal(ctx, "http server startup err", zap.Error(err))
	}
}

// loadMux initializes the Gin engine and shared middlewares.
//
// Parameters:
//   - ctx: trace-aware context used for initialization logs.
//
// Returns:
//   - None.
func (a *App) loadMux(ctx context.Context) {
	mux := gin.New()

	mux.Use(a.Middleware.SetTraceID())

	if a.Config.System.DebugMode {
		mux.Use(a.Middleware.RequestLogger())
	}

	mux.Use(a.Middleware.Cors())
	mux.Use(gin.Recovery())

	a.Mux = mux

	a.Logger.Info(ctx, "Mux loaded successfully")
}

// loadHTTPMiddlewares builds middleware dependencies shared by all routes.
//
// Parameters:
//   - ctx: trace-aware context used for initialization logs.
//
// Returns:
//   - None.
func (a *App) loadHTTPMiddlewares(ctx context.Context) {
	a.Middleware = middleware.New(a.Logger, a.TraceID)
	a.Logger.Info(ctx, "Middlewares loaded successfully")
}
