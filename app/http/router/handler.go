// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package router wires the admin HTTP route group onto the job store. It is
// a read-only inspection surface: nothing here mutates schedule state, since
// mutation is the runtime's job (spec §1 scopes a scheduling main loop out
// of this repository).
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/seakee/jobstore/app/http/middleware"
	"github.com/seakee/jobstore/store"
	"github.com/sk-pkg/logger"
)

// Core bundles the dependencies admin handlers need.
type Core struct {
	Logger     *logger.Manager
	Store      *store.Store
	Middleware middleware.Middleware
}

// New registers the admin API group under /jobstore/admin.
//
// Parameters:
//   - mux: gin engine that receives route registrations.
//   - core: shared dependency container for handlers.
//
// Returns:
//   - *gin.Engine: the same engine after route registration.
func New(mux *gin.Engine, core *Core) *gin.Engine {
	api := mux.Group("jobstore")
	admin(api.Group("admin"), core)
	return mux
}

// admin registers the read-only inspection endpoints.
//
// Parameters:
//   - api: route group for admin endpoints.
//   - core: shared dependency container.
//
// Returns:
//   - None.
func admin(api *gin.RouterGroup, core *Core) {
	api.GET("ping", core.ping)
	api.GET("jobs", core.listJobGroups)
	api.GET("jobs/:group/:name", core.getJob)
	api.GET("triggers", core.listTriggerGroups)
	api.GET("triggers/:group/:name", core.getTrigger)
	api.GET("paused-groups", core.pausedGroups)
	api.GET("stats", core.stats)
}
