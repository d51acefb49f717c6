// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package bootstrap initializes service dependencies and starts the admin
// HTTP surface over a store.Store.
package bootstrap

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seakee/jobstore/app"
	"github.com/seakee/jobstore/app/http/middleware"
	"github.com/seakee/jobstore/app/pkg/trace"
	"github.com/seakee/jobstore/signal"
	"github.com/seakee/jobstore/store"
	"github.com/sk-pkg/feishu"
	"github.com/sk-pkg/logger"
	"github.com/sk-pkg/redis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App stores initialized dependencies required by the HTTP admin surface.
type App struct {
	Config     *app.Config
	Logger     *logger.Manager
	Redis      map[string]*redis.Manager
	Mongo      *mongo.Client
	Store      *store.Store
	Middleware middleware.Middleware
	Mux        *gin.Engine
	Feishu     *feishu.Manager
	TraceID    *trace.ID
}

// NewApp creates a fully initialized application container.
//
// Parameters:
//   - config: parsed runtime configuration loaded from JSON files.
//
// Returns:
//   - *App: initialized app with logger, redis, mongo, store, and router.
//   - error: returned when any dependency initialization step fails.
//
// Example:
//
//	cfg, _ := app.LoadConfig()
//	a, err := bootstrap.NewApp(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
func NewApp(config *app.Config) (*App, error) {
	a := &App{Config: config, Redis: map[string]*redis.Manager{}}

	// Trace IDs must be ready before logger initialization.
	a.loadTrace()

	ctx := context.WithValue(context.Background(), logger.TraceIDKey, a.TraceID.New())

	err := a.loadLogger(ctx)
	if err != nil {
		return nil, err
	}

	err = a.loadRedis(ctx)
	if err != nil {
		return nil, err
	}

	err = a.loadFeishu(ctx)
	if err != nil {
		return nil, err
	}

	err = a.loadMongo(ctx)
	if err != nil {
		return nil, err
	}

	err = a.loadStore(ctx)
	if err != nil {
		return nil, err
	}

	a.loadHTTPMiddlewares(ctx)
	a.loadMux(ctx)

	return a, nil
}

// Start launches the admin HTTP server.
//
// Returns:
//   - None.
func (a *App) Start() {
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, a.TraceID.New())
	go a.startHTTPServer(ctx)
}

// loadTrace initializes the trace ID generator.
//
// Returns:
//   - None.
func (a *App) loadTrace() {
	a.TraceID = trace.NewTraceID()
}

// loadLogger initializes the logger manager.
//
// Parameters:
//   - ctx: trace-aware context used for initialization logs.
//
// Returns:
//   - error: returned when logger initialization fails.
func (a *App) loadLogger(ctx context.Context) error {
	var err error
	a.Logger, err = logger.New(
		logger.WithLevel(a.Config.Log.Level),
		logger.WithDriver(a.Config.Log.Driver),
		logger.WithLogPath(a.Config.Log.LogPath),
	)

	if err == nil {
		a.Logger.Info(ctx, "Loggers loaded successfully")
	}

	return err
}

// loadRedis initializes configured Redis clients and stores them by name.
//
// Parameters:
//   - ctx: trace-aware context used for initialization logs.
//
// Returns:
//   - error: returned when creating any enabled Redis client fails.
func (a *App) loadRedis(ctx context.Context) error {
	for _, cfg := range a.Config.Redis {
		if cfg.Enable {
			r, err := redis.New(
				redis.WithPrefix(cfg.Prefix),
				redis.WithAddress(cfg.Host),
				redis.WithPassword(cfg.Auth),
				redis.WithIdleTimeout(cfg.IdleTimeout*time.Minute),
				redis.WithMaxActive(cfg.MaxActive),
				redis.WithMaxIdle(cfg.MaxIdle),
				redis.WithDB(cfg.DB),
			)

			if err != nil {
				return err
			}

			a.Redis[cfg.Name] = r
		}
	}

	a.Logger.Info(ctx, "Redis loaded successfully")

	return nil
}

// loadFeishu initializes Feishu integration when enabled.
//
// Parameters:
//   - ctx: trace-aware context used for initialization logs.
//
// Returns:
//   - error: returned when Feishu initialization fails.
func (a *App) loadFeishu(ctx context.Context) error {
	var err error

	if a.Config.Feishu.Enable {
		a.Feishu, err = feishu.New(
			feishu.WithGroupWebhook(a.Config.Feishu.GroupWebhook),
			feishu.WithAppID(a.Config.Feishu.AppID),
			feishu.WithAppSecret(a.Config.Feishu.AppSecret),
			feishu.WithEncryptKey(a.Config.Feishu.EncryptKey),
			feishu.WithRedis(a.Redis["jobstore"]),
			feishu.WithLog(a.Logger.Zap),
		)

		if err == nil {
			a.Logger.Info(ctx, "Feishu loaded successfully")
		}
	}

	return err
}

// loadMongo connects to the shared document store every node coordinates
// through. This fills the dockmon teacher's `case "mongo":` TODO stub with
// the one database this service actually depends on.
//
// Parameters:
//   - ctx: trace-aware context used for initialization logs.
//
// Returns:
//   - error: returned when the client cannot be constructed or pinged.
func (a *App) loadMongo(ctx context.Context) error {
	timeout := a.Config.Mongo.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	} else {
		timeout *= time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(a.Config.Mongo.URI)
	if a.Config.Mongo.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(a.Config.Mongo.MaxPoolSize)
	}

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return err
	}

	a.Mongo = client
	a.Logger.Info(ctx, "Mongo loaded successfully")

	return nil
}

// loadStore builds the job-store coordination layer on top of the Mongo
// client and bootstraps its indexes and this node's own stale locks.
//
// Parameters:
//   - ctx: trace-aware context used for initialization logs.
//
// Returns:
//   - error: returned when store construction or bootstrap fails.
func (a *App) loadStore(ctx context.Context) error {
	cfg := store.Config{
		InstanceID:       a.Config.Store.InstanceID,
		CollectionPrefix: a.Config.Store.CollectionPrefix,
		MisfireThreshold: a.Config.Store.MisfireThreshold * time.Second,
		TriggerTimeout:   a.Config.Store.TriggerLockTimeout * time.Second,
		JobTimeout:       a.Config.Store.JobLockTimeout * time.Second,
	}

	opts := []store.Option{
		store.WithLogger(a.Logger),
		store.WithTraceID(a.TraceID),
	}

	if r, ok := a.Redis["jobstore"]; ok {
		opts = append(opts, store.WithGroupCache(store.NewRedisGroupCache(r, 0)))
	}
	if a.Feishu != nil {
		opts = append(opts, store.WithSignaler(signal.NewFeishuSignaler(a.Feishu)))
	} else {
		opts = append(opts, store.WithSignaler(signal.NewLogSignaler(a.Logger)))
	}

	s, err := store.New(a.Mongo.Database(a.Config.Mongo.Database), cfg, opts...)
	if err != nil {
		return err
	}

	if err := s.Bootstrap(ctx); err != nil {
		return err
	}

	a.Store = s
	a.Logger.Info(ctx, "Store loaded successfully")

	return nil
}
