// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package store implements the shared schedule store: the persistence and
// coordination layer multiple scheduler nodes use to claim due triggers,
// run their jobs locally, and report completion, without ever allowing two
// nodes to claim the same fire (spec.md §1-§9).
package store

import (
	"context"
	"time"

	"github.com/seakee/jobstore/app/pkg/trace"
	"github.com/seakee/jobstore/model"
	"github.com/seakee/jobstore/triggershape"
	"github.com/sk-pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	defaultCollectionPrefix = "quartz_"
	defaultMisfireThreshold = 5 * time.Second
	defaultTriggerTimeout   = 10 * time.Minute
	defaultJobTimeout       = 10 * time.Minute
)

// Config holds the store's tunable knobs (spec §4.H, §6). Connection
// parameters (mongoUri, addresses, credentials, pooling) are deliberately
// absent: spec §1 treats wire transport as an external collaborator, so
// callers build their own *mongo.Database and pass it to New.
type Config struct {
	// InstanceID identifies this scheduler node; imprinted on every lock it
	// takes (spec's Instance id glossary entry). Required.
	InstanceID string

	// CollectionPrefix is prepended to every collection name. Defaults to
	// "quartz_".
	CollectionPrefix string

	// MisfireThreshold is how far nextFireTime may lag "now" before a
	// trigger is considered misfired. Defaults to 5s.
	MisfireThreshold time.Duration

	// TriggerTimeout is how long a trigger lock may be held before another
	// node may reclaim it as stale. Defaults to 10m.
	TriggerTimeout time.Duration

	// JobTimeout is the equivalent timeout for job-concurrency locks.
	// Defaults to 10m.
	JobTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.CollectionPrefix == "" {
		c.CollectionPrefix = defaultCollectionPrefix
	}
	if c.MisfireThreshold <= 0 {
		c.MisfireThreshold = defaultMisfireThreshold
	}
	if c.TriggerTimeout <= 0 {
		c.TriggerTimeout = defaultTriggerTimeout
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}
}

func (c Config) validate() error {
	if c.InstanceID == "" {
		return &ConfigErr{Reason: "instanceId is required for cluster safety"}
	}
	return nil
}

// Signaler is the external collaborator notified of misfire and
// scheduling-change events (spec §4.H "notify the external signaler",
// glossary "Misfire"). signal.LogSignaler and signal.FeishuSignaler are the
// two implementations this repository ships.
type Signaler interface {
	TriggerMisfired(ctx context.Context, t *model.Trigger)
	TriggerFinalized(ctx context.Context, t *model.Trigger)
	SchedulingChanged(ctx context.Context)
}

// noopSignaler is used when the caller supplies none.
type noopSignaler struct{}

func (noopSignaler) TriggerMisfired(context.Context, *model.Trigger)  {}
func (noopSignaler) TriggerFinalized(context.Context, *model.Trigger) {}
func (noopSignaler) SchedulingChanged(context.Context)                {}

// Store is the shared schedule store described throughout spec.md. All of
// its methods are safe for concurrent invocation by multiple worker
// threads within one node (spec §5), and by multiple nodes sharing the
// same underlying database.
type Store struct {
	cfg Config
	db  *mongo.Database

	jobs      JobRepo
	triggers  TriggerRepo
	calendars CalendarRepo
	locks     LockRepo
	groups    GroupRepo

	registry       *triggershape.Registry
	signaler       Signaler
	groupCacheImpl GroupCache

	log     *logger.Manager
	traceID *trace.ID
}

// Option customizes Store construction.
type Option func(*Store)

// WithSignaler overrides the default no-op Signaler.
func WithSignaler(s Signaler) Option {
	return func(st *Store) { st.signaler = s }
}

// WithRegistry overrides the default trigger-shape registry (spec §4.B).
func WithRegistry(r *triggershape.Registry) Option {
	return func(st *Store) { st.registry = r }
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *logger.Manager) Option {
	return func(st *Store) { st.log = l }
}

// WithTraceID overrides the default trace.ID generator.
func WithTraceID(t *trace.ID) Option {
	return func(st *Store) { st.traceID = t }
}

// WithGroupCache installs a read-through cache in front of the paused-group
// collections (spec SPEC_FULL §4 supplement). Absent an explicit cache, the
// store reads Mongo directly on every call.
func WithGroupCache(c GroupCache) Option {
	return func(st *Store) { st.groupCacheImpl = c }
}

// New builds a Store backed by db, an already-connected database handle
// (wire transport, auth, and pooling are the caller's responsibility per
// spec §1's non-goals). It returns a ConfigErr if cfg.InstanceID is empty.
func New(db *mongo.Database, cfg Config, opts ...Option) (*Store, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := cfg.CollectionPrefix
	st := &Store{
		cfg:       cfg,
		db:        db,
		jobs:      newMongoJobRepo(db.Collection(p + "jobs")),
		triggers:  newMongoTriggerRepo(db.Collection(p + "triggers")),
		calendars: newMongoCalendarRepo(db.Collection(p + "calendars")),
		locks: newMongoLockRepo(db.Collection(p+"locks",
			options.Collection().SetWriteConcern(writeconcern.Journaled()))),
		groups: newMongoGroupRepo(
			db.Collection(p+string(model.PausedTriggerGroups)),
			db.Collection(p+string(model.PausedJobGroups)),
		),
		registry:       triggershape.DefaultRegistry(),
		signaler:       noopSignaler{},
		groupCacheImpl: noopGroupCache{},
		traceID:        trace.NewTraceID(),
	}

	for _, opt := range opts {
		opt(st)
	}

	return st, nil
}

// InstanceID returns this store's configured node identifier.
func (s *Store) InstanceID() string { return s.cfg.InstanceID }
