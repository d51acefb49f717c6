// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"time"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobRepo isolates jobstore's job-collection access behind a narrow
// interface, the way the teacher's app/repository packages wrap a model
// behind a Repo interface. Documents cross this boundary as bson.M rather
// than *model.Job so store/codec.go's opaque data-map encoding is what
// actually lands in the collection; a mongoJobRepo backs production use,
// a fakeJobRepo (store/fakes_test.go) backs tests.
type JobRepo interface {
	Insert(ctx context.Context, doc bson.M) error
	FindByKey(ctx context.Context, key model.Key) (bson.M, bool, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, bool, error)
	ReplaceByKey(ctx context.Context, key model.Key, doc bson.M) error
	DeleteByKey(ctx context.Context, key model.Key) (bool, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
	Keys(ctx context.Context, matcher model.GroupMatcher) ([]model.Key, error)
	GroupNames(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// TriggerRepo isolates jobstore's trigger-collection access. Like JobRepo,
// it trades in bson.M documents rather than *model.Trigger.
type TriggerRepo interface {
	Insert(ctx context.Context, doc bson.M) error
	FindByKey(ctx context.Context, key model.Key) (bson.M, bool, error)
	ReplaceByKey(ctx context.Context, key model.Key, doc bson.M) error
	DeleteByKey(ctx context.Context, key model.Key) (bool, error)
	DeleteByJobID(ctx context.Context, jobID primitive.ObjectID) (int64, error)
	CountByJobID(ctx context.Context, jobID primitive.ObjectID) (int64, error)
	ForJobID(ctx context.Context, jobID primitive.ObjectID) ([]bson.M, error)
	Keys(ctx context.Context, matcher model.GroupMatcher) ([]model.Key, error)
	GroupNames(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)

	// FindDue returns a cursor over waiting triggers with nextFireTime <=
	// notAfter or with no nextFireTime at all, sorted ascending by
	// nextFireTime (spec §4.H step 1).
	FindDue(ctx context.Context, notAfter time.Time) (DueCursor, error)

	// UpdateStateByKey performs the single-document compare-and-set that
	// backs every §4.G transition. There is deliberately no bulk
	// "UpdateStateByMatcher"-style sibling: pausedStateFor/resumedStateFor
	// map each trigger's *current* state individually (blocked triggers
	// become paused-blocked, not paused), so group- and job-level pause
	// calls in store/state.go fan out over UpdateStateByKey per trigger
	// rather than issuing one unconditional bulk write.
	UpdateStateByKey(ctx context.Context, key model.Key, from, to model.TriggerState) (bool, error)
}

// DueCursor streams due trigger documents one at a time so the acquisition
// protocol can claim-or-skip without materializing the whole batch up front.
type DueCursor interface {
	Next(ctx context.Context) bool
	Trigger() bson.M
	Err() error
	Close(ctx context.Context) error
}

// CalendarRepo isolates jobstore's calendar-collection access.
type CalendarRepo interface {
	Upsert(ctx context.Context, cal *model.Calendar, replace bool) (existed bool, err error)
	FindByName(ctx context.Context, name string) (*model.Calendar, bool, error)
	DeleteByName(ctx context.Context, name string) (bool, error)
}

// LockRepo isolates jobstore's locks-collection access. The same interface
// backs both trigger locks and job-concurrency locks (spec §3: distinguished
// solely by name convention).
type LockRepo interface {
	Insert(ctx context.Context, lock *model.Lock) error
	FindByKey(ctx context.Context, key model.Key) (*model.Lock, bool, error)
	DeleteByKey(ctx context.Context, key model.Key) (bool, error)
	DeleteByInstanceID(ctx context.Context, instanceID string) error
}

// GroupRepo isolates jobstore's paused-groups collections (spec §3, §4.D).
type GroupRepo interface {
	Mark(ctx context.Context, kind model.PausedGroupKind, group string) error
	Unmark(ctx context.Context, kind model.PausedGroupKind, group string) error
	UnmarkMany(ctx context.Context, kind model.PausedGroupKind, groups []string) error
	IsPaused(ctx context.Context, kind model.PausedGroupKind, group string) (bool, error)
	All(ctx context.Context, kind model.PausedGroupKind) ([]string, error)
}
