// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seakee/jobstore/model"
	"github.com/seakee/jobstore/triggershape"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func defaultTestRegistry() *triggershape.Registry { return triggershape.DefaultRegistry() }

// newTestStore builds a Store wired entirely to the in-memory fakes in
// this file, letting every *_test.go in this package exercise Store's
// logic without a live Mongo deployment.
func newTestStore(instanceID string) *Store {
	cfg := Config{InstanceID: instanceID}
	cfg.applyDefaults()
	return &Store{
		cfg:            cfg,
		jobs:           newFakeJobRepo(),
		triggers:       newFakeTriggerRepo(),
		calendars:      newFakeCalendarRepo(),
		locks:          newFakeLockRepo(),
		groups:         newFakeGroupRepo(),
		registry:       defaultTestRegistry(),
		signaler:       noopSignaler{},
		groupCacheImpl: noopGroupCache{},
	}
}

// fakeJobRepo is an in-memory JobRepo used by every test in this package
// so tests exercise Store's logic without a live Mongo deployment.
type fakeJobRepo struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]bson.M
}

func newFakeJobRepo() *fakeJobRepo { return &fakeJobRepo{docs: map[primitive.ObjectID]bson.M{}} }

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func docKey(doc bson.M) model.Key {
	if k, ok := doc["key"].(model.Key); ok {
		return k
	}
	return model.Key{}
}

func (r *fakeJobRepo) Insert(_ context.Context, doc bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}
	for _, existing := range r.docs {
		if docKey(existing) == docKey(doc) {
			return &mongoDuplicateKeyErr{}
		}
	}
	r.docs[id] = cloneDoc(doc)
	return nil
}

func (r *fakeJobRepo) FindByKey(_ context.Context, key model.Key) (bson.M, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if docKey(doc) == key {
			return cloneDoc(doc), true, nil
		}
	}
	return nil, false, nil
}

func (r *fakeJobRepo) FindByID(_ context.Context, id primitive.ObjectID) (bson.M, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, false, nil
	}
	return cloneDoc(doc), true, nil
}

func (r *fakeJobRepo) ReplaceByKey(_ context.Context, key model.Key, doc bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.docs {
		if docKey(existing) == key {
			if _, ok := doc["_id"]; !ok {
				doc["_id"] = id
			}
			r.docs[id] = cloneDoc(doc)
			return nil
		}
	}
	return nil
}

func (r *fakeJobRepo) DeleteByKey(_ context.Context, key model.Key) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, doc := range r.docs {
		if docKey(doc) == key {
			delete(r.docs, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeJobRepo) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *fakeJobRepo) Keys(_ context.Context, matcher model.GroupMatcher) ([]model.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []model.Key
	for _, doc := range r.docs {
		k := docKey(doc)
		if matchesGroup(matcher, k.Group) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (r *fakeJobRepo) GroupNames(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	for _, doc := range r.docs {
		seen[docKey(doc).Group] = struct{}{}
	}
	return setToSortedSlice(seen), nil
}

func (r *fakeJobRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.docs)), nil
}

// fakeTriggerRepo is an in-memory TriggerRepo.
type fakeTriggerRepo struct {
	mu   sync.Mutex
	docs map[model.Key]bson.M
}

func newFakeTriggerRepo() *fakeTriggerRepo { return &fakeTriggerRepo{docs: map[model.Key]bson.M{}} }

func (r *fakeTriggerRepo) Insert(_ context.Context, doc bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := docKey(doc)
	if _, exists := r.docs[k]; exists {
		return &mongoDuplicateKeyErr{}
	}
	r.docs[k] = cloneDoc(doc)
	return nil
}

func (r *fakeTriggerRepo) FindByKey(_ context.Context, key model.Key) (bson.M, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[key]
	if !ok {
		return nil, false, nil
	}
	return cloneDoc(doc), true, nil
}

func (r *fakeTriggerRepo) ReplaceByKey(_ context.Context, key model.Key, doc bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[key]; !ok {
		return nil
	}
	r.docs[key] = cloneDoc(doc)
	return nil
}

func (r *fakeTriggerRepo) DeleteByKey(_ context.Context, key model.Key) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[key]; !ok {
		return false, nil
	}
	delete(r.docs, key)
	return true, nil
}

func (r *fakeTriggerRepo) DeleteByJobID(_ context.Context, jobID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, doc := range r.docs {
		if id, _ := doc["jobId"].(primitive.ObjectID); id == jobID {
			delete(r.docs, k)
			n++
		}
	}
	return n, nil
}

func (r *fakeTriggerRepo) CountByJobID(_ context.Context, jobID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, doc := range r.docs {
		if id, _ := doc["jobId"].(primitive.ObjectID); id == jobID {
			n++
		}
	}
	return n, nil
}

func (r *fakeTriggerRepo) ForJobID(_ context.Context, jobID primitive.ObjectID) ([]bson.M, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bson.M
	for _, doc := range r.docs {
		if id, _ := doc["jobId"].(primitive.ObjectID); id == jobID {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}

func (r *fakeTriggerRepo) Keys(_ context.Context, matcher model.GroupMatcher) ([]model.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []model.Key
	for k := range r.docs {
		if matchesGroup(matcher, k.Group) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (r *fakeTriggerRepo) GroupNames(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	for k := range r.docs {
		seen[k.Group] = struct{}{}
	}
	return setToSortedSlice(seen), nil
}

func (r *fakeTriggerRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.docs)), nil
}

func (r *fakeTriggerRepo) FindDue(_ context.Context, notAfter time.Time) (DueCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []bson.M
	for _, doc := range r.docs {
		if model.TriggerState(toString(doc["state"])) != model.StateWaiting {
			continue
		}
		nft, ok := doc["nextFireTime"]
		if !ok || nft == nil {
			due = append(due, cloneDoc(doc))
			continue
		}
		if t, ok := nft.(time.Time); ok && !t.After(notAfter) {
			due = append(due, cloneDoc(doc))
		}
	}

	sort.Slice(due, func(i, j int) bool {
		ti, oki := due[i]["nextFireTime"].(time.Time)
		tj, okj := due[j]["nextFireTime"].(time.Time)
		if !oki {
			return false
		}
		if !okj {
			return true
		}
		return ti.Before(tj)
	})

	return &fakeDueCursor{docs: due, idx: -1}, nil
}

func (r *fakeTriggerRepo) UpdateStateByKey(_ context.Context, key model.Key, from, to model.TriggerState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[key]
	if !ok {
		return false, nil
	}
	if from != "" && model.TriggerState(toString(doc["state"])) != from {
		return false, nil
	}
	doc["state"] = string(to)
	return true, nil
}

type fakeDueCursor struct {
	docs []bson.M
	idx  int
}

func (c *fakeDueCursor) Next(context.Context) bool {
	c.idx++
	return c.idx < len(c.docs)
}
func (c *fakeDueCursor) Trigger() bson.M          { return c.docs[c.idx] }
func (c *fakeDueCursor) Err() error               { return nil }
func (c *fakeDueCursor) Close(context.Context) error { return nil }

// fakeCalendarRepo is an in-memory CalendarRepo.
type fakeCalendarRepo struct {
	mu    sync.Mutex
	byName map[string]*model.Calendar
}

func newFakeCalendarRepo() *fakeCalendarRepo {
	return &fakeCalendarRepo{byName: map[string]*model.Calendar{}}
}

func (r *fakeCalendarRepo) Upsert(_ context.Context, cal *model.Calendar, replace bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.byName[cal.Name]
	if existed && !replace {
		return true, nil
	}
	c := *cal
	r.byName[cal.Name] = &c
	return existed, nil
}

func (r *fakeCalendarRepo) FindByName(_ context.Context, name string) (*model.Calendar, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byName[name]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (r *fakeCalendarRepo) DeleteByName(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byName[name]
	delete(r.byName, name)
	return ok, nil
}

// fakeLockRepo is an in-memory LockRepo.
type fakeLockRepo struct {
	mu    sync.Mutex
	locks map[model.Key]*model.Lock
}

func newFakeLockRepo() *fakeLockRepo { return &fakeLockRepo{locks: map[model.Key]*model.Lock{}} }

func (r *fakeLockRepo) Insert(_ context.Context, lock *model.Lock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[lock.Key]; ok {
		return &mongoDuplicateKeyErr{}
	}
	l := *lock
	r.locks[lock.Key] = &l
	return nil
}

func (r *fakeLockRepo) FindByKey(_ context.Context, key model.Key) (*model.Lock, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		return nil, false, nil
	}
	cp := *l
	return &cp, true, nil
}

func (r *fakeLockRepo) DeleteByKey(_ context.Context, key model.Key) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locks[key]
	delete(r.locks, key)
	return ok, nil
}

func (r *fakeLockRepo) DeleteByInstanceID(_ context.Context, instanceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, l := range r.locks {
		if l.InstanceID == instanceID {
			delete(r.locks, k)
		}
	}
	return nil
}

// fakeGroupRepo is an in-memory GroupRepo.
type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[model.PausedGroupKind]map[string]struct{}
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: map[model.PausedGroupKind]map[string]struct{}{
		model.PausedTriggerGroups: {},
		model.PausedJobGroups:     {},
	}}
}

func (r *fakeGroupRepo) Mark(_ context.Context, kind model.PausedGroupKind, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[kind][group] = struct{}{}
	return nil
}

func (r *fakeGroupRepo) Unmark(_ context.Context, kind model.PausedGroupKind, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[kind], group)
	return nil
}

func (r *fakeGroupRepo) UnmarkMany(_ context.Context, kind model.PausedGroupKind, groups []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range groups {
		delete(r.groups[kind], g)
	}
	return nil
}

func (r *fakeGroupRepo) IsPaused(_ context.Context, kind model.PausedGroupKind, group string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.groups[kind][group]
	return ok, nil
}

func (r *fakeGroupRepo) All(_ context.Context, kind model.PausedGroupKind) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := map[string]struct{}{}
	for g := range r.groups[kind] {
		set[g] = struct{}{}
	}
	return setToSortedSlice(set), nil
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// mongoDuplicateKeyErr is the fake repos' stand-in for a Mongo uniqueness
// violation; it satisfies repo_mongo.go's duplicateKeyErr interface so
// isDuplicateKeyErr recognizes it the same way it recognizes a real
// mongo.CommandError without depending on the driver.
type mongoDuplicateKeyErr struct{}

func (*mongoDuplicateKeyErr) Error() string        { return "duplicate key" }
func (*mongoDuplicateKeyErr) isDuplicateKey() bool { return true }
