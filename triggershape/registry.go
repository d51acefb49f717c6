// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package triggershape is the trigger-shape persistence-helper registry
// (spec §4.B). Trigger-shape math itself — cron parsing, interval
// arithmetic — is an external collaborator the core store never inspects
// directly; this package is the one seam where a concrete shape's fields
// get written to and read from a document, and where its next-fire
// arithmetic lives. Adding a shape means writing a ShapeHelper and
// registering it here; no other package needs to change.
package triggershape

import (
	"time"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
)

// ShapeHelper is the per-trigger-shape adapter spec §4.B describes:
// canHandle, injectForStorage, hydrateAfterConstruct, plus the next-fire
// arithmetic a concrete shape alone knows how to do.
type ShapeHelper interface {
	// TypeTag is the stored typeTag this helper owns.
	TypeTag() string

	// CanHandle reports whether this helper recognizes t, used as the
	// registry's first-match fallback when a document's typeTag is blank
	// or unrecognized.
	CanHandle(t *model.Trigger) bool

	// InjectForStorage writes t's shape-specific configuration (held in
	// t.ShapeFields) onto doc as top-level fields.
	InjectForStorage(t *model.Trigger, doc bson.M) error

	// HydrateAfterConstruct reads shape-specific fields back from doc,
	// validates them, and populates t.ShapeFields. It also assigns
	// t.StartTime/t.EndTime exactly once (the teacher's source duplicated
	// this assignment; the duplication is not carried forward here).
	HydrateAfterConstruct(t *model.Trigger, doc bson.M) error

	// ComputeNextFire advances t's schedule from its current
	// nextFireTime/previousFireTime baseline, returning the new fire time
	// or nil if the trigger has no more fires. cal is the external
	// calendar collaborator; its exclusion semantics are outside this
	// repository's scope (spec §1) — shapes are free to ignore its blob.
	ComputeNextFire(t *model.Trigger, cal *model.Calendar) *time.Time

	// UpdateAfterMisfire applies t's misfireInstruction and leaves t with
	// a reconciled nextFireTime (possibly nil).
	UpdateAfterMisfire(t *model.Trigger, cal *model.Calendar, now time.Time)

	// Triggered advances t in place as if it just fired: previousFireTime
	// takes the old nextFireTime, and a new nextFireTime is computed.
	Triggered(t *model.Trigger, cal *model.Calendar)
}

// Registry maps typeTags to ShapeHelpers and falls back to first-match
// registration order for untagged or unrecognized documents (spec §4.B).
type Registry struct {
	ordered []ShapeHelper
	byTag   map[string]ShapeHelper
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]ShapeHelper)}
}

// Register adds h, preserving registration order for first-match fallback.
func (r *Registry) Register(h ShapeHelper) {
	r.ordered = append(r.ordered, h)
	r.byTag[h.TypeTag()] = h
}

// Lookup resolves a helper strictly by typeTag.
func (r *Registry) Lookup(typeTag string) (ShapeHelper, bool) {
	h, ok := r.byTag[typeTag]
	return h, ok
}

// Resolve picks t's helper by typeTag, falling back to the first
// registered helper whose CanHandle reports true.
func (r *Registry) Resolve(t *model.Trigger) (ShapeHelper, bool) {
	if h, ok := r.byTag[t.TypeTag]; ok {
		return h, true
	}
	for _, h := range r.ordered {
		if h.CanHandle(t) {
			return h, true
		}
	}
	return nil, false
}

// DefaultRegistry registers the four shapes this repository ships: simple,
// cron, calendar-interval, and daily-time-interval.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSimpleShape())
	r.Register(NewCronShape())
	r.Register(NewCalendarIntervalShape())
	r.Register(NewDailyTimeIntervalShape())
	return r
}
