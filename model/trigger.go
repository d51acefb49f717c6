// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerState is the trigger lifecycle state machine described in spec §3.
type TriggerState string

const (
	StateWaiting      TriggerState = "waiting"
	StatePaused       TriggerState = "paused"
	StateAcquired     TriggerState = "acquired"
	StateComplete     TriggerState = "complete"
	StateError        TriggerState = "error"
	StateBlocked      TriggerState = "blocked"
	StatePausedBlocked TriggerState = "paused-blocked"
	StateDeleted      TriggerState = "deleted"
)

// MisfireInstructionIgnore is the misfire instruction code that suppresses
// misfire handling entirely for a trigger (spec §4.H).
const MisfireInstructionIgnore = -1

// CompletionInstruction is the completion-instruction code passed to
// TriggeredJobComplete (spec §4.I).
type CompletionInstruction int

const (
	NoopInstruction CompletionInstruction = iota
	DeleteTrigger
	SetTriggerComplete
	SetTriggerError
	SetAllJobTriggersComplete
	SetAllJobTriggersError
)

// Trigger is the stored shape of a trigger. Shape-specific fields (simple
// repeat interval, cron expression, calendar-interval unit, daily-time
// windows, ...) are injected/extracted by a triggershape.ShapeHelper and kept
// opaque to the store as ShapeFields.
type Trigger struct {
	Key                Key                    `bson:"key" json:"key"`
	JobKey             Key                    `bson:"jobKey" json:"jobKey"`
	JobID              primitive.ObjectID     `bson:"jobId" json:"jobId"`
	TypeTag            string                 `bson:"typeTag" json:"typeTag"`
	Description        string                 `bson:"description,omitempty" json:"description,omitempty"`
	CalendarName       string                 `bson:"calendarName,omitempty" json:"calendarName,omitempty"`
	State              TriggerState           `bson:"state" json:"state"`
	StartTime          time.Time              `bson:"startTime" json:"startTime"`
	EndTime            *time.Time             `bson:"endTime,omitempty" json:"endTime,omitempty"`
	NextFireTime       *time.Time             `bson:"nextFireTime,omitempty" json:"nextFireTime,omitempty"`
	PreviousFireTime   *time.Time             `bson:"previousFireTime,omitempty" json:"previousFireTime,omitempty"`
	FinalFireTime      *time.Time             `bson:"finalFireTime,omitempty" json:"finalFireTime,omitempty"`
	FireInstanceID     string                 `bson:"fireInstanceId,omitempty" json:"fireInstanceId,omitempty"`
	Priority           int                    `bson:"priority" json:"priority"`
	MisfireInstruction int                    `bson:"misfireInstruction" json:"misfireInstruction"`
	DataMap            map[string]interface{} `bson:"-" json:"dataMap,omitempty"`
	ShapeFields        map[string]interface{} `bson:"shape,omitempty" json:"shape,omitempty"`
}

// CollectionName returns the unprefixed Mongo collection name for triggers.
func (Trigger) CollectionName() string { return "triggers" }

// DefaultPriority is assigned to triggers that do not set one explicitly.
const DefaultPriority = 5

// Clone returns a copy of the trigger safe to mutate independently,
// including a fresh map for ShapeFields and DataMap.
func (t *Trigger) Clone() *Trigger {
	if t == nil {
		return nil
	}
	c := *t
	if t.EndTime != nil {
		v := *t.EndTime
		c.EndTime = &v
	}
	if t.NextFireTime != nil {
		v := *t.NextFireTime
		c.NextFireTime = &v
	}
	if t.PreviousFireTime != nil {
		v := *t.PreviousFireTime
		c.PreviousFireTime = &v
	}
	if t.FinalFireTime != nil {
		v := *t.FinalFireTime
		c.FinalFireTime = &v
	}
	if t.DataMap != nil {
		c.DataMap = make(map[string]interface{}, len(t.DataMap))
		for k, v := range t.DataMap {
			c.DataMap[k] = v
		}
	}
	if t.ShapeFields != nil {
		c.ShapeFields = make(map[string]interface{}, len(t.ShapeFields))
		for k, v := range t.ShapeFields {
			c.ShapeFields[k] = v
		}
	}
	return &c
}
