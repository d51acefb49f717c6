// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Job is the stored shape of a schedulable unit of work. Jobs are identified
// by the composite (Group, Name) key; JobID is an opaque identity assigned at
// insertion and referenced by every Trigger that fires it.
type Job struct {
	JobID       primitive.ObjectID     `bson:"_id,omitempty" json:"jobId"`
	Key         Key                    `bson:"key" json:"key"`
	TypeTag     string                 `bson:"typeTag" json:"typeTag"`
	Description string                 `bson:"description,omitempty" json:"description,omitempty"`
	Durable     bool                   `bson:"durable" json:"durable"`

	// PersistJobDataAfterExecution marks jobs whose DataMap must be
	// re-stored after each firing when the handler mutated it in place.
	PersistJobDataAfterExecution bool `bson:"persistJobDataAfterExecution,omitempty" json:"persistJobDataAfterExecution,omitempty"`

	// DisallowConcurrentExecution enforces the cluster-wide job-concurrency
	// lock described in spec §4.I.
	DisallowConcurrentExecution bool `bson:"disallowConcurrentExecution,omitempty" json:"disallowConcurrentExecution,omitempty"`

	DataMap map[string]interface{} `bson:"-" json:"dataMap,omitempty"`
}

// CollectionName returns the Mongo collection this model is stored in,
// unprefixed (store.Store applies the configured collection prefix).
func (Job) CollectionName() string { return "jobs" }

// Clone returns a deep-enough copy of the job for safe concurrent use
// (DataMap is copied by reference of its values, which is sufficient since
// the store treats it as an opaque payload after decode).
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.DataMap != nil {
		c.DataMap = make(map[string]interface{}, len(j.DataMap))
		for k, v := range j.DataMap {
			c.DataMap[k] = v
		}
	}
	return &c
}
