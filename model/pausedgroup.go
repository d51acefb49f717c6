// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package model

// PausedGroupKind distinguishes the two independent paused-groups
// collections described in spec §3.
type PausedGroupKind string

const (
	PausedTriggerGroups PausedGroupKind = "paused_trigger_groups"
	PausedJobGroups     PausedGroupKind = "paused_job_groups"
)

// PausedGroup is a (collection, group) membership marker. Membership is
// boolean: a document's presence means the group is paused.
type PausedGroup struct {
	Group string `bson:"group" json:"group"`
}

// CollectionName returns the unprefixed Mongo collection name for the given
// paused-group kind.
func (k PausedGroupKind) CollectionName() string { return string(k) }
