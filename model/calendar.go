// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package model

// Calendar is an opaque, named byte blob (spec §3, §6). jobstore never
// interprets its contents; serialization belongs to the runtime's calendar
// implementation.
type Calendar struct {
	Name string `bson:"name" json:"name"`
	Blob []byte `bson:"blob" json:"blob"`
}

// CollectionName returns the unprefixed Mongo collection name for calendars.
func (Calendar) CollectionName() string { return "calendars" }
