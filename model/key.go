// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package model defines the shared document shapes stored by jobstore:
// jobs, triggers, calendars, locks, and paused-group markers.
package model

import "fmt"

// Key identifies a job, trigger, or lock document by its (group, name) pair.
type Key struct {
	Group string `bson:"group" json:"group"`
	Name  string `bson:"name" json:"name"`
}

// NewKey builds a Key from a group and name.
func NewKey(group, name string) Key {
	return Key{Group: group, Name: name}
}

// String renders the key as "group.name" for logs and error messages.
func (k Key) String() string {
	return fmt.Sprintf("%s.%s", k.Group, k.Name)
}

// IsZero reports whether the key has neither group nor name set.
func (k Key) IsZero() bool {
	return k.Group == "" && k.Name == ""
}

// MatchMode selects how a GroupMatcher compares against a document's group field.
type MatchMode int

const (
	// MatchEquals matches a group field exactly.
	MatchEquals MatchMode = iota
	// MatchStartsWith matches groups with the given prefix.
	MatchStartsWith
	// MatchEndsWith matches groups with the given suffix.
	MatchEndsWith
	// MatchContains matches groups containing the given substring.
	MatchContains
	// MatchAnything matches every group.
	MatchAnything
)

// GroupMatcher describes a group-name predicate used by bulk queries
// (getJobKeys, getTriggerKeys, pauseTriggers, pauseJobs, ...).
type GroupMatcher struct {
	Mode  MatchMode
	Value string
}

// EqualsGroup builds a matcher that requires an exact group match.
func EqualsGroup(group string) GroupMatcher {
	return GroupMatcher{Mode: MatchEquals, Value: group}
}

// GroupStartsWith builds a matcher for groups sharing the given prefix.
func GroupStartsWith(prefix string) GroupMatcher {
	return GroupMatcher{Mode: MatchStartsWith, Value: prefix}
}

// GroupEndsWith builds a matcher for groups sharing the given suffix.
func GroupEndsWith(suffix string) GroupMatcher {
	return GroupMatcher{Mode: MatchEndsWith, Value: suffix}
}

// GroupContains builds a matcher for groups containing the given substring.
func GroupContains(substr string) GroupMatcher {
	return GroupMatcher{Mode: MatchContains, Value: substr}
}

// AnyGroup builds a matcher that accepts every group.
func AnyGroup() GroupMatcher {
	return GroupMatcher{Mode: MatchAnything}
}
