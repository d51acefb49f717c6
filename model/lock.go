// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package model

import "time"

// JobConcurrentLockPrefix is prepended to a job's name to build the name half
// of its job-concurrency lock key (spec §3: "jobconcurrentlock:" || jobName).
const JobConcurrentLockPrefix = "jobconcurrentlock:"

// Lock is a cluster-wide mutual-exclusion document. A trigger lock uses the
// trigger's own key; a job-concurrency lock uses (jobGroup,
// JobConcurrentLockPrefix+jobName). The uniqueness index on Key is the only
// coordination primitive the acquisition and fire/complete protocols rely on.
type Lock struct {
	Key        Key       `bson:"key" json:"key"`
	InstanceID string    `bson:"instanceId" json:"instanceId"`
	LockTime   time.Time `bson:"lockTime" json:"lockTime"`
}

// CollectionName returns the unprefixed Mongo collection name for locks.
func (Lock) CollectionName() string { return "locks" }

// JobConcurrencyLockKey builds the lock key for a job's concurrency guard.
func JobConcurrencyLockKey(jobKey Key) Key {
	return Key{Group: jobKey.Group, Name: JobConcurrentLockPrefix + jobKey.Name}
}

// Expired reports whether the lock is older than timeout as observed at now.
func (l Lock) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(l.LockTime) > timeout
}
