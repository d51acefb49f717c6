// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Component I (spec §4.I): the fire/complete protocol. This is where an
// acquired trigger's claim turns into a job execution handed back to the
// runtime, and where the job-level concurrency lock — independent from
// the trigger lock acquire.go manages — is taken and released.
package store

import (
	"context"
	"time"

	"github.com/seakee/jobstore/model"
)

// FireBundle is everything the runtime needs to execute one firing: the
// job, the trigger after this fire advanced it (as persisted), its
// calendar (nil if unnamed), the fire times from before the advance
// (PrevFireTime, FireTime, ScheduledFireTime) and the new NextFireTime.
type FireBundle struct {
	Job               *model.Job
	Trigger           *model.Trigger
	Calendar          *model.Calendar
	PrevFireTime      *time.Time
	FireTime          *time.Time
	NextFireTime      *time.Time
	ScheduledFireTime time.Time
}

// TriggersFired advances each trigger in batch past this fire, builds a
// FireBundle per trigger that is safe to run, and persists the advanced
// trigger. A trigger whose job or named calendar has vanished, or whose
// job is already running under disallowConcurrentExecution, is silently
// dropped from the result (spec §4.I).
func (s *Store) TriggersFired(ctx context.Context, batch []*model.Trigger) ([]*FireBundle, error) {
	now := time.Now()
	bundles := make([]*FireBundle, 0, len(batch))

	for _, t := range batch {
		bundle, ok, err := s.fireOne(ctx, t, now)
		if err != nil {
			return nil, err
		}
		if ok {
			bundles = append(bundles, bundle)
		}
	}
	return bundles, nil
}

func (s *Store) fireOne(ctx context.Context, t *model.Trigger, now time.Time) (*FireBundle, bool, error) {
	cal, err := s.loadCalendar(ctx, t.CalendarName)
	if err != nil {
		return nil, false, err
	}
	if t.CalendarName != "" && cal == nil {
		return nil, false, nil
	}

	jobDoc, found, err := s.jobs.FindByID(ctx, t.JobID)
	if err != nil {
		return nil, false, wrapStorageErr("triggersFired:findJob", err)
	}
	if !found {
		return nil, false, nil
	}
	job, err := DecodeJob(jobDoc)
	if err != nil {
		return nil, false, err
	}

	prevFire := t.PreviousFireTime
	scheduledFire := t.NextFireTime

	if job.DisallowConcurrentExecution {
		acquired, err := s.acquireJobConcurrencyLock(ctx, job.Key, now)
		if err != nil {
			return nil, false, err
		}
		if !acquired {
			if err := s.releaseAcquiredTrigger(ctx, t.Key); err != nil {
				return nil, false, err
			}
			return nil, false, nil
		}
	}

	if helper, ok := s.registry.Resolve(t); ok {
		helper.Triggered(t, cal)
	}
	if s.traceID != nil {
		t.FireInstanceID = s.traceID.New()
	}

	doc, err := EncodeTrigger(t, s.registry)
	if err != nil {
		return nil, false, err
	}
	if err := s.triggers.ReplaceByKey(ctx, t.Key, doc); err != nil {
		return nil, false, wrapStorageErr("triggersFired:replace", err)
	}

	bundle := &FireBundle{
		Job:          job,
		Trigger:      t,
		Calendar:     cal,
		PrevFireTime: prevFire,
		FireTime:     scheduledFire,
		NextFireTime: t.NextFireTime,
	}
	if scheduledFire != nil {
		bundle.ScheduledFireTime = *scheduledFire
	}
	return bundle, true, nil
}

// acquireJobConcurrencyLock claims j's cluster-wide execution lock. If
// another holder's lock has expired it is deleted, but this call still
// reports false: the fire is skipped and a later fire can take the lock.
func (s *Store) acquireJobConcurrencyLock(ctx context.Context, jobKey model.Key, now time.Time) (bool, error) {
	key := model.JobConcurrencyLockKey(jobKey)
	lock := &model.Lock{Key: key, InstanceID: s.cfg.InstanceID, LockTime: now}
	err := s.locks.Insert(ctx, lock)
	if err == nil {
		return true, nil
	}
	if !isDuplicateKeyErr(err) {
		return false, wrapStorageErr("acquireJobLock:insert", err)
	}

	existing, found, ferr := s.locks.FindByKey(ctx, key)
	if ferr != nil {
		return false, wrapStorageErr("acquireJobLock:find", ferr)
	}
	if !found {
		return false, nil
	}
	if !existing.Expired(now, s.cfg.JobTimeout) {
		return false, nil
	}
	if _, derr := s.locks.DeleteByKey(ctx, key); derr != nil {
		return false, wrapStorageErr("acquireJobLock:clearStale", derr)
	}
	return false, nil
}

func (s *Store) releaseJobConcurrencyLock(ctx context.Context, jobKey model.Key) error {
	_, err := s.locks.DeleteByKey(ctx, model.JobConcurrencyLockKey(jobKey))
	return wrapStorageErr("releaseJobLock", err)
}

// TriggeredJobComplete runs the post-execution half of the protocol: it
// re-stores the job whenever PersistJobDataAfterExecution is set (there is
// no check of whether its data changed), releases the job-concurrency lock,
// applies
// instruction to the trigger that is now back in storage, and always
// releases the trigger's own lock (spec §4.I).
func (s *Store) TriggeredJobComplete(ctx context.Context, t *model.Trigger, j *model.Job, instruction model.CompletionInstruction) error {
	defer func() {
		_ = s.releaseAcquiredTrigger(ctx, t.Key)
	}()

	if j.PersistJobDataAfterExecution {
		doc, err := EncodeJob(j)
		if err != nil {
			return err
		}
		if err := s.jobs.ReplaceByKey(ctx, j.Key, doc); err != nil {
			return wrapStorageErr("triggeredJobComplete:storeJob", err)
		}
	}

	if j.DisallowConcurrentExecution {
		if err := s.releaseJobConcurrencyLock(ctx, j.Key); err != nil {
			return err
		}
	}

	_, exists, err := s.triggers.FindByKey(ctx, t.Key)
	if err != nil {
		return wrapStorageErr("triggeredJobComplete:findTrigger", err)
	}
	if !exists {
		return nil
	}

	switch instruction {
	case model.DeleteTrigger:
		if _, err := s.RemoveTrigger(ctx, t.Key); err != nil {
			return err
		}
		s.signaler.SchedulingChanged(ctx)
	case model.SetTriggerComplete, model.SetTriggerError,
		model.SetAllJobTriggersComplete, model.SetAllJobTriggersError:
		// State persistence for these instructions is a known gap (spec
		// §9): only the scheduling-change notification fires today.
		s.signaler.SchedulingChanged(ctx)
	}

	return nil
}
