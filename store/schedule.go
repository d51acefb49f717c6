// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Component F (spec §4.F): schedule CRUD. These are the store's primary
// write and query surface — storing/removing jobs, triggers, and
// calendars, and the read-only queries the runtime uses to enumerate what
// is scheduled. Multi-document operations here (orphan cleanup, trigger
// replace) are not atomic and must degrade gracefully under partial
// failure (spec §5).
package store

import (
	"context"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoreJob upserts a job on (group, name) (spec §4.F). If the job exists
// and replace is false, the call is a no-op that returns the existing
// jobId. If replace is true, all fields are overwritten, preserving jobId.
func (s *Store) StoreJob(ctx context.Context, job *model.Job, replace bool) (primitive.ObjectID, error) {
	existingDoc, found, err := s.jobs.FindByKey(ctx, job.Key)
	if err != nil {
		return primitive.NilObjectID, wrapStorageErr("storeJob:find", err)
	}

	if found {
		existing, err := DecodeJob(existingDoc)
		if err != nil {
			return primitive.NilObjectID, err
		}
		if !replace {
			return existing.JobID, nil
		}
		job.JobID = existing.JobID
		doc, err := EncodeJob(job)
		if err != nil {
			return primitive.NilObjectID, err
		}
		if err := s.jobs.ReplaceByKey(ctx, job.Key, doc); err != nil {
			return primitive.NilObjectID, wrapStorageErr("storeJob:replace", err)
		}
		return job.JobID, nil
	}

	doc, err := EncodeJob(job)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := s.jobs.Insert(ctx, doc); err != nil {
		if isDuplicateKeyErr(err) {
			return primitive.NilObjectID, newAlreadyExists("job", job.Key.String())
		}
		return primitive.NilObjectID, wrapStorageErr("storeJob:insert", err)
	}
	if id, ok := doc["_id"].(primitive.ObjectID); ok {
		job.JobID = id
	}
	return job.JobID, nil
}

// StoreTrigger resolves jobId by looking up t.JobKey, failing not-found if
// absent, already-exists if replace is false and the trigger exists. New
// triggers always enter state waiting (spec §4.F, §4.G).
func (s *Store) StoreTrigger(ctx context.Context, t *model.Trigger, replace bool) error {
	jobDoc, found, err := s.jobs.FindByKey(ctx, t.JobKey)
	if err != nil {
		return wrapStorageErr("storeTrigger:findJob", err)
	}
	if !found {
		return newNotFound("job", t.JobKey.String())
	}
	job, err := DecodeJob(jobDoc)
	if err != nil {
		return err
	}
	t.JobID = job.JobID

	existingDoc, exists, err := s.triggers.FindByKey(ctx, t.Key)
	if err != nil {
		return wrapStorageErr("storeTrigger:find", err)
	}

	if exists {
		if !replace {
			return newAlreadyExists("trigger", t.Key.String())
		}
		if t.State == "" {
			existing, err := DecodeTrigger(existingDoc, s.registry)
			if err != nil {
				return err
			}
			t.State = existing.State
		}
	} else {
		t.State = model.StateWaiting
	}

	doc, err := EncodeTrigger(t, s.registry)
	if err != nil {
		return err
	}

	if exists {
		if err := s.triggers.ReplaceByKey(ctx, t.Key, doc); err != nil {
			return wrapStorageErr("storeTrigger:replace", err)
		}
		return nil
	}

	if err := s.triggers.Insert(ctx, doc); err != nil {
		if isDuplicateKeyErr(err) {
			return newAlreadyExists("trigger", t.Key.String())
		}
		return wrapStorageErr("storeTrigger:insert", err)
	}
	return nil
}

// StoreJobAndTrigger is Unsupported; the teacher's source throws the
// equivalent unimplemented error rather than guessing at a transactional
// semantics this store's single-document-write model can't provide.
func (s *Store) StoreJobAndTrigger(ctx context.Context, job *model.Job, t *model.Trigger) error {
	return newUnsupported("storeJobsAndTriggers")
}

// RemoveJob removes the job and every trigger referencing it, returning
// whether a job document was actually removed.
func (s *Store) RemoveJob(ctx context.Context, key model.Key) (bool, error) {
	jobDoc, found, err := s.jobs.FindByKey(ctx, key)
	if err != nil {
		return false, wrapStorageErr("removeJob:find", err)
	}
	if !found {
		return false, nil
	}
	job, err := DecodeJob(jobDoc)
	if err != nil {
		return false, err
	}

	if _, err := s.triggers.DeleteByJobID(ctx, job.JobID); err != nil {
		return false, wrapStorageErr("removeJob:deleteTriggers", err)
	}

	removed, err := s.jobs.DeleteByKey(ctx, key)
	if err != nil {
		return false, wrapStorageErr("removeJob:deleteJob", err)
	}
	return removed, nil
}

// RemoveTrigger removes the trigger, then applies the orphan rule: a
// non-durable job left with no remaining triggers is removed too (spec
// §4.F, invariant I3).
func (s *Store) RemoveTrigger(ctx context.Context, key model.Key) (bool, error) {
	doc, found, err := s.triggers.FindByKey(ctx, key)
	if err != nil {
		return false, wrapStorageErr("removeTrigger:find", err)
	}
	if !found {
		return false, nil
	}
	t, err := DecodeTrigger(doc, s.registry)
	if err != nil {
		return false, err
	}

	removed, err := s.triggers.DeleteByKey(ctx, key)
	if err != nil {
		return false, wrapStorageErr("removeTrigger:delete", err)
	}
	if !removed {
		return false, nil
	}

	if err := s.cleanupOrphanJob(ctx, t.JobID); err != nil {
		return true, err
	}
	return true, nil
}

// cleanupOrphanJob removes jobID's job document if it is non-durable and
// has no remaining triggers. A missing job is not an error: a reader that
// observes a missing parent degrades gracefully (spec §5).
func (s *Store) cleanupOrphanJob(ctx context.Context, jobID primitive.ObjectID) error {
	jobDoc, found, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return wrapStorageErr("orphanCleanup:findJob", err)
	}
	if !found {
		return nil
	}
	job, err := DecodeJob(jobDoc)
	if err != nil {
		return err
	}
	if job.Durable {
		return nil
	}

	remaining, err := s.triggers.CountByJobID(ctx, jobID)
	if err != nil {
		return wrapStorageErr("orphanCleanup:count", err)
	}
	if remaining > 0 {
		return nil
	}

	if err := s.jobs.DeleteByID(ctx, jobID); err != nil {
		return wrapStorageErr("orphanCleanup:delete", err)
	}
	return nil
}

// ReplaceTrigger atomically-from-the-caller's-view swaps key's trigger for
// newTrigger, requiring both reference the same job. newTrigger's dataMap
// is inherited from the old trigger unless the caller set one. If the
// store insert fails, the old trigger is best-effort re-inserted (spec
// §4.F; rollback loss on double failure is a known, documented gap).
func (s *Store) ReplaceTrigger(ctx context.Context, key model.Key, newTrigger *model.Trigger) error {
	oldDoc, found, err := s.triggers.FindByKey(ctx, key)
	if err != nil {
		return wrapStorageErr("replaceTrigger:find", err)
	}
	if !found {
		return newNotFound("trigger", key.String())
	}
	old, err := DecodeTrigger(oldDoc, s.registry)
	if err != nil {
		return err
	}
	if old.JobKey != newTrigger.JobKey {
		return newUnsupported("replaceTrigger: job-mismatch")
	}
	if newTrigger.DataMap == nil {
		newTrigger.DataMap = old.DataMap
	}
	newTrigger.JobID = old.JobID
	newTrigger.Key = key

	if _, err := s.triggers.DeleteByKey(ctx, key); err != nil {
		return wrapStorageErr("replaceTrigger:delete", err)
	}

	newDoc, err := EncodeTrigger(newTrigger, s.registry)
	if err != nil {
		_ = s.triggers.Insert(ctx, oldDoc)
		return err
	}
	if err := s.triggers.Insert(ctx, newDoc); err != nil {
		// Best-effort rollback; per spec §9 a failure here loses the
		// trigger with no compensating log.
		_ = s.triggers.Insert(ctx, oldDoc)
		return wrapStorageErr("replaceTrigger:insert", err)
	}
	return nil
}

// StoreCalendar serializes cal opaquely under name. updateTriggers=true is
// Unsupported (spec §4.F).
func (s *Store) StoreCalendar(ctx context.Context, name string, cal *model.Calendar, replace, updateTriggers bool) error {
	if updateTriggers {
		return newUnsupported("storeCalendar: updateTriggers")
	}
	cal.Name = name
	existed, err := s.calendars.Upsert(ctx, cal, replace)
	if err != nil {
		return wrapStorageErr("storeCalendar", err)
	}
	if existed && !replace {
		return newAlreadyExists("calendar", name)
	}
	return nil
}

// RemoveCalendar deletes the named calendar, returning whether it existed.
func (s *Store) RemoveCalendar(ctx context.Context, name string) (bool, error) {
	removed, err := s.calendars.DeleteByName(ctx, name)
	if err != nil {
		return false, wrapStorageErr("removeCalendar", err)
	}
	return removed, nil
}

// RetrieveCalendar is Unsupported, matching the teacher's source pattern
// of deliberately unimplemented operations (spec §9).
func (s *Store) RetrieveCalendar(ctx context.Context, name string) (*model.Calendar, error) {
	return nil, newUnsupported("retrieveCalendar")
}

// GetCalendarNames is Unsupported for the same reason as RetrieveCalendar.
func (s *Store) GetCalendarNames(ctx context.Context) ([]string, error) {
	return nil, newUnsupported("getCalendarNames")
}

// GetJobKeys returns every job key whose group matches matcher. A matcher
// with no matches returns an empty slice, not an error.
func (s *Store) GetJobKeys(ctx context.Context, matcher model.GroupMatcher) ([]model.Key, error) {
	keys, err := s.jobs.Keys(ctx, matcher)
	return keys, wrapStorageErr("getJobKeys", err)
}

// GetTriggerKeys returns every trigger key whose group matches matcher.
func (s *Store) GetTriggerKeys(ctx context.Context, matcher model.GroupMatcher) ([]model.Key, error) {
	keys, err := s.triggers.Keys(ctx, matcher)
	return keys, wrapStorageErr("getTriggerKeys", err)
}

// GetJobGroupNames returns every distinct job group.
func (s *Store) GetJobGroupNames(ctx context.Context) ([]string, error) {
	names, err := s.jobs.GroupNames(ctx)
	return names, wrapStorageErr("getJobGroupNames", err)
}

// GetTriggerGroupNames returns every distinct trigger group.
func (s *Store) GetTriggerGroupNames(ctx context.Context) ([]string, error) {
	names, err := s.triggers.GroupNames(ctx)
	return names, wrapStorageErr("getTriggerGroupNames", err)
}

// GetTriggersForJob returns every trigger referencing jobKey's job. A
// missing job yields an empty slice rather than an error.
func (s *Store) GetTriggersForJob(ctx context.Context, jobKey model.Key) ([]*model.Trigger, error) {
	jobDoc, found, err := s.jobs.FindByKey(ctx, jobKey)
	if err != nil {
		return nil, wrapStorageErr("getTriggersForJob:findJob", err)
	}
	if !found {
		return nil, nil
	}
	job, err := DecodeJob(jobDoc)
	if err != nil {
		return nil, err
	}

	docs, err := s.triggers.ForJobID(ctx, job.JobID)
	if err != nil {
		return nil, wrapStorageErr("getTriggersForJob:find", err)
	}

	out := make([]*model.Trigger, 0, len(docs))
	for _, doc := range docs {
		t, err := DecodeTrigger(doc, s.registry)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// GetJob returns the job stored under key.
func (s *Store) GetJob(ctx context.Context, key model.Key) (*model.Job, bool, error) {
	doc, found, err := s.jobs.FindByKey(ctx, key)
	if err != nil || !found {
		return nil, found, wrapStorageErr("getJob", err)
	}
	job, err := DecodeJob(doc)
	return job, true, err
}

// GetTrigger returns the trigger stored under key.
func (s *Store) GetTrigger(ctx context.Context, key model.Key) (*model.Trigger, bool, error) {
	doc, found, err := s.triggers.FindByKey(ctx, key)
	if err != nil || !found {
		return nil, found, wrapStorageErr("getTrigger", err)
	}
	t, err := DecodeTrigger(doc, s.registry)
	return t, true, err
}

// CheckJobExists reports whether key is a known job.
func (s *Store) CheckJobExists(ctx context.Context, key model.Key) (bool, error) {
	_, found, err := s.jobs.FindByKey(ctx, key)
	return found, wrapStorageErr("checkJobExists", err)
}

// CheckTriggerExists reports whether key is a known trigger.
func (s *Store) CheckTriggerExists(ctx context.Context, key model.Key) (bool, error) {
	_, found, err := s.triggers.FindByKey(ctx, key)
	return found, wrapStorageErr("checkTriggerExists", err)
}

// CountJobs returns the total number of stored jobs.
func (s *Store) CountJobs(ctx context.Context) (int64, error) {
	n, err := s.jobs.Count(ctx)
	return n, wrapStorageErr("countJobs", err)
}

// CountTriggers returns the total number of stored triggers.
func (s *Store) CountTriggers(ctx context.Context) (int64, error) {
	n, err := s.triggers.Count(ctx)
	return n, wrapStorageErr("countTriggers", err)
}
