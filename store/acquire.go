// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Component H (spec §4.H): the acquisition protocol. This is the one
// place multiple scheduler nodes race each other directly; every decision
// here is driven by the locks collection's unique index rather than by
// any in-process coordination, since nothing about process boundaries is
// assumed (spec §5).
package store

import (
	"context"
	"sort"
	"time"

	"github.com/seakee/jobstore/model"
)

// AcquireNextTriggers claims up to maxCount waiting triggers due at or
// before notAfter, returning them sorted ascending by nextFireTime. It
// retries internally whenever it reclaims a stale lock, so a caller never
// sees a transient race as an error (spec §4.H).
func (s *Store) AcquireNextTriggers(ctx context.Context, notAfter time.Time, maxCount int) ([]*model.Trigger, error) {
	if maxCount <= 0 {
		return nil, nil
	}

	acquired := make([]*model.Trigger, 0, maxCount)
	seen := map[model.Key]struct{}{}

	for {
		claimedThisPass, retry, err := s.acquirePass(ctx, notAfter, maxCount, acquired, seen)
		if err != nil {
			return nil, err
		}
		acquired = claimedThisPass
		if !retry || len(acquired) >= maxCount {
			break
		}
	}

	sort.Slice(acquired, func(i, j int) bool {
		ti, tj := acquired[i].NextFireTime, acquired[j].NextFireTime
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.Before(*tj)
	})
	return acquired, nil
}

// acquirePass walks the due cursor once. It returns retry=true when a
// stale lock was reclaimed mid-scan, signaling the caller to start a
// fresh pass over the remaining slots rather than trust a cursor that may
// now be stale itself.
func (s *Store) acquirePass(ctx context.Context, notAfter time.Time, maxCount int, acquired []*model.Trigger, seen map[model.Key]struct{}) ([]*model.Trigger, bool, error) {
	cur, err := s.triggers.FindDue(ctx, notAfter)
	if err != nil {
		return acquired, false, wrapStorageErr("acquireNext:findDue", err)
	}
	defer cur.Close(ctx)

	now := time.Now()

	for cur.Next(ctx) {
		if len(acquired) >= maxCount {
			break
		}

		t, err := DecodeTrigger(cur.Trigger(), s.registry)
		if err != nil {
			return acquired, false, err
		}

		if _, dup := seen[t.Key]; dup {
			continue
		}

		if t.NextFireTime == nil {
			if _, err := s.RemoveTrigger(ctx, t.Key); err != nil {
				return acquired, false, err
			}
			continue
		}

		if t.MisfireInstruction != model.MisfireInstructionIgnore && !t.NextFireTime.After(now.Add(-s.cfg.MisfireThreshold)) {
			misfired, removed, err := s.applyMisfire(ctx, t, now)
			if err != nil {
				return acquired, false, err
			}
			if removed {
				continue
			}
			if misfired && t.NextFireTime != nil && t.NextFireTime.After(notAfter) {
				continue
			}
		}

		claimed, stale, err := s.claimTriggerLock(ctx, t, now)
		if err != nil {
			return acquired, false, err
		}
		if stale {
			// A stale lock was just removed; restart the scan for the
			// remaining slots rather than keep iterating a cursor whose
			// underlying collection just changed under it.
			return acquired, true, nil
		}
		if !claimed {
			continue
		}

		seen[t.Key] = struct{}{}
		acquired = append(acquired, t)
	}

	if err := cur.Err(); err != nil {
		return acquired, false, wrapStorageErr("acquireNext:cursor", err)
	}
	return acquired, false, nil
}

// claimTriggerLock attempts to win t's lock document. stale=true means an
// expired lock belonging to another acquisition was just removed and the
// caller should retry the whole pass; claimed=false with stale=false means
// another node genuinely holds the lock and t should be skipped.
func (s *Store) claimTriggerLock(ctx context.Context, t *model.Trigger, now time.Time) (claimed, stale bool, err error) {
	lock := &model.Lock{Key: t.Key, InstanceID: s.cfg.InstanceID, LockTime: now}
	err = s.locks.Insert(ctx, lock)
	if err == nil {
		return true, false, nil
	}
	if !isDuplicateKeyErr(err) {
		return false, false, wrapStorageErr("acquireNext:claimLock", err)
	}

	existing, found, ferr := s.locks.FindByKey(ctx, t.Key)
	if ferr != nil {
		return false, false, wrapStorageErr("acquireNext:findLock", ferr)
	}
	if !found {
		// Raced deletion between our failed insert and this lookup;
		// leave t for the next acquisition cycle.
		return false, false, nil
	}
	if !existing.Expired(now, s.cfg.TriggerTimeout) {
		return false, false, nil
	}

	if _, derr := s.locks.DeleteByKey(ctx, t.Key); derr != nil {
		return false, false, wrapStorageErr("acquireNext:clearStaleLock", derr)
	}
	return false, true, nil
}

// applyMisfire reconciles t against its misfire policy. removed reports
// that t had no remaining fires and was deleted from storage; misfired
// reports that t's schedule was reconciled and persisted (spec §4.H).
func (s *Store) applyMisfire(ctx context.Context, t *model.Trigger, now time.Time) (misfired, removed bool, err error) {
	misfireTime := now.Add(-s.cfg.MisfireThreshold)
	if t.NextFireTime == nil || t.NextFireTime.After(misfireTime) || t.MisfireInstruction == model.MisfireInstructionIgnore {
		return false, false, nil
	}

	clone := t.Clone()
	s.signaler.TriggerMisfired(ctx, clone)

	cal, cerr := s.loadCalendar(ctx, t.CalendarName)
	if cerr != nil {
		return false, false, cerr
	}

	before := t.NextFireTime
	if helper, ok := s.registry.Resolve(t); ok {
		helper.UpdateAfterMisfire(t, cal, now)
	}

	if t.NextFireTime == nil {
		s.signaler.TriggerFinalized(ctx, t)
		if _, err := s.RemoveTrigger(ctx, t.Key); err != nil {
			return false, false, err
		}
		return true, true, nil
	}

	if before != nil && t.NextFireTime.Equal(*before) {
		return false, false, nil
	}

	doc, eerr := EncodeTrigger(t, s.registry)
	if eerr != nil {
		return false, false, eerr
	}
	if err := s.triggers.ReplaceByKey(ctx, t.Key, doc); err != nil {
		return false, false, wrapStorageErr("applyMisfire:replace", err)
	}
	return true, false, nil
}

// loadCalendar resolves name to its calendar, returning (nil, nil) for an
// unnamed trigger.
func (s *Store) loadCalendar(ctx context.Context, name string) (*model.Calendar, error) {
	if name == "" {
		return nil, nil
	}
	cal, found, err := s.calendars.FindByName(ctx, name)
	if err != nil {
		return nil, wrapStorageErr("loadCalendar", err)
	}
	if !found {
		return nil, nil
	}
	return cal, nil
}

// releaseAcquiredTrigger deletes t's lock regardless of which instance
// holds it: any node observing a stuck lock may clean it up, trading lock
// authentication for crash recovery (spec §4.H).
func (s *Store) releaseAcquiredTrigger(ctx context.Context, key model.Key) error {
	_, err := s.locks.DeleteByKey(ctx, key)
	return wrapStorageErr("releaseAcquiredTrigger", err)
}
