// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Component G (spec §4.G): the trigger lifecycle state machine's pause and
// resume half. This file drives paused/paused-blocked and their inverses,
// plus the group- and job-level bulk forms built on top of them.
// Acquisition and firing (store/acquire.go, store/fire.go) do not write a
// trigger's state field: they coordinate through lock documents instead.
package store

import (
	"context"

	"github.com/seakee/jobstore/model"
)

// pausedStateFor maps a trigger's current state to the state pausing it
// produces. Complete and deleted triggers are terminal and unaffected, and
// paused-blocked triggers stay paused-blocked; blocked triggers become
// paused-blocked so resume can restore blocked rather than incorrectly
// unblocking them (spec §3's state diagram).
func pausedStateFor(state model.TriggerState) model.TriggerState {
	switch state {
	case model.StateComplete, model.StateDeleted, model.StatePausedBlocked:
		return state
	case model.StateBlocked:
		return model.StatePausedBlocked
	default:
		return model.StatePaused
	}
}

// resumedStateFor is pausedStateFor's inverse. States it doesn't
// recognize (waiting, acquired, complete, error, blocked, deleted) are
// left untouched: resuming an already-active trigger is a no-op.
func resumedStateFor(state model.TriggerState) model.TriggerState {
	switch state {
	case model.StatePaused:
		return model.StateWaiting
	case model.StatePausedBlocked:
		return model.StateBlocked
	default:
		return state
	}
}

// PauseTrigger moves key's trigger into its paused equivalent. A missing
// trigger, or one already in a terminal or already-paused state, is a
// silent no-op.
func (s *Store) PauseTrigger(ctx context.Context, key model.Key) error {
	doc, found, err := s.triggers.FindByKey(ctx, key)
	if err != nil {
		return wrapStorageErr("pauseTrigger:find", err)
	}
	if !found {
		return nil
	}
	t, err := DecodeTrigger(doc, s.registry)
	if err != nil {
		return err
	}

	next := pausedStateFor(t.State)
	if next == t.State {
		return nil
	}
	if _, err := s.triggers.UpdateStateByKey(ctx, key, t.State, next); err != nil {
		return wrapStorageErr("pauseTrigger:update", err)
	}
	s.signaler.SchedulingChanged(ctx)
	return nil
}

// ResumeTrigger moves key's trigger out of its paused equivalent. It does
// not consult the paused-trigger-groups set: an explicit resume of one
// trigger always takes effect, even if the trigger's group is still
// paused as a whole (spec §4.G).
func (s *Store) ResumeTrigger(ctx context.Context, key model.Key) error {
	doc, found, err := s.triggers.FindByKey(ctx, key)
	if err != nil {
		return wrapStorageErr("resumeTrigger:find", err)
	}
	if !found {
		return nil
	}
	t, err := DecodeTrigger(doc, s.registry)
	if err != nil {
		return err
	}

	next := resumedStateFor(t.State)
	if next == t.State {
		return nil
	}
	if _, err := s.triggers.UpdateStateByKey(ctx, key, t.State, next); err != nil {
		return wrapStorageErr("resumeTrigger:update", err)
	}
	s.signaler.SchedulingChanged(ctx)
	return nil
}

// PauseTriggers pauses every trigger whose group matches matcher and marks
// those groups paused, so IsTriggerGroupPaused reports them as paused.
// Triggers stored into those groups later are not paused by the store. It
// returns the distinct group names affected.
func (s *Store) PauseTriggers(ctx context.Context, matcher model.GroupMatcher) ([]string, error) {
	keys, err := s.triggers.Keys(ctx, matcher)
	if err != nil {
		return nil, wrapStorageErr("pauseTriggers:keys", err)
	}

	groupSet := map[string]struct{}{}
	for _, k := range keys {
		if err := s.PauseTrigger(ctx, k); err != nil {
			return nil, err
		}
		groupSet[k.Group] = struct{}{}
	}

	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	if err := s.MarkTriggerGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ResumeTriggers is PauseTriggers's inverse.
func (s *Store) ResumeTriggers(ctx context.Context, matcher model.GroupMatcher) ([]string, error) {
	keys, err := s.triggers.Keys(ctx, matcher)
	if err != nil {
		return nil, wrapStorageErr("resumeTriggers:keys", err)
	}

	groupSet := map[string]struct{}{}
	for _, k := range keys {
		if err := s.ResumeTrigger(ctx, k); err != nil {
			return nil, err
		}
		groupSet[k.Group] = struct{}{}
	}

	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	if err := s.UnmarkTriggerGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// PauseAll pauses every known trigger group (spec §4.G).
func (s *Store) PauseAll(ctx context.Context) error {
	_, err := s.PauseTriggers(ctx, model.AnyGroup())
	return err
}

// ResumeAll resumes every known trigger group.
func (s *Store) ResumeAll(ctx context.Context) error {
	_, err := s.ResumeTriggers(ctx, model.AnyGroup())
	return err
}

// PauseJob pauses every trigger referencing key's job. A missing job is a
// silent no-op.
func (s *Store) PauseJob(ctx context.Context, key model.Key) error {
	triggers, err := s.GetTriggersForJob(ctx, key)
	if err != nil {
		return err
	}
	for _, t := range triggers {
		if err := s.PauseTrigger(ctx, t.Key); err != nil {
			return err
		}
	}
	return nil
}

// ResumeJob is PauseJob's inverse.
func (s *Store) ResumeJob(ctx context.Context, key model.Key) error {
	triggers, err := s.GetTriggersForJob(ctx, key)
	if err != nil {
		return err
	}
	for _, t := range triggers {
		if err := s.ResumeTrigger(ctx, t.Key); err != nil {
			return err
		}
	}
	return nil
}

// PauseJobs pauses every trigger belonging to a job whose group matches
// matcher, and marks those job groups paused. It returns the distinct job
// group names affected.
func (s *Store) PauseJobs(ctx context.Context, matcher model.GroupMatcher) ([]string, error) {
	jobKeys, err := s.jobs.Keys(ctx, matcher)
	if err != nil {
		return nil, wrapStorageErr("pauseJobs:keys", err)
	}

	groupSet := map[string]struct{}{}
	for _, jk := range jobKeys {
		if err := s.PauseJob(ctx, jk); err != nil {
			return nil, err
		}
		groupSet[jk.Group] = struct{}{}
	}

	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	if err := s.MarkJobGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ResumeJobs is PauseJobs's inverse.
func (s *Store) ResumeJobs(ctx context.Context, matcher model.GroupMatcher) ([]string, error) {
	jobKeys, err := s.jobs.Keys(ctx, matcher)
	if err != nil {
		return nil, wrapStorageErr("resumeJobs:keys", err)
	}

	groupSet := map[string]struct{}{}
	for _, jk := range jobKeys {
		if err := s.ResumeJob(ctx, jk); err != nil {
			return nil, err
		}
		groupSet[jk.Group] = struct{}{}
	}

	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	if err := s.UnmarkJobGroupsPaused(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}
