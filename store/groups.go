// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Component D (spec §4.D): the group-state tracker. Mongo's two
// paused-groups collections remain the source of truth; GroupCache is an
// optional read-through cache in front of the IsTriggerGroupPaused and
// IsJobGroupPaused lookups.
package store

import (
	"context"

	"github.com/seakee/jobstore/model"
)

// GroupCache is a read-through cache for paused-group membership. found
// reports whether the cache holds an opinion at all; when it doesn't the
// caller falls back to Mongo and may call Set to populate it.
type GroupCache interface {
	IsPaused(ctx context.Context, kind model.PausedGroupKind, group string) (paused, found bool)
	Set(ctx context.Context, kind model.PausedGroupKind, group string, paused bool)
	Invalidate(ctx context.Context, kind model.PausedGroupKind, group string)
}

// noopGroupCache never caches; every call falls through to Mongo. It is
// the default when the caller supplies no WithGroupCache option.
type noopGroupCache struct{}

func (noopGroupCache) IsPaused(context.Context, model.PausedGroupKind, string) (bool, bool) {
	return false, false
}
func (noopGroupCache) Set(context.Context, model.PausedGroupKind, string, bool) {}
func (noopGroupCache) Invalidate(context.Context, model.PausedGroupKind, string) {}

// MarkTriggerGroupsPaused records groups as paused-trigger-groups.
// Idempotent on repeated calls (spec §4.D).
func (s *Store) MarkTriggerGroupsPaused(ctx context.Context, groups []string) error {
	return s.markGroups(ctx, model.PausedTriggerGroups, groups)
}

// UnmarkTriggerGroupsPaused is MarkTriggerGroupsPaused's inverse.
func (s *Store) UnmarkTriggerGroupsPaused(ctx context.Context, groups []string) error {
	return s.unmarkGroups(ctx, model.PausedTriggerGroups, groups)
}

// MarkJobGroupsPaused records groups as paused-job-groups.
func (s *Store) MarkJobGroupsPaused(ctx context.Context, groups []string) error {
	return s.markGroups(ctx, model.PausedJobGroups, groups)
}

// UnmarkJobGroupsPaused is MarkJobGroupsPaused's inverse.
func (s *Store) UnmarkJobGroupsPaused(ctx context.Context, groups []string) error {
	return s.unmarkGroups(ctx, model.PausedJobGroups, groups)
}

// PausedTriggerGroups lists every currently paused trigger group.
func (s *Store) PausedTriggerGroups(ctx context.Context) ([]string, error) {
	groups, err := s.groups.All(ctx, model.PausedTriggerGroups)
	return groups, wrapStorageErr("pausedTriggerGroups", err)
}

// PausedJobGroups lists every currently paused job group.
func (s *Store) PausedJobGroups(ctx context.Context) ([]string, error) {
	groups, err := s.groups.All(ctx, model.PausedJobGroups)
	return groups, wrapStorageErr("pausedJobGroups", err)
}

// IsTriggerGroupPaused reports whether group is in the paused-trigger-
// groups set, consulting groupCache before falling back to Mongo.
func (s *Store) IsTriggerGroupPaused(ctx context.Context, group string) (bool, error) {
	return s.isGroupPaused(ctx, model.PausedTriggerGroups, group)
}

// IsJobGroupPaused reports whether group is in the paused-job-groups set.
func (s *Store) IsJobGroupPaused(ctx context.Context, group string) (bool, error) {
	return s.isGroupPaused(ctx, model.PausedJobGroups, group)
}

func (s *Store) isGroupPaused(ctx context.Context, kind model.PausedGroupKind, group string) (bool, error) {
	if paused, found := s.groupCacheImpl.IsPaused(ctx, kind, group); found {
		return paused, nil
	}
	paused, err := s.groups.IsPaused(ctx, kind, group)
	if err != nil {
		return false, wrapStorageErr("isGroupPaused", err)
	}
	s.groupCacheImpl.Set(ctx, kind, group, paused)
	return paused, nil
}

func (s *Store) markGroups(ctx context.Context, kind model.PausedGroupKind, groups []string) error {
	for _, g := range groups {
		if err := s.groups.Mark(ctx, kind, g); err != nil {
			return wrapStorageErr("markGroups", err)
		}
		s.groupCacheImpl.Set(ctx, kind, g, true)
	}
	return nil
}

func (s *Store) unmarkGroups(ctx context.Context, kind model.PausedGroupKind, groups []string) error {
	if len(groups) == 0 {
		return nil
	}
	if err := s.groups.UnmarkMany(ctx, kind, groups); err != nil {
		return wrapStorageErr("unmarkGroups", err)
	}
	for _, g := range groups {
		s.groupCacheImpl.Invalidate(ctx, kind, g)
	}
	return nil
}
