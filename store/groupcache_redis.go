// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"

	"github.com/seakee/jobstore/model"
	"github.com/sk-pkg/redis"
	"github.com/sk-pkg/util"
)

// defaultGroupCacheTTL bounds how long a cached pause/not-paused verdict is
// trusted before the next lookup falls back to Mongo again.
const defaultGroupCacheTTL = 30

// RedisGroupCache backs GroupCache with a Redis manager, the way the
// teacher's job scheduler backs its server lock with the same
// *redis.Manager (app/pkg/schedule/job.go's lock/unLock).
type RedisGroupCache struct {
	redis *redis.Manager
	ttl   int
}

// NewRedisGroupCache wraps an already-connected *redis.Manager. ttlSeconds
// defaults to 30 when <= 0.
func NewRedisGroupCache(r *redis.Manager, ttlSeconds int) *RedisGroupCache {
	if ttlSeconds <= 0 {
		ttlSeconds = defaultGroupCacheTTL
	}
	return &RedisGroupCache{redis: r, ttl: ttlSeconds}
}

func (c *RedisGroupCache) key(kind model.PausedGroupKind, group string) string {
	return util.SpliceStr(c.redis.Prefix, "jobstore:pausedgroup:", string(kind), ":", group)
}

// IsPaused reports the cached verdict for group, if any.
func (c *RedisGroupCache) IsPaused(_ context.Context, kind model.PausedGroupKind, group string) (paused, found bool) {
	val, err := c.redis.Do("GET", c.key(kind, group))
	if err != nil || val == nil {
		return false, false
	}
	switch v := val.(type) {
	case []byte:
		return string(v) == "1", true
	case string:
		return v == "1", true
	}
	return false, false
}

// Set caches paused for group until ttl elapses.
func (c *RedisGroupCache) Set(_ context.Context, kind model.PausedGroupKind, group string, paused bool) {
	val := "0"
	if paused {
		val = "1"
	}
	_, _ = c.redis.Do("SET", c.key(kind, group), val, "EX", c.ttl)
}

// Invalidate drops any cached verdict for group.
func (c *RedisGroupCache) Invalidate(_ context.Context, kind model.PausedGroupKind, group string) {
	_, _ = c.redis.Del(c.key(kind, group))
}
