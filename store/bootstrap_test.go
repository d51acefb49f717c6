// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/seakee/jobstore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Bootstrap's ensureIndexes step talks directly to a *mongo.Database, which
// the fakes in this package do not model (mongo.Database has no interface
// seam in the driver). The lock-recovery half of Bootstrap is pure
// LockRepo traffic, so it is exercised here against the fake directly
// rather than through Bootstrap itself.
func TestBootstrapClearsOwnLocksNotOthers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("node-a")

	require.NoError(t, s.locks.Insert(ctx, &model.Lock{
		Key: model.NewKey("g", "mine"), InstanceID: "node-a", LockTime: time.Now(),
	}))
	require.NoError(t, s.locks.Insert(ctx, &model.Lock{
		Key: model.NewKey("g", "theirs"), InstanceID: "node-b", LockTime: time.Now(),
	}))

	require.NoError(t, s.locks.DeleteByInstanceID(ctx, s.cfg.InstanceID))

	_, found, err := s.locks.FindByKey(ctx, model.NewKey("g", "mine"))
	require.NoError(t, err)
	assert.False(t, found, "this node's own locks are cleared on bootstrap")

	_, found, err = s.locks.FindByKey(ctx, model.NewKey("g", "theirs"))
	require.NoError(t, err)
	assert.True(t, found, "another node's locks are left for expiry-based reclaim")
}
