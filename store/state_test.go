// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"testing"

	"github.com/seakee/jobstore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseResumeTrigger(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("node-1")

	require.NoError(t, requireJob(ctx, s, "jg", "j1"))
	tr := newTestTrigger("tg", "t1", "jg", "j1")
	require.NoError(t, s.StoreTrigger(ctx, tr, false))

	require.NoError(t, s.PauseTrigger(ctx, tr.Key))
	got, _, err := s.GetTrigger(ctx, tr.Key)
	require.NoError(t, err)
	assert.Equal(t, model.StatePaused, got.State)

	require.NoError(t, s.ResumeTrigger(ctx, tr.Key))
	got, _, err = s.GetTrigger(ctx, tr.Key)
	require.NoError(t, err)
	assert.Equal(t, model.StateWaiting, got.State)
}

func TestPauseTriggerBlockedBecomesPausedBlocked(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("node-1")

	require.NoError(t, requireJob(ctx, s, "jg", "j1"))
	tr := newTestTrigger("tg", "t1", "jg", "j1")
	require.NoError(t, s.StoreTrigger(ctx, tr, false))

	_, err := s.triggers.UpdateStateByKey(ctx, tr.Key, model.StateWaiting, model.StateBlocked)
	require.NoError(t, err)

	require.NoError(t, s.PauseTrigger(ctx, tr.Key))
	got, _, err := s.GetTrigger(ctx, tr.Key)
	require.NoError(t, err)
	assert.Equal(t, model.StatePausedBlocked, got.State)

	require.NoError(t, s.ResumeTrigger(ctx, tr.Key))
	got, _, err = s.GetTrigger(ctx, tr.Key)
	require.NoError(t, err)
	assert.Equal(t, model.StateBlocked, got.State)
}

func TestPauseTriggerCompleteIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("node-1")

	require.NoError(t, requireJob(ctx, s, "jg", "j1"))
	tr := newTestTrigger("tg", "t1", "jg", "j1")
	require.NoError(t, s.StoreTrigger(ctx, tr, false))

	_, err := s.triggers.UpdateStateByKey(ctx, tr.Key, model.StateWaiting, model.StateComplete)
	require.NoError(t, err)

	require.NoError(t, s.PauseTrigger(ctx, tr.Key))
	got, _, err := s.GetTrigger(ctx, tr.Key)
	require.NoError(t, err)
	assert.Equal(t, model.StateComplete, got.State)
}

func TestPauseTriggersMarksGroupAndTransitionsMembers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("node-1")

	require.NoError(t, requireJob(ctx, s, "jg", "j1"))
	require.NoError(t, requireJob(ctx, s, "jg", "j2"))
	t1 := newTestTrigger("tg", "t1", "jg", "j1")
	t2 := newTestTrigger("tg", "t2", "jg", "j2")
	require.NoError(t, s.StoreTrigger(ctx, t1, false))
	require.NoError(t, s.StoreTrigger(ctx, t2, false))

	groups, err := s.PauseTriggers(ctx, model.EqualsGroup("tg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"tg"}, groups)

	paused, err := s.IsTriggerGroupPaused(ctx, "tg")
	require.NoError(t, err)
	assert.True(t, paused)

	got1, _, _ := s.GetTrigger(ctx, t1.Key)
	got2, _, _ := s.GetTrigger(ctx, t2.Key)
	assert.Equal(t, model.StatePaused, got1.State)
	assert.Equal(t, model.StatePaused, got2.State)
}

func TestResumeTriggerIgnoresGroupPauseState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("node-1")

	require.NoError(t, requireJob(ctx, s, "jg", "j1"))
	tr := newTestTrigger("tg", "t1", "jg", "j1")
	require.NoError(t, s.StoreTrigger(ctx, tr, false))

	_, err := s.PauseTriggers(ctx, model.EqualsGroup("tg"))
	require.NoError(t, err)

	// The group is still paused, but an explicit resume of one trigger
	// must take effect regardless (spec §4.G).
	require.NoError(t, s.ResumeTrigger(ctx, tr.Key))
	got, _, err := s.GetTrigger(ctx, tr.Key)
	require.NoError(t, err)
	assert.Equal(t, model.StateWaiting, got.State)

	paused, err := s.IsTriggerGroupPaused(ctx, "tg")
	require.NoError(t, err)
	assert.True(t, paused, "resuming one trigger does not unmark its group")
}

func TestPauseJobPausesAllItsTriggers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("node-1")

	job := newTestJob("jg", "j1")
	_, err := s.StoreJob(ctx, job, false)
	require.NoError(t, err)
	t1 := newTestTrigger("tg", "t1", "jg", "j1")
	t2 := newTestTrigger("tg", "t2", "jg", "j1")
	require.NoError(t, s.StoreTrigger(ctx, t1, false))
	require.NoError(t, s.StoreTrigger(ctx, t2, false))

	require.NoError(t, s.PauseJob(ctx, job.Key))

	got1, _, _ := s.GetTrigger(ctx, t1.Key)
	got2, _, _ := s.GetTrigger(ctx, t2.Key)
	assert.Equal(t, model.StatePaused, got1.State)
	assert.Equal(t, model.StatePaused, got2.State)
}
