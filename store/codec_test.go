// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"testing"
	"time"

	"github.com/seakee/jobstore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEncodeDecodeJobInlineDataMap(t *testing.T) {
	job := &model.Job{
		Key:         model.NewKey("g", "j1"),
		JobID:       primitive.NewObjectID(),
		TypeTag:     "noop",
		Description: "a job",
		Durable:     true,
		DataMap:     map[string]interface{}{"owner": "alice", "region": "us"},
	}

	doc, err := EncodeJob(job)
	require.NoError(t, err)
	assert.Equal(t, "alice", doc["owner"], "string-only data maps are stored inline")
	_, hasOpaque := doc[dataMapField]
	assert.False(t, hasOpaque)

	got, err := DecodeJob(doc)
	require.NoError(t, err)
	assert.Equal(t, job.Key, got.Key)
	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, job.DataMap, got.DataMap)
}

func TestEncodeDecodeJobOpaqueDataMapOnNonString(t *testing.T) {
	job := &model.Job{
		Key:     model.NewKey("g", "j1"),
		TypeTag: "noop",
		DataMap: map[string]interface{}{"count": float64(3)},
	}

	doc, err := EncodeJob(job)
	require.NoError(t, err)
	_, inline := doc["count"]
	assert.False(t, inline, "a non-string value forces opaque encoding")
	_, hasOpaque := doc[dataMapField]
	assert.True(t, hasOpaque)

	got, err := DecodeJob(doc)
	require.NoError(t, err)
	assert.Equal(t, float64(3), got.DataMap["count"])
}

func TestEncodeDecodeJobOpaqueOnReservedKeyCollision(t *testing.T) {
	job := &model.Job{
		Key:     model.NewKey("g", "j1"),
		TypeTag: "noop",
		DataMap: map[string]interface{}{"durable": "yes"},
	}

	doc, err := EncodeJob(job)
	require.NoError(t, err)
	assert.Equal(t, false, doc["durable"], "the reserved field keeps its own value, not the colliding data-map entry")
	_, hasOpaque := doc[dataMapField]
	assert.True(t, hasOpaque)

	got, err := DecodeJob(doc)
	require.NoError(t, err)
	assert.Equal(t, "yes", got.DataMap["durable"])
}

func TestEncodeDecodeTriggerRoundTrip(t *testing.T) {
	reg := defaultTestRegistry()
	now := time.Now().Truncate(time.Second)
	next := now.Add(time.Minute)

	tr := &model.Trigger{
		Key:          model.NewKey("tg", "t1"),
		JobKey:       model.NewKey("jg", "j1"),
		JobID:        primitive.NewObjectID(),
		TypeTag:      "simple",
		State:        model.StateWaiting,
		StartTime:    now,
		NextFireTime: &next,
		Priority:     model.DefaultPriority,
		ShapeFields: map[string]interface{}{
			"repeatInterval": time.Minute,
			"repeatCount":    -1,
		},
		DataMap: map[string]interface{}{"note": "hello"},
	}

	doc, err := EncodeTrigger(tr, reg)
	require.NoError(t, err)
	assert.Equal(t, "hello", doc["note"])

	got, err := DecodeTrigger(doc, reg)
	require.NoError(t, err)
	assert.Equal(t, tr.Key, got.Key)
	assert.Equal(t, tr.JobKey, got.JobKey)
	assert.Equal(t, tr.State, got.State)
	assert.Equal(t, tr.StartTime.Unix(), got.StartTime.Unix())
	require.NotNil(t, got.NextFireTime)
	assert.Equal(t, next.Unix(), got.NextFireTime.Unix())
	assert.Equal(t, "hello", got.DataMap["note"])
}

func TestEncodeTriggerNilNextFireTimeStoresNull(t *testing.T) {
	tr := &model.Trigger{
		Key:     model.NewKey("tg", "t1"),
		JobKey:  model.NewKey("jg", "j1"),
		TypeTag: "simple",
		State:   model.StateComplete,
	}
	doc, err := EncodeTrigger(tr, defaultTestRegistry())
	require.NoError(t, err)
	v, ok := doc["nextFireTime"]
	require.True(t, ok, "nextFireTime is always present, even when nil")
	assert.Nil(t, v)
}

func TestEncodeDecodeCalendarRoundTrip(t *testing.T) {
	cal := &model.Calendar{Name: "holidays", Blob: []byte("opaque-bytes")}
	doc := EncodeCalendar(cal)
	got := DecodeCalendar(doc)
	assert.Equal(t, cal.Name, got.Name)
	assert.Equal(t, cal.Blob, got.Blob)
}
