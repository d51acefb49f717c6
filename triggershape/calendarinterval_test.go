// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package triggershape

import (
	"testing"
	"time"

	"github.com/seakee/jobstore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCalendarIntervalInjectAndHydrateRoundTrip(t *testing.T) {
	c := NewCalendarIntervalShape()
	tr := &model.Trigger{ShapeFields: map[string]interface{}{"interval": 2, "intervalUnit": IntervalWeek}}
	doc := bson.M{}
	require.NoError(t, c.InjectForStorage(tr, doc))
	assert.Equal(t, 2, doc["interval"])
	assert.Equal(t, IntervalWeek, doc["intervalUnit"])

	hydrated := &model.Trigger{}
	require.NoError(t, c.HydrateAfterConstruct(hydrated, doc))
	assert.Equal(t, 2, hydrated.ShapeFields["interval"])
	assert.Equal(t, IntervalWeek, hydrated.ShapeFields["intervalUnit"])
}

func TestCalendarIntervalFirstFireLandsOnStartTime(t *testing.T) {
	c := NewCalendarIntervalShape()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tr := &model.Trigger{StartTime: start, ShapeFields: map[string]interface{}{"interval": 1, "intervalUnit": IntervalDay}}
	next := c.ComputeNextFire(tr, nil)
	require.NotNil(t, next)
	assert.True(t, next.Equal(start))
}

func TestCalendarIntervalAdvancesByNIntervalsFromPreviousFire(t *testing.T) {
	c := NewCalendarIntervalShape()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	prev := start
	tr := &model.Trigger{
		StartTime:        start,
		PreviousFireTime: &prev,
		ShapeFields:      map[string]interface{}{"interval": 3, "intervalUnit": IntervalDay},
	}
	next := c.ComputeNextFire(tr, nil)
	require.NotNil(t, next)
	assert.Equal(t, start.AddDate(0, 0, 3), *next, "advances exactly one interval step of size N from the last fire, not N separate single-day steps")
}

func TestCalendarIntervalMonthAndYearUnits(t *testing.T) {
	base := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.AddDate(0, 1, 0), addInterval(base, 1, IntervalMonth))
	assert.Equal(t, base.AddDate(1, 0, 0), addInterval(base, 1, IntervalYear))
}
