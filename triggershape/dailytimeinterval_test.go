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

func TestDailyTimeIntervalInjectDefaultsWindow(t *testing.T) {
	d := NewDailyTimeIntervalShape()
	tr := &model.Trigger{ShapeFields: map[string]interface{}{"interval": 30, "intervalUnit": IntervalMinute}}
	doc := bson.M{}
	require.NoError(t, d.InjectForStorage(tr, doc))
	assert.Equal(t, "00:00:00", doc["startTimeOfDay"])
	assert.Equal(t, "23:59:59", doc["endTimeOfDay"])
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, doc["daysOfWeek"])
}

func TestDailyTimeIntervalHydrateRoundTrip(t *testing.T) {
	d := NewDailyTimeIntervalShape()
	doc := bson.M{
		"interval": 15, "intervalUnit": IntervalMinute,
		"startTimeOfDay": "09:00:00", "endTimeOfDay": "17:00:00",
		"daysOfWeek": []interface{}{1, 2, 3, 4, 5},
	}
	hydrated := &model.Trigger{}
	require.NoError(t, d.HydrateAfterConstruct(hydrated, doc))
	assert.Equal(t, 15, hydrated.ShapeFields["interval"])
	assert.Equal(t, []int{1, 2, 3, 4, 5}, hydrated.ShapeFields["daysOfWeek"])
}

func TestDailyTimeIntervalWithinWindowAdvancesByInterval(t *testing.T) {
	d := NewDailyTimeIntervalShape()
	mon := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC) // a Monday
	tr := &model.Trigger{
		StartTime:        time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		PreviousFireTime: &mon,
		ShapeFields: map[string]interface{}{
			"interval": 15, "intervalUnit": IntervalMinute,
			"startTimeOfDay": "09:00:00", "endTimeOfDay": "17:00:00",
			"daysOfWeek": []int{0, 1, 2, 3, 4, 5, 6},
		},
	}
	next := d.ComputeNextFire(tr, nil)
	require.NotNil(t, next)
	assert.Equal(t, mon.Add(15*time.Minute), *next)
}

func TestDailyTimeIntervalRollsOverToNextAllowedDay(t *testing.T) {
	d := NewDailyTimeIntervalShape()
	lastFire := time.Date(2026, 1, 5, 16, 55, 0, 0, time.UTC) // Monday, near window end
	tr := &model.Trigger{
		StartTime:        time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		PreviousFireTime: &lastFire,
		ShapeFields: map[string]interface{}{
			"interval": 15, "intervalUnit": IntervalMinute,
			"startTimeOfDay": "09:00:00", "endTimeOfDay": "17:00:00",
			"daysOfWeek": []int{1, 3, 5}, // Mon, Wed, Fri only (per time.Weekday numbering)
		},
	}
	next := d.ComputeNextFire(tr, nil)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC), *next, "rolls over past Tuesday (disallowed) to Wednesday's window start")
}

func TestDayAllowedMatchesWeekday(t *testing.T) {
	mon := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.True(t, dayAllowed(mon, []int{1}))
	assert.False(t, dayAllowed(mon, []int{2}))
}
