// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package triggershape

import (
	"time"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
)

// Calendar-interval units.
const (
	IntervalSecond = "second"
	IntervalMinute = "minute"
	IntervalHour   = "hour"
	IntervalDay    = "day"
	IntervalWeek   = "week"
	IntervalMonth  = "month"
	IntervalYear   = "year"
)

// calendarIntervalShape fires every N calendar units (day/week/month/year
// included, unlike simpleShape's fixed duration) from the previous fire.
type calendarIntervalShape struct{}

// NewCalendarIntervalShape returns the "calendarinterval" ShapeHelper.
func NewCalendarIntervalShape() ShapeHelper { return calendarIntervalShape{} }

func (calendarIntervalShape) TypeTag() string { return "calendarinterval" }

func (calendarIntervalShape) CanHandle(t *model.Trigger) bool {
	if t.TypeTag == "calendarinterval" {
		return true
	}
	_, hasUnit := t.ShapeFields["intervalUnit"]
	_, hasN := t.ShapeFields["interval"]
	return hasUnit && hasN
}

func (calendarIntervalShape) InjectForStorage(t *model.Trigger, doc bson.M) error {
	unit := toString(t.ShapeFields["intervalUnit"])
	if unit == "" {
		unit = IntervalDay
	}
	doc["interval"] = intField(t.ShapeFields, "interval")
	doc["intervalUnit"] = unit
	return nil
}

func (calendarIntervalShape) HydrateAfterConstruct(t *model.Trigger, doc bson.M) error {
	if t.StartTime.IsZero() {
		t.StartTime = toTime(doc["startTime"])
	}
	if t.EndTime == nil {
		if et := toTime(doc["endTime"]); !et.IsZero() {
			t.EndTime = &et
		}
	}

	unit := toString(doc["intervalUnit"])
	if unit == "" {
		unit = IntervalDay
	}
	t.ShapeFields = map[string]interface{}{
		"interval":     toInt(doc["interval"]),
		"intervalUnit": unit,
	}
	return nil
}

func addInterval(base time.Time, n int, unit string) time.Time {
	switch unit {
	case IntervalSecond:
		return base.Add(time.Duration(n) * time.Second)
	case IntervalMinute:
		return base.Add(time.Duration(n) * time.Minute)
	case IntervalHour:
		return base.Add(time.Duration(n) * time.Hour)
	case IntervalWeek:
		return base.AddDate(0, 0, 7*n)
	case IntervalMonth:
		return base.AddDate(0, n, 0)
	case IntervalYear:
		return base.AddDate(n, 0, 0)
	default: // IntervalDay
		return base.AddDate(0, 0, n)
	}
}

func (calendarIntervalShape) ComputeNextFire(t *model.Trigger, _ *model.Calendar) *time.Time {
	n := intField(t.ShapeFields, "interval")
	if n <= 0 {
		n = 1
	}
	unit := toString(t.ShapeFields["intervalUnit"])

	var next time.Time
	if t.PreviousFireTime == nil {
		// Never fired: the first fire lands on startTime itself.
		next = t.StartTime
	} else {
		next = addInterval(*t.PreviousFireTime, n, unit)
	}
	if t.EndTime != nil && next.After(*t.EndTime) {
		return nil
	}
	return &next
}

func (c calendarIntervalShape) UpdateAfterMisfire(t *model.Trigger, cal *model.Calendar, now time.Time) {
	t.NextFireTime = c.ComputeNextFire(t, cal)
}

func (c calendarIntervalShape) Triggered(t *model.Trigger, cal *model.Calendar) {
	t.PreviousFireTime = t.NextFireTime
	t.NextFireTime = c.ComputeNextFire(t, cal)
}
