// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package triggershape

import (
	"fmt"
	"time"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
)

// dailyTimeIntervalShape fires every N minutes/seconds/hours within a daily
// time-of-day window, on a restricted set of weekdays.
type dailyTimeIntervalShape struct{}

// NewDailyTimeIntervalShape returns the "dailytimeinterval" ShapeHelper.
func NewDailyTimeIntervalShape() ShapeHelper { return dailyTimeIntervalShape{} }

func (dailyTimeIntervalShape) TypeTag() string { return "dailytimeinterval" }

func (dailyTimeIntervalShape) CanHandle(t *model.Trigger) bool {
	if t.TypeTag == "dailytimeinterval" {
		return true
	}
	_, ok := t.ShapeFields["startTimeOfDay"]
	return ok
}

func (dailyTimeIntervalShape) InjectForStorage(t *model.Trigger, doc bson.M) error {
	doc["interval"] = intField(t.ShapeFields, "interval")
	unit := toString(t.ShapeFields["intervalUnit"])
	if unit == "" {
		unit = IntervalMinute
	}
	doc["intervalUnit"] = unit

	start := toString(t.ShapeFields["startTimeOfDay"])
	if start == "" {
		start = "00:00:00"
	}
	end := toString(t.ShapeFields["endTimeOfDay"])
	if end == "" {
		end = "23:59:59"
	}
	doc["startTimeOfDay"] = start
	doc["endTimeOfDay"] = end
	doc["daysOfWeek"] = daysOfWeekField(t.ShapeFields)
	return nil
}

func daysOfWeekField(m map[string]interface{}) []int {
	switch raw := m["daysOfWeek"].(type) {
	case []int:
		if len(raw) > 0 {
			return raw
		}
	case []interface{}:
		if len(raw) > 0 {
			days := make([]int, 0, len(raw))
			for _, v := range raw {
				days = append(days, toInt(v))
			}
			return days
		}
	}
	return []int{0, 1, 2, 3, 4, 5, 6}
}

func (dailyTimeIntervalShape) HydrateAfterConstruct(t *model.Trigger, doc bson.M) error {
	if t.StartTime.IsZero() {
		t.StartTime = toTime(doc["startTime"])
	}
	if t.EndTime == nil {
		if et := toTime(doc["endTime"]); !et.IsZero() {
			t.EndTime = &et
		}
	}

	t.ShapeFields = map[string]interface{}{
		"interval":       toInt(doc["interval"]),
		"intervalUnit":   toString(doc["intervalUnit"]),
		"startTimeOfDay": toString(doc["startTimeOfDay"]),
		"endTimeOfDay":   toString(doc["endTimeOfDay"]),
		"daysOfWeek":     daysOfWeekField(map[string]interface{}(doc)),
	}
	return nil
}

func parseTimeOfDay(s string) (hour, min, sec int) {
	fmt.Sscanf(s, "%d:%d:%d", &hour, &min, &sec)
	return
}

func timeOfDayOn(day time.Time, h, m, s int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, day.Location())
}

// nextWindowStart returns the first day, starting with from's own day, whose
// weekday is allowed, at startTimeOfDay.
func nextWindowStart(from time.Time, startH, startM, startS int, days []int) time.Time {
	candidate := from
	for i := 0; i < 8; i++ {
		if dayAllowed(candidate, days) {
			return timeOfDayOn(candidate, startH, startM, startS)
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return timeOfDayOn(candidate, startH, startM, startS)
}

func dayAllowed(t time.Time, days []int) bool {
	wd := int(t.Weekday())
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// computeDailyNext implements the shape's arithmetic: advance by the
// configured interval from base; if that falls outside today's window or
// lands on a disallowed weekday, roll forward to the next allowed day's
// window start.
func computeDailyNext(base time.Time, n int, unit string, startH, startM, startS, endH, endM, endS int, days []int) time.Time {
	if !dayAllowed(base, days) || base.Before(timeOfDayOn(base, startH, startM, startS)) {
		return nextWindowStart(base, startH, startM, startS, days)
	}

	next := addInterval(base, n, unit)
	windowEnd := timeOfDayOn(base, endH, endM, endS)
	if next.After(windowEnd) {
		return nextWindowStart(base.AddDate(0, 0, 1), startH, startM, startS, days)
	}
	return next
}

func (d dailyTimeIntervalShape) ComputeNextFire(t *model.Trigger, _ *model.Calendar) *time.Time {
	n := intField(t.ShapeFields, "interval")
	if n <= 0 {
		n = 1
	}
	unit := toString(t.ShapeFields["intervalUnit"])
	startH, startM, startS := parseTimeOfDay(toString(t.ShapeFields["startTimeOfDay"]))
	endH, endM, endS := parseTimeOfDay(toString(t.ShapeFields["endTimeOfDay"]))
	days := daysOfWeekField(t.ShapeFields)

	var candidate time.Time
	if t.PreviousFireTime == nil {
		candidate = nextWindowStart(t.StartTime, startH, startM, startS, days)
	} else {
		candidate = computeDailyNext(*t.PreviousFireTime, n, unit, startH, startM, startS, endH, endM, endS, days)
	}

	if t.EndTime != nil && candidate.After(*t.EndTime) {
		return nil
	}
	return &candidate
}

func (d dailyTimeIntervalShape) UpdateAfterMisfire(t *model.Trigger, cal *model.Calendar, now time.Time) {
	t.NextFireTime = d.ComputeNextFire(t, cal)
}

func (d dailyTimeIntervalShape) Triggered(t *model.Trigger, cal *model.Calendar) {
	t.PreviousFireTime = t.NextFireTime
	t.NextFireTime = d.ComputeNextFire(t, cal)
}
