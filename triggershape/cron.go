// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package triggershape

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
)

// cronShape fires on a standard five-field cron expression, evaluated in a
// fixed IANA timezone (default UTC).
type cronShape struct {
	parser cron.Parser
}

// NewCronShape returns the "cron" ShapeHelper.
func NewCronShape() ShapeHelper {
	return cronShape{parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)}
}

func (cronShape) TypeTag() string { return "cron" }

func (cronShape) CanHandle(t *model.Trigger) bool {
	if t.TypeTag == "cron" {
		return true
	}
	_, ok := t.ShapeFields["cronExpression"]
	return ok
}

func (cronShape) InjectForStorage(t *model.Trigger, doc bson.M) error {
	doc["cronExpression"] = toString(t.ShapeFields["cronExpression"])
	tz := toString(t.ShapeFields["timezone"])
	if tz == "" {
		tz = "UTC"
	}
	doc["timezone"] = tz
	return nil
}

func (c cronShape) HydrateAfterConstruct(t *model.Trigger, doc bson.M) error {
	if t.StartTime.IsZero() {
		t.StartTime = toTime(doc["startTime"])
	}
	if t.EndTime == nil {
		if et := toTime(doc["endTime"]); !et.IsZero() {
			t.EndTime = &et
		}
	}

	expr := toString(doc["cronExpression"])
	tz := toString(doc["timezone"])
	if tz == "" {
		tz = "UTC"
	}
	t.ShapeFields = map[string]interface{}{
		"cronExpression": expr,
		"timezone":       tz,
	}
	_, err := c.schedule(expr, tz)
	return err
}

func (c cronShape) schedule(expr, tz string) (cron.Schedule, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	sched, err := c.parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &tzSchedule{inner: sched, loc: loc}, nil
}

// tzSchedule evaluates an inner cron.Schedule in a fixed location,
// regardless of the location carried by the time handed to Next.
type tzSchedule struct {
	inner cron.Schedule
	loc   *time.Location
}

func (s *tzSchedule) Next(t time.Time) time.Time {
	return s.inner.Next(t.In(s.loc))
}

func (c cronShape) ComputeNextFire(t *model.Trigger, _ *model.Calendar) *time.Time {
	expr := toString(t.ShapeFields["cronExpression"])
	tz := toString(t.ShapeFields["timezone"])
	sched, err := c.schedule(expr, tz)
	if err != nil {
		return nil
	}

	base := t.StartTime
	if t.NextFireTime != nil {
		base = *t.NextFireTime
	} else if t.PreviousFireTime != nil {
		base = *t.PreviousFireTime
	}
	next := sched.Next(base)
	if next.IsZero() {
		return nil
	}
	if t.EndTime != nil && next.After(*t.EndTime) {
		return nil
	}
	return &next
}

func (c cronShape) UpdateAfterMisfire(t *model.Trigger, cal *model.Calendar, now time.Time) {
	// Cron triggers have no shape-specific misfire instructions beyond the
	// generic IGNORE handled by the caller; reconciliation simply skips
	// forward to the next scheduled fire from now.
	t.NextFireTime = c.computeFrom(t, now)
}

func (c cronShape) computeFrom(t *model.Trigger, from time.Time) *time.Time {
	expr := toString(t.ShapeFields["cronExpression"])
	tz := toString(t.ShapeFields["timezone"])
	sched, err := c.schedule(expr, tz)
	if err != nil {
		return nil
	}
	next := sched.Next(from)
	if next.IsZero() {
		return nil
	}
	if t.EndTime != nil && next.After(*t.EndTime) {
		return nil
	}
	return &next
}

func (c cronShape) Triggered(t *model.Trigger, cal *model.Calendar) {
	t.PreviousFireTime = t.NextFireTime
	t.NextFireTime = c.ComputeNextFire(t, cal)
}
