// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package triggershape

import (
	"time"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
)

// Simple misfire instructions, numbered the way the classic scheduler this
// repository's store protocol is modeled on numbers them.
const (
	SimpleMisfireSmartPolicy = 0
	SimpleMisfireFireNow     = 1
	SimpleMisfireRescheduleNowRemainingCount = 2
	SimpleMisfireRescheduleNextRemainingCount = 3
)

// simpleShape implements a fire-once-then-repeat-N-times-every-interval
// trigger (repeatCount == -1 means repeat indefinitely).
type simpleShape struct{}

// NewSimpleShape returns the "simple" ShapeHelper.
func NewSimpleShape() ShapeHelper { return simpleShape{} }

func (simpleShape) TypeTag() string { return "simple" }

func (simpleShape) CanHandle(t *model.Trigger) bool {
	if t.TypeTag == "simple" {
		return true
	}
	_, hasInterval := t.ShapeFields["repeatInterval"]
	_, hasCount := t.ShapeFields["repeatCount"]
	return hasInterval && hasCount
}

func (simpleShape) InjectForStorage(t *model.Trigger, doc bson.M) error {
	interval := durationField(t.ShapeFields, "repeatInterval")
	doc["repeatInterval"] = int64(interval / time.Millisecond)
	doc["repeatCount"] = intField(t.ShapeFields, "repeatCount")
	doc["timesTriggered"] = intField(t.ShapeFields, "timesTriggered")
	return nil
}

func (simpleShape) HydrateAfterConstruct(t *model.Trigger, doc bson.M) error {
	if t.StartTime.IsZero() {
		t.StartTime = toTime(doc["startTime"])
	}
	if t.EndTime == nil {
		if et := toTime(doc["endTime"]); !et.IsZero() {
			t.EndTime = &et
		}
	}

	shape := map[string]interface{}{
		"repeatInterval": time.Duration(toInt64(doc["repeatInterval"])) * time.Millisecond,
		"repeatCount":    toInt(doc["repeatCount"]),
		"timesTriggered": toInt(doc["timesTriggered"]),
	}
	t.ShapeFields = shape
	return nil
}

func (simpleShape) ComputeNextFire(t *model.Trigger, _ *model.Calendar) *time.Time {
	interval := durationField(t.ShapeFields, "repeatInterval")
	repeatCount := intField(t.ShapeFields, "repeatCount")
	timesTriggered := intField(t.ShapeFields, "timesTriggered")

	var next time.Time
	if timesTriggered == 0 {
		next = t.StartTime
	} else if repeatCount < 0 || timesTriggered <= repeatCount {
		base := t.StartTime
		if t.PreviousFireTime != nil {
			base = *t.PreviousFireTime
		}
		next = base.Add(interval)
	} else {
		return nil
	}

	if t.EndTime != nil && next.After(*t.EndTime) {
		return nil
	}
	return &next
}

func (s simpleShape) UpdateAfterMisfire(t *model.Trigger, cal *model.Calendar, now time.Time) {
	switch t.MisfireInstruction {
	case SimpleMisfireFireNow:
		n := now
		t.NextFireTime = &n
	case SimpleMisfireRescheduleNowRemainingCount:
		n := now
		t.NextFireTime = &n
	case SimpleMisfireRescheduleNextRemainingCount:
		t.NextFireTime = s.ComputeNextFire(t, cal)
	default: // SimpleMisfireSmartPolicy and anything unrecognized
		t.NextFireTime = s.ComputeNextFire(t, cal)
	}
}

func (s simpleShape) Triggered(t *model.Trigger, cal *model.Calendar) {
	t.PreviousFireTime = t.NextFireTime
	timesTriggered := intField(t.ShapeFields, "timesTriggered") + 1
	if t.ShapeFields == nil {
		t.ShapeFields = map[string]interface{}{}
	}
	t.ShapeFields["timesTriggered"] = timesTriggered
	t.NextFireTime = s.ComputeNextFire(t, cal)
}

func durationField(m map[string]interface{}, key string) time.Duration {
	switch v := m[key].(type) {
	case time.Duration:
		return v
	case int64:
		return time.Duration(v) * time.Millisecond
	case int:
		return time.Duration(v) * time.Millisecond
	}
	return 0
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func toTime(v interface{}) time.Time {
	t, _ := v.(time.Time)
	return t
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
