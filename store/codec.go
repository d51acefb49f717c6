// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Component A (spec §4.A): encode/decode jobs, triggers, and calendars
// to/from the generic bson.M documents the repo layer persists. The
// job-data map is preserved as a single opaque base64 field whenever it
// holds a non-string value (or collides with a reserved field name);
// otherwise its keys are stored inline. Decoding always tries the opaque
// field first, falling back to reconstructing the map from whatever
// fields fall outside the collection's reserved set.
package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/seakee/jobstore/model"
	"github.com/seakee/jobstore/triggershape"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dataMapField = "dataMap"

var jobReservedFields = map[string]struct{}{
	"_id": {}, "key": {}, "typeTag": {}, "description": {}, "durable": {},
	"persistJobDataAfterExecution": {}, "disallowConcurrentExecution": {},
	dataMapField: {},
}

// triggerReservedFields lists every top-level field any trigger-shape
// helper writes (spec §4.A's reserved set, extended with the shape fields
// spec §4.B delegates to the registry) so decodeDataMap never mistakes a
// shape attribute for a job-data entry.
var triggerReservedFields = map[string]struct{}{
	"_id": {}, "key": {}, "jobKey": {}, "jobId": {}, "typeTag": {}, "description": {},
	"calendarName": {}, "state": {}, "startTime": {}, "endTime": {},
	"nextFireTime": {}, "previousFireTime": {}, "finalFireTime": {},
	"fireInstanceId": {}, "priority": {}, "misfireInstruction": {},
	dataMapField: {},
	// simple
	"repeatInterval": {}, "repeatCount": {}, "timesTriggered": {},
	// cron
	"cronExpression": {}, "timezone": {},
	// calendarinterval / dailytimeinterval
	"interval": {}, "intervalUnit": {},
	// dailytimeinterval
	"startTimeOfDay": {}, "endTimeOfDay": {}, "daysOfWeek": {},
}

// EncodeJob translates a Job into the document the jobs collection stores.
func EncodeJob(job *model.Job) (bson.M, error) {
	doc := bson.M{
		"key":                          job.Key,
		"typeTag":                      job.TypeTag,
		"description":                  job.Description,
		"durable":                      job.Durable,
		"persistJobDataAfterExecution": job.PersistJobDataAfterExecution,
		"disallowConcurrentExecution":  job.DisallowConcurrentExecution,
	}
	if !job.JobID.IsZero() {
		doc["_id"] = job.JobID
	}
	if err := encodeDataMap(doc, job.DataMap, jobReservedFields); err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeJob translates a stored jobs-collection document back into a Job.
func DecodeJob(doc bson.M) (*model.Job, error) {
	job := &model.Job{
		Key:                          decodeKey(doc["key"]),
		TypeTag:                      toString(doc["typeTag"]),
		Description:                  toString(doc["description"]),
		Durable:                      toBool(doc["durable"]),
		PersistJobDataAfterExecution: toBool(doc["persistJobDataAfterExecution"]),
		DisallowConcurrentExecution:  toBool(doc["disallowConcurrentExecution"]),
	}
	if id, ok := doc["_id"].(primitive.ObjectID); ok {
		job.JobID = id
	}
	dataMap, err := decodeDataMap(doc, jobReservedFields)
	if err != nil {
		return nil, err
	}
	job.DataMap = dataMap
	return job, nil
}

// EncodeTrigger translates a Trigger into the document the triggers
// collection stores. Shape-specific fields are written directly onto the
// top-level document by the registry's matching helper (spec §4.B
// injectForStorage); a trigger whose typeTag the registry doesn't
// recognize is encoded without shape fields.
func EncodeTrigger(t *model.Trigger, reg *triggershape.Registry) (bson.M, error) {
	doc := bson.M{
		"key":                t.Key,
		"jobKey":             t.JobKey,
		"jobId":              t.JobID,
		"typeTag":            t.TypeTag,
		"description":        t.Description,
		"calendarName":       t.CalendarName,
		"state":              string(t.State),
		"startTime":          t.StartTime,
		"priority":           t.Priority,
		"misfireInstruction": t.MisfireInstruction,
	}
	if t.EndTime != nil {
		doc["endTime"] = *t.EndTime
	}
	if t.NextFireTime != nil {
		doc["nextFireTime"] = *t.NextFireTime
	} else {
		doc["nextFireTime"] = nil
	}
	if t.PreviousFireTime != nil {
		doc["previousFireTime"] = *t.PreviousFireTime
	}
	if t.FinalFireTime != nil {
		doc["finalFireTime"] = *t.FinalFireTime
	}
	if t.FireInstanceID != "" {
		doc["fireInstanceId"] = t.FireInstanceID
	}

	if reg != nil {
		if helper, ok := reg.Resolve(t); ok {
			if err := helper.InjectForStorage(t, doc); err != nil {
				return nil, err
			}
		}
	}

	if err := encodeDataMap(doc, t.DataMap, triggerReservedFields); err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeTrigger translates a stored triggers-collection document back into
// a Trigger, delegating shape-field hydration (and the once-only start/end
// time assignment) to the registry's matching helper (spec §4.B
// hydrateAfterConstruct).
func DecodeTrigger(doc bson.M, reg *triggershape.Registry) (*model.Trigger, error) {
	t := &model.Trigger{
		Key:                decodeKey(doc["key"]),
		JobKey:             decodeKey(doc["jobKey"]),
		TypeTag:            toString(doc["typeTag"]),
		Description:        toString(doc["description"]),
		CalendarName:       toString(doc["calendarName"]),
		State:              model.TriggerState(toString(doc["state"])),
		Priority:           toInt(doc["priority"]),
		MisfireInstruction: toInt(doc["misfireInstruction"]),
		FireInstanceID:     toString(doc["fireInstanceId"]),
	}
	if id, ok := doc["jobId"].(primitive.ObjectID); ok {
		t.JobID = id
	}
	if v, ok := doc["nextFireTime"]; ok && v != nil {
		tt := toTime(v)
		t.NextFireTime = &tt
	}
	if v, ok := doc["previousFireTime"]; ok && v != nil {
		tt := toTime(v)
		t.PreviousFireTime = &tt
	}
	if v, ok := doc["finalFireTime"]; ok && v != nil {
		tt := toTime(v)
		t.FinalFireTime = &tt
	}

	if reg != nil {
		if helper, ok := reg.Resolve(t); ok {
			if err := helper.HydrateAfterConstruct(t, doc); err != nil {
				return nil, err
			}
		}
	}
	// Fallback assignment for triggers whose shape the registry doesn't
	// recognize: the helper path above is the only place StartTime/EndTime
	// are otherwise set (spec §9's duplicated-assignment bug is fixed by
	// having exactly one assignment site per trigger, here or in a helper).
	if t.StartTime.IsZero() {
		t.StartTime = toTime(doc["startTime"])
	}
	if t.EndTime == nil {
		if v, ok := doc["endTime"]; ok {
			if tt := toTime(v); !tt.IsZero() {
				t.EndTime = &tt
			}
		}
	}

	dataMap, err := decodeDataMap(doc, triggerReservedFields)
	if err != nil {
		return nil, err
	}
	t.DataMap = dataMap
	return t, nil
}

// EncodeCalendar/DecodeCalendar round-trip the opaque calendar blob (spec
// §4.A, §6: calendar blob format is opaque and only round-tripped).
func EncodeCalendar(c *model.Calendar) bson.M {
	return bson.M{"name": c.Name, "blob": c.Blob}
}

func DecodeCalendar(doc bson.M) *model.Calendar {
	blob, _ := doc["blob"].(primitive.Binary)
	if blob.Data != nil {
		return &model.Calendar{Name: toString(doc["name"]), Blob: blob.Data}
	}
	if raw, ok := doc["blob"].([]byte); ok {
		return &model.Calendar{Name: toString(doc["name"]), Blob: raw}
	}
	return &model.Calendar{Name: toString(doc["name"])}
}

// encodeDataMap implements spec §4.A's opaque-vs-inline rule: inline when
// every value is a string and no key collides with a reserved field name;
// otherwise base64-encode the whole map as a single opaque field.
func encodeDataMap(doc bson.M, dataMap map[string]interface{}, reserved map[string]struct{}) error {
	if len(dataMap) == 0 {
		return nil
	}

	canInline := true
	for k, v := range dataMap {
		if _, ok := v.(string); !ok {
			canInline = false
			break
		}
		if _, isReserved := reserved[k]; isReserved {
			canInline = false
			break
		}
	}

	if canInline {
		for k, v := range dataMap {
			doc[k] = v
		}
		return nil
	}

	raw, err := json.Marshal(dataMap)
	if err != nil {
		for k, v := range dataMap {
			if _, marshalErr := json.Marshal(v); marshalErr != nil {
				return newSerializationErr(k, marshalErr)
			}
		}
		return newSerializationErr("", err)
	}

	doc[dataMapField] = base64.StdEncoding.EncodeToString(raw)
	return nil
}

// decodeDataMap reverses encodeDataMap: the opaque field wins when present,
// otherwise every non-reserved top-level field is treated as a data-map
// entry (spec §4.A).
func decodeDataMap(doc bson.M, reserved map[string]struct{}) (map[string]interface{}, error) {
	if raw, ok := doc[dataMapField]; ok && raw != nil {
		b64, ok := raw.(string)
		if !ok {
			return nil, newSerializationErr(dataMapField, errInvalidOpaqueField)
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, newSerializationErr(dataMapField, err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, newSerializationErr(dataMapField, err)
		}
		return m, nil
	}

	m := map[string]interface{}{}
	for k, v := range doc {
		if _, isReserved := reserved[k]; isReserved {
			continue
		}
		m[k] = v
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func decodeKey(v interface{}) model.Key {
	switch k := v.(type) {
	case model.Key:
		return k
	case bson.M:
		return model.Key{Group: toString(k["group"]), Name: toString(k["name"])}
	case map[string]interface{}:
		return model.Key{Group: toString(k["group"]), Name: toString(k["name"])}
	}
	return model.Key{}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
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

func toTime(v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}
