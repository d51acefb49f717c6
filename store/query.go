// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"regexp"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
)

// regexQuote escapes matcher.Value so it can be embedded in a Mongo $regex
// filter without being interpreted as a regular expression itself. Prefix/
// suffix/contains matchers operate on literal group-name fragments only.
func regexQuote(value string) string {
	return regexp.QuoteMeta(value)
}

// groupInFilter builds the bulk "group in {...}" predicate used by
// operations that pause/resume or otherwise act across a known set of
// groups (spec §4.C: "combines with a set-of-groups predicate (in) for bulk
// operations"). It never executes a query itself; callers merge the result
// into their own filter document.
func groupInFilter(groups []string) bson.M {
	return bson.M{"key.group": bson.M{"$in": groups}}
}

// matchesGroup reports whether group satisfies matcher, used by the
// in-memory fake repos (store/fakes_test.go) so tests exercise exactly the
// same matcher semantics as the Mongo-backed query translation in
// store/repo_mongo.go's groupFilter.
func matchesGroup(matcher model.GroupMatcher, group string) bool {
	switch matcher.Mode {
	case model.MatchEquals:
		return group == matcher.Value
	case model.MatchStartsWith:
		return len(group) >= len(matcher.Value) && group[:len(matcher.Value)] == matcher.Value
	case model.MatchEndsWith:
		return len(group) >= len(matcher.Value) && group[len(group)-len(matcher.Value):] == matcher.Value
	case model.MatchContains:
		return containsSubstr(group, matcher.Value)
	default: // model.MatchAnything
		return true
	}
}

func containsSubstr(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
