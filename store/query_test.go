// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"testing"

	"github.com/seakee/jobstore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMatchesGroupModes(t *testing.T) {
	assert.True(t, matchesGroup(model.EqualsGroup("alpha"), "alpha"))
	assert.False(t, matchesGroup(model.EqualsGroup("alpha"), "alphabet"))

	assert.True(t, matchesGroup(model.GroupStartsWith("al"), "alpha"))
	assert.False(t, matchesGroup(model.GroupStartsWith("al"), "beta"))

	assert.True(t, matchesGroup(model.GroupEndsWith("ha"), "alpha"))
	assert.False(t, matchesGroup(model.GroupEndsWith("ha"), "alphabet"))

	assert.True(t, matchesGroup(model.GroupContains("ph"), "alpha"))
	assert.False(t, matchesGroup(model.GroupContains("zz"), "alpha"))

	assert.True(t, matchesGroup(model.AnyGroup(), "anything"))
	assert.True(t, matchesGroup(model.AnyGroup(), ""))
}

func TestContainsSubstr(t *testing.T) {
	assert.True(t, containsSubstr("alpha", "ph"))
	assert.True(t, containsSubstr("alpha", ""))
	assert.False(t, containsSubstr("alpha", "zz"))
	assert.False(t, containsSubstr("al", "alpha"))
}

func TestGroupInFilter(t *testing.T) {
	filter := groupInFilter([]string{"a", "b"})
	inner, ok := filter["key.group"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, inner["$in"])
}
