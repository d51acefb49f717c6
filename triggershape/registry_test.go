// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package triggershape

import (
	"testing"

	"github.com/seakee/jobstore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookupByTypeTag(t *testing.T) {
	r := DefaultRegistry()
	h, ok := r.Lookup("cron")
	require.True(t, ok)
	assert.Equal(t, "cron", h.TypeTag())

	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
}

func TestRegistryResolvePrefersTypeTag(t *testing.T) {
	r := DefaultRegistry()
	tr := &model.Trigger{TypeTag: "simple"}
	h, ok := r.Resolve(tr)
	require.True(t, ok)
	assert.Equal(t, "simple", h.TypeTag())
}

func TestRegistryResolveFallsBackToCanHandle(t *testing.T) {
	r := DefaultRegistry()
	tr := &model.Trigger{
		TypeTag:     "",
		ShapeFields: map[string]interface{}{"cronExpression": "* * * * *"},
	}
	h, ok := r.Resolve(tr)
	require.True(t, ok)
	assert.Equal(t, "cron", h.TypeTag())
}

func TestRegistryResolveUnrecognized(t *testing.T) {
	r := DefaultRegistry()
	tr := &model.Trigger{TypeTag: "custom", ShapeFields: nil}
	_, ok := r.Resolve(tr)
	assert.False(t, ok)
}
