// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package signal

import (
	"context"
	"fmt"

	"github.com/seakee/jobstore/model"
	"github.com/sk-pkg/feishu"
)

// FeishuSignaler posts misfire and finalization notices to a Feishu group
// webhook, the way the teacher's bootstrap wires an optional
// *feishu.Manager for operational alerts.
type FeishuSignaler struct {
	feishu *feishu.Manager
}

// NewFeishuSignaler wraps an already-configured *feishu.Manager.
func NewFeishuSignaler(f *feishu.Manager) *FeishuSignaler {
	return &FeishuSignaler{feishu: f}
}

func (s *FeishuSignaler) TriggerMisfired(ctx context.Context, t *model.Trigger) {
	_ = s.feishu.SendGroupTextMessage(ctx, fmt.Sprintf(
		"trigger misfired: %s.%s (misfireInstruction=%d)",
		t.Key.Group, t.Key.Name, t.MisfireInstruction,
	))
}

func (s *FeishuSignaler) TriggerFinalized(ctx context.Context, t *model.Trigger) {
	_ = s.feishu.SendGroupTextMessage(ctx, fmt.Sprintf(
		"trigger finalized: %s.%s", t.Key.Group, t.Key.Name,
	))
}

// SchedulingChanged is intentionally silent: a group alert on every state
// transition would be noise, unlike the two event kinds above.
func (s *FeishuSignaler) SchedulingChanged(ctx context.Context) {}
