// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package signal provides store.Signaler implementations: side-channel
// notification of misfires, finalized triggers, and scheduling changes,
// entirely separate from the store's own persisted state.
package signal

import (
	"context"

	"github.com/seakee/jobstore/model"
	"github.com/sk-pkg/logger"
	"go.uber.org/zap"
)

// LogSignaler reports every signal as a structured log line, the way the
// teacher's job handlers report state through *logger.Manager rather than
// a dedicated event bus.
type LogSignaler struct {
	log *logger.Manager
}

// NewLogSignaler wraps an already-configured *logger.Manager.
func NewLogSignaler(log *logger.Manager) *LogSignaler {
	return &LogSignaler{log: log}
}

func (s *LogSignaler) TriggerMisfired(ctx context.Context, t *model.Trigger) {
	s.log.Warn(ctx, "trigger misfired",
		zap.String("group", t.Key.Group),
		zap.String("name", t.Key.Name),
		zap.Int("misfireInstruction", t.MisfireInstruction),
	)
}

func (s *LogSignaler) TriggerFinalized(ctx context.Context, t *model.Trigger) {
	s.log.Info(ctx, "trigger finalized",
		zap.String("group", t.Key.Group),
		zap.String("name", t.Key.Name),
	)
}

func (s *LogSignaler) SchedulingChanged(ctx context.Context) {
	s.log.Info(ctx, "scheduling changed")
}
