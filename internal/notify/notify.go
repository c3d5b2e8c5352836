// Package notify dispatches templated notifications. Delivery is
// fire-and-forget from the engine's point of view; the default dispatcher
// just logs what would be sent.
package notify

import (
	"context"

	"github.com/pathwayhr/pathway/internal/logging"
)

// Dispatcher sends one templated notification to a recipient.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, template string, payload map[string]any) error
}

// LogDispatcher writes notifications to the log instead of delivering them.
type LogDispatcher struct {
	logger *logging.Logger
}

// NewLogDispatcher creates a LogDispatcher. logger may be nil, which makes
// dispatch a silent no-op.
func NewLogDispatcher(logger *logging.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, to, subject, template string, payload map[string]any) error {
	d.logger.Info("notify %s subject=%q template=%s payload=%v", to, subject, template, payload)
	return nil
}
