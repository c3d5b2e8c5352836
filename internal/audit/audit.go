// Package audit records the trail of state-changing engine operations.
// Recording is best effort: a failed write is logged and never aborts the
// operation that produced it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pathwayhr/pathway/internal/logging"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/store"
)

// Writer appends audit entries to the document store.
type Writer struct {
	store  store.Interface
	logger *logging.Logger
}

// NewWriter creates a Writer. logger may be nil.
func NewWriter(st store.Interface, logger *logging.Logger) *Writer {
	return &Writer{store: st, logger: logger}
}

// Record fills in the entry's ID and timestamp and appends it. Errors are
// logged only.
func (w *Writer) Record(ctx context.Context, e model.AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := w.store.AppendAudit(ctx, &e); err != nil {
		w.logger.Error("audit write failed for %s %s/%s: %v", e.Action, e.EntityType, e.EntityID, err)
	}
}

// List returns the recorded entries for an entity.
func (w *Writer) List(ctx context.Context, entityType, entityID string) ([]*model.AuditEntry, error) {
	return w.store.ListAudit(ctx, entityType, entityID)
}
