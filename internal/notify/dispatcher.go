package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
)

// Store persists notifications for the in-app feed.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, kind string, payload json.RawMessage) error
}

// Dispatcher is the fire-and-forget notification collaborator. Failures are
// logged and swallowed: a lost notification must never roll back the ledger
// mutation that produced it.
type Dispatcher struct {
	store  Store
	logger *slog.Logger
}

func NewDispatcher(store Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, logger: logger}
}

// Notify records the event for the user. payload may be any
// JSON-marshallable value; marshal errors are treated like store failures.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, kind string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			d.logger.Warn("notify: marshal payload", "user_id", userID, "kind", kind, "error", err)
			return
		}
		raw = b
	}
	if err := d.store.Create(ctx, userID, kind, raw); err != nil {
		d.logger.Warn("notify: store failed", "user_id", userID, "kind", kind, "error", err)
	}
}
