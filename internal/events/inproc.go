package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// InProcess delivers events straight to the handler on the caller's
// goroutine. Used when no broker is configured so notification fan-out still
// happens; handler failures are logged, never surfaced, matching the bus's
// fire-and-forget contract.
type InProcess struct {
	handler Handler
	logger  *slog.Logger
}

func NewInProcess(handler Handler, logger *slog.Logger) *InProcess {
	return &InProcess{handler: handler, logger: logger}
}

func (b *InProcess) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := b.handler(ctx, event); err != nil {
		b.logger.Error("event handling failed",
			"event_type", string(event.Type),
			"error", err,
		)
	}
	return nil
}
