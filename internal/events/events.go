// Package events carries lifecycle events between domain services and the
// notification fan-out. Producers fire and forget; consumers must tolerate
// duplicate and out-of-order delivery.
package events

import (
	"context"
	"time"

	id "carelink/pkg/domain"
)

// Type enumerates the domain events that flow over the bus.
type Type string

const (
	TypeReferralCreated Type = "referral_created"
	TypePhaseCompleted  Type = "phase_completed"
	TypeClientUpdated   Type = "client_updated"
)

// Event is the wire shape produced to the bus. EntityType/EntityID point at
// the record the event is about so notifications can deep-link to it.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OrgID      id.OrgID  `json:"org_id"`
	ActorID    id.UserID `json:"actor_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Title      string    `json:"title"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Emitter is the producer side seen by domain services.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Handler is the consumer side: the notification fan-out implements it.
type Handler func(ctx context.Context, event Event) error

// Nop is an Emitter that drops every event. Used by tests and by deployments
// with neither a broker nor an in-process consumer.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
