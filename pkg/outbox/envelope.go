package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version       int             `json:"version"`
	EventID       string          `json:"eventId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Actor         *ActorRef       `json:"actor,omitempty"`
	Data          json.RawMessage `json:"data"`
}

type (
	actorKey       struct{}
	correlationKey struct{}
)

// WithActor stores the acting principal so events emitted further down the
// call chain are attributed to it.
func WithActor(ctx context.Context, actor ActorRef) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the principal stored by WithActor, if any.
func ActorFromContext(ctx context.Context) *ActorRef {
	if ctx == nil {
		return nil
	}
	if actor, ok := ctx.Value(actorKey{}).(ActorRef); ok {
		return &actor
	}
	return nil
}

// WithCorrelationID tags events emitted under ctx with the request that caused them.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
