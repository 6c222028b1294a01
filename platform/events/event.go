// Package events is the in-process publish/subscribe plumbing shared by the
// domain modules. Event types themselves live in internal/events.
package events

import (
	"context"
	"time"
)

// Event is anything published on a Bus. EventName doubles as the routing key
// when events are relayed to a broker.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by every domain event to carry its timestamp.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus delivers events to the handlers subscribed to their name.
type Bus interface {
	// Publish delivers asynchronously; handler failures are only logged.
	Publish(ctx context.Context, event Event)
	// PublishSync delivers in subscription order and reports handler errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
