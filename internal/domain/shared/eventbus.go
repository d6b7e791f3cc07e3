package shared

import "context"

// EventHandler reacts to committed domain events such as DocumentApproved or
// BatchExpired. EventTypes lists what it wants; nil means every event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher is what services depend on. Publish is only called after the
// owning transaction committed, and its error never rolls anything back.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is the process-wide publisher with handler registration and a
// start/stop lifecycle owned by cmd/server.
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
