package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/enums"
)

// Event is a domain event raised by an Order and drained by the service.
type Event struct {
	Type       enums.OutboxEventType
	OccurredAt time.Time
	Actor      *uuid.UUID
	Payload    any
}

func (o *Order) record(eventType enums.OutboxEventType, at time.Time, actor *uuid.UUID, payload any) {
	o.events = append(o.events, Event{Type: eventType, OccurredAt: at, Actor: actor, Payload: payload})
}

// PullEvents returns the pending events and clears the queue.
func (o *Order) PullEvents() []Event {
	events := o.events
	o.events = nil
	return events
}
