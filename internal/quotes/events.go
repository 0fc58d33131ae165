package quotes

import (
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/enums"
)

// Event is a domain event raised by a Quote and drained by the service.
type Event struct {
	Type       enums.OutboxEventType
	OccurredAt time.Time
	Actor      *uuid.UUID
	Payload    any
}

func (q *Quote) record(eventType enums.OutboxEventType, at time.Time, actor *uuid.UUID, payload any) {
	q.events = append(q.events, Event{
		Type:       eventType,
		OccurredAt: at,
		Actor:      actor,
		Payload:    payload,
	})
}

// PullEvents returns the pending events and clears the queue.
func (q *Quote) PullEvents() []Event {
	events := q.events
	q.events = nil
	return events
}
