package types

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange is one entry of an append-only status history.
type StatusChange struct {
	From      *string    `json:"from"`
	To        string     `json:"to"`
	ChangedBy *uuid.UUID `json:"changed_by"`
	ChangedAt time.Time  `json:"changed_at"`
	Reason    string     `json:"reason"`
}

// HistoryEntry is a free-form action log record.
type HistoryEntry struct {
	Action    string     `json:"action"`
	UserID    *uuid.UUID `json:"user_id"`
	Timestamp time.Time  `json:"timestamp"`
	Data      JSONMap    `json:"data,omitempty"`
}

// OrderItem is one ordered product line.
type OrderItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPrice      int64     `json:"unit_price"`
	Specifications JSONMap   `json:"specifications,omitempty"`
}

// SLAEscalation records an escalation level that fired during a window.
type SLAEscalation struct {
	Level        string     `json:"level"`
	Channel      string     `json:"channel"`
	AfterMinutes int        `json:"after_minutes"`
	TriggeredAt  *time.Time `json:"triggered_at,omitempty"`
}

// SLAWindow tracks time spent in a single order status.
type SLAWindow struct {
	Status           string          `json:"status"`
	StartedAt        time.Time       `json:"started_at"`
	DueAt            time.Time       `json:"due_at"`
	ThresholdMinutes int             `json:"threshold_minutes"`
	EndedAt          *time.Time      `json:"ended_at,omitempty"`
	DurationMinutes  int             `json:"duration_minutes,omitempty"`
	Breached         bool            `json:"breached"`
	BreachedAt       *time.Time      `json:"breached_at,omitempty"`
	Escalations      []SLAEscalation `json:"escalations,omitempty"`
}

// Clone copies the entry including the values behind its pointers.
func (c StatusChange) Clone() StatusChange {
	if c.From != nil {
		from := *c.From
		c.From = &from
	}
	c.ChangedBy = cloneUUID(c.ChangedBy)
	return c
}

// Clone copies the entry including its user id and data payload.
func (h HistoryEntry) Clone() HistoryEntry {
	h.UserID = cloneUUID(h.UserID)
	h.Data = h.Data.Clone()
	return h
}

// Clone copies the window, its timestamps and escalations.
func (w SLAWindow) Clone() SLAWindow {
	w.EndedAt = cloneTime(w.EndedAt)
	w.BreachedAt = cloneTime(w.BreachedAt)
	if w.Escalations != nil {
		escalations := make([]SLAEscalation, len(w.Escalations))
		for i, e := range w.Escalations {
			e.TriggeredAt = cloneTime(e.TriggeredAt)
			escalations[i] = e
		}
		w.Escalations = escalations
	}
	return w
}

// CloneStatusHistory deep-copies a status history.
func CloneStatusHistory(in []StatusChange) []StatusChange {
	out := make([]StatusChange, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// CloneHistory deep-copies an action log.
func CloneHistory(in []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(in))
	for i, h := range in {
		out[i] = h.Clone()
	}
	return out
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
