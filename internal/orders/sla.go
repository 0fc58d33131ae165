package orders

import (
	"time"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/outbox/payloads"
	"github.com/etchbroker/makelar-backend/pkg/types"
)

// Escalation notifies Level over Channel once a window has been open for
// AfterMinutes.
type Escalation struct {
	Level        string
	Channel      string
	AfterMinutes int
}

// SLAPolicy is the time budget for one order status.
type SLAPolicy struct {
	ThresholdMinutes int
	Escalations      []Escalation
}

// SLAPolicies maps statuses to their budget. Statuses without a policy are
// not tracked.
type SLAPolicies map[enums.OrderStatus]SLAPolicy

// DefaultSLAPolicies returns the operations team's standard budgets.
func DefaultSLAPolicies() SLAPolicies {
	return SLAPolicies{
		enums.OrderStatusVendorSourcing: {ThresholdMinutes: 240, Escalations: []Escalation{
			{Level: "procurement_lead", Channel: "slack", AfterMinutes: 240},
			{Level: "operations_manager", Channel: "email", AfterMinutes: 360},
		}},
		enums.OrderStatusVendorNegotiation: {ThresholdMinutes: 720, Escalations: []Escalation{
			{Level: "procurement_manager", Channel: "slack", AfterMinutes: 720},
			{Level: "general_manager", Channel: "email", AfterMinutes: 960},
		}},
		enums.OrderStatusCustomerQuote: {ThresholdMinutes: 1440, Escalations: []Escalation{
			{Level: "sales_lead", Channel: "email", AfterMinutes: 1440},
			{Level: "operations_manager", Channel: "slack", AfterMinutes: 2160},
		}},
		enums.OrderStatusAwaitingPayment: {ThresholdMinutes: 4320, Escalations: []Escalation{
			{Level: "finance_team", Channel: "email", AfterMinutes: 4320},
		}},
		enums.OrderStatusInProduction: {ThresholdMinutes: 2880, Escalations: []Escalation{
			{Level: "production_manager", Channel: "slack", AfterMinutes: 2880},
			{Level: "operations_manager", Channel: "email", AfterMinutes: 4320},
		}},
		enums.OrderStatusQualityCheck: {ThresholdMinutes: 720, Escalations: []Escalation{
			{Level: "qa_lead", Channel: "slack", AfterMinutes: 720},
		}},
		enums.OrderStatusShipped: {ThresholdMinutes: 2880, Escalations: []Escalation{
			{Level: "logistics_manager", Channel: "email", AfterMinutes: 2880},
			{Level: "operations_manager", Channel: "slack", AfterMinutes: 4320},
		}},
	}
}

func (o *Order) startSLA(policies SLAPolicies, status enums.OrderStatus, now time.Time) {
	o.activeSLA = nil
	policy, ok := policies[status]
	if !ok || policy.ThresholdMinutes <= 0 {
		return
	}
	window := &types.SLAWindow{
		Status:           string(status),
		StartedAt:        now,
		DueAt:            now.Add(time.Duration(policy.ThresholdMinutes) * time.Minute),
		ThresholdMinutes: policy.ThresholdMinutes,
	}
	for _, esc := range policy.Escalations {
		window.Escalations = append(window.Escalations, types.SLAEscalation{
			Level:        esc.Level,
			Channel:      esc.Channel,
			AfterMinutes: esc.AfterMinutes,
		})
	}
	o.activeSLA = window
}

// closeSLA moves the active window into history. Breach is judged on the
// total time spent, even when the sweep never saw it. Reaching DueAt counts as
// a breach here and in EvaluateSLA.
func (o *Order) closeSLA(now time.Time) {
	window := o.activeSLA
	if window == nil {
		return
	}
	o.activeSLA = nil
	ended := now
	window.EndedAt = &ended
	window.DurationMinutes = int(now.Sub(window.StartedAt) / time.Minute)
	if !window.Breached && !now.Before(window.DueAt) {
		window.Breached = true
		window.BreachedAt = &ended
	}
	o.slaHistory = append(o.slaHistory, *window)
}

// EvaluateSLA fires due escalations and the breach marker for the active
// window, each at most once. It reports whether anything changed.
func (o *Order) EvaluateSLA(now time.Time) bool {
	window := o.activeSLA
	if window == nil || window.Status != string(o.status) {
		return false
	}
	changed := false
	elapsed := int(now.Sub(window.StartedAt) / time.Minute)

	for i := range window.Escalations {
		esc := &window.Escalations[i]
		if esc.TriggeredAt != nil {
			continue
		}
		triggerAt := window.StartedAt.Add(time.Duration(esc.AfterMinutes) * time.Minute)
		if now.Before(triggerAt) {
			continue
		}
		esc.TriggeredAt = &triggerAt
		changed = true
		o.record(enums.EventOrderSLAEscalated, now, nil, payloads.OrderSLAEvent{
			OrderID:        o.ID,
			Status:         o.status,
			DueAt:          window.DueAt,
			ElapsedMinutes: elapsed,
			Level:          esc.Level,
			Channel:        esc.Channel,
		})
	}

	if !window.Breached && !now.Before(window.DueAt) {
		at := now
		window.Breached = true
		window.BreachedAt = &at
		changed = true
		o.record(enums.EventOrderSLABreached, now, nil, payloads.OrderSLAEvent{
			OrderID:        o.ID,
			Status:         o.status,
			DueAt:          window.DueAt,
			ElapsedMinutes: elapsed,
		})
	}

	if changed {
		o.UpdatedAt = now
	}
	return changed
}
