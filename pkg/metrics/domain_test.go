package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.Transition("quote", "draft", "sent")
	m.Transition("quote", "draft", "sent")
	m.TransitionRejected("order", "in_production")
	m.DuplicateQuoteRejected()
	m.Allocation("vendor_dp", "IDR", 40000)
	m.Allocation("profit_margin", "IDR", 35000)
	m.PaymentRecorded("incoming", "customer_payment")
	m.SLAEvent("order_sla_breached", "vendor_sourcing")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "makelar_status_transitions_total", "to", "sent"); err != nil || got != 2 {
		t.Fatalf("expected 2 quote transitions, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "makelar_status_transitions_rejected_total", "entity", "order"); err != nil || got != 1 {
		t.Fatalf("expected 1 rejected transition, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "makelar_payments_allocated_minor_units_total", "type", "vendor_dp"); err != nil || got != 40000 {
		t.Fatalf("expected 40000 allocated, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "makelar_payments_transactions_total", "direction", "incoming"); err != nil || got != 1 {
		t.Fatalf("expected 1 payment, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "makelar_orders_sla_events_total", "status", "vendor_sourcing"); err != nil || got != 1 {
		t.Fatalf("expected 1 sla event, got %f (%v)", got, err)
	}
	dup := findMetricFamily(mfs, "makelar_duplicate_quotes_rejected_total")
	if dup == nil || dup.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected duplicate counter at 1")
	}
}

func TestDomainMetricsNilSafe(t *testing.T) {
	var m *DomainMetrics
	m.Transition("quote", "draft", "sent")
	m.Allocation("vendor_dp", "IDR", 1)
	m.SLAEvent("order_sla_escalated", "shipped")
	NewDomainMetrics(nil).DuplicateQuoteRejected()
}
