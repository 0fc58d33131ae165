package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/etchbroker/makelar-backend/internal/orders"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
	"github.com/google/uuid"
)

type fakeSLAReader struct {
	orders    []*orders.Order
	lastLimit int
}

func (f *fakeSLAReader) ListWithActiveSLA(_ context.Context, limit int) ([]*orders.Order, error) {
	f.lastLimit = limit
	return f.orders, nil
}

type fakeSLAEvaluator struct {
	changed map[uuid.UUID]bool
	failing map[uuid.UUID]bool
	calls   int
}

func (f *fakeSLAEvaluator) EvaluateSLA(_ context.Context, _ tenant.Scope, id uuid.UUID) (bool, error) {
	f.calls++
	if f.failing[id] {
		return false, errors.New("version conflict")
	}
	return f.changed[id], nil
}

func TestOrderSLAJobEvaluatesEveryOrder(t *testing.T) {
	late := &orders.Order{ID: uuid.New(), TenantID: uuid.New()}
	onTime := &orders.Order{ID: uuid.New(), TenantID: uuid.New()}
	broken := &orders.Order{ID: uuid.New(), TenantID: uuid.New()}
	reader := &fakeSLAReader{orders: []*orders.Order{late, broken, onTime}}
	evaluator := &fakeSLAEvaluator{
		changed: map[uuid.UUID]bool{late.ID: true},
		failing: map[uuid.UUID]bool{broken.ID: true},
	}
	job, err := NewOrderSLAJob(OrderSLAJobParams{Logger: testLogger(), Reader: reader, Evaluator: evaluator})
	if err != nil {
		t.Fatalf("NewOrderSLAJob: %v", err)
	}
	if job.Name() != "order-sla" {
		t.Fatalf("unexpected name %q", job.Name())
	}

	updated, err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from failing order")
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated order, got %d", updated)
	}
	if evaluator.calls != 3 {
		t.Fatalf("expected all 3 orders evaluated, got %d", evaluator.calls)
	}
	if reader.lastLimit != defaultSLABatch {
		t.Fatalf("expected default batch %d, got %d", defaultSLABatch, reader.lastLimit)
	}
}

func TestOrderSLAJobStopsOnCanceledContext(t *testing.T) {
	reader := &fakeSLAReader{orders: []*orders.Order{{ID: uuid.New(), TenantID: uuid.New()}}}
	evaluator := &fakeSLAEvaluator{}
	job, err := NewOrderSLAJob(OrderSLAJobParams{Logger: testLogger(), Reader: reader, Evaluator: evaluator})
	if err != nil {
		t.Fatalf("NewOrderSLAJob: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if evaluator.calls != 0 {
		t.Fatalf("expected no evaluations, got %d", evaluator.calls)
	}
}
