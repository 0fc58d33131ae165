package cron

import (
	"context"
	"fmt"

	"github.com/etchbroker/makelar-backend/internal/orders"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultSLABatch = 200

type slaOrderReader interface {
	ListWithActiveSLA(ctx context.Context, limit int) ([]*orders.Order, error)
}

type slaEvaluator interface {
	EvaluateSLA(ctx context.Context, scope tenant.Scope, id uuid.UUID) (bool, error)
}

type OrderSLAJobParams struct {
	Logger    *logger.Logger
	Reader    slaOrderReader
	Evaluator slaEvaluator
	BatchSize int
}

// NewOrderSLAJob walks orders with a running SLA timer and lets the order
// service raise warnings and escalations.
func NewOrderSLAJob(params OrderSLAJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if params.Evaluator == nil {
		return nil, fmt.Errorf("sla evaluator required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSLABatch
	}
	return &orderSLAJob{
		logg:      params.Logger,
		reader:    params.Reader,
		evaluator: params.Evaluator,
		batch:     batch,
	}, nil
}

type orderSLAJob struct {
	logg      *logger.Logger
	reader    slaOrderReader
	evaluator slaEvaluator
	batch     int
}

func (j *orderSLAJob) Name() string { return "order-sla" }

func (j *orderSLAJob) Run(ctx context.Context) (int, error) {
	open, err := j.reader.ListWithActiveSLA(ctx, j.batch)
	if err != nil {
		return 0, fmt.Errorf("list orders with sla: %w", err)
	}

	var (
		updated int
		errs    error
	)
	for _, order := range open {
		if ctx.Err() != nil {
			return updated, multierr.Append(errs, ctx.Err())
		}
		changed, err := j.evaluator.EvaluateSLA(ctx, tenant.Scope{TenantID: order.TenantID}, order.ID)
		if err != nil {
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"order_id":  order.ID.String(),
				"tenant_id": order.TenantID.String(),
			})
			j.logg.Warn(logCtx, "order sla evaluation failed")
			errs = multierr.Append(errs, fmt.Errorf("evaluate sla for order %s: %w", order.ID, err))
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, errs
}
