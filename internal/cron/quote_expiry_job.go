package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/etchbroker/makelar-backend/internal/quotes"
	"github.com/etchbroker/makelar-backend/pkg/clock"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultQuoteExpiryBatch = 200

type quoteCandidateReader interface {
	ListExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]*quotes.Quote, error)
}

type quoteExpirer interface {
	Expire(ctx context.Context, scope tenant.Scope, id uuid.UUID) (bool, error)
}

type QuoteExpiryJobParams struct {
	Logger    *logger.Logger
	Reader    quoteCandidateReader
	Expirer   quoteExpirer
	Clock     clock.Clock
	BatchSize int
}

// NewQuoteExpiryJob closes pending and sent quotes whose expiry has passed.
func NewQuoteExpiryJob(params QuoteExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("quote reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("quote expirer required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.System()
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultQuoteExpiryBatch
	}
	return &quoteExpiryJob{
		logg:    params.Logger,
		reader:  params.Reader,
		expirer: params.Expirer,
		clock:   clk,
		batch:   batch,
	}, nil
}

type quoteExpiryJob struct {
	logg    *logger.Logger
	reader  quoteCandidateReader
	expirer quoteExpirer
	clock   clock.Clock
	batch   int
}

func (j *quoteExpiryJob) Name() string { return "quote-expiry" }

// Run expires each candidate in its own transaction so one failing quote
// does not hold back the rest of the batch.
func (j *quoteExpiryJob) Run(ctx context.Context) (int, error) {
	now := j.clock.Now()
	candidates, err := j.reader.ListExpiredCandidates(ctx, now, j.batch)
	if err != nil {
		return 0, fmt.Errorf("list expired quotes: %w", err)
	}

	var (
		expired int
		errs    error
	)
	for _, quote := range candidates {
		if ctx.Err() != nil {
			return expired, multierr.Append(errs, ctx.Err())
		}
		changed, err := j.expirer.Expire(ctx, tenant.Scope{TenantID: quote.TenantID}, quote.ID)
		if err != nil {
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"quote_id":  quote.ID.String(),
				"tenant_id": quote.TenantID.String(),
			})
			j.logg.Warn(logCtx, "quote expiry failed")
			errs = multierr.Append(errs, fmt.Errorf("expire quote %s: %w", quote.ID, err))
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, errs
}
