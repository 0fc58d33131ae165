package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
)

const (
	defaultPairLockTTL = 10 * time.Second
	pairLockAttempts   = 5
	pairLockBackoff    = 50 * time.Millisecond
)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	QuotePairLockKey(tenantID, orderID, vendorID string) string
}

// PairLock serialises quote creation per (tenant, order, vendor) across API
// instances.
type PairLock struct {
	store lockStore
	ttl   time.Duration
}

func NewPairLock(store lockStore, ttl time.Duration) *PairLock {
	if ttl <= 0 {
		ttl = defaultPairLockTTL
	}
	return &PairLock{store: store, ttl: ttl}
}

// LockPair retries briefly while another request holds the pair and gives
// up with a conflict error.
func (l *PairLock) LockPair(ctx context.Context, tenantID, orderID, vendorID uuid.UUID) (func(context.Context) error, error) {
	key := l.store.QuotePairLockKey(tenantID.String(), orderID.String(), vendorID.String())
	owner := uuid.NewString()

	backoff := pairLockBackoff
	for attempt := 1; ; attempt++ {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire quote lock")
		}
		if ok {
			break
		}
		if attempt == pairLockAttempts {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "another quote for this vendor is being created").
				WithDetails(map[string]any{"order_id": orderID, "vendor_id": vendorID})
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), "acquire quote lock")
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return func(ctx context.Context) error {
		if _, err := l.store.ReleaseIfOwner(ctx, key, owner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release quote lock")
		}
		return nil
	}, nil
}
