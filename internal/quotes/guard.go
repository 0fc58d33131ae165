package quotes

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

// Guard enforces at most one active quote per (tenant, order, vendor).
type Guard struct {
	repo     Repository
	statuses []enums.QuoteStatus
}

// GuardOption adjusts a single guard query.
type GuardOption func(*ActiveFilter)

// ExcludingIDs skips the given quotes, typically the one being updated.
func ExcludingIDs(ids ...uuid.UUID) GuardOption {
	return func(f *ActiveFilter) {
		for _, id := range ids {
			if id != uuid.Nil {
				f.ExcludeIDs = append(f.ExcludeIDs, id)
			}
		}
	}
}

// WithStatuses overrides the configured active statuses for one query.
func WithStatuses(statuses ...enums.QuoteStatus) GuardOption {
	return func(f *ActiveFilter) {
		f.Statuses = append([]enums.QuoteStatus(nil), statuses...)
	}
}

// NewGuard builds a guard. An empty status list falls back to open, sent and
// countered.
func NewGuard(repo Repository, activeStatuses []enums.QuoteStatus) (*Guard, error) {
	if repo == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if len(activeStatuses) == 0 {
		activeStatuses = DefaultActiveStatuses()
	}
	for _, status := range activeStatuses {
		if !status.IsValid() {
			return nil, fmt.Errorf("invalid active quote status %q", status)
		}
	}
	return &Guard{repo: repo, statuses: append([]enums.QuoteStatus(nil), activeStatuses...)}, nil
}

// ActiveStatuses returns a copy of the configured statuses.
func (g *Guard) ActiveStatuses() []enums.QuoteStatus {
	return append([]enums.QuoteStatus(nil), g.statuses...)
}

// IsActive reports whether status counts towards the one-active-quote rule.
func (g *Guard) IsActive(status enums.QuoteStatus) bool {
	for _, s := range g.statuses {
		if s == status {
			return true
		}
	}
	return false
}

// WithRepository returns a guard sharing configuration but bound to repo,
// usually a transaction-scoped repository.
func (g *Guard) WithRepository(repo Repository) *Guard {
	return &Guard{repo: repo, statuses: g.statuses}
}

// Check reports whether an active quote exists for the pair.
func (g *Guard) Check(ctx context.Context, scope tenant.Scope, orderID, vendorID uuid.UUID, opts ...GuardOption) (bool, error) {
	filter, ok := g.filter(orderID, &vendorID, opts)
	if !ok {
		return false, scope.Validate()
	}
	n, err := g.repo.CountActive(ctx, scope, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetExisting returns the most recently created active quote for the pair,
// or nil when there is none.
func (g *Guard) GetExisting(ctx context.Context, scope tenant.Scope, orderID, vendorID uuid.UUID, opts ...GuardOption) (*Quote, error) {
	filter, ok := g.filter(orderID, &vendorID, opts)
	if !ok {
		return nil, scope.Validate()
	}
	quotes, err := g.repo.FindActive(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	return quotes[0], nil
}

// HasActiveQuotes reports whether any vendor has an active quote on the order.
func (g *Guard) HasActiveQuotes(ctx context.Context, scope tenant.Scope, orderID uuid.UUID, opts ...GuardOption) (bool, error) {
	n, err := g.CountActive(ctx, scope, orderID, opts...)
	return n > 0, err
}

// CountActive counts active quotes on the order across vendors.
func (g *Guard) CountActive(ctx context.Context, scope tenant.Scope, orderID uuid.UUID, opts ...GuardOption) (int64, error) {
	filter, ok := g.filter(orderID, nil, opts)
	if !ok {
		return 0, scope.Validate()
	}
	return g.repo.CountActive(ctx, scope, filter)
}

// ListActive lists active quotes on the order, newest first.
func (g *Guard) ListActive(ctx context.Context, scope tenant.Scope, orderID uuid.UUID, opts ...GuardOption) ([]*Quote, error) {
	filter, ok := g.filter(orderID, nil, opts)
	if !ok {
		return nil, scope.Validate()
	}
	return g.repo.FindActive(ctx, scope, filter)
}

// ValidateNoDuplicate fails with CodeDuplicateQuote when the pair already has
// an active quote.
func (g *Guard) ValidateNoDuplicate(ctx context.Context, scope tenant.Scope, orderID, vendorID uuid.UUID, opts ...GuardOption) error {
	existing, err := g.GetExisting(ctx, scope, orderID, vendorID, opts...)
	if err != nil {
		return err
	}
	if existing != nil {
		return duplicateError(orderID, vendorID, existing)
	}
	return nil
}

// filter reports false when the effective status set is empty, in which case
// nothing can be active.
func (g *Guard) filter(orderID uuid.UUID, vendorID *uuid.UUID, opts []GuardOption) (ActiveFilter, bool) {
	filter := ActiveFilter{OrderID: orderID, VendorID: vendorID, Statuses: g.statuses}
	for _, opt := range opts {
		opt(&filter)
	}
	return filter, len(filter.Statuses) > 0
}

func duplicateError(orderID, vendorID uuid.UUID, existing *Quote) error {
	details := map[string]any{
		"order_id":  orderID,
		"vendor_id": vendorID,
	}
	if existing != nil {
		details["existing_quote_id"] = existing.ID
		details["existing_quote_number"] = existing.Number()
		details["existing_status"] = existing.Status()
	}
	return pkgerrors.New(pkgerrors.CodeDuplicateQuote, "vendor already has an active quote for this order").
		WithDetails(details)
}
