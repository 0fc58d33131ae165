package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/etchbroker/makelar-backend/internal/repo"
	"github.com/etchbroker/makelar-backend/pkg/db"
	"github.com/etchbroker/makelar-backend/pkg/db/models"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/pagination"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

const (
	activePairIndex = "ux_quotes_active_pair"
	sequenceIndex   = "ux_quotes_tenant_sequence"

	// SQLite reports the failing columns rather than the index name.
	activePairColumn = "quotes.vendor_id"
	sequenceColumn   = "quotes.sequence"
)

var mutableColumns = []string{
	"product_id", "quantity", "specifications", "latest_offer", "round",
	"status", "status_history", "history", "sent_at", "responded_at",
	"expires_at", "closed_at", "version", "updated_at",
}

// ActiveFilter narrows active-quote lookups for the duplication guard.
// OrderID is required; VendorID is optional.
type ActiveFilter struct {
	OrderID    uuid.UUID
	VendorID   *uuid.UUID
	Statuses   []enums.QuoteStatus
	ExcludeIDs []uuid.UUID
}

// ListFilter narrows the paginated quote listing.
type ListFilter struct {
	OrderID  *uuid.UUID
	VendorID *uuid.UUID
	Statuses []enums.QuoteStatus
}

// Repository persists quote aggregates. Every read takes a tenant scope.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quote *Quote) error
	Update(ctx context.Context, quote *Quote) error
	FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*Quote, error)
	List(ctx context.Context, scope tenant.Scope, filter ListFilter, params pagination.Params) (*pagination.Page[*Quote], error)
	ListByOrder(ctx context.Context, scope tenant.Scope, orderID uuid.UUID) ([]*Quote, error)
	FindActive(ctx context.Context, scope tenant.Scope, filter ActiveFilter) ([]*Quote, error)
	CountActive(ctx context.Context, scope tenant.Scope, filter ActiveFilter) (int64, error)
	ListExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]*Quote, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a quotes repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Create inserts the quote and assigns the next per-tenant sequence.
func (r *repository) Create(ctx context.Context, quote *Quote) error {
	if quote == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote is required")
	}
	conn := r.DB(ctx)

	var maxSeq int64
	if err := conn.Unscoped().Model(&models.Quote{}).
		Where("tenant_id = ?", quote.TenantID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate quote sequence")
	}

	previous := quote.sequence
	quote.sequence = maxSeq + 1
	row := toModel(quote)
	if err := conn.Create(&row).Error; err != nil {
		quote.sequence = previous
		if db.IsUniqueViolationOn(err, sequenceIndex, sequenceColumn) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "quote sequence taken, retry")
		}
		if db.IsUniqueViolationOn(err, activePairIndex, activePairColumn) {
			return duplicateError(quote.OrderID, quote.VendorID, nil)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert quote")
	}
	return nil
}

// Update writes the aggregate when the stored version still matches, then
// bumps the version.
func (r *repository) Update(ctx context.Context, quote *Quote) error {
	if quote == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote is required")
	}
	row := toModel(quote)
	row.Version = quote.version + 1

	res := r.DB(ctx).Model(&models.Quote{}).
		Where("id = ? AND tenant_id = ? AND version = ?", quote.ID, quote.TenantID, quote.version).
		Select(mutableColumns).
		Updates(&row)
	if res.Error != nil {
		if db.IsUniqueViolationOn(res.Error, activePairIndex, activePairColumn) {
			return duplicateError(quote.OrderID, quote.VendorID, nil)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update quote")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "quote was modified concurrently").
			WithDetails(map[string]any{"quote_id": quote.ID, "version": quote.version})
	}
	quote.version = row.Version
	return nil
}

func (r *repository) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*Quote, error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	var row models.Quote
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	return fromModel(row), nil
}

func (r *repository) List(ctx context.Context, scope tenant.Scope, filter ListFilter, params pagination.Params) (*pagination.Page[*Quote], error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if filter.OrderID != nil {
		q = q.Where("order_id = ?", *filter.OrderID)
	}
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	q, err = pagination.Apply(q, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.Quote
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	return pagination.NewPage(rows, params.Limit, func(row models.Quote) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	}, fromModel), nil
}

func (r *repository) ListByOrder(ctx context.Context, scope tenant.Scope, orderID uuid.UUID) ([]*Quote, error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	var rows []models.Quote
	if err := q.Where("order_id = ?", orderID).
		Order("created_at ASC").Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order quotes")
	}
	return fromModels(rows), nil
}

// FindActive returns active quotes newest first.
func (r *repository) FindActive(ctx context.Context, scope tenant.Scope, filter ActiveFilter) ([]*Quote, error) {
	q, err := r.activeQuery(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	var rows []models.Quote
	if err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "sequence"}, Desc: true}).
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active quotes")
	}
	return fromModels(rows), nil
}

func (r *repository) CountActive(ctx context.Context, scope tenant.Scope, filter ActiveFilter) (int64, error) {
	q, err := r.activeQuery(ctx, scope, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active quotes")
	}
	return n, nil
}

// ListExpiredCandidates spans every tenant. It backs the expiry job, which
// re-scopes each quote to its own tenant before mutating it.
func (r *repository) ListExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]*Quote, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Quote
	err := r.DB(ctx).
		Where("status NOT IN ?", []enums.QuoteStatus{
			enums.QuoteStatusAccepted,
			enums.QuoteStatusRejected,
			enums.QuoteStatusExpired,
			enums.QuoteStatusCancelled,
		}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired quotes")
	}
	return fromModels(rows), nil
}

func (r *repository) activeQuery(ctx context.Context, scope tenant.Scope, filter ActiveFilter) (*gorm.DB, error) {
	if filter.OrderID == uuid.Nil {
		return nil, pkgerrors.InvalidArgument("order_id", "order id is required")
	}
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	q = q.Model(&models.Quote{}).
		Where("order_id = ?", filter.OrderID).
		Where("status IN ?", filter.Statuses)
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if len(filter.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	return q, nil
}

func toModel(q *Quote) models.Quote {
	return models.Quote{
		ID:             q.ID,
		TenantID:       q.TenantID,
		Sequence:       q.sequence,
		OrderID:        q.OrderID,
		VendorID:       q.VendorID,
		ProductID:      q.ProductID,
		Quantity:       q.Quantity,
		Specifications: q.Specifications,
		Currency:       q.Currency,
		InitialOffer:   q.InitialOffer,
		LatestOffer:    q.latestOffer,
		Round:          q.round,
		Status:         q.status,
		StatusHistory:  q.statusHistory,
		History:        q.history,
		SentAt:         q.sentAt,
		RespondedAt:    q.respondedAt,
		ExpiresAt:      q.expiresAt,
		ClosedAt:       q.closedAt,
		CreatedBy:      q.CreatedBy,
		Version:        q.version,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

func fromModel(row models.Quote) *Quote {
	return &Quote{
		ID:             row.ID,
		TenantID:       row.TenantID,
		OrderID:        row.OrderID,
		VendorID:       row.VendorID,
		ProductID:      row.ProductID,
		Quantity:       row.Quantity,
		Specifications: row.Specifications,
		Currency:       row.Currency,
		InitialOffer:   row.InitialOffer,
		CreatedBy:      row.CreatedBy,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		sequence:       row.Sequence,
		version:        row.Version,
		status:         row.Status,
		latestOffer:    row.LatestOffer,
		round:          row.Round,
		statusHistory:  row.StatusHistory,
		history:        row.History,
		sentAt:         row.SentAt,
		respondedAt:    row.RespondedAt,
		expiresAt:      row.ExpiresAt,
		closedAt:       row.ClosedAt,
	}
}

func fromModels(rows []models.Quote) []*Quote {
	out := make([]*Quote, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out
}
