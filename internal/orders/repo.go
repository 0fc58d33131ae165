package orders

import (
	"context"

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

var mutableColumns = []string{
	"customer_id", "vendor_id", "status", "payment_type", "payment_status",
	"vendor_cost", "customer_price", "markup_amount", "markup_percentage", "paid_amount",
	"items", "status_history", "active_sla", "sla_history", "metadata",
	"tracking_number", "estimated_delivery", "shipped_at", "delivered_at", "cancelled_at",
	"version", "updated_at",
}

// ListFilter narrows the paginated order listing.
type ListFilter struct {
	Statuses   []enums.OrderStatus
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
}

// Repository persists order aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*Order, error)
	List(ctx context.Context, scope tenant.Scope, filter ListFilter, params pagination.Params) (*pagination.Page[*Order], error)
	ListWithActiveSLA(ctx context.Context, limit int) ([]*Order, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	row := toModel(order)
	if err := r.DB(ctx).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_orders_tenant_number") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
	}
	return nil
}

// Update applies optimistic locking on the version column.
func (r *repository) Update(ctx context.Context, order *Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	row := toModel(order)
	row.Version = order.version + 1

	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND tenant_id = ? AND version = ?", order.ID, order.TenantID, order.version).
		Select(mutableColumns).
		Updates(&row)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently").
			WithDetails(map[string]any{"order_id": order.ID, "version": order.version})
	}
	order.version = row.Version
	return nil
}

func (r *repository) FindByID(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*Order, error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	return findOne(q, id)
}

// FindByIDForUpdate loads the order holding its row lock until the enclosing
// transaction ends. SQLite has no row locks; callers still get the version
// check on Update.
func (r *repository) FindByIDForUpdate(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*Order, error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return findOne(q, id)
}

func findOne(q *gorm.DB, id uuid.UUID) (*Order, error) {
	var row models.Order
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return fromModel(row), nil
}

func (r *repository) List(ctx context.Context, scope tenant.Scope, filter ListFilter, params pagination.Params) (*pagination.Page[*Order], error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	q, err = pagination.Apply(q, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.Order
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pagination.NewPage(rows, params.Limit, func(row models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	}, fromModel), nil
}

// ListWithActiveSLA spans every tenant and returns open orders that still
// carry an SLA window, least recently touched first.
func (r *repository) ListWithActiveSLA(ctx context.Context, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.DB(ctx).
		Where("active_sla IS NOT NULL").
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusCompleted,
			enums.OrderStatusCancelled,
			enums.OrderStatusRefunded,
		}).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders with active sla")
	}
	out := make([]*Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func toModel(o *Order) models.Order {
	return models.Order{
		ID:                o.ID,
		TenantID:          o.TenantID,
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.customerID,
		VendorID:          o.vendorID,
		Status:            o.status,
		PaymentType:       o.paymentType,
		PaymentStatus:     o.paymentStatus,
		Currency:          o.Currency,
		VendorCost:        o.vendorCost,
		CustomerPrice:     o.customerPrice,
		MarkupAmount:      o.markupAmount,
		MarkupPercentage:  o.markupPercentage,
		PaidAmount:        o.paidAmount,
		Items:             o.items,
		StatusHistory:     o.statusHistory,
		ActiveSLA:         o.activeSLA,
		SLAHistory:        o.slaHistory,
		Metadata:          o.metadata,
		TrackingNumber:    o.trackingNumber,
		EstimatedDelivery: o.estimatedDelivery,
		ShippedAt:         o.shippedAt,
		DeliveredAt:       o.deliveredAt,
		CancelledAt:       o.cancelledAt,
		Version:           o.version,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func fromModel(row models.Order) *Order {
	return &Order{
		ID:                row.ID,
		TenantID:          row.TenantID,
		OrderNumber:       row.OrderNumber,
		Currency:          row.Currency,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		customerID:        row.CustomerID,
		vendorID:          row.VendorID,
		items:             row.Items,
		status:            row.Status,
		paymentType:       row.PaymentType,
		paymentStatus:     row.PaymentStatus,
		vendorCost:        row.VendorCost,
		customerPrice:     row.CustomerPrice,
		markupAmount:      row.MarkupAmount,
		markupPercentage:  row.MarkupPercentage,
		paidAmount:        row.PaidAmount,
		statusHistory:     row.StatusHistory,
		activeSLA:         row.ActiveSLA,
		slaHistory:        row.SLAHistory,
		metadata:          row.Metadata,
		trackingNumber:    row.TrackingNumber,
		estimatedDelivery: row.EstimatedDelivery,
		shippedAt:         row.ShippedAt,
		deliveredAt:       row.DeliveredAt,
		cancelledAt:       row.CancelledAt,
		version:           row.Version,
	}
}
