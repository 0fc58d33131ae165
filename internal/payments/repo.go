package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/internal/repo"
	"github.com/etchbroker/makelar-backend/pkg/db"
	"github.com/etchbroker/makelar-backend/pkg/db/models"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

// Repository persists payment transactions and their allocation rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	ListByOrder(ctx context.Context, scope tenant.Scope, orderID uuid.UUID) ([]models.PaymentTransaction, error)
	SumOutgoing(ctx context.Context, scope tenant.Scope, orderID uuid.UUID) (int64, error)
	FindAllocation(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.PaymentAllocation, error)
	MarkAllocationPaid(ctx context.Context, scope tenant.Scope, id uuid.UUID, paidAt time.Time) error
}

type repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// CreateTransaction inserts the transaction together with its allocations.
func (r *repository) CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment transaction is required")
	}
	if err := r.DB(ctx).Create(txn).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment transaction")
	}
	return nil
}

func (r *repository) ListByOrder(ctx context.Context, scope tenant.Scope, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	var rows []models.PaymentTransaction
	if err := q.Where("order_id = ?", orderID).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("allocation_type ASC")
		}).
		Order("paid_at ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment transactions")
	}
	return rows, nil
}

// SumOutgoing totals what was already disbursed to the vendor for an order.
func (r *repository) SumOutgoing(ctx context.Context, scope tenant.Scope, orderID uuid.UUID) (int64, error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := q.Model(&models.PaymentTransaction{}).
		Where("order_id = ? AND direction = ?", orderID, enums.TransactionDirectionOutgoing).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum vendor payouts")
	}
	return total, nil
}

func (r *repository) FindAllocation(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.PaymentAllocation, error) {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	var row models.PaymentAllocation
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
	}
	return &row, nil
}

// MarkAllocationPaid promotes an allocated row to paid. Rows already paid are
// reported as a conflict.
func (r *repository) MarkAllocationPaid(ctx context.Context, scope tenant.Scope, id uuid.UUID, paidAt time.Time) error {
	q, err := r.Scoped(ctx, scope)
	if err != nil {
		return err
	}
	res := q.Model(&models.PaymentAllocation{}).
		Where("id = ? AND status = ?", id, enums.AllocationStatusAllocated).
		Updates(map[string]any{
			"status":     enums.AllocationStatusPaid,
			"paid_at":    paidAt,
			"updated_at": paidAt,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark allocation paid")
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindAllocation(ctx, scope, id); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "allocation already paid").
			WithDetails(map[string]any{"allocation_id": id})
	}
	return nil
}
