package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Scoped returns a query restricted to the scope's tenant. Soft-deleted rows
// are hidden unless the scope asks for them.
func (b Base) Scoped(ctx context.Context, scope tenant.Scope) (*gorm.DB, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	q := b.DB(ctx)
	if scope.IncludeDeleted {
		q = q.Unscoped()
	}
	return q.Where("tenant_id = ?", scope.TenantID), nil
}
