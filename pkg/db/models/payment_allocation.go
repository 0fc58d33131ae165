package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/etchbroker/makelar-backend/pkg/enums"
)

// PaymentAllocation splits one payment transaction between vendor cost and
// company profit. Rows are immutable apart from status promotion.
type PaymentAllocation struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	TenantID            uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null"`
	OrderID             uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	TransactionID       uuid.UUID              `gorm:"column:transaction_id;type:uuid;not null"`
	AllocationType      enums.AllocationType   `gorm:"column:allocation_type;type:text;not null"`
	AllocatedAmount     int64                  `gorm:"column:allocated_amount;not null"`
	AllocatedPercentage decimal.Decimal        `gorm:"column:allocated_percentage;type:numeric(7,4);not null"`
	TargetVendorID      *uuid.UUID             `gorm:"column:target_vendor_id;type:uuid"`
	Status              enums.AllocationStatus `gorm:"column:status;type:text;not null;default:'allocated'"`
	PaidAt              *time.Time             `gorm:"column:paid_at"`
	CreatedAt           time.Time              `gorm:"column:created_at"`
	UpdatedAt           time.Time              `gorm:"column:updated_at"`
}

func (PaymentAllocation) TableName() string { return "payment_allocations" }
