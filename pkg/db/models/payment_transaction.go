package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/enums"
)

// PaymentTransaction records money moving between the customer, the company
// and a vendor.
type PaymentTransaction struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID                  `gorm:"column:tenant_id;type:uuid;not null"`
	OrderID     uuid.UUID                  `gorm:"column:order_id;type:uuid;not null"`
	Direction   enums.TransactionDirection `gorm:"column:direction;type:text;not null"`
	Type        enums.TransactionType      `gorm:"column:type;type:text;not null"`
	Amount      int64                      `gorm:"column:amount;not null"`
	Currency    enums.Currency             `gorm:"column:currency;type:text;not null;default:'IDR'"`
	Method      string                     `gorm:"column:method;not null;default:'bank_transfer'"`
	Reference   *string                    `gorm:"column:reference"`
	VendorID    *uuid.UUID                 `gorm:"column:vendor_id;type:uuid"`
	RecordedBy  *uuid.UUID                 `gorm:"column:recorded_by;type:uuid"`
	PaidAt      time.Time                  `gorm:"column:paid_at;not null"`
	CreatedAt   time.Time                  `gorm:"column:created_at"`
	Allocations []PaymentAllocation        `gorm:"foreignKey:TransactionID"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
