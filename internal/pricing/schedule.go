package pricing

import (
	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/money"
	"github.com/shopspring/decimal"
)

var downPaymentShare = decimal.NewFromInt(50)

type InstallmentKind string

const (
	InstallmentDownPayment InstallmentKind = "down_payment"
	InstallmentFinal       InstallmentKind = "final_payment"
	InstallmentFull        InstallmentKind = "full_payment"
)

type Installment struct {
	Kind   InstallmentKind `json:"kind"`
	Amount int64           `json:"amount"`
}

// PaymentSchedule splits customerPrice into the installments the payment
// type requires. Installments always sum to customerPrice.
func PaymentSchedule(customerPrice int64, paymentType enums.PaymentType) ([]Installment, error) {
	if customerPrice <= 0 {
		return nil, pkgerrors.InvalidArgument("customer_price", "customer price must be positive")
	}
	switch paymentType {
	case enums.PaymentTypeDP50:
		dp := money.Share(customerPrice, downPaymentShare)
		return []Installment{
			{Kind: InstallmentDownPayment, Amount: dp},
			{Kind: InstallmentFinal, Amount: customerPrice - dp},
		}, nil
	case enums.PaymentTypeFull100:
		return []Installment{{Kind: InstallmentFull, Amount: customerPrice}}, nil
	default:
		return nil, pkgerrors.InvalidArgument("payment_type", "unsupported payment type")
	}
}

// DownPaymentFloor is the minimum collected amount that counts as a partial
// payment.
func DownPaymentFloor(customerPrice int64) int64 {
	return (customerPrice + 1) / 2
}
