package payments

import (
	"github.com/shopspring/decimal"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/etchbroker/makelar-backend/pkg/money"
)

const percentPlaces = 4

var (
	hundred = decimal.NewFromInt(100)

	// vendorCostShare and paymentShare cap the vendor down payment.
	vendorCostShare = decimal.NewFromInt(40)
	paymentShare    = decimal.NewFromInt(80)
)

// Terms are the order fields the engine reads.
type Terms struct {
	VendorCost    int64
	CustomerPrice int64
	PaymentType   *enums.PaymentType
}

// Payment is the money movement being split.
type Payment struct {
	Direction enums.TransactionDirection
	Type      enums.TransactionType
	Amount    int64
}

// Allocation is one computed split line. Amounts across a payment sum to the
// payment amount and percentages sum to exactly 100.
type Allocation struct {
	Type       enums.AllocationType `json:"type"`
	Amount     int64                `json:"amount"`
	Percentage decimal.Decimal      `json:"percentage"`
}

// Allocate splits payment between vendor cost and company profit.
func Allocate(terms Terms, payment Payment) ([]Allocation, error) {
	if payment.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayment, "payment amount must be greater than zero").
			WithDetails(map[string]any{"amount": payment.Amount})
	}

	switch payment.Direction {
	case enums.TransactionDirectionIncoming:
		return allocateIncoming(terms, payment)
	case enums.TransactionDirectionOutgoing:
		return allocateOutgoing(payment)
	default:
		return nil, pkgerrors.InvalidArgument("direction", "direction must be incoming or outgoing")
	}
}

func allocateIncoming(terms Terms, payment Payment) ([]Allocation, error) {
	if payment.Type != enums.TransactionTypeCustomerPayment {
		return nil, pkgerrors.InvalidArgument("type", "incoming payments must be customer payments")
	}
	if terms.PaymentType == nil {
		return nil, pkgerrors.InvalidArgument("payment_type", "order has no payment type")
	}
	if terms.VendorCost < 0 {
		return nil, pkgerrors.InvalidArgument("vendor_cost", "vendor cost must not be negative")
	}

	var vendorType enums.AllocationType
	var vendorAmount int64
	switch *terms.PaymentType {
	case enums.PaymentTypeDP50:
		vendorType = enums.AllocationTypeVendorDP
		vendorAmount = money.Min(
			money.Share(terms.VendorCost, vendorCostShare),
			money.Share(payment.Amount, paymentShare),
		)
	case enums.PaymentTypeFull100:
		vendorType = enums.AllocationTypeVendorFinal
		// vendor_final is the vendor cost, capped at the payment so the
		// profit_margin row never goes negative on a short full_100 payment.
		vendorAmount = money.Min(terms.VendorCost, payment.Amount)
	default:
		return nil, pkgerrors.InvalidArgument("payment_type", "unsupported payment type")
	}

	vendorPct, err := money.Ratio(vendorAmount, payment.Amount, percentPlaces)
	if err != nil {
		return nil, err
	}
	return []Allocation{
		{Type: vendorType, Amount: vendorAmount, Percentage: vendorPct},
		{Type: enums.AllocationTypeProfitMargin, Amount: payment.Amount - vendorAmount, Percentage: hundred.Sub(vendorPct)},
	}, nil
}

func allocateOutgoing(payment Payment) ([]Allocation, error) {
	var allocationType enums.AllocationType
	switch payment.Type {
	case enums.TransactionTypeVendorDP:
		allocationType = enums.AllocationTypeVendorDP
	case enums.TransactionTypeVendorFinal:
		allocationType = enums.AllocationTypeVendorFinal
	default:
		return nil, pkgerrors.InvalidArgument("type", "outgoing payments must be vendor_dp or vendor_final")
	}
	return []Allocation{{Type: allocationType, Amount: payment.Amount, Percentage: hundred}}, nil
}
