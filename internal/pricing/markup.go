package pricing

import (
	"github.com/etchbroker/makelar-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Markup is the company's gross margin on a vendor cost.
type Markup struct {
	MarkupAmount     int64           `json:"markup_amount"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	IsProfitable     bool            `json:"is_profitable"`
}

// CalculateMarkup returns the markup of customerPrice over vendorCost. The
// percentage is relative to vendor cost with two decimals. Non-positive
// inputs yield the zero Markup.
func CalculateMarkup(vendorCost, customerPrice int64) Markup {
	if vendorCost <= 0 || customerPrice <= 0 {
		return Markup{MarkupPercentage: decimal.Zero}
	}
	amount := customerPrice - vendorCost
	pct, err := money.Ratio(amount, vendorCost, 2)
	if err != nil {
		return Markup{MarkupPercentage: decimal.Zero}
	}
	return Markup{
		MarkupAmount:     amount,
		MarkupPercentage: pct,
		IsProfitable:     amount > 0,
	}
}

// Profit is the margin per unit and across the whole quantity.
type Profit struct {
	PerUnit int64 `json:"per_unit"`
	Total   int64 `json:"total"`
}

// CalculateProfit returns unit and total profit. Quantity below one yields zero.
func CalculateProfit(vendorUnitCost, customerUnitPrice int64, quantity int) Profit {
	if quantity < 1 {
		return Profit{}
	}
	perUnit := customerUnitPrice - vendorUnitCost
	return Profit{PerUnit: perUnit, Total: perUnit * int64(quantity)}
}
