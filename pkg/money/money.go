package money

import (
	"fmt"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money is an amount in minor currency units tagged with its currency.
type Money struct {
	Amount   int64          `json:"amount"`
	Currency enums.Currency `json:"currency"`
}

// New builds a Money value, defaulting an empty currency.
func New(amount int64, currency enums.Currency) Money {
	if currency == "" {
		currency = enums.DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

// Add sums two values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from m. The result may be negative.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency mismatch").
			WithDetails(map[string]string{"left": string(m.Currency), "right": string(other.Currency)})
	}
	return nil
}

// Share returns pct percent of amount rounded half away from zero to a whole
// minor unit.
func Share(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0).IntPart()
}

// Ratio returns part as a percentage of whole rounded to places decimals.
func Ratio(part, whole int64, places int32) (decimal.Decimal, error) {
	if whole <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "ratio base must be positive")
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(places), nil
}

// Min returns the smaller amount.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
