package pricing

import (
	"sort"

	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type QuoteCandidate struct {
	VendorID     uuid.UUID `json:"vendor_id"`
	QuoteID      uuid.UUID `json:"quote_id,omitempty"`
	Price        int64     `json:"price"`
	LeadTimeDays int       `json:"lead_time_days"`
}

type RankedQuote struct {
	QuoteCandidate
	Rank                int             `json:"rank"`
	DeltaFromMin        int64           `json:"delta_from_min"`
	VarianceFromAverage decimal.Decimal `json:"variance_from_average_pct"`
}

type Comparison struct {
	MinPrice     int64           `json:"min_price"`
	MaxPrice     int64           `json:"max_price"`
	AveragePrice decimal.Decimal `json:"average_price"`
	Quotes       []RankedQuote   `json:"quotes"`
}

// CompareQuotes ranks candidates by ascending price. Ties keep input order.
func CompareQuotes(candidates []QuoteCandidate) (Comparison, error) {
	if len(candidates) == 0 {
		return Comparison{}, pkgerrors.InvalidArgument("quotes", "at least one quote is required")
	}
	for _, c := range candidates {
		if c.Price < 0 {
			return Comparison{}, pkgerrors.InvalidArgument("price", "price must not be negative")
		}
		if c.LeadTimeDays <= 0 {
			return Comparison{}, pkgerrors.InvalidArgument("lead_time_days", "lead time must be positive")
		}
	}

	sorted := make([]QuoteCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	var total int64
	for _, c := range sorted {
		total += c.Price
	}
	minPrice := sorted[0].Price
	maxPrice := sorted[len(sorted)-1].Price
	avg := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(len(sorted))))

	ranked := make([]RankedQuote, 0, len(sorted))
	for i, c := range sorted {
		variance := decimal.Zero
		if avg.IsPositive() {
			variance = decimal.NewFromInt(c.Price).Sub(avg).Div(avg).Mul(decimal.NewFromInt(100)).Round(2)
		}
		ranked = append(ranked, RankedQuote{
			QuoteCandidate:      c,
			Rank:                i + 1,
			DeltaFromMin:        c.Price - minPrice,
			VarianceFromAverage: variance,
		})
	}

	return Comparison{
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		AveragePrice: avg.Round(2),
		Quotes:       ranked,
	}, nil
}
