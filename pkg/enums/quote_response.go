package enums

import "fmt"

// QuoteResponse is a vendor's answer to a sent quote.
type QuoteResponse string

const (
	QuoteResponseAccept  QuoteResponse = "accept"
	QuoteResponseReject  QuoteResponse = "reject"
	QuoteResponseCounter QuoteResponse = "counter"
)

var validQuoteResponses = []QuoteResponse{
	QuoteResponseAccept,
	QuoteResponseReject,
	QuoteResponseCounter,
}

// String implements fmt.Stringer.
func (q QuoteResponse) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteResponse.
func (q QuoteResponse) IsValid() bool {
	for _, candidate := range validQuoteResponses {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteResponse converts raw input into a QuoteResponse.
func ParseQuoteResponse(value string) (QuoteResponse, error) {
	for _, candidate := range validQuoteResponses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote response %q", value)
}
