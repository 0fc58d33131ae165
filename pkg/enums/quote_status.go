package enums

import "fmt"

// QuoteStatus is the negotiation state of a vendor quote. Open and cancelled
// only appear on rows written by the negotiation flow.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusOpen      QuoteStatus = "open"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusCountered QuoteStatus = "countered"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusRejected  QuoteStatus = "rejected"
	QuoteStatusExpired   QuoteStatus = "expired"
	QuoteStatusCancelled QuoteStatus = "cancelled"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusDraft,
	QuoteStatusOpen,
	QuoteStatusSent,
	QuoteStatusCountered,
	QuoteStatusAccepted,
	QuoteStatusRejected,
	QuoteStatusExpired,
	QuoteStatusCancelled,
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}

// IsTerminal reports whether the quote is closed to further changes.
func (q QuoteStatus) IsTerminal() bool {
	switch q {
	case QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired, QuoteStatusCancelled:
		return true
	}
	return false
}

// ParseQuoteStatuses parses a list of raw statuses, skipping blanks.
func ParseQuoteStatuses(values []string) ([]QuoteStatus, error) {
	out := make([]QuoteStatus, 0, len(values))
	for _, raw := range values {
		if raw == "" {
			continue
		}
		status, err := ParseQuoteStatus(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}
