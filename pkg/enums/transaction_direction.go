package enums

import "fmt"

type TransactionDirection string

const (
	TransactionDirectionIncoming TransactionDirection = "incoming"
	TransactionDirectionOutgoing TransactionDirection = "outgoing"
)

var validTransactionDirections = []TransactionDirection{
	TransactionDirectionIncoming,
	TransactionDirectionOutgoing,
}

// String implements fmt.Stringer.
func (t TransactionDirection) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionDirection.
func (t TransactionDirection) IsValid() bool {
	for _, candidate := range validTransactionDirections {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionDirection converts raw input into a TransactionDirection.
func ParseTransactionDirection(value string) (TransactionDirection, error) {
	for _, candidate := range validTransactionDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction direction %q", value)
}
