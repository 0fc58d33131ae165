package enums

import "fmt"

type AllocationStatus string

const (
	AllocationStatusAllocated AllocationStatus = "allocated"
	AllocationStatusPaid      AllocationStatus = "paid"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusAllocated,
	AllocationStatusPaid,
}

// String implements fmt.Stringer.
func (a AllocationStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AllocationStatus.
func (a AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAllocationStatus converts raw input into a AllocationStatus.
func ParseAllocationStatus(value string) (AllocationStatus, error) {
	for _, candidate := range validAllocationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation status %q", value)
}
