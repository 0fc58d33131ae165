package enums

import "fmt"

// AllocationType is the bucket a slice of a payment is assigned to.
type AllocationType string

const (
	AllocationTypeVendorDP     AllocationType = "vendor_dp"
	AllocationTypeVendorFinal  AllocationType = "vendor_final"
	AllocationTypeProfitMargin AllocationType = "profit_margin"
)

var validAllocationTypes = []AllocationType{
	AllocationTypeVendorDP,
	AllocationTypeVendorFinal,
	AllocationTypeProfitMargin,
}

// String implements fmt.Stringer.
func (a AllocationType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AllocationType.
func (a AllocationType) IsValid() bool {
	for _, candidate := range validAllocationTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAllocationType converts raw input into a AllocationType.
func ParseAllocationType(value string) (AllocationType, error) {
	for _, candidate := range validAllocationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation type %q", value)
}
