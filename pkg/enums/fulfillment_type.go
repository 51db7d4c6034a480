package enums

import (
	"fmt"
	"strings"
)

// FulfillmentType is how an order reaches the shopper.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "PICKUP"
	FulfillmentDelivery FulfillmentType = "DELIVERY"
)

var validFulfillmentTypes = []FulfillmentType{
	FulfillmentPickup,
	FulfillmentDelivery,
}

// String implements fmt.Stringer.
func (f FulfillmentType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentType.
func (f FulfillmentType) IsValid() bool {
	for _, candidate := range validFulfillmentTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillmentType converts raw input into a FulfillmentType.
func ParseFulfillmentType(value string) (FulfillmentType, error) {
	for _, candidate := range validFulfillmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment type %q", value)
}

// FulfillmentFor derives the fulfillment type from the delivery address.
// A non-blank address means delivery; there is no explicit selector.
func FulfillmentFor(address string) FulfillmentType {
	if strings.TrimSpace(address) != "" {
		return FulfillmentDelivery
	}
	return FulfillmentPickup
}
