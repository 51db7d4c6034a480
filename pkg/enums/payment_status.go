package enums

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PaymentStatus is the settlement state reported by the commerce API for an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsSettled reports whether the payment has been confirmed.
func (p PaymentStatus) IsSettled() bool {
	return p == PaymentStatusPaid
}

// ParsePaymentStatus converts raw input into a PaymentStatus. Matching is case-insensitive
// because gateways report lower-case values.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == upper {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// UnmarshalJSON accepts any casing. Unknown values are kept upper-cased so they read as unsettled.
func (p *PaymentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("payment status: %w", err)
	}
	if parsed, err := ParsePaymentStatus(raw); err == nil {
		*p = parsed
		return nil
	}
	*p = PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}
