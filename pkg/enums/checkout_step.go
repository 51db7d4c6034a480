package enums

import "fmt"

// CheckoutStep is the position of a checkout session in its state machine.
type CheckoutStep string

const (
	CheckoutStepCart           CheckoutStep = "cart"
	CheckoutStepDetails        CheckoutStep = "details"
	CheckoutStepOnlineRedirect CheckoutStep = "online_redirect"
	CheckoutStepConfirmation   CheckoutStep = "confirmation"
)

var validCheckoutSteps = []CheckoutStep{
	CheckoutStepCart,
	CheckoutStepDetails,
	CheckoutStepOnlineRedirect,
	CheckoutStepConfirmation,
}

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	for _, candidate := range validCheckoutSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range validCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
