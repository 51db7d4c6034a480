package checkout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront/pkg/enums"
)

func paymentMethod(value string) enums.PaymentMethod {
	return enums.PaymentMethod(value)
}

func TestValidateDetailsAcceptsNigerianMobileFormats(t *testing.T) {
	for _, phone := range []string{"08031234567", "0703-123-4567", "+2349131234567", "0810 000 0000"} {
		details := validDetails()
		details.Phone = phone
		errs := ValidateDetails(details, enums.PaymentMethodCash, testStore())
		assert.Empty(t, errs, phone)
	}
}

func TestValidateDetailsReportsEachField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CustomerDetails)
		field  string
	}{
		{name: "short name", mutate: func(d *CustomerDetails) { d.Name = "A" }, field: "name"},
		{name: "blank name", mutate: func(d *CustomerDetails) { d.Name = "   " }, field: "name"},
		{name: "landline", mutate: func(d *CustomerDetails) { d.Phone = "014567890" }, field: "phone"},
		{name: "wrong network prefix", mutate: func(d *CustomerDetails) { d.Phone = "06031234567" }, field: "phone"},
		{name: "short international", mutate: func(d *CustomerDetails) { d.Phone = "+23480312345" }, field: "phone"},
		{name: "bad email", mutate: func(d *CustomerDetails) { d.Email = "ada@" }, field: "email"},
		{name: "missing email", mutate: func(d *CustomerDetails) { d.Email = "" }, field: "email"},
		{name: "short address", mutate: func(d *CustomerDetails) { d.Address = "Lekki" }, field: "address"},
		{name: "long notes", mutate: func(d *CustomerDetails) { d.Notes = strings.Repeat("n", 501) }, field: "notes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			details := validDetails()
			tc.mutate(&details)
			errs := ValidateDetails(details, enums.PaymentMethodCash, testStore())
			assert.True(t, errs.Has(tc.field), "errors: %v", errs)
		})
	}
}

func TestValidateDetailsPaymentMethod(t *testing.T) {
	store := testStore()
	store.AcceptCash = false

	errs := ValidateDetails(validDetails(), "", store)
	assert.Equal(t, "select a payment method", errs[FieldPaymentMethod])

	errs = ValidateDetails(validDetails(), enums.PaymentMethodCash, store)
	assert.Contains(t, errs[FieldPaymentMethod], "not accepted")

	errs = ValidateDetails(validDetails(), paymentMethod("CHEQUE"), store)
	assert.Equal(t, "is invalid", errs[FieldPaymentMethod])

	errs = ValidateDetails(validDetails(), enums.PaymentMethodOnline, store)
	assert.Empty(t, errs)
}

func TestOptionalAddressDerivesFulfillment(t *testing.T) {
	details := validDetails()
	assert.Equal(t, enums.FulfillmentPickup, details.Fulfillment())
	details.Address = "12 Admiralty Way, Lekki Phase 1"
	assert.Equal(t, enums.FulfillmentDelivery, details.Fulfillment())
	assert.Empty(t, ValidateDetails(details, enums.PaymentMethodCash, testStore()))
}

func TestFieldErrorsSorted(t *testing.T) {
	errs := FieldErrors{"phone": "x", "email": "y", "name": "z"}
	assert.Equal(t, []string{"email", "name", "phone"}, errs.Fields())
}
