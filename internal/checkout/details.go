package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// Nigerian mobile numbers: 0[7-9][01] followed by eight digits, or the +234 form.
var phonePattern = regexp.MustCompile(`^(0[7-9][01]\d{8}|\+234[7-9][01]\d{8})$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("ng_mobile", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(NormalizePhone(fl.Field().String()))
	}); err != nil {
		panic(err)
	}
	return v
}

// CustomerDetails is the contact form collected on the details step. It is never persisted.
type CustomerDetails struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Phone   string `json:"phone" validate:"required,ng_mobile"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address,omitempty" validate:"omitempty,min=10,max=500"`
	Notes   string `json:"notes,omitempty" validate:"max=500"`
}

// Normalized trims every field and strips phone separators.
func (d CustomerDetails) Normalized() CustomerDetails {
	return CustomerDetails{
		Name:    strings.TrimSpace(d.Name),
		Phone:   NormalizePhone(d.Phone),
		Email:   strings.TrimSpace(d.Email),
		Address: strings.TrimSpace(d.Address),
		Notes:   strings.TrimSpace(d.Notes),
	}
}

// Fulfillment derives pickup or delivery from the address.
func (d CustomerDetails) Fulfillment() enums.FulfillmentType {
	return enums.FulfillmentFor(d.Address)
}

// NormalizePhone removes spaces and dashes the shopper may type between digit groups.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// Field names reported outside the customer form.
const (
	FieldPaymentMethod = "payment_method"
	FieldMinimumOrder  = "minimum_order"
	FieldCart          = "cart"
)

// FieldErrors maps a form field to the message shown next to it. An empty map means the
// form is valid.
type FieldErrors map[string]string

// Fields returns the failing field names in a stable order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for field := range f {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// Has reports whether field failed.
func (f FieldErrors) Has(field string) bool {
	_, ok := f[field]
	return ok
}

// ValidateDetails checks the customer form and payment selection against the store.
func ValidateDetails(details CustomerDetails, method enums.PaymentMethod, store commerce.Store) FieldErrors {
	errs := FieldErrors{}
	if err := validate.Struct(details.Normalized()); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs[fe.Field()] = fieldMessage(fe)
			}
		} else {
			errs["details"] = err.Error()
		}
	}
	switch {
	case method == "":
		errs[FieldPaymentMethod] = "select a payment method"
	case !method.IsValid():
		errs[FieldPaymentMethod] = "is invalid"
	case !store.AcceptsPayment(method):
		errs[FieldPaymentMethod] = fmt.Sprintf("%s is not accepted by this store", method)
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "ng_mobile":
		return "must be a valid mobile number"
	}
	return "is invalid"
}
