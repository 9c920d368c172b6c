package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// New returns a validator with the project rules registered.
func New() *validator.Validate {
	v := validator.New()
	RegisterDefaultRules(v)
	return v
}

// RegisterDefaultRules adds:
//
//	decimal_positive  string field holding a decimal > 0 ("12.50")
func RegisterDefaultRules(v *validator.Validate) {
	_ = v.RegisterValidation("decimal_positive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && d.IsPositive()
	})
}
