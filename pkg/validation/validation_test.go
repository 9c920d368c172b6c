package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type amountInput struct {
	Amount string `validate:"required,decimal_positive"`
	Limit  int    `validate:"gte=1,max=10"`
}

func TestDecimalPositiveRule(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(amountInput{Amount: "12.50", Limit: 1}))
	assert.Error(t, v.Struct(amountInput{Amount: "0", Limit: 1}))
	assert.Error(t, v.Struct(amountInput{Amount: "-3", Limit: 1}))
	assert.Error(t, v.Struct(amountInput{Amount: "abc", Limit: 1}))
}

func TestFormatValidationError(t *testing.T) {
	err := New().Struct(amountInput{Amount: "x", Limit: 0})
	msgs := FormatValidationError(err)
	assert.ElementsMatch(t, []string{
		"Amount must be a positive decimal",
		"Limit must be at least 1",
	}, msgs)

	assert.Equal(t, []string{"boom"}, FormatValidationError(errors.New("boom")))
	assert.Empty(t, FormatValidationError(nil))
}
