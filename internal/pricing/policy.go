package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Input policy applied by the services before anything reaches Value.
// Value itself accepts whatever it is given.
var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidMarkup   = errors.New("invalid_markup")
	ErrInvalidValue    = errors.New("invalid_value")
	ErrInvalidAmount   = errors.New("invalid_amount")
)

// MinMarkupPercent is a full discount. Anything lower would price below zero.
var MinMarkupPercent = decimal.NewFromInt(-100)

// CheckQuantity requires a strictly positive quantity.
func CheckQuantity(q decimal.Decimal) error {
	if q.Sign() <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// CheckMarkup allows discounts down to -100%.
func CheckMarkup(m decimal.Decimal) error {
	if m.LessThan(MinMarkupPercent) {
		return ErrInvalidMarkup
	}
	return nil
}

// CheckCoefficientValue requires a finite, strictly positive multiplier.
func CheckCoefficientValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return ErrInvalidValue
	}
	return nil
}

// CheckUnitValue requires a finite, non-negative unit value for products and additions.
func CheckUnitValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrInvalidValue
	}
	return nil
}

// CheckAmount requires a non-negative money amount (rates, delivery, packing).
func CheckAmount(a decimal.Decimal) error {
	if a.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}
