package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductionDays(t *testing.T) {
	params := DefaultScheduleParams()

	cases := []struct {
		units string
		want  int
	}{
		{"0", 1},
		{"-5", 1},
		{"1", 1},
		{"12", 1},
		{"100", 11},
		{"240", 26},
	}
	for _, tc := range cases {
		t.Run(tc.units, func(t *testing.T) {
			assert.Equal(t, tc.want, ProductionDays(d(tc.units), params))
		})
	}
}

func TestProductionDays_DegenerateParams(t *testing.T) {
	params := DefaultScheduleParams()
	params.UnitsPerHour = decimal.Zero

	assert.Equal(t, 1, ProductionDays(d("500"), params))
}

func TestSummarizeDocument(t *testing.T) {
	lines := []Valuation{
		{Quantity: d("2"), EffectiveUnits: d("8.25"), FinalPrice: d("825.00")},
		{Quantity: d("1.5"), EffectiveUnits: d("1.10"), FinalPrice: d("99.99")},
	}

	totals := SummarizeDocument(lines, Extras{Delivery: d("300"), Packing: d("200.005")}, DefaultScheduleParams())

	assert.Equal(t, "9.35", totals.UnitsTotal.StringFixed(2))
	assert.Equal(t, "924.99", totals.LinesTotal.StringFixed(2))
	assert.Equal(t, "500.01", totals.ExtrasTotal.StringFixed(2))
	assert.Equal(t, "1425.00", totals.GrandTotal.StringFixed(2))
	assert.Equal(t, "3.5", totals.Constructions.String())
	assert.Equal(t, 2, totals.Positions)
	assert.Equal(t, 1, totals.ProductionDays)
}

func TestPolicy(t *testing.T) {
	assert.NoError(t, CheckQuantity(d("0.01")))
	assert.ErrorIs(t, CheckQuantity(decimal.Zero), ErrInvalidQuantity)
	assert.ErrorIs(t, CheckQuantity(d("-1")), ErrInvalidQuantity)

	assert.NoError(t, CheckMarkup(d("-100")))
	assert.NoError(t, CheckMarkup(d("250")))
	assert.ErrorIs(t, CheckMarkup(d("-100.01")), ErrInvalidMarkup)

	assert.NoError(t, CheckCoefficientValue(0.5))
	assert.ErrorIs(t, CheckCoefficientValue(0), ErrInvalidValue)
	assert.ErrorIs(t, CheckCoefficientValue(-1.1), ErrInvalidValue)

	assert.NoError(t, CheckUnitValue(0))
	assert.ErrorIs(t, CheckUnitValue(-0.1), ErrInvalidValue)

	assert.NoError(t, CheckAmount(decimal.Zero))
	assert.ErrorIs(t, CheckAmount(d("-1")), ErrInvalidAmount)
}
