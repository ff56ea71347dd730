package pricing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTrace_Breakdown(t *testing.T) {
	line := LineInput{
		Name:     "Entrance",
		Quantity: d("2"),
		Products: []ProductLine{
			{ProductID: 1, Name: "Door leaf", UnitValue: FromFloat(2.5), Quantity: d("1.5")},
		},
		Additions: []AdditionLine{
			{AdditionID: 2, Name: "Peephole", UnitValue: FromFloat(0.2), Quantity: d("2")},
		},
		Coefficients: []CoefficientLine{
			{CoefficientID: 3, Name: "Urgent", Value: FromFloat(1.25)},
		},
	}

	v := Value(line, OrderTerms{PricePerUnit: d("100")})
	text := v.Formula.Breakdown

	assert.Equal(t, "((2.50 × 1.5) + (0.20 × 2)) × 2 × 1.25", v.Formula.Expression)
	assert.Contains(t, text, "• Door leaf: 2.50 × 1.5 = 3.75")
	assert.Contains(t, text, "Products total: 3.75 ks")
	assert.Contains(t, text, "• Peephole ×2.00: 0.40")
	assert.Contains(t, text, "Add-ons total: 0.40 ks")
	assert.Contains(t, text, "• Urgent ×1.25")
	assert.Contains(t, text, "Quantity: 2.00")
	assert.Contains(t, text, "Coefficient: 1.25")
	assert.True(t, strings.HasSuffix(text, "Effective units: 10.38 ks"))
}

func TestFormatTrace_ExpressionQuantitiesDropTrailingZeros(t *testing.T) {
	line := LineInput{
		Quantity: d("1.50"),
		Products: []ProductLine{
			{ProductID: 1, Name: "Leaf", UnitValue: FromFloat(2), Quantity: d("3.00")},
			{ProductID: 2, Name: "Frame", UnitValue: FromFloat(0.75), Quantity: d("0.25")},
		},
		Additions: []AdditionLine{
			{AdditionID: 3, Name: "Handle", UnitValue: FromFloat(0.5), Quantity: d("4.00")},
		},
	}

	v := Value(line, OrderTerms{PricePerUnit: d("100")})

	assert.Equal(t, "((2.00 × 3 + 0.75 × 0.25) + (0.50 × 4)) × 1.5", v.Formula.Expression)
	assert.Equal(t, "12.28", Fixed2(v.EffectiveUnits))
}

func TestFormatTrace_EmptySectionsAndNoCoefficientLine(t *testing.T) {
	v := Value(LineInput{Quantity: d("1")}, OrderTerms{})
	text := v.Formula.Breakdown

	assert.Equal(t, 3, strings.Count(text, "—"))
	assert.NotContains(t, text, "Coefficient:")
	assert.Contains(t, text, "Effective units: 0.00 ks")
}

func TestFormatTrace_DoesNotChangeNumbers(t *testing.T) {
	v := Value(singleDoorLine(), OrderTerms{PricePerUnit: d("100")})
	before := v.FinalPrice

	v.Formula = FormatTrace(v)

	assert.True(t, before.Equal(v.FinalPrice))
}

func TestFormatQuantity(t *testing.T) {
	cases := map[string]string{
		"2.00": "2",
		"1.50": "1.5",
		"0.25": "0.25",
		"10":   "10",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatQuantity(d(in)), in)
	}
}
