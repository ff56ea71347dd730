package pricing

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ProductLine is one (product, quantity) pair of a line item.
// Missing marks a pair whose product record no longer exists; it contributes nothing.
type ProductLine struct {
	ProductID snowflake.ID
	Name      string
	UnitValue decimal.Decimal
	Quantity  decimal.Decimal
	Missing   bool
}

// AdditionLine is one (addition, quantity) pair of a line item.
type AdditionLine struct {
	AdditionID snowflake.ID
	Name       string
	UnitValue  decimal.Decimal
	Quantity   decimal.Decimal
	Missing    bool
}

// CoefficientLine is a coefficient attached to a line item. Coefficients carry no quantity.
type CoefficientLine struct {
	CoefficientID snowflake.ID
	Name          string
	Value         decimal.Decimal
	Missing       bool
}

// LineInput is everything the valuator reads for one line item.
type LineInput struct {
	ItemID        snowflake.ID
	Name          string
	Quantity      decimal.Decimal
	Products      []ProductLine
	Additions     []AdditionLine
	Coefficients  []CoefficientLine
	MarkupPercent decimal.NullDecimal
}

// OrderTerms are the order-level inputs shared by every line.
type OrderTerms struct {
	PricePerUnit  decimal.Decimal
	MarkupPercent decimal.Decimal
}

type ProductTerm struct {
	ProductID snowflake.ID    `json:"product_id"`
	Name      string          `json:"name"`
	UnitValue decimal.Decimal `json:"unit_value"`
	Quantity  decimal.Decimal `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Missing   bool            `json:"missing,omitempty"`
}

type AdditionTerm struct {
	AdditionID snowflake.ID    `json:"addition_id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	// PerUnit is the subtotal divided back by the quantity and rounded, for display only.
	PerUnit decimal.Decimal `json:"per_unit"`
	Missing bool            `json:"missing,omitempty"`
}

type CoefficientTerm struct {
	CoefficientID snowflake.ID    `json:"coefficient_id"`
	Name          string          `json:"name"`
	Value         decimal.Decimal `json:"value"`
}

// Valuation is the full result of pricing one line item.
// ProductsUnitSum and AdditionsUnitSum are unrounded; every other amount is
// a published value rounded to two decimals.
type Valuation struct {
	ItemID                 snowflake.ID      `json:"item_id"`
	Name                   string            `json:"name"`
	Products               []ProductTerm     `json:"products"`
	Additions              []AdditionTerm    `json:"additions"`
	Coefficients           []CoefficientTerm `json:"coefficients"`
	ProductsUnitSum        decimal.Decimal   `json:"products_unit_sum"`
	AdditionsUnitSum       decimal.Decimal   `json:"additions_unit_sum"`
	Quantity               decimal.Decimal   `json:"quantity"`
	CoefficientFactor      decimal.Decimal   `json:"coefficient_factor"`
	EffectiveUnits         decimal.Decimal   `json:"effective_units"`
	PricePerUnit           decimal.Decimal   `json:"price_per_unit"`
	BasePrice              decimal.Decimal   `json:"base_price"`
	EffectiveMarkupPercent decimal.Decimal   `json:"effective_markup_percent"`
	FinalPrice             decimal.Decimal   `json:"final_price"`
	Formula                FormulaText       `json:"formula"`
}

// ResolveMarkup returns the line override when set, the order markup otherwise.
func ResolveMarkup(line decimal.NullDecimal, order decimal.Decimal) decimal.Decimal {
	if line.Valid {
		return line.Decimal
	}
	return order
}

// ApplyMarkup returns round2(base × (1 + percent/100)).
func ApplyMarkup(base, percent decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(one.Add(percent.Div(hundred))))
}

// CoefficientFactor multiplies coefficient values starting from exactly 1.
// Missing coefficients are skipped.
func CoefficientFactor(coefs []CoefficientLine) decimal.Decimal {
	factor := one
	for _, c := range coefs {
		if c.Missing {
			continue
		}
		factor = factor.Mul(c.Value)
	}
	return factor
}

// Value prices one line item against the order terms.
func Value(line LineInput, terms OrderTerms) Valuation {
	v := Valuation{
		ItemID:           line.ItemID,
		Name:             line.Name,
		Products:         make([]ProductTerm, 0, len(line.Products)),
		Additions:        make([]AdditionTerm, 0, len(line.Additions)),
		Coefficients:     make([]CoefficientTerm, 0, len(line.Coefficients)),
		ProductsUnitSum:  decimal.Zero,
		AdditionsUnitSum: decimal.Zero,
		Quantity:         line.Quantity,
		PricePerUnit:     terms.PricePerUnit,
	}

	for _, p := range line.Products {
		unit := p.UnitValue
		if p.Missing {
			unit = decimal.Zero
		}
		subtotal := unit.Mul(p.Quantity)
		v.ProductsUnitSum = v.ProductsUnitSum.Add(subtotal)
		v.Products = append(v.Products, ProductTerm{
			ProductID: p.ProductID,
			Name:      p.Name,
			UnitValue: unit,
			Quantity:  p.Quantity,
			Subtotal:  subtotal,
			Missing:   p.Missing,
		})
	}

	for _, a := range line.Additions {
		unit := a.UnitValue
		if a.Missing {
			unit = decimal.Zero
		}
		subtotal := unit.Mul(a.Quantity)
		v.AdditionsUnitSum = v.AdditionsUnitSum.Add(subtotal)
		v.Additions = append(v.Additions, AdditionTerm{
			AdditionID: a.AdditionID,
			Name:       a.Name,
			Quantity:   a.Quantity,
			Subtotal:   subtotal,
			PerUnit:    perUnit(subtotal, a.Quantity),
			Missing:    a.Missing,
		})
	}

	for _, c := range line.Coefficients {
		if c.Missing {
			continue
		}
		v.Coefficients = append(v.Coefficients, CoefficientTerm{
			CoefficientID: c.CoefficientID,
			Name:          c.Name,
			Value:         c.Value,
		})
	}
	v.CoefficientFactor = CoefficientFactor(line.Coefficients)

	v.EffectiveUnits = Round2(
		v.ProductsUnitSum.Add(v.AdditionsUnitSum).
			Mul(line.Quantity).
			Mul(v.CoefficientFactor),
	)
	v.BasePrice = Round2(v.EffectiveUnits.Mul(terms.PricePerUnit))
	v.EffectiveMarkupPercent = ResolveMarkup(line.MarkupPercent, terms.MarkupPercent)
	v.FinalPrice = ApplyMarkup(v.BasePrice, v.EffectiveMarkupPercent)
	v.Formula = FormatTrace(v)

	return v
}

// perUnit falls back to the raw subtotal when the quantity cannot divide it.
func perUnit(subtotal, qty decimal.Decimal) decimal.Decimal {
	if qty.Sign() <= 0 {
		return Round2(subtotal)
	}
	return Round2(subtotal.Div(qty))
}
