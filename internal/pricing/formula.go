package pricing

import (
	"fmt"
	"strings"
)

const (
	emptyTerm     = "0.00"
	emptySection  = "—"
	bullet        = "• "
	missingMarker = "(removed)"
)

// FormulaText is the printable trace of a valuation.
type FormulaText struct {
	// Expression reads ((products) + (additions)) × quantity [× coef ...].
	// Quantities print without trailing zeros; values keep two places.
	Expression string `json:"expression"`
	// Breakdown is the multi-line itemized tooltip text.
	Breakdown string `json:"breakdown"`
}

// FormatTrace renders the values computed by Value. It never recomputes a total.
func FormatTrace(v Valuation) FormulaText {
	return FormulaText{
		Expression: formatExpression(v),
		Breakdown:  formatBreakdown(v),
	}
}

// FormatOrderExpression joins the effective units of every line with " + ".
func FormatOrderExpression(lines []Valuation) string {
	if len(lines) == 0 {
		return emptyTerm
	}
	terms := make([]string, 0, len(lines))
	for _, l := range lines {
		terms = append(terms, Fixed2(l.EffectiveUnits))
	}
	return strings.Join(terms, " + ")
}

func formatExpression(v Valuation) string {
	prodTerms := make([]string, 0, len(v.Products))
	for _, p := range v.Products {
		prodTerms = append(prodTerms, fmt.Sprintf("%s × %s", Fixed2(p.UnitValue), FormatQuantity(p.Quantity)))
	}
	addTerms := make([]string, 0, len(v.Additions))
	for _, a := range v.Additions {
		addTerms = append(addTerms, fmt.Sprintf("%s × %s", Fixed2(a.PerUnit), FormatQuantity(a.Quantity)))
	}

	return fmt.Sprintf("((%s) + (%s)) × %s%s",
		joinOrEmpty(prodTerms),
		joinOrEmpty(addTerms),
		FormatQuantity(v.Quantity),
		coefficientSegment(v.Coefficients),
	)
}

func coefficientSegment(coefs []CoefficientTerm) string {
	if len(coefs) == 0 {
		return ""
	}
	values := make([]string, 0, len(coefs))
	for _, c := range coefs {
		values = append(values, Fixed2(c.Value))
	}
	return " × " + strings.Join(values, " × ")
}

func formatBreakdown(v Valuation) string {
	var b strings.Builder

	b.WriteString("PRODUCTS:\n")
	if len(v.Products) == 0 {
		b.WriteString(emptySection + "\n")
	}
	for _, p := range v.Products {
		fmt.Fprintf(&b, "%s%s: %s × %s = %s\n",
			bullet, displayName(p.Name, p.Missing), Fixed2(p.UnitValue), FormatQuantity(p.Quantity), Fixed2(p.Subtotal))
	}
	fmt.Fprintf(&b, "\nProducts total: %s ks\n", Fixed2(v.ProductsUnitSum))

	b.WriteString("\nADD-ONS:\n")
	if len(v.Additions) == 0 {
		b.WriteString(emptySection + "\n")
	}
	for _, a := range v.Additions {
		fmt.Fprintf(&b, "%s%s ×%s: %s\n",
			bullet, displayName(a.Name, a.Missing), Fixed2(a.Quantity), Fixed2(a.Subtotal))
	}
	fmt.Fprintf(&b, "\nAdd-ons total: %s ks\n", Fixed2(v.AdditionsUnitSum))

	b.WriteString("\nCOEFFICIENTS:\n")
	if len(v.Coefficients) == 0 {
		b.WriteString(emptySection + "\n")
	}
	for _, c := range v.Coefficients {
		fmt.Fprintf(&b, "%s%s ×%s\n", bullet, c.Name, Fixed2(c.Value))
	}

	fmt.Fprintf(&b, "\nQuantity: %s", Fixed2(v.Quantity))
	if len(v.Coefficients) > 0 {
		fmt.Fprintf(&b, "\nCoefficient: %s", Fixed2(v.CoefficientFactor))
	}
	fmt.Fprintf(&b, "\nEffective units: %s ks", Fixed2(v.EffectiveUnits))

	return b.String()
}

func joinOrEmpty(terms []string) string {
	if len(terms) == 0 {
		return emptyTerm
	}
	return strings.Join(terms, " + ")
}

func displayName(name string, missing bool) string {
	if missing {
		if name == "" {
			return missingMarker
		}
		return name + " " + missingMarker
	}
	return name
}
