package server

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var decimalOne = decimal.NewFromInt(1)

// parseDecimal accepts "12.5", "12,5" and "1 200,50". Empty or unparseable
// input reports ok=false.
func parseDecimal(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// flexDecimal decodes a JSON number or string. It never fails to decode;
// anything it cannot read is left unset.
type flexDecimal struct {
	value decimal.Decimal
	set   bool
}

func (d *flexDecimal) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		*d = flexDecimal{}
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	value, ok := parseDecimal(raw)
	*d = flexDecimal{value: value, set: ok}
	return nil
}

// quantity falls back to 1 when the input was missing or unreadable.
func (d flexDecimal) quantity() decimal.Decimal {
	if !d.set {
		return decimalOne
	}
	return d.value
}

// optional is unset when the input was missing or unreadable.
func (d flexDecimal) optional() decimal.NullDecimal {
	if !d.set {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.value)
}

func (d flexDecimal) pointer() *decimal.Decimal {
	if !d.set {
		return nil
	}
	v := d.value
	return &v
}

// whole truncates to an integer; missing or unreadable input is 0.
func (d flexDecimal) whole() int {
	if !d.set {
		return 0
	}
	return int(d.value.IntPart())
}

// queryDecimal reads an optional numeric query parameter.
func queryDecimal(value string) decimal.NullDecimal {
	d, ok := parseDecimal(value)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// queryAmount reads a money query parameter, zero when missing or unreadable.
func queryAmount(value string) decimal.Decimal {
	d, _ := parseDecimal(value)
	return d
}

// splitIDs reads "1,2, 3" into trimmed non-empty parts.
func splitIDs(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFlag(value string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && v
}

func parseOptionalInt64(value string) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
