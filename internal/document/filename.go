package document

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

// QuoteFileName is order_<number>[_<customer>].pdf.
func QuoteFileName(orderNumber, customer string) string {
	name := "order_" + safeNumber(orderNumber)
	if s := slug.Make(customer); s != "" {
		name += "_" + s
	}
	return name + ".pdf"
}

// WorksheetFileName is worksheet_<number>.<ext>.
func WorksheetFileName(orderNumber, ext string) string {
	return "worksheet_" + safeNumber(orderNumber) + "." + ext
}

func safeNumber(number string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r), r == '/', r == '\\', r == '.':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(number))
	if out == "" {
		return "order"
	}
	return out
}
