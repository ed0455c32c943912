// Package price turns localized price text into a canonical number and currency symbol.
package price

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	nonNumeric = regexp.MustCompile(`[^\d.,]`)
	// A price with exactly two decimals. Some listings render the same price twice
	// back to back, e.g. "1,89,900.001,89,900.00"; only the first match is kept.
	twoDecimalPrice = regexp.MustCompile(`\d[\d,]*\.\d{2}`)
)

// Result is a normalized price. Price is nil when the text held no parseable number.
type Result struct {
	Price    *float64
	Currency string
}

// Normalize parses raw price text. It never fails: unparseable input yields a nil Price.
func Normalize(text, defaultCurrency string) Result {
	return Result{
		Price:    Parse(text),
		Currency: Currency(text, defaultCurrency),
	}
}

// Parse returns the numeric value of text, or nil.
func Parse(text string) *float64 {
	cleaned := nonNumeric.ReplaceAllString(text, "")

	if strings.Contains(cleaned, ".") {
		if first := twoDecimalPrice.FindString(cleaned); first != "" {
			cleaned = first
		}
	}

	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return nil
	}

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// Currency returns the symbol left once digits, separators and whitespace are removed,
// falling back to defaultCurrency.
func Currency(text, defaultCurrency string) string {
	symbol := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return defaultCurrency
	}
	return symbol
}
