package models

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts user or OCR input into a decimal. Empty or unparseable
// input yields zero rather than an error.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percentage returns round2(total * percent / 100).
func Percentage(total, percent decimal.Decimal) decimal.Decimal {
	return Round2(total.Mul(percent).Div(hundred))
}

// Amount is a decimal that decodes leniently from the backend: numbers, numeric
// strings, empty strings and null are all accepted, the last two as zero.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// UnmarshalJSON decodes the lenient amount forms.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	a.Decimal = ParseAmount(s)
	return nil
}
