package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol is the currency sign used on statements (Bangladeshi taka).
const Symbol = "৳"

const minorDigits = 2

var (
	ErrInvalidMoney = errors.New("invalid money amount")

	hundred = decimal.NewFromInt(100)
)

// Parse converts a user-entered decimal amount ("1250.5", "৳1,250.50") into
// minor units. Sign is preserved; range checks are the ledger's job.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, Symbol)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidMoney
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	if d.Exponent() < -minorDigits && !d.Equal(d.Round(minorDigits)) {
		return 0, fmt.Errorf("%w: more than %d decimal places", ErrInvalidMoney, minorDigits)
	}
	minor := d.Mul(hundred)
	if !minor.IsInteger() || minor.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidMoney)
	}
	return minor.IntPart(), nil
}

// Decimal returns minor units as a plain decimal string ("1250.50").
func Decimal(minor int64) string {
	return decimal.New(minor, -minorDigits).StringFixed(minorDigits)
}

// Code is the ISO 4217 currency code, for outputs that cannot carry Symbol.
const Code = "BDT"

// Format renders minor units for display: "৳12,500.50", "-৳40.00".
func Format(minor int64) string {
	s := Plain(minor)
	if strings.HasPrefix(s, "-") {
		return "-" + Symbol + s[1:]
	}
	return Symbol + s
}

// Plain renders minor units with grouping and no currency: "12,500.50".
func Plain(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
	}
	s := decimal.New(minor, -minorDigits).Abs().StringFixed(minorDigits)
	whole, frac, _ := strings.Cut(s, ".")
	return sign + group(whole) + "." + frac
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
