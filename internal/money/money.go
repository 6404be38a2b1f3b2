// Package money converts between user-entered amounts and integer cents.
// Arithmetic stays in int64 cents everywhere else; decimals only appear at
// this boundary.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more than two decimal places")
	ErrOutOfRange    = errors.New("amount out of range")
)

// DefaultCurrency is used when no currency_code setting exists.
const DefaultCurrency = "USD"

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"PHP": "₱",
	"INR": "₹",
	"KRW": "₩",
}

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(1<<53 - 1)
)

// ParseCents parses a user-entered amount such as "12", "12.5", "1,234.56"
// or "$ 3.10" into cents. Signs are kept; callers reject negatives where the
// entity requires it.
func ParseCents(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	for _, sym := range symbols {
		clean = strings.TrimPrefix(clean, sym)
	}
	clean = strings.ReplaceAll(strings.TrimSpace(clean), ",", "")
	if clean == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	if cents.Abs().GreaterThan(maxCents) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return cents.IntPart(), nil
}

// Format renders cents for display, e.g. Format(123456, "USD", false) is
// "$1,234.56". hideCents rounds half away from zero to whole units. Unknown
// currency codes are written before the amount.
func Format(cents int64, currency string, hideCents bool) string {
	d := decimal.New(cents, -2)
	places := int32(2)
	if hideCents {
		places = 0
	}
	text := d.Abs().StringFixed(places)

	intPart, frac, _ := strings.Cut(text, ".")
	var b strings.Builder
	if d.IsNegative() && !isZero(text) {
		b.WriteByte('-')
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if sym, ok := symbols[currency]; ok {
		b.WriteString(sym)
	} else {
		b.WriteString(currency)
		b.WriteByte(' ')
	}
	b.WriteString(groupThousands(intPart))
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func isZero(text string) bool {
	return strings.Trim(text, "0.") == ""
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
