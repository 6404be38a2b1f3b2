package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12", 1200},
		{"12.5", 1250},
		{"0.10", 10},
		{" 1,234.56 ", 123456},
		{"$3.10", 310},
		{"₱ 99.99", 9999},
		{"-4.20", -420},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCentsErrors(t *testing.T) {
	for in, want := range map[string]error{
		"":                      ErrInvalidAmount,
		"abc":                   ErrInvalidAmount,
		"1.2.3":                 ErrInvalidAmount,
		"0.001":                 ErrTooPrecise,
		"12.345":                ErrTooPrecise,
		"999999999999999999999": ErrOutOfRange,
	} {
		_, err := ParseCents(in)
		assert.ErrorIs(t, err, want, "input %q", in)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		cents     int64
		currency  string
		hideCents bool
		want      string
	}{
		{123456, "USD", false, "$1,234.56"},
		{5, "usd", false, "$0.05"},
		{0, "", false, "$0.00"},
		{-2500, "EUR", false, "-€25.00"},
		{100000000, "PHP", false, "₱1,000,000.00"},
		{123456, "CHF", false, "CHF 1,234.56"},
		{123450, "USD", true, "$1,235"},
		{149, "USD", true, "$1"},
		{-150, "USD", true, "-$2"},
		{-40, "USD", true, "$0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.cents, tt.currency, tt.hideCents))
		})
	}
}

func TestParseFormatAgree(t *testing.T) {
	for _, cents := range []int64{1, 10, 99, 100, 123456789} {
		got, err := ParseCents(Format(cents, "USD", false))
		require.NoError(t, err)
		assert.Equal(t, cents, got)
	}
}
