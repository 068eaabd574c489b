package service

import (
	"strings"
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"integer", "100", "100"},
		{"fraction with whitespace", "  12.50 ", "12.5"},
		{"negative kept", "-5.25", "-5.25"},
		{"exponent", "1e3", "1000"},
		{"empty", "", "0"},
		{"blank", "   ", "0"},
		{"letters", "abc", "0"},
		{"thousands separator", "1,000", "0"},
		{"currency suffix", "100 USDC", "0"},
		{"nan", "NaN", "0"},
		{"infinity", "Inf", "0"},
		{"wei-scale fraction", "0.000000000000000001", "0.000000000000000001"},
		{"large exponent in range", "1e64", "1" + strings.Repeat("0", 64)},
		{"tiny exponent", "1e-900000000", "0"},
		{"huge exponent", "1e900000000", "0"},
		{"too many digits", strings.Repeat("9", 79), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, ParseAmount(tt.raw))
		})
	}
}

func TestNonNegative(t *testing.T) {
	assertDecimal(t, "0", nonNegative(dec("-0.01")))
	assertDecimal(t, "0", nonNegative(dec("0")))
	assertDecimal(t, "3.5", nonNegative(dec("3.5")))
}

func TestComputeLending_IgnoresOutOfRangeAmounts(t *testing.T) {
	done := make(chan LendingResult, 1)
	go func() {
		done <- ComputeLending(nil, seqOf(deposit("USDC", "100", day1), deposit("USDC", "1e-900000000", day2)))
	}()

	select {
	case result := <-done:
		assertDecimal(t, "100", result.TotalDeposited)
		assertDecimal(t, "100", result.Withdrawn)
	case <-time.After(5 * time.Second):
		t.Fatal("ComputeLending did not finish on an out-of-range amount")
	}
}
