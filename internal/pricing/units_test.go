package pricing

import (
	"math"
	"testing"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"1", 1_000_000},
		{"1.5", 1_500_000},
		{"0.000001", 1},
		{"0.01", 10_000},
		{"$2.50", 2_500_000},
		{"123.456789999", 123_456_789}, // truncates past 6 digits
		{".5", 500_000},
		{"  3 ", 3_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnits(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseUnits(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseUnitsRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "1.2.3", "-1", "1.-5"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseUnits(in); err == nil {
				t.Errorf("ParseUnits(%q) should fail", in)
			}
		})
	}
}

func TestParseUnitsBounds(t *testing.T) {
	// Largest representable amount: math.MaxInt64 smallest units.
	got, err := ParseUnits("9223372036854.775807")
	if err != nil {
		t.Fatalf("max amount should parse: %v", err)
	}
	if got != math.MaxInt64 {
		t.Errorf("ParseUnits(max) = %d, want %d", got, int64(math.MaxInt64))
	}

	// Anything past MaxInt64 units must error instead of wrapping into a
	// small positive or negative value that passes downstream amount checks.
	for _, in := range []string{
		"9223372036854.775808",  // one smallest unit past the range
		"9223372036855",         // whole part alone overflows the multiply
		"9223372036854775",      // wraps negative without the guard
		"18446744073710",        // wraps to a small positive value
		"92233720368547758080",  // exceeds int64 before scaling
		"99999999999999999.999", // far out of range with a fraction
	} {
		t.Run(in, func(t *testing.T) {
			v, err := ParseUnits(in)
			if err == nil {
				t.Errorf("ParseUnits(%q) = %d, want out-of-range error", in, v)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "$0"},
		{1, "$0.000001"},
		{10_000, "$0.01"},
		{1_000_000, "$1"},
		{1_500_000, "$1.5"},
		{123_456_789, "$123.456789"},
	}

	for _, tt := range tests {
		if got := FormatUnits(tt.in); got != tt.want {
			t.Errorf("FormatUnits(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	values := []int64{0, 1, 99, 100, 999_999, 1_000_000, 1_000_001, 42_000_000, 123_456_789, 9_999_999_999_999}
	for _, v := range values {
		got, err := ParseUnits(FormatUnits(v))
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip of %d = %d", v, got)
		}
	}
}

func TestPriceStringToUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"$0.01", 10_000},
		{"1.50 USDC", 1_500_000},
		{"price: 2", 2_000_000},
	}
	for _, tt := range tests {
		got, err := PriceStringToUnits(tt.in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("PriceStringToUnits(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := PriceStringToUnits("free"); err == nil {
		t.Error("expected error for non-numeric price string")
	}
}
