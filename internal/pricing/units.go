package pricing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Decimals is the fixed-point precision of the billing currency (USDC-style,
// 6 decimal places). All cost math happens on int64 values in these smallest
// units; floats never touch monetary values.
const Decimals = 6

const unitsPerWhole = int64(1_000_000)

var priceStringPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// ParseUnits converts a decimal string ("1.5", "0.000001") into smallest
// units. The fractional part is padded or truncated to 6 digits.
func ParseUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole := s
	fraction := ""
	if idx := strings.Index(s, "."); idx >= 0 {
		whole = s[:idx]
		fraction = s[idx+1:]
		if strings.Contains(fraction, ".") {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	if whole == "" {
		whole = "0"
	}

	wholeVal, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if wholeVal < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	// Pad or truncate the fraction to exactly 6 digits.
	if len(fraction) > Decimals {
		fraction = fraction[:Decimals]
	}
	for len(fraction) < Decimals {
		fraction += "0"
	}
	fracVal := int64(0)
	if fraction != strings.Repeat("0", Decimals) {
		fracVal, err = strconv.ParseInt(fraction, 10, 64)
		if err != nil || fracVal < 0 {
			return 0, fmt.Errorf("invalid fraction in %q", s)
		}
	}

	// Guard the conversion to smallest units; a wrapped int64 would read
	// as a small (or negative) amount with no error.
	if wholeVal > math.MaxInt64/unitsPerWhole {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	units := wholeVal * unitsPerWhole
	if units > math.MaxInt64-fracVal {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return units + fracVal, nil
}

// FormatUnits renders smallest units as a $-prefixed decimal string,
// stripping a trailing all-zero fraction. Inverse of ParseUnits:
// ParseUnits(FormatUnits(x)) == x for all non-negative x (the regex in
// PriceStringToUnits strips the symbol again).
func FormatUnits(units int64) string {
	negative := units < 0
	if negative {
		units = -units
	}

	whole := units / unitsPerWhole
	fraction := units % unitsPerWhole

	var out string
	if fraction == 0 {
		out = fmt.Sprintf("$%d", whole)
	} else {
		frac := fmt.Sprintf("%06d", fraction)
		frac = strings.TrimRight(frac, "0")
		out = fmt.Sprintf("$%d.%s", whole, frac)
	}
	if negative {
		out = "-" + out
	}
	return out
}

// PriceStringToUnits parses human-entered price strings ("$0.01", "1.50 USDC")
// by extracting the numeric portion and delegating to ParseUnits.
func PriceStringToUnits(s string) (int64, error) {
	match := priceStringPattern.FindString(s)
	if match == "" {
		return 0, fmt.Errorf("no numeric value in price string %q", s)
	}
	return ParseUnits(match)
}
