// Package core provides the domain model for the gamified finance ledger:
// transactions, goals, profiles, achievements, and the amount/XP rules
// shared by every backend.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Amounts are whole rupiah: the currency has no minor unit in this domain,
// so an int64 carries the full precision.

// XPForAmount computes the XP award for a transaction amount:
// one point per 10,000, never less than one.
func XPForAmount(amount int64) int {
	xp := amount / 10000
	if xp < 1 {
		xp = 1
	}
	return int(xp)
}

// ParseAmount converts a user-supplied amount string to whole rupiah.
//
// It accepts plain integers and decimal inputs (both "." and "," separators);
// any fractional part is dropped since the currency carries no minor unit.
// Returns ErrInvalidAmount for empty, non-numeric, negative, or zero inputs.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	intPart, _, _ := strings.Cut(s, ".")
	if intPart == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount in the Indonesian style, "Rp12.000" with a
// dot every three digits.
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteString("-")
	}
	b.WriteString("Rp")
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteString(".")
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteString(".")
		}
	}
	return b.String()
}
