package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Sanitize normalizes a keystroke-level numeric string: the comma
// separator becomes a period and everything but digits and the period is
// dropped. ok is false when the text holds more than one separator, which
// means the keystroke should be rejected outright (the previous text kept).
func Sanitize(raw string) (sanitized string, ok bool) {
	normalized := strings.ReplaceAll(raw, ",", ".")

	var b strings.Builder
	for _, r := range normalized {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	sanitized = b.String()

	if strings.Count(sanitized, ".") > 1 {
		return "", false
	}
	return sanitized, true
}

// ParseQuantity parses sanitized quantity text. transient is true for the
// in-between states ("" or ".") that are not yet a number; the returned
// quantity is zero then, so totals never see a non-numeric value.
func ParseQuantity(sanitized string) (qty decimal.Decimal, transient bool) {
	if sanitized == "" || sanitized == "." {
		return decimal.Zero, true
	}
	// A trailing separator like "1." reads as the number before it.
	d, err := decimal.NewFromString(strings.TrimSuffix(sanitized, "."))
	if err != nil {
		return decimal.Zero, true
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d, false
}
