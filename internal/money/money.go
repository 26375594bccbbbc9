package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrIncomplete marks input that is not yet a number ("" or a lone
	// separator). Aggregation treats the returned Amount as zero and the
	// raw text stays editable.
	ErrIncomplete = errors.New("incomplete amount")
	// ErrMalformed marks input that can never become a valid number,
	// e.g. a second decimal separator.
	ErrMalformed = errors.New("malformed amount")
)

// epsilon is the tolerance used when comparing reconciled totals. Two
// amounts closer than one hundredth of a currency unit are considered equal.
var epsilon = decimal.New(1, -2)

// Amount is a base-currency value with exactly two fractional digits.
// All arithmetic rounds once, at the point a total is produced, so
// rounding error never compounds across intermediate steps.
type Amount struct {
	d decimal.Decimal
}

func Zero() Amount {
	return Amount{}
}

// FromDecimal rounds the value to two fractional digits.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d.Round(2)}
}

func FromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Mul multiplies by an exact decimal factor (a quantity or a rate) and
// rounds the product to two fractional digits.
func (a Amount) Mul(factor decimal.Decimal) Amount {
	return Amount{d: a.d.Mul(factor).Round(2)}
}

// Div divides by an exact decimal and keeps full precision. Used to
// recover an implied foreign amount from a base amount and a rate; the
// caller rounds when it produces the next total.
func (a Amount) Div(divisor decimal.Decimal) decimal.Decimal {
	return a.d.DivRound(divisor, 8)
}

func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// ClampZero floors the amount at zero.
func (a Amount) ClampZero() Amount {
	if a.d.IsNegative() {
		return Amount{}
	}
	return a
}

// WithinEpsilon reports whether the two amounts differ by no more than
// 0.01 currency units.
func (a Amount) WithinEpsilon(b Amount) bool {
	return a.d.Sub(b.d).Abs().Cmp(epsilon) <= 0
}

// String renders the amount with exactly two fractional digits, the
// format every submission payload field uses.
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// Parse converts operator-entered text into an Amount. The separator may
// be a comma or a period; stray characters (grouping separators, currency
// signs) are stripped. Empty or separator-only input returns ErrIncomplete
// with a zero Amount; a second separator returns ErrMalformed.
func Parse(raw string) (Amount, error) {
	sanitized, ok := Sanitize(raw)
	if !ok {
		return Amount{}, ErrMalformed
	}
	if sanitized == "" || sanitized == "." {
		return Amount{}, ErrIncomplete
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(sanitized, "."))
	if err != nil {
		return Amount{}, ErrMalformed
	}
	return FromDecimal(d), nil
}

// ParseLenient parses like Parse but degrades to zero on any failure.
// Used where a safe default must keep the draft editable.
func ParseLenient(raw string) Amount {
	a, err := Parse(raw)
	if err != nil {
		return Amount{}
	}
	return a
}
