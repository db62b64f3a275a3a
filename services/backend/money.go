package backend

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. The backend speaks whole currency units as
// JSON numbers (5000, 1200.5); Money parses the decimal text directly so no
// value ever passes through a float on the way in.
type Money int64

// Units is the whole-unit part, truncated toward zero.
func (m Money) Units() int64 {
	return int64(m) / 100
}

// Cents is the fractional part in the range 0-99.
func (m Money) Cents() int64 {
	c := int64(m) % 100
	if c < 0 {
		c = -c
	}
	return c
}

// IsWhole reports whether the amount has no fractional cents.
func (m Money) IsWhole() bool {
	return m.Cents() == 0
}

// Decimal renders the amount the way the backend expects it on the wire.
func (m Money) Decimal() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	if v%100 == 0 {
		return fmt.Sprintf("%s%d", sign, v/100)
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) String() string {
	return m.Decimal()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = 0
		return nil
	}
	// Some backends quote decimals to keep precision
	s = strings.Trim(s, `"`)

	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ErrMoneyOutOfRange rejects amounts that do not fit in int64 cents.
var ErrMoneyOutOfRange = errors.New("amount out of range")

// maxMoneyUnits is the largest whole-unit amount that still fits in cents.
var maxMoneyUnits = decimal.NewFromInt(math.MaxInt64 / 100)

// ParseMoney parses a decimal amount in whole units ("5000", "1200.5",
// "-3.25", "1e3"). Fractions beyond cents are rounded half away from zero.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "0123456789") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return m, nil
}

// MoneyFromDecimal rounds d to cents. Amounts that do not fit are an error.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsZero() {
		return 0, nil
	}
	// Exponents are checked before anything rescales d into a huge integer.
	if d.Exponent() < -30 {
		return 0, fmt.Errorf("amount has more than 30 decimal places")
	}
	if d.Exponent() > 18 || d.Abs().GreaterThan(maxMoneyUnits) {
		return 0, ErrMoneyOutOfRange
	}
	return Money(d.Round(2).Shift(2).IntPart()), nil
}

// AsDecimal returns the amount as an exact decimal in whole units.
func (m Money) AsDecimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}
