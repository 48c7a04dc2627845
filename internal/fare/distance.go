package fare

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Distance is a stop distance in kilometres with exactly two fractional
// digits, held as hundredths so comparisons never drift.
type Distance int64

// MaxDistance is 99.99 km, the widest value the fare file accepts.
const MaxDistance Distance = 9999

var (
	ErrDistanceNegative  = errors.New("distance cannot be negative")
	ErrDistancePrecision = errors.New("distance must have at most two decimal places (format 99.99)")
	ErrDistanceRange     = errors.New("distance cannot exceed 99.99 km")
)

// DistanceFromDecimal converts an entered value. Inputs such as 5.400 are
// accepted because they equal their two-digit rounding; 5.401 is not.
func DistanceFromDecimal(d decimal.Decimal) (Distance, error) {
	if d.IsNegative() {
		return 0, ErrDistanceNegative
	}
	rounded := d.Round(2)
	if !rounded.Equal(d) {
		return 0, ErrDistancePrecision
	}
	hundredths := rounded.Shift(2)
	if hundredths.GreaterThan(decimal.NewFromInt(int64(MaxDistance))) {
		return 0, ErrDistanceRange
	}
	return Distance(hundredths.IntPart()), nil
}

// ParseDistance parses a decimal string like "12.50".
func ParseDistance(s string) (Distance, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid distance %q: %w", s, err)
	}
	return DistanceFromDecimal(d)
}

// MustDistance is ParseDistance for literals known to be valid.
func MustDistance(s string) Distance {
	d, err := ParseDistance(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Distance) Decimal() decimal.Decimal {
	return decimal.New(int64(d), -2)
}

func (d Distance) String() string {
	return fmt.Sprintf("%d.%02d", int64(d)/100, int64(d)%100)
}

func (d Distance) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts both 5.4 and "5.40".
func (d *Distance) UnmarshalJSON(data []byte) error {
	var raw decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid distance %s: %w", data, err)
	}
	v, err := DistanceFromDecimal(raw)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
