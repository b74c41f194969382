package journal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a return expressed in percent (60 means +60%).
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}

var hundred = decimal.NewFromInt(100)

// ReturnOf returns raw as a percentage of cost.
//
// A raw of exactly zero is always 0%, and so is any raw measured against a
// cost that is not positive. Otherwise the magnitude is |raw|/cost*100 and
// the sign is raw's.
func ReturnOf(raw, cost Money) Percent {
	if raw.IsZero() || !cost.IsPositive() {
		return 0
	}
	magnitude := raw.value.Abs().Div(cost.value).Mul(hundred).InexactFloat64()
	if raw.IsNegative() {
		return Percent(-magnitude)
	}
	return Percent(magnitude)
}
