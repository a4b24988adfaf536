// Package money converts between the processor's integer minor units and
// decimal major units.
package money

import "github.com/shopspring/decimal"

const (
	minorExp = -2
	// unitPricePlaces keeps unit × quantity within one minor unit of the
	// line total for quantities up to 20000.
	unitPricePlaces = 6
)

func FromMinor(amount int64) decimal.Decimal {
	return decimal.New(amount, minorExp)
}

func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(-minorExp).Round(0).IntPart()
}

// UnitPrice recovers a per-unit major price from a quantity-multiplied line
// total. Quantities below 1 count as 1.
func UnitPrice(lineTotalMinor, quantity int64) decimal.Decimal {
	if quantity < 1 {
		quantity = 1
	}
	return FromMinor(lineTotalMinor).DivRound(decimal.NewFromInt(quantity), unitPricePlaces)
}

// LineTotal is the inverse of UnitPrice, rounded to whole minor units.
func LineTotal(unit decimal.Decimal, quantity int64) int64 {
	return ToMinor(unit.Mul(decimal.NewFromInt(quantity)))
}
