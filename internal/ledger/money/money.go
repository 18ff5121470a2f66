// Package money holds the pure pricing arithmetic of the fund (C2): turning
// a Total NAV and a circulating unit supply into a price-per-unit, and a
// cash amount into units at that price.
//
// Every value here is a decimal.Decimal. Binary floating point is never
// used for money, units, or price, so that cumulative drift across many
// tranches and years of NAV updates cannot creep in.
package money

import "github.com/shopspring/decimal"

// SeedPrice is the price assigned when the fund has zero circulating units.
var SeedPrice = decimal.NewFromInt(10000)

// PriceScale is the decimal-place precision prices are rounded to for storage.
const PriceScale = 6

// UnitScale is the decimal-place precision unit counts are rounded to for storage.
const UnitScale = 8

// MoneyScale is the decimal-place precision cash amounts are rounded to for storage.
const MoneyScale = 2

// PricePerUnit returns the fund-wide price-per-unit given a Total NAV and the
// circulating unit supply. When totalUnits is zero the fund has no basis to
// price against, so the seed price is returned.
func PricePerUnit(totalNAV, totalUnits decimal.Decimal) decimal.Decimal {
	if totalUnits.IsZero() {
		return SeedPrice
	}
	return totalNAV.DivRound(totalUnits, PriceScale)
}

// UnitsForCash converts a cash amount into units at the given price. The
// result is left at full precision in memory; callers round to UnitScale
// only when persisting.
func UnitsForCash(cash, price decimal.Decimal) decimal.Decimal {
	return cash.Div(price)
}

// RoundUnits rounds a unit count to the storage precision.
func RoundUnits(units decimal.Decimal) decimal.Decimal {
	return units.Round(UnitScale)
}

// RoundMoney rounds a cash amount to the storage precision, half-to-even per
// the display-boundary rounding rule.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(MoneyScale)
}

// DustThreshold is the unit count at or below which a tranche is considered
// retired and removed from the book.
var DustThreshold = decimal.New(1, -9)

// IsDust reports whether units is at or below the dust threshold.
func IsDust(units decimal.Decimal) bool {
	return units.Cmp(DustThreshold) <= 0
}
