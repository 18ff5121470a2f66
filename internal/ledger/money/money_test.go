package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricePerUnit_SeedPriceWhenNoUnits(t *testing.T) {
	p := PricePerUnit(decimal.NewFromInt(1000), decimal.Zero)
	assert.True(t, p.Equal(SeedPrice))
}

func TestPricePerUnit_DivRoundsToSixDecimals(t *testing.T) {
	nav := decimal.NewFromInt(35000000)
	units := decimal.NewFromFloat(2538.461538)
	p := PricePerUnit(nav, units)
	require.Equal(t, int32(-6), p.Exponent())
}

func TestUnitsForCash(t *testing.T) {
	cash := decimal.NewFromInt(10000000)
	price := decimal.NewFromInt(10000)
	units := UnitsForCash(cash, price)
	assert.True(t, units.Equal(decimal.NewFromInt(1000)))
}

func TestIsDust(t *testing.T) {
	assert.True(t, IsDust(decimal.New(1, -10)))
	assert.False(t, IsDust(decimal.New(1, -8)))
}

func TestRoundMoney_HalfToEven(t *testing.T) {
	// 2.005 rounds to 2.00 under round-half-to-even at two decimals.
	v, err := decimal.NewFromString("2.005")
	require.NoError(t, err)
	got := RoundMoney(v)
	assert.True(t, got.Equal(decimal.NewFromFloat(2.00)), "got %s", got)
}
