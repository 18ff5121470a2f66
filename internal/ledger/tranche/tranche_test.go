package tranche

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/money"
	"fundledger/internal/ledgererr"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestNewDeposit(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := decimal.NewFromInt(10000)
	cash := decimal.NewFromInt(10000000)

	tr, minted := NewDeposit(1, "t1", cash, price, date)

	assert.True(t, minted.Equal(decimal.NewFromInt(1000)))
	assert.True(t, tr.Units.Equal(decimal.NewFromInt(1000)))
	assert.True(t, tr.EntryNAV.Equal(price))
	assert.True(t, tr.HWM.Equal(price))
	assert.True(t, tr.OriginalEntryNAV.Equal(price))
	assert.True(t, tr.OriginalInvestedValue.Equal(cash))
	assert.Equal(t, date, tr.EntryDate)
	assert.Equal(t, date, tr.OriginalEntryDate)
}

func TestPriceBeforeDeposit(t *testing.T) {
	// S2: pre-deposit price for investor 2 is (33,000,000-20,000,000)/1000 = 13,000.
	p := PriceBeforeDeposit(decimal.NewFromInt(1000), decimal.NewFromInt(33000000), decimal.NewFromInt(20000000))
	assert.True(t, p.Equal(decimal.NewFromInt(13000)))
}

func TestWithdrawFIFO_SingleTrancheReduction(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tranches := []domain.Tranche{
		{
			InvestorID: 1, TrancheID: "t1",
			OriginalEntryDate: date, EntryDate: date,
			Units: decimal.NewFromInt(1000), InvestedValue: decimal.NewFromInt(10000000),
			OriginalInvestedValue: decimal.NewFromInt(10000000),
			EntryNAV:              decimal.NewFromInt(10000),
			OriginalEntryNAV:      decimal.NewFromInt(10000),
			HWM:                   decimal.NewFromInt(10000),
		},
	}

	burn := mustDec(t, "471.428571")
	out, deltas, err := WithdrawFIFO(tranches, burn, money.DustThreshold)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.False(t, deltas[0].Retired)

	remaining := out[0].Units
	// 1000 - 471.428571 = 528.571429
	assert.True(t, remaining.Sub(mustDec(t, "528.571429")).Abs().LessThan(mustDec(t, "0.000001")), "got %s", remaining)
	// original_invested_value is preserved verbatim.
	assert.True(t, out[0].OriginalInvestedValue.Equal(decimal.NewFromInt(10000000)))
}

func TestWithdrawFIFO_InsufficientUnits(t *testing.T) {
	date := time.Now()
	tranches := []domain.Tranche{
		{TrancheID: "t1", OriginalEntryDate: date, Units: decimal.NewFromInt(10), InvestedValue: decimal.NewFromInt(100)},
	}
	_, _, err := WithdrawFIFO(tranches, decimal.NewFromInt(100), money.DustThreshold)
	require.Error(t, err)
	var insufficient *ledgererr.InsufficientUnitsError
	assert.ErrorAs(t, err, &insufficient)
}

func TestWithdrawFIFO_RetiresDustTranche(t *testing.T) {
	date := time.Now()
	tranches := []domain.Tranche{
		{TrancheID: "t1", OriginalEntryDate: date, Units: decimal.NewFromInt(10), InvestedValue: decimal.NewFromInt(100)},
	}
	out, deltas, err := WithdrawFIFO(tranches, decimal.NewFromInt(10), money.DustThreshold)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Retired)
	assert.True(t, out[0].Units.IsZero())
}

func TestWithdrawFIFO_OrdersByOriginalEntryDateThenTrancheID(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tranches := []domain.Tranche{
		{TrancheID: "zzz", OriginalEntryDate: older, Units: decimal.NewFromInt(100), InvestedValue: decimal.NewFromInt(1000)},
		{TrancheID: "aaa", OriginalEntryDate: newer, Units: decimal.NewFromInt(100), InvestedValue: decimal.NewFromInt(1000)},
	}
	// Burn exactly the older tranche's full balance; the newer tranche must be untouched.
	out, deltas, err := WithdrawFIFO(tranches, decimal.NewFromInt(100), money.DustThreshold)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "zzz", deltas[0].TrancheID)
	for _, o := range out {
		if o.TrancheID == "aaa" {
			assert.True(t, o.Units.Equal(decimal.NewFromInt(100)))
		}
	}
}

func TestApplyHWMRatchet_OnlyRaises(t *testing.T) {
	tranches := []domain.Tranche{
		{TrancheID: "t1", HWM: decimal.NewFromInt(10000)},
		{TrancheID: "t2", HWM: decimal.NewFromInt(15000)},
	}
	out, deltas := ApplyHWMRatchet(tranches, decimal.NewFromInt(12000))
	require.Len(t, deltas, 1)
	assert.Equal(t, "t1", deltas[0].TrancheID)
	for _, o := range out {
		if o.TrancheID == "t1" {
			assert.True(t, o.HWM.Equal(decimal.NewFromInt(12000)))
		}
		if o.TrancheID == "t2" {
			assert.True(t, o.HWM.Equal(decimal.NewFromInt(15000)), "hwm must never decrease")
		}
	}
}

func TestApplyFeeDebit(t *testing.T) {
	tr := domain.Tranche{
		TrancheID: "t1", Units: decimal.NewFromInt(1000),
		EntryNAV: decimal.NewFromInt(12000), HWM: decimal.NewFromInt(12000),
		InvestedValue: decimal.NewFromInt(12000000), CumulativeFeesPaid: decimal.Zero,
	}
	feeUnits := mustDec(t, "15.384615")
	price := decimal.NewFromInt(13000)

	updated, delta := ApplyFeeDebit(tr, feeUnits, price)

	assert.True(t, updated.Units.Equal(decimal.NewFromInt(1000).Sub(feeUnits)))
	assert.True(t, updated.EntryNAV.Equal(price))
	assert.True(t, updated.HWM.Equal(price))
	assert.True(t, updated.CumulativeFeesPaid.GreaterThan(decimal.Zero))
	assert.True(t, delta.UnitsDelta.Equal(feeUnits.Neg()))
}
