package fees

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundledger/internal/ledger/domain"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// TestComputeTrancheFee_S3 reproduces spec §8 scenario S3: a one-year-old
// tranche entered at 10,000 with hwm already ratcheted to 12,000 by a prior
// NAV update, revalued at 13,000.
func TestComputeTrancheFee_S3(t *testing.T) {
	entryDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	tr := domain.Tranche{
		TrancheID: "t1",
		EntryDate: entryDate,
		EntryNAV:  decimal.NewFromInt(10000),
		HWM:       decimal.NewFromInt(12000),
		Units:     decimal.NewFromInt(1000),
	}

	p := DefaultParams()
	tf := ComputeTrancheFee(tr, decimal.NewFromInt(13000), endDate, p)

	// threshold = max(hurdle_price, hwm) = max(~10,600, 12,000) = 12,000
	assert.True(t, tf.Threshold.Equal(decimal.NewFromInt(12000)), "threshold=%s", tf.Threshold)
	// excess = 13,000 - 12,000 = 1,000/unit
	assert.True(t, tf.ExcessPerUnit.Equal(decimal.NewFromInt(1000)))
	// fee_amount = 1000 * 1000 * 0.20 = 200,000
	assert.True(t, tf.FeeAmount.Equal(decimal.NewFromInt(200000)), "fee=%s", tf.FeeAmount)
	// fee_units = 200,000 / 13,000 ~= 15.384615
	diff := tf.FeeUnits.Sub(mustDec(t, "15.384615")).Abs()
	assert.True(t, diff.LessThan(mustDec(t, "0.000001")), "fee_units=%s", tf.FeeUnits)
}

// TestComputeTrancheFee_ZeroWhenAtThreshold reproduces the first half of S3:
// hwm already ratcheted to 12,000, so the threshold is max(~10,600, 12,000)
// = 12,000, and a price equal to that threshold yields no fee.
func TestComputeTrancheFee_ZeroWhenAtThreshold(t *testing.T) {
	entryDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	tr := domain.Tranche{
		TrancheID: "t1",
		EntryDate: entryDate,
		EntryNAV:  decimal.NewFromInt(10000),
		HWM:       decimal.NewFromInt(12000),
		Units:     decimal.NewFromInt(1000),
	}

	p := DefaultParams()
	tf := ComputeTrancheFee(tr, decimal.NewFromInt(12000), endDate, p)

	assert.True(t, tf.ExcessPerUnit.IsZero())
	assert.True(t, tf.FeeAmount.IsZero())
}

func TestConfirmToken_Deterministic(t *testing.T) {
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	nav := decimal.NewFromInt(13000000)

	tok1 := ConfirmToken(end, nav, 3)
	tok2 := ConfirmToken(end, nav, 3)
	tok3 := ConfirmToken(end, nav, 4)

	assert.Equal(t, tok1, tok2)
	assert.NotEqual(t, tok1, tok3)
}

func TestCompute_ExcludesFundManagerFromFees(t *testing.T) {
	endDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	tranches := []domain.Tranche{
		{TrancheID: "fm1", InvestorID: domain.FundManagerInvestorID, EntryDate: endDate, EntryNAV: decimal.NewFromInt(10000), HWM: decimal.NewFromInt(10000), Units: decimal.NewFromInt(500)},
		{TrancheID: "inv1", InvestorID: 1, EntryDate: endDate.AddDate(-1, 0, 0), EntryNAV: decimal.NewFromInt(10000), HWM: decimal.NewFromInt(10000), Units: decimal.NewFromInt(1000)},
	}

	preview := Compute("2024", endDate, decimal.NewFromInt(20000000), tranches, DefaultParams())
	for _, inv := range preview.Investors {
		assert.NotEqual(t, domain.FundManagerInvestorID, inv.InvestorID)
	}
}
