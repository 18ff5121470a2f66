package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"fundledger/internal/ledger/domain"
)

func TestLatestNAV_PicksMostRecentByDateThenID(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		{ID: 1, Date: older, NAV: decimal.NewFromInt(10000000)},
		{ID: 3, Date: newer, NAV: decimal.NewFromInt(13000000)},
		{ID: 2, Date: newer, NAV: decimal.NewFromInt(12000000)},
	}
	nav, ok := LatestNAV(txns)
	assert.True(t, ok)
	assert.True(t, nav.Equal(decimal.NewFromInt(13000000)), "got %s", nav)
}

func TestLatestNAV_EmptyIsFalse(t *testing.T) {
	_, ok := LatestNAV(nil)
	assert.False(t, ok)
}

func TestInvestorBalance(t *testing.T) {
	tranches := []domain.Tranche{
		{InvestorID: 1, Units: decimal.NewFromInt(1000)},
		{InvestorID: 2, Units: decimal.NewFromInt(1000)},
	}
	balance := InvestorBalance(1, decimal.NewFromInt(20000000), tranches)
	assert.True(t, balance.Equal(decimal.NewFromInt(10000000)), "got %s", balance)
}

func TestComputeLifetimePerformance_GrossIncludesWithdrawals(t *testing.T) {
	tranches := []domain.Tranche{
		{InvestorID: 1, Units: decimal.NewFromInt(500), OriginalInvestedValue: decimal.NewFromInt(5000000)},
	}
	txns := []domain.Transaction{
		{InvestorID: 1, Type: domain.TxWithdrawal, Amount: decimal.NewFromInt(1000000)},
	}
	perf := ComputeLifetimePerformance(1, decimal.NewFromInt(10000000), tranches, txns)
	// current_value = 500 units * (10,000,000/500) = 10,000,000
	assert.True(t, perf.CurrentValue.Equal(decimal.NewFromInt(10000000)))
	// gross = 10,000,000 - 5,000,000 + 1,000,000 = 6,000,000
	assert.True(t, perf.Gross.Equal(decimal.NewFromInt(6000000)), "got %s", perf.Gross)
}

func TestComputeDashboardKPIs_ExcludesFundManagerFromInvestorCount(t *testing.T) {
	investors := []domain.Investor{
		{ID: 1, Name: "A"},
		{ID: domain.FundManagerInvestorID, IsFundManager: true},
	}
	tranches := []domain.Tranche{
		{InvestorID: 1, Units: decimal.NewFromInt(1000), OriginalInvestedValue: decimal.NewFromInt(10000000)},
		{InvestorID: domain.FundManagerInvestorID, Units: decimal.NewFromInt(50)},
	}
	kpis := ComputeDashboardKPIs(decimal.NewFromInt(10500000), investors, tranches)
	assert.Equal(t, 1, kpis.InvestorCount)
	assert.True(t, kpis.TotalUnits.Equal(decimal.NewFromInt(1050)))
}

func TestNAVHistory_SortsChronologically(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		{Date: newer, NAV: decimal.NewFromInt(12000000), Type: domain.TxNAVUpdate},
		{Date: older, NAV: decimal.NewFromInt(10000000), Type: domain.TxDeposit},
	}
	points := NAVHistory(txns)
	assert.Equal(t, older, points[0].Date)
	assert.Equal(t, newer, points[1].Date)
}
