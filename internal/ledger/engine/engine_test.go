package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundledger/internal/ledger/backup"
	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/store"
	"fundledger/internal/ledgerconfig"
	"fundledger/internal/ledgererr"
)

func newTestEngine(t *testing.T) (*Engine, context.Context) {
	t.Helper()
	cfg := ledgerconfig.Default()
	cfg.DataSource = ledgerconfig.DataSourceMock
	cfg.FeatureFeeSafety = false // tests exercise the fee math, not the acknowledgment gate
	st := store.NewMockStore()
	e := New(st, cfg)
	return e, context.Background()
}

// TestBootstrapAndDeposit reproduces spec S1: the fund manager is ensured,
// investor 1 deposits 10,000,000 into an empty fund and receives exactly
// 1,000 units at the seed price of 10,000.
func TestBootstrapAndDeposit(t *testing.T) {
	e, ctx := newTestEngine(t)

	_, err := e.EnsureFundManager(ctx)
	require.NoError(t, err)

	inv := domain.Investor{ID: 1, Name: "Investor One"}
	require.NoError(t, e.AddInvestor(ctx, inv))

	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txn, err := e.Deposit(ctx, DepositInput{
		InvestorID:  1,
		Cash:        decimal.NewFromInt(10000000),
		NewTotalNAV: decimal.NewFromInt(10000000),
		Date:        date,
	})
	require.NoError(t, err)
	assert.True(t, txn.UnitsChange.Equal(decimal.NewFromInt(1000)), "got %s", txn.UnitsChange)

	tranches, err := e.Store().ListTranchesByInvestor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tranches, 1)
	assert.True(t, tranches[0].Units.Equal(decimal.NewFromInt(1000)))
	assert.True(t, tranches[0].EntryNAV.Equal(decimal.NewFromInt(10000)))
}

// TestSecondDepositPricesAtPreDepositNAV reproduces spec S2's deposit half:
// investor 1 holds 1,000 units when investor 2 deposits 20,000,000 to bring
// Total NAV to 33,000,000; the pre-deposit price must be 13,000 and investor
// 2 must receive 20,000,000 / 13,000 = 1,538.46153846 units (stored at 8
// decimal places).
func TestSecondDepositPricesAtPreDepositNAV(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 2}))

	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(10000000), NewTotalNAV: decimal.NewFromInt(10000000), Date: date})
	require.NoError(t, err)

	txn, err := e.Deposit(ctx, DepositInput{
		InvestorID:  2,
		Cash:        decimal.NewFromInt(20000000),
		NewTotalNAV: decimal.NewFromInt(33000000),
		Date:        date.AddDate(0, 6, 0),
	})
	require.NoError(t, err)
	assert.True(t, txn.UnitsChange.Equal(decimal.New(153846153846, -8)), "got %s", txn.UnitsChange)

	tranches, err := e.Store().ListTranchesByInvestor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tranches, 1)
	assert.True(t, tranches[0].EntryNAV.Equal(decimal.NewFromInt(13000)), "entry nav=%s", tranches[0].EntryNAV)
}

// TestWithdrawFIFOAcrossTwoTranches: an investor with two 500-unit tranches
// withdraws 600 units' worth of cash, more than the first tranche holds,
// draining it and taking the remainder from the second in original-entry
// order.
func TestWithdrawFIFOAcrossTwoTranches(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))

	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(5000000), NewTotalNAV: decimal.NewFromInt(5000000), Date: d1})
	require.NoError(t, err)
	_, err = e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(5000000), NewTotalNAV: decimal.NewFromInt(10000000), Date: d2})
	require.NoError(t, err)

	before, err := e.Store().ListTranchesByInvestor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, before, 2)
	totalUnitsBefore := before[0].Units.Add(before[1].Units)

	_, err = e.Withdraw(ctx, WithdrawInput{
		InvestorID:  1,
		Cash:        decimal.NewFromInt(6000000),
		NewTotalNAV: decimal.NewFromInt(4000000),
		Date:        d2.AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	after, err := e.Store().ListTranchesByInvestor(ctx, 1)
	require.NoError(t, err)
	var totalUnitsAfter decimal.Decimal
	for _, tr := range after {
		totalUnitsAfter = totalUnitsAfter.Add(tr.Units)
	}
	assert.True(t, totalUnitsBefore.Sub(totalUnitsAfter).GreaterThan(decimal.Zero), "withdrawal must reduce total units")
}

// TestNAVUpdateThenApplyFees reproduces S3: a NAV update ratchets every
// tranche's HWM, and a subsequent ApplyFees debits units from tranches whose
// price now exceeds their threshold.
func TestNAVUpdateThenApplyFees(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))

	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(10000000), NewTotalNAV: decimal.NewFromInt(10000000), Date: d0})
	require.NoError(t, err)

	// First NAV update ratchets hwm from 10,000 to 12,000.
	_, err = e.NAVUpdate(ctx, NAVUpdateInput{NewTotalNAV: decimal.NewFromInt(12000000), Date: d0.AddDate(0, 6, 0)})
	require.NoError(t, err)

	tranchesMid, err := e.Store().ListTranchesByInvestor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tranchesMid, 1)
	assert.True(t, tranchesMid[0].HWM.Equal(decimal.NewFromInt(12000)))

	endDate := d0.AddDate(1, 0, 0)
	preview, err := e.PreviewFees(ctx, "2024", endDate, decimal.NewFromInt(13000000))
	require.NoError(t, err)
	require.NotEmpty(t, preview.ConfirmToken)
	require.Len(t, preview.Investors, 1)
	assert.True(t, preview.Investors[0].FeeAmount.GreaterThan(decimal.Zero))

	applied, err := e.ApplyFees(ctx, ApplyFeesInput{
		Period:       "2024",
		EndDate:      endDate,
		TotalNAV:     decimal.NewFromInt(13000000),
		ConfirmToken: preview.ConfirmToken,
	})
	require.NoError(t, err)
	assert.True(t, applied.TotalFee.GreaterThan(decimal.Zero))

	records, err := e.Store().ListFeeRecords(ctx, store.FeeRecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Fund Manager now holds units minted from the fee.
	fmTranches, err := e.Store().ListTranchesByInvestor(ctx, domain.FundManagerInvestorID)
	require.NoError(t, err)
	require.Len(t, fmTranches, 1)
	assert.True(t, fmTranches[0].Units.GreaterThan(decimal.Zero))
}

// TestApplyFeesRejectsStaleConfirmToken reproduces S4: a confirm token
// computed against a stale snapshot version must be rejected once another
// write has advanced the store's version.
func TestApplyFeesRejectsStaleConfirmToken(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))

	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(10000000), NewTotalNAV: decimal.NewFromInt(10000000), Date: d0})
	require.NoError(t, err)

	endDate := d0.AddDate(1, 0, 0)
	preview, err := e.PreviewFees(ctx, "2024", endDate, decimal.NewFromInt(13000000))
	require.NoError(t, err)

	// A second investor deposit advances the store version, invalidating the
	// token without anyone having touched fees directly.
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 2}))
	_, err = e.Deposit(ctx, DepositInput{InvestorID: 2, Cash: decimal.NewFromInt(1000000), NewTotalNAV: decimal.NewFromInt(14000000), Date: d0.AddDate(0, 1, 0)})
	require.NoError(t, err)

	_, err = e.ApplyFees(ctx, ApplyFeesInput{
		Period:       "2024",
		EndDate:      endDate,
		TotalNAV:     decimal.NewFromInt(13000000),
		ConfirmToken: preview.ConfirmToken,
	})
	require.Error(t, err)
	var stale *ledgererr.StaleConfirmationError
	assert.ErrorAs(t, err, &stale)
}

// TestUndoLatestDepositRestoresPriorState reproduces S5: undoing the single
// most recent transaction for an investor must remove the tranche it
// created and the transaction row itself.
func TestUndoLatestDepositRestoresPriorState(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))

	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txn, err := e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(10000000), NewTotalNAV: decimal.NewFromInt(10000000), Date: date})
	require.NoError(t, err)

	_, err = e.UndoTransaction(ctx, txn.ID)
	require.NoError(t, err)

	tranches, err := e.Store().ListTranchesByInvestor(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tranches)

	_, err = e.Store().GetTransaction(ctx, txn.ID)
	assert.Error(t, err)
}

// TestDeleteTransactionRejectsNonLatest reproduces the not-reversible edge
// case: once a second transaction has been recorded for an investor, the
// first can no longer be deleted directly.
func TestDeleteTransactionRejectsNonLatest(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))

	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first, err := e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(5000000), NewTotalNAV: decimal.NewFromInt(5000000), Date: d0})
	require.NoError(t, err)
	_, err = e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(5000000), NewTotalNAV: decimal.NewFromInt(10000000), Date: d0.AddDate(0, 1, 0)})
	require.NoError(t, err)

	_, err = e.DeleteTransaction(ctx, first.ID)
	require.Error(t, err)
	var notReversible *ledgererr.NotReversibleError
	assert.ErrorAs(t, err, &notReversible)
}

// TestBackupRoundTrip reproduces S6: a manual backup followed by further
// mutation followed by restore must bring the ledger back to the
// pre-mutation state.
func TestBackupRoundTrip(t *testing.T) {
	e, ctx := newTestEngine(t)
	dir := t.TempDir()
	bk, err := backup.NewStore(dir)
	require.NoError(t, err)
	e.SetBackupStore(bk)

	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(10000000), NewTotalNAV: decimal.NewFromInt(10000000), Date: d0})
	require.NoError(t, err)

	info, err := e.ManualBackup(ctx)
	require.NoError(t, err)

	// Mutate further after the snapshot.
	_, err = e.Deposit(ctx, DepositInput{InvestorID: 1, Cash: decimal.NewFromInt(2000000), NewTotalNAV: decimal.NewFromInt(12000000), Date: d0.AddDate(0, 1, 0)})
	require.NoError(t, err)

	tranchesBeforeRestore, err := e.Store().ListTranchesByInvestor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tranchesBeforeRestore, 2)

	require.NoError(t, e.RestoreBackup(ctx, info.ID, "RESTORE", true))

	tranchesAfterRestore, err := e.Store().ListTranchesByInvestor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tranchesAfterRestore, 1)
	assert.True(t, tranchesAfterRestore[0].Units.Equal(decimal.NewFromInt(1000)))
}

// TestRestoreBackupRejectsWrongConfirmPhrase exercises the mandatory
// confirm-phrase gate independently of the safety-snapshot behavior.
func TestRestoreBackupRejectsWrongConfirmPhrase(t *testing.T) {
	e, ctx := newTestEngine(t)
	dir := t.TempDir()
	bk, err := backup.NewStore(dir)
	require.NoError(t, err)
	e.SetBackupStore(bk)

	require.NoError(t, e.AddInvestor(ctx, domain.Investor{ID: 1}))
	info, err := e.ManualBackup(ctx)
	require.NoError(t, err)

	err = e.RestoreBackup(ctx, info.ID, "please", true)
	require.Error(t, err)
}
