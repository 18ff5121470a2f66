// Package engine is the transaction pipeline (C4) and audit/concurrency
// gate (C8): the single orchestrator every mutation enters through. It
// wraps the entity store (C1), the unit pricer (C2), the tranche ledger
// (C3), the fee engine (C5), the reporting projection (C6), and the
// backup/restore machinery (C7) behind the typed invocation contract of
// spec §6.1.
//
// The pipeline contract (§4.4) is the same seven steps for every mutating
// command: acquire the write lock, validate, resolve a snapshot, run the
// domain routine, append the Transaction row(s), append an audit entry,
// commit or roll back. That shape is fixed once here (acquire/release around
// store.WithWriteTxn) and reused by every exported method, the way internal/hf-investor/state's
// state machine centralizes guard evaluation instead of repeating it per
// transition.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundledger/internal/ledger/backup"
	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/fees"
	"fundledger/internal/ledger/money"
	"fundledger/internal/ledger/report"
	"fundledger/internal/ledger/store"
	"fundledger/internal/ledger/tranche"
	"fundledger/internal/ledgerconfig"
	"fundledger/internal/ledgererr"
)

// Engine is the process-wide orchestrator. One Engine wraps one Store;
// sem is the single write-serializing mutex of §4.8, modeled as a
// buffered channel so acquisition can honor a timeout (§5) without a
// separate condition variable.
type Engine struct {
	st      store.Store
	cfg     ledgerconfig.Config
	backups *backup.Store
	sem     chan struct{}

	now func() time.Time
}

// New constructs an Engine over st using cfg's fee/timeout parameters.
func New(st store.Store, cfg ledgerconfig.Config) *Engine {
	return &Engine{
		st:  st,
		cfg: cfg,
		sem: make(chan struct{}, 1),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the underlying store for read-only callers (reporting,
// backup listing) that do not need the write lock.
func (e *Engine) Store() store.Store { return e.st }

// SetBackupStore wires the backup archive directory (C7) into the engine so
// ManualBackup/ListBackups/RestoreBackup and the auto-backup background job
// have somewhere to write. An Engine with no backup store configured treats
// those calls as unsupported (feature.backup_restore has nothing to gate).
func (e *Engine) SetBackupStore(bk *backup.Store) { e.backups = bk }

// maybeAutoBackup schedules an asynchronous snapshot tagged "auto" after a
// successful committing operation, when auto_backup_on_new_transaction is
// enabled (§4.7). Its failure must never propagate into the originating
// operation — retried a few times in the background and logged, mirroring
// the fire-and-forget notification jobs the wider retrieved pack logs and
// moves on from rather than failing the caller.
func (e *Engine) maybeAutoBackup() {
	if !e.cfg.AutoBackupOnNewTransaction || e.backups == nil {
		return
	}
	go func() {
		const maxAttempts = 3
		var lastErr error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			snap, err := e.st.Snapshot(context.Background())
			if err == nil {
				if _, err = e.backups.Snapshot(uuid.NewString(), backup.KindAuto, snap, time.Now().UTC()); err == nil {
					return
				}
			}
			lastErr = err
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		}
		log.Printf("auto-backup failed after %d attempts: %v", maxAttempts, lastErr)
	}()
}

func (e *Engine) acquire(ctx context.Context) error {
	timeout := time.Duration(e.cfg.WriteLockTimeoutSeconds) * time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return &ledgererr.BusyError{Timeout: timeout.String()}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() { <-e.sem }

func sumUnits(tranches []domain.Tranche) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range tranches {
		sum = sum.Add(t.Units)
	}
	return sum
}

func filterByInvestor(tranches []domain.Tranche, investorID int64) []domain.Tranche {
	var out []domain.Tranche
	for _, t := range tranches {
		if t.InvestorID == investorID {
			out = append(out, t)
		}
	}
	return out
}

func audit(action, target, detail string) domain.AuditEntry {
	return domain.AuditEntry{
		Timestamp: time.Now().UTC(),
		Actor:     "engine",
		Action:    action,
		Target:    target,
		Detail:    detail,
	}
}

// --- §4.1 Entity commands ---

// AddInvestor creates a new investor. It fails with ConflictError if the id
// is already in use.
func (e *Engine) AddInvestor(ctx context.Context, inv domain.Investor) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	return e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		if _, err := tx.GetInvestor(ctx, inv.ID); err == nil {
			return &ledgererr.ConflictError{Kind: "investor", Key: fmt.Sprint(inv.ID)}
		}
		if inv.JoinDate.IsZero() {
			inv.JoinDate = e.now()
		}
		if err := tx.UpsertInvestor(ctx, inv); err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, audit("add_investor", fmt.Sprint(inv.ID), inv.Name))
	})
}

// UpdateInvestor overwrites an existing investor's descriptive fields.
func (e *Engine) UpdateInvestor(ctx context.Context, inv domain.Investor) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	return e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		existing, err := tx.GetInvestor(ctx, inv.ID)
		if err != nil {
			return err
		}
		inv.IsFundManager = existing.IsFundManager
		if inv.JoinDate.IsZero() {
			inv.JoinDate = existing.JoinDate
		}
		if err := tx.UpsertInvestor(ctx, inv); err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, audit("update_investor", fmt.Sprint(inv.ID), inv.Name))
	})
}

// EnsureFundManager creates the singleton Fund Manager investor (id 0) if it
// does not already exist (I4).
func (e *Engine) EnsureFundManager(ctx context.Context) (domain.Investor, error) {
	if err := e.acquire(ctx); err != nil {
		return domain.Investor{}, err
	}
	defer e.release()

	var fm domain.Investor
	err := e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		_, lookupErr := tx.GetInvestor(ctx, domain.FundManagerInvestorID)
		var err error
		fm, err = tx.EnsureFundManager(ctx)
		if err != nil || lookupErr == nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, audit("ensure_fund_manager", fmt.Sprint(fm.ID), fm.Name))
	})
	return fm, err
}

// --- §4.4.1 Deposit ---

// DepositInput is the input to a Deposit mutation (§4.3.1).
type DepositInput struct {
	InvestorID  int64
	Cash        decimal.Decimal
	NewTotalNAV decimal.Decimal
	Date        time.Time
}

func (in DepositInput) validate() error {
	if in.Cash.Sign() <= 0 {
		return &ledgererr.ValidationError{Field: "cash_amount", Message: "must be > 0"}
	}
	if in.NewTotalNAV.Sign() <= 0 {
		return &ledgererr.ValidationError{Field: "new_total_nav", Message: "must be > 0"}
	}
	return nil
}

// Deposit applies §4.3.1 inside the pipeline contract of §4.4.
func (e *Engine) Deposit(ctx context.Context, in DepositInput) (domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return domain.Transaction{}, err
	}
	if err := e.acquire(ctx); err != nil {
		return domain.Transaction{}, err
	}
	defer e.release()

	var result domain.Transaction
	err := e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		if _, err := tx.GetInvestor(ctx, in.InvestorID); err != nil {
			return err
		}

		all, err := tx.ListAllTranches(ctx)
		if err != nil {
			return err
		}
		preTotalUnits := sumUnits(all)

		price := tranche.PriceBeforeDeposit(preTotalUnits, in.NewTotalNAV, in.Cash)
		newTranche, minted := tranche.NewDeposit(in.InvestorID, uuid.NewString(), in.Cash, price, in.Date)
		if err := tx.UpsertTranche(ctx, newTranche); err != nil {
			return err
		}

		txn := domain.Transaction{
			InvestorID:  in.InvestorID,
			Date:        in.Date,
			Type:        domain.TxDeposit,
			Amount:      money.RoundMoney(in.Cash),
			NAV:         in.NewTotalNAV,
			UnitsChange: money.RoundUnits(minted),
			AffectedTranches: []domain.TrancheDelta{{
				TrancheID:          newTranche.TrancheID,
				Created:            true,
				UnitsDelta:         minted,
				InvestedValueDelta: in.Cash,
			}},
		}
		id, err := tx.AppendTransaction(ctx, txn)
		if err != nil {
			return err
		}
		txn.ID = id
		result = txn

		return tx.AppendAuditEntry(ctx, audit("deposit", newTranche.TrancheID,
			fmt.Sprintf("investor=%d cash=%s", in.InvestorID, in.Cash.String())))
	})
	if err == nil {
		e.maybeAutoBackup()
	}
	return result, err
}

// --- §4.3.2 / §4.4.2 Withdrawal and Fund-Manager withdrawal ---

// WithdrawInput is the input to a Withdrawal mutation.
type WithdrawInput struct {
	InvestorID  int64
	Cash        decimal.Decimal
	NewTotalNAV decimal.Decimal
	Date        time.Time
}

func (in WithdrawInput) validate() error {
	if in.Cash.Sign() <= 0 {
		return &ledgererr.ValidationError{Field: "cash_amount", Message: "must be > 0"}
	}
	if in.NewTotalNAV.Sign() <= 0 {
		return &ledgererr.ValidationError{Field: "new_total_nav", Message: "must be > 0"}
	}
	return nil
}

// Withdraw applies §4.3.2 (FIFO withdrawal) inside the pipeline contract.
func (e *Engine) Withdraw(ctx context.Context, in WithdrawInput) (domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return domain.Transaction{}, err
	}
	if err := e.acquire(ctx); err != nil {
		return domain.Transaction{}, err
	}
	defer e.release()

	var result domain.Transaction
	err := e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		if _, err := tx.GetInvestor(ctx, in.InvestorID); err != nil {
			return err
		}
		txn, err := e.withdrawLocked(ctx, tx, in.InvestorID, domain.TxWithdrawal, in.Cash, in.NewTotalNAV, in.Date)
		if err != nil {
			return err
		}
		result = txn
		return tx.AppendAuditEntry(ctx, audit("withdraw", fmt.Sprint(in.InvestorID),
			fmt.Sprintf("cash=%s", in.Cash.String())))
	})
	if err == nil {
		e.maybeAutoBackup()
	}
	return result, err
}

// withdrawLocked is the shared FIFO-withdrawal routine used by both Withdraw
// and FundManagerWithdraw; it must run inside an active write transaction.
func (e *Engine) withdrawLocked(ctx context.Context, tx store.WriteTxn, investorID int64, txType domain.TransactionType, cash, newTotalNAV decimal.Decimal, date time.Time) (domain.Transaction, error) {
	all, err := tx.ListAllTranches(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	preTotalUnits := sumUnits(all)
	preTotalNAV := newTotalNAV.Add(cash)
	price := tranche.PreWithdrawalPrice(preTotalNAV, preTotalUnits)
	unitsToBurn := money.UnitsForCash(cash, price)

	investorTranches := filterByInvestor(all, investorID)
	updated, deltas, err := tranche.WithdrawFIFO(investorTranches, unitsToBurn, e.cfg.DustUnits)
	if err != nil {
		var insufficient *ledgererr.InsufficientUnitsError
		if errors.As(err, &insufficient) {
			insufficient.InvestorID = investorID
		}
		return domain.Transaction{}, err
	}

	for _, t := range updated {
		if money.IsDust(t.Units) {
			if err := tx.DeleteTranche(ctx, t.TrancheID); err != nil {
				return domain.Transaction{}, err
			}
			continue
		}
		if err := tx.UpsertTranche(ctx, t); err != nil {
			return domain.Transaction{}, err
		}
	}

	txn := domain.Transaction{
		InvestorID:       investorID,
		Date:             date,
		Type:             txType,
		Amount:           money.RoundMoney(cash),
		NAV:              newTotalNAV,
		UnitsChange:      money.RoundUnits(unitsToBurn.Neg()),
		AffectedTranches: deltas,
	}
	id, err := tx.AppendTransaction(ctx, txn)
	if err != nil {
		return domain.Transaction{}, err
	}
	txn.ID = id
	return txn, nil
}

// FMWithdrawInput is the input to a Fund-Manager Withdrawal (§4.4.2).
type FMWithdrawInput struct {
	Full bool
	// Cash and NewTotalNAV are required when Full is false.
	Cash        decimal.Decimal
	NewTotalNAV decimal.Decimal
	// PreTotalNAV is required when Full is true: the Total NAV in effect
	// just before the full drain, used to price the drained units.
	PreTotalNAV decimal.Decimal
	Date        time.Time
}

// FundManagerWithdraw lets the Fund Manager withdraw accumulated fee units,
// in partial (caller cash amount) or full (drain all FM tranches) mode.
func (e *Engine) FundManagerWithdraw(ctx context.Context, in FMWithdrawInput) (domain.Transaction, error) {
	if err := e.acquire(ctx); err != nil {
		return domain.Transaction{}, err
	}
	defer e.release()

	var result domain.Transaction
	err := e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		fm, err := tx.EnsureFundManager(ctx)
		if err != nil {
			return err
		}
		fmTranches, err := tx.ListTranchesByInvestor(ctx, fm.ID)
		if err != nil {
			return err
		}
		fmUnits := sumUnits(fmTranches)
		if fmUnits.Sign() <= 0 {
			return &ledgererr.ValidationError{Field: "fm_tranches", Message: "Fund Manager holds no units to withdraw"}
		}

		cash, newTotalNAV := in.Cash, in.NewTotalNAV
		if in.Full {
			all, err := tx.ListAllTranches(ctx)
			if err != nil {
				return err
			}
			price := money.PricePerUnit(in.PreTotalNAV, sumUnits(all))
			cash = money.RoundMoney(fmUnits.Mul(price))
			newTotalNAV = in.PreTotalNAV.Sub(cash)
		} else if err := (WithdrawInput{InvestorID: fm.ID, Cash: cash, NewTotalNAV: newTotalNAV, Date: in.Date}).validate(); err != nil {
			return err
		}

		txn, err := e.withdrawLocked(ctx, tx, fm.ID, domain.TxFundManagerWithdraw, cash, newTotalNAV, in.Date)
		if err != nil {
			return err
		}
		result = txn
		return tx.AppendAuditEntry(ctx, audit("fm_withdraw", fmt.Sprint(fm.ID), fmt.Sprintf("full=%v cash=%s", in.Full, cash.String())))
	})
	if err == nil {
		e.maybeAutoBackup()
	}
	return result, err
}

// --- §4.4.1 NAV Update ---

// NAVUpdateInput is the input to a NAV-Update mutation.
type NAVUpdateInput struct {
	NewTotalNAV decimal.Decimal
	Date        time.Time
}

// NAVUpdate applies §4.3.4: ratchets every tranche's HWM and records the new
// Total NAV. It carries no cash and no units_change.
func (e *Engine) NAVUpdate(ctx context.Context, in NAVUpdateInput) (domain.Transaction, error) {
	if in.NewTotalNAV.Sign() <= 0 {
		return domain.Transaction{}, &ledgererr.ValidationError{Field: "new_total_nav", Message: "must be > 0"}
	}
	if err := e.acquire(ctx); err != nil {
		return domain.Transaction{}, err
	}
	defer e.release()

	var result domain.Transaction
	err := e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		if _, err := tx.EnsureFundManager(ctx); err != nil {
			return err
		}
		all, err := tx.ListAllTranches(ctx)
		if err != nil {
			return err
		}
		totalUnits := sumUnits(all)
		price := money.PricePerUnit(in.NewTotalNAV, totalUnits)

		updated, deltas := tranche.ApplyHWMRatchet(all, price)
		touched := map[string]domain.Tranche{}
		for _, d := range deltas {
			touched[d.TrancheID] = domain.Tranche{}
		}
		for _, t := range updated {
			if _, ok := touched[t.TrancheID]; ok {
				if err := tx.UpsertTranche(ctx, t); err != nil {
					return err
				}
			}
		}

		txn := domain.Transaction{
			InvestorID:       domain.FundManagerInvestorID,
			Date:             in.Date,
			Type:             domain.TxNAVUpdate,
			Amount:           decimal.Zero,
			NAV:              in.NewTotalNAV,
			UnitsChange:      decimal.Zero,
			AffectedTranches: deltas,
		}
		id, err := tx.AppendTransaction(ctx, txn)
		if err != nil {
			return err
		}
		txn.ID = id
		result = txn
		return tx.AppendAuditEntry(ctx, audit("nav_update", "fund", fmt.Sprintf("nav=%s", in.NewTotalNAV.String())))
	})
	if err == nil {
		e.maybeAutoBackup()
	}
	return result, err
}

// --- §4.4.3 Delete and undo ---

// DeleteTransaction reverses the latest transaction of its investor (§4.4.3).
func (e *Engine) DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return e.reverseTransaction(ctx, id, "delete_transaction", false)
}

// UndoTransaction is an alias of delete that additionally appends a
// compensating audit entry (§4.4.3).
func (e *Engine) UndoTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return e.reverseTransaction(ctx, id, "undo_transaction", true)
}

func (e *Engine) reverseTransaction(ctx context.Context, id int64, action string, compensating bool) (domain.Transaction, error) {
	if err := e.acquire(ctx); err != nil {
		return domain.Transaction{}, err
	}
	defer e.release()

	var removed domain.Transaction
	err := e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		txn, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		last, ok, err := tx.LastTransactionForInvestor(ctx, txn.InvestorID)
		if err != nil {
			return err
		}
		if !ok || last.ID != txn.ID {
			return &ledgererr.NotReversibleError{TransactionID: id, Reason: "not the latest transaction for this investor"}
		}

		for _, d := range txn.AffectedTranches {
			if d.Created {
				if err := tx.DeleteTranche(ctx, d.TrancheID); err != nil {
					return err
				}
				continue
			}
			if err := tx.UpsertTranche(ctx, tranche.ReverseDelta(d)); err != nil {
				return err
			}
		}

		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		removed = txn

		if err := tx.AppendAuditEntry(ctx, audit(action, fmt.Sprint(id), "")); err != nil {
			return err
		}
		if compensating {
			return tx.AppendAuditEntry(ctx, audit("compensating_entry", fmt.Sprint(id), "undo"))
		}
		return nil
	})
	return removed, err
}

// --- §4.5 HWM fee engine ---

// PreviewFees computes the deterministic, read-only preview of §4.5.2.
func (e *Engine) PreviewFees(ctx context.Context, period string, endDate time.Time, totalNAV decimal.Decimal) (fees.Preview, error) {
	all, err := e.st.ListAllTranches(ctx)
	if err != nil {
		return fees.Preview{}, err
	}
	snap, err := e.st.Snapshot(ctx)
	if err != nil {
		return fees.Preview{}, err
	}
	preview := fees.Compute(period, endDate, totalNAV, all, fees.Params{FeeRate: e.cfg.FeeRate, HurdleRate: e.cfg.HurdleRate})
	preview.ConfirmToken = fees.ConfirmToken(endDate, totalNAV, snap.Version)
	return preview, nil
}

// ApplyFeesInput is the input to ApplyFees (§4.5.3).
type ApplyFeesInput struct {
	Period           string
	EndDate          time.Time
	TotalNAV         decimal.Decimal
	ConfirmToken     string
	AcknowledgeRisk  bool
	AcknowledgeBackup bool
}

// ApplyFees recomputes and commits the preview, provided the confirm token
// still matches and the caller has acknowledged the required safety gates
// (feature.fee_safety).
func (e *Engine) ApplyFees(ctx context.Context, in ApplyFeesInput) (fees.Preview, error) {
	if e.cfg.FeatureFeeSafety && (!in.AcknowledgeRisk || !in.AcknowledgeBackup) {
		return fees.Preview{}, &ledgererr.PreconditionFailedError{Message: "apply_fees requires risk and backup acknowledgment"}
	}
	if err := e.acquire(ctx); err != nil {
		return fees.Preview{}, err
	}
	defer e.release()

	// StaleConfirmation check happens against the snapshot version observed
	// via the store's current Snapshot, matching the version PreviewFees
	// stamped into the original token. Read before entering the write
	// transaction: the engine's write lock already serializes every mutator,
	// so no write can land between this read and the transaction below, and
	// reading it from inside WithWriteTxn would re-enter the store's own
	// locking.
	snap, err := e.st.Snapshot(ctx)
	if err != nil {
		return fees.Preview{}, err
	}
	expectedToken := fees.ConfirmToken(in.EndDate, in.TotalNAV, snap.Version)

	var result fees.Preview
	err = e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		all, err := tx.ListAllTranches(ctx)
		if err != nil {
			return err
		}

		expected := expectedToken
		if expected != in.ConfirmToken {
			return &ledgererr.StaleConfirmationError{Expected: expected, Received: in.ConfirmToken}
		}

		preview := fees.Compute(in.Period, in.EndDate, in.TotalNAV, all, fees.Params{FeeRate: e.cfg.FeeRate, HurdleRate: e.cfg.HurdleRate})

		byTranche := map[string]domain.Tranche{}
		for _, t := range all {
			byTranche[t.TrancheID] = t
		}

		var fmUnits decimal.Decimal
		var fmCash decimal.Decimal

		for _, inv := range preview.Investors {
			if inv.FeeUnits.Sign() <= 0 {
				continue
			}
			var deltas []domain.TrancheDelta
			for _, tf := range inv.TrancheFees {
				if tf.FeeUnits.Sign() <= 0 {
					continue
				}
				t := byTranche[tf.TrancheID]
				updated, delta := tranche.ApplyFeeDebit(t, tf.FeeUnits, preview.Price)
				if err := tx.UpsertTranche(ctx, updated); err != nil {
					return err
				}
				deltas = append(deltas, delta)
				fmUnits = fmUnits.Add(tf.FeeUnits)
				fmCash = fmCash.Add(tf.FeeAmount)
			}

			txn := domain.Transaction{
				InvestorID:       inv.InvestorID,
				Date:             in.EndDate,
				Type:             domain.TxFee,
				Amount:           money.RoundMoney(inv.FeeAmount),
				NAV:              in.TotalNAV,
				UnitsChange:      money.RoundUnits(inv.FeeUnits.Neg()),
				AffectedTranches: deltas,
			}
			if _, err := tx.AppendTransaction(ctx, txn); err != nil {
				return err
			}

			fr := domain.FeeRecord{
				Period:          in.Period,
				InvestorID:       inv.InvestorID,
				FeeAmount:        money.RoundMoney(inv.FeeAmount),
				FeeUnits:         money.RoundUnits(inv.FeeUnits),
				CalculationDate:  in.EndDate,
				UnitsBefore:      inv.UnitsBefore,
				UnitsAfter:       inv.UnitsAfter,
				NAVPerUnit:       preview.Price,
				Description:      fmt.Sprintf("performance fee for period %s", in.Period),
			}
			if _, err := tx.AppendFeeRecord(ctx, fr); err != nil {
				return err
			}
		}

		if fmUnits.Sign() > 0 {
			fm, err := tx.EnsureFundManager(ctx)
			if err != nil {
				return err
			}
			fmTranche := domain.Tranche{
				InvestorID:            fm.ID,
				TrancheID:              uuid.NewString(),
				EntryDate:              in.EndDate,
				EntryNAV:               preview.Price,
				OriginalEntryDate:      in.EndDate,
				OriginalEntryNAV:       preview.Price,
				Units:                  fmUnits,
				OriginalInvestedValue:  fmCash,
				InvestedValue:          fmCash,
				HWM:                    preview.Price,
				CumulativeFeesPaid:     decimal.Zero,
			}
			if err := tx.UpsertTranche(ctx, fmTranche); err != nil {
				return err
			}
		}

		result = preview
		return tx.AppendAuditEntry(ctx, audit("apply_fees", in.Period, fmt.Sprintf("total_fee=%s", preview.TotalFee.String())))
	})
	if err == nil {
		e.maybeAutoBackup()
	}
	return result, err
}

// --- §4.6 Reporting projection ---
//
// Every Report* method reads the store without taking the write lock (§5:
// reads proceed in parallel) and builds its view from a single pass over
// ListInvestors/ListAllTranches/ListTransactions, so a report never mixes
// rows from two different committed states in a way that would matter for
// these read-only aggregates.

// ReportDashboard computes the fund-wide dashboard_kpis of §4.6.
func (e *Engine) ReportDashboard(ctx context.Context) (report.DashboardKPIs, error) {
	investors, err := e.st.ListInvestors(ctx)
	if err != nil {
		return report.DashboardKPIs{}, err
	}
	tranches, err := e.st.ListAllTranches(ctx)
	if err != nil {
		return report.DashboardKPIs{}, err
	}
	txns, err := e.st.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return report.DashboardKPIs{}, err
	}
	nav, _ := report.LatestNAV(txns)
	return report.ComputeDashboardKPIs(nav, investors, tranches), nil
}

// ReportInvestor computes one investor's lifetime_performance (§4.6).
func (e *Engine) ReportInvestor(ctx context.Context, investorID int64) (report.LifetimePerformance, error) {
	if _, err := e.st.GetInvestor(ctx, investorID); err != nil {
		return report.LifetimePerformance{}, err
	}
	tranches, err := e.st.ListAllTranches(ctx)
	if err != nil {
		return report.LifetimePerformance{}, err
	}
	txns, err := e.st.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return report.LifetimePerformance{}, err
	}
	nav, _ := report.LatestNAV(txns)
	return report.ComputeLifetimePerformance(investorID, nav, tranches, txns), nil
}

// ReportTransactions lists transactions matching filter, ordered by (date, id).
func (e *Engine) ReportTransactions(ctx context.Context, filter store.TransactionFilter) ([]domain.Transaction, error) {
	return e.st.ListTransactions(ctx, filter)
}

// ReportNAVHistory returns the chronological nav_history of §4.6.
func (e *Engine) ReportNAVHistory(ctx context.Context) ([]report.NAVPoint, error) {
	txns, err := e.st.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return report.NAVHistory(txns), nil
}

// ReportFeeHistory lists fee records matching filter (§4.6 FeeHistory).
func (e *Engine) ReportFeeHistory(ctx context.Context, filter store.FeeRecordFilter) ([]domain.FeeRecord, error) {
	return e.st.ListFeeRecords(ctx, filter)
}

// --- §4.7 Backup & restore ---

// ErrBackupNotConfigured is returned by ManualBackup/ListBackups/RestoreBackup
// when no backup.Store has been wired via SetBackupStore.
var ErrBackupNotConfigured = fmt.Errorf("no backup store configured")

// ManualBackup takes a "manual" kind snapshot under the write lock (§4.7).
func (e *Engine) ManualBackup(ctx context.Context) (backup.BackupInfo, error) {
	if e.backups == nil {
		return backup.BackupInfo{}, ErrBackupNotConfigured
	}
	if err := e.acquire(ctx); err != nil {
		return backup.BackupInfo{}, err
	}
	defer e.release()

	snap, err := e.st.Snapshot(ctx)
	if err != nil {
		return backup.BackupInfo{}, err
	}
	return e.backups.Snapshot(uuid.NewString(), backup.KindManual, snap, e.now())
}

// ListBackups enumerates the backup directory (§4.7).
func (e *Engine) ListBackups() ([]backup.BackupInfo, error) {
	if e.backups == nil {
		return nil, ErrBackupNotConfigured
	}
	return e.backups.List()
}

// RestoreBackup replaces the entire ledger with the archived state of
// backupID, after a case-sensitive confirm phrase check and, when
// createSafetyBackup is set, a safety snapshot of the current state (§4.7).
func (e *Engine) RestoreBackup(ctx context.Context, backupID, confirmPhrase string, createSafetyBackup bool) error {
	if e.backups == nil {
		return ErrBackupNotConfigured
	}
	if !e.cfg.FeatureBackupRestore {
		return &ledgererr.PreconditionFailedError{Message: "backup/restore is disabled by configuration"}
	}
	if confirmPhrase != "RESTORE" {
		return &ledgererr.PreconditionFailedError{Message: `confirm_phrase must be exactly "RESTORE"`}
	}

	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()

	if createSafetyBackup {
		preSnap, err := e.st.Snapshot(ctx)
		if err != nil {
			return err
		}
		if _, err := e.backups.Snapshot(uuid.NewString(), backup.KindSafety, preSnap, e.now()); err != nil {
			return err
		}
	}

	archive, err := e.backups.Load(backupID)
	if err != nil {
		return err
	}

	return e.st.WithWriteTxn(ctx, func(tx store.WriteTxn) error {
		if err := tx.ReplaceAll(ctx, archive.ToSnapshot()); err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, audit("restore", backupID, ""))
	})
}
