// Package domain holds the entity types of the fund ledger (C1): Investor,
// Tranche, Transaction, and FeeRecord, plus the small value types that tie
// them together (transaction kinds, per-tranche undo deltas).
//
// Field names follow the attribute names callers and the backup archive
// format both depend on; do not rename without updating internal/ledger/backup.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundManagerInvestorID is the reserved id of the singleton Fund Manager
// investor (I4).
const FundManagerInvestorID int64 = 0

// Investor is a participant in the fund, or the singleton Fund Manager.
type Investor struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Phone         string    `json:"phone" db:"phone"`
	Email         string    `json:"email" db:"email"`
	Address       string    `json:"address" db:"address"`
	JoinDate      time.Time `json:"join_date" db:"join_date"`
	IsFundManager bool      `json:"is_fund_manager" db:"is_fund_manager"`
}

// Tranche is a lot created by one deposit, mutated by withdrawals and fees.
type Tranche struct {
	InvestorID int64  `json:"investor_id" db:"investor_id"`
	TrancheID  string `json:"tranche_id" db:"tranche_id"`

	EntryDate time.Time       `json:"entry_date" db:"entry_date"`
	EntryNAV  decimal.Decimal `json:"entry_nav" db:"entry_nav"`

	OriginalEntryDate time.Time       `json:"original_entry_date" db:"original_entry_date"`
	OriginalEntryNAV  decimal.Decimal `json:"original_entry_nav" db:"original_entry_nav"`

	Units                 decimal.Decimal `json:"units" db:"units"`
	OriginalInvestedValue decimal.Decimal `json:"original_invested_value" db:"original_invested_value"`
	InvestedValue         decimal.Decimal `json:"invested_value" db:"invested_value"`

	HWM                decimal.Decimal `json:"hwm" db:"hwm"`
	CumulativeFeesPaid decimal.Decimal `json:"cumulative_fees_paid" db:"cumulative_fees_paid"`
}

// Clone returns a value copy, since decimal.Decimal is itself immutable and
// safe to copy by value; Clone exists so callers never hold a pointer into
// a store's internal map.
func (t Tranche) Clone() Tranche { return t }

// TransactionType enumerates the kinds of ledger mutation.
type TransactionType string

const (
	TxDeposit             TransactionType = "deposit"
	TxWithdrawal          TransactionType = "withdrawal"
	TxNAVUpdate           TransactionType = "nav_update"
	TxFee                 TransactionType = "fee"
	TxFundManagerWithdraw TransactionType = "fm_withdraw"
)

// TrancheDelta records how one transaction changed one tranche, so that
// delete/undo can reverse the mutation deterministically instead of
// recomputing it (see spec's Undo design note). Prior is the tranche's
// complete state immediately before this transaction touched it — carrying
// the full row, not just the changed fields, means undo can restore a
// tranche that was retired (deleted outright) just as easily as one that
// was merely reduced: upsert Prior verbatim.
type TrancheDelta struct {
	TrancheID          string          `json:"tranche_id"`
	UnitsDelta         decimal.Decimal `json:"units_delta"`
	InvestedValueDelta decimal.Decimal `json:"invested_value_delta"`
	Created            bool            `json:"created"`
	Retired            bool            `json:"retired"`
	Prior              Tranche         `json:"prior"`
}

// Transaction is one append-only ledger entry.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	InvestorID  int64           `json:"investor_id" db:"investor_id"`
	Date        time.Time       `json:"date" db:"date"`
	Type        TransactionType `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	NAV         decimal.Decimal `json:"nav" db:"nav"`
	UnitsChange decimal.Decimal `json:"units_change" db:"units_change"`

	// AffectedTranches is the structured undo attribute spec's design notes
	// require: the set of tranches this transaction touched and their
	// per-tranche deltas, serialized as JSON in storage.
	AffectedTranches []TrancheDelta `json:"affected_tranches" db:"affected_tranches"`
}

// FeeRecord is an immutable record of one investor's share of one fee
// calculation period.
type FeeRecord struct {
	ID              int64           `json:"id" db:"id"`
	Period          string          `json:"period" db:"period"`
	InvestorID      int64           `json:"investor_id" db:"investor_id"`
	FeeAmount       decimal.Decimal `json:"fee_amount" db:"fee_amount"`
	FeeUnits        decimal.Decimal `json:"fee_units" db:"fee_units"`
	CalculationDate time.Time       `json:"calculation_date" db:"calculation_date"`
	UnitsBefore     decimal.Decimal `json:"units_before" db:"units_before"`
	UnitsAfter      decimal.Decimal `json:"units_after" db:"units_after"`
	NAVPerUnit      decimal.Decimal `json:"nav_per_unit" db:"nav_per_unit"`
	Description     string          `json:"description" db:"description"`
}

// AuditEntry is one row of the append-only action log (C8).
type AuditEntry struct {
	ID        int64     `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	Target    string    `json:"target" db:"target"`
	BeforeHash string   `json:"before_hash" db:"before_hash"`
	AfterHash string    `json:"after_hash" db:"after_hash"`
	Detail    string    `json:"detail" db:"detail"`
}
