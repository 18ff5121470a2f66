// Package store provides typed read/write access to the four entity
// collections of C1 (investors, tranches, transactions, fee records) plus
// the audit log, with referential integrity. It generalizes the teacher's
// internal/store Postgres idiom (sql.Open, BeginTx/ExecContext/QueryRowContext,
// wrapped fmt.Errorf) and its internal/datastore factory-and-adapter shape
// (a Config selecting between a real and a mock backend) to the fund tables
// instead of the onboarding CBU catalog.
package store

import (
	"context"
	"time"

	"fundledger/internal/ledger/domain"
)

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	InvestorID *int64
	Since      *time.Time
	Until      *time.Time
	Type       *domain.TransactionType
}

// FeeRecordFilter narrows ListFeeRecords.
type FeeRecordFilter struct {
	Period     *string
	InvestorID *int64
}

// ReadStore is the subset of operations permitted outside a write
// transaction; per §4.1 these always see the last committed state.
type ReadStore interface {
	GetInvestor(ctx context.Context, id int64) (domain.Investor, error)
	ListInvestors(ctx context.Context) ([]domain.Investor, error)

	ListTranchesByInvestor(ctx context.Context, investorID int64) ([]domain.Tranche, error)
	ListAllTranches(ctx context.Context) ([]domain.Tranche, error)
	GetTranche(ctx context.Context, trancheID string) (domain.Tranche, error)

	GetTransaction(ctx context.Context, id int64) (domain.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	LatestTransaction(ctx context.Context) (domain.Transaction, bool, error)
	LastTransactionForInvestor(ctx context.Context, investorID int64) (domain.Transaction, bool, error)
	NextTransactionID(ctx context.Context) (int64, error)

	ListFeeRecords(ctx context.Context, filter FeeRecordFilter) ([]domain.FeeRecord, error)
	ListAuditEntries(ctx context.Context) ([]domain.AuditEntry, error)
}

// WriteTxn is the mutating surface available inside WithWriteTxn. It embeds
// ReadStore so a mutation can read its own writes within the same
// transaction.
type WriteTxn interface {
	ReadStore

	UpsertInvestor(ctx context.Context, inv domain.Investor) error
	EnsureFundManager(ctx context.Context) (domain.Investor, error)

	UpsertTranche(ctx context.Context, t domain.Tranche) error
	DeleteTranche(ctx context.Context, trancheID string) error

	AppendTransaction(ctx context.Context, tx domain.Transaction) (int64, error)
	DeleteTransaction(ctx context.Context, id int64) error

	AppendFeeRecord(ctx context.Context, fr domain.FeeRecord) (int64, error)
	AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error

	// ReplaceAll atomically overwrites every business table with the
	// contents of snap, used by restore (§4.7).
	ReplaceAll(ctx context.Context, snap Snapshot) error
}

// Store is the full entity store. WithWriteTxn is the single transactional
// boundary spec §4.1 requires: every mutation committed inside fn is atomic
// and durable.
type Store interface {
	ReadStore
	WithWriteTxn(ctx context.Context, fn func(WriteTxn) error) error

	// Snapshot reads all four entity tables into a single point-in-time
	// view for backup (§4.7). Callers are expected to hold the engine's
	// write lock while calling this so the read is consistent.
	Snapshot(ctx context.Context) (Snapshot, error)

	Close() error
}

// Snapshot is a full point-in-time copy of the business tables, the unit the
// backup archive format (§6.3) serializes.
type Snapshot struct {
	Version      int64
	Investors    []domain.Investor
	Tranches     []domain.Tranche
	Transactions []domain.Transaction
	FeeRecords   []domain.FeeRecord
}
