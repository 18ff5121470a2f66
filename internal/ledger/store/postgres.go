package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledgererr"
)

// PostgresStore is a Postgres-backed Store, generalizing
// internal/store.Store's sql.Open/BeginTx/ExecContext idiom from the
// teacher's CBU catalog to the fund's five tables. Read queries use sqlx's
// struct-tagged Select/Get, the one place this repository draws on sqlx
// over bare database/sql: each read is a single-table query scanned by
// column name into the domain structs (or into transactionRow, whose
// affected_tranches JSON column is decoded separately).
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens a connection pool and verifies it with a ping,
// mirroring internal/store.NewStore.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if pingErr := db.Ping(); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already-open sqlx.DB, the seam store-level
// tests use with go-sqlmock.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// Schema is the DDL for the five business tables (§6.2). Callers run it once
// against an empty database; it is intentionally idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS fund_investors (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	join_date TIMESTAMPTZ NOT NULL,
	is_fund_manager BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS fund_tranches (
	tranche_id TEXT PRIMARY KEY,
	investor_id BIGINT NOT NULL REFERENCES fund_investors(id),
	entry_date TIMESTAMPTZ NOT NULL,
	entry_nav NUMERIC(20,6) NOT NULL,
	original_entry_date TIMESTAMPTZ NOT NULL,
	original_entry_nav NUMERIC(20,6) NOT NULL,
	units NUMERIC(20,8) NOT NULL,
	original_invested_value NUMERIC(15,2) NOT NULL,
	invested_value NUMERIC(15,2) NOT NULL,
	hwm NUMERIC(20,6) NOT NULL,
	cumulative_fees_paid NUMERIC(15,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fund_transactions (
	id BIGINT PRIMARY KEY,
	investor_id BIGINT NOT NULL REFERENCES fund_investors(id),
	date TIMESTAMPTZ NOT NULL,
	type TEXT NOT NULL,
	amount NUMERIC(15,2) NOT NULL,
	nav NUMERIC(15,2) NOT NULL,
	units_change NUMERIC(20,8) NOT NULL,
	affected_tranches JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS fund_fee_records (
	id BIGINT PRIMARY KEY,
	period TEXT NOT NULL,
	investor_id BIGINT NOT NULL REFERENCES fund_investors(id),
	fee_amount NUMERIC(15,2) NOT NULL,
	fee_units NUMERIC(20,8) NOT NULL,
	calculation_date TIMESTAMPTZ NOT NULL,
	units_before NUMERIC(20,8) NOT NULL,
	units_after NUMERIC(20,8) NOT NULL,
	nav_per_unit NUMERIC(20,6) NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_log (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	target TEXT NOT NULL,
	before_hash TEXT NOT NULL DEFAULT '',
	after_hash TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT ''
);
`

// Bootstrap runs the schema DDL, the way internal/store.SeedCatalog bootstraps
// the onboarding catalog tables.
func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInvestor(ctx context.Context, id int64) (domain.Investor, error) {
	return getInvestor(ctx, s.db, id)
}

func getInvestor(ctx context.Context, q sqlx.QueryerContext, id int64) (domain.Investor, error) {
	var inv domain.Investor
	err := sqlx.GetContext(ctx, q, &inv,
		`SELECT id, name, phone, email, address, join_date, is_fund_manager FROM fund_investors WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return domain.Investor{}, &ledgererr.NotFoundError{Kind: "investor", ID: fmt.Sprint(id)}
	}
	if err != nil {
		return domain.Investor{}, &ledgererr.StorageError{Op: "get_investor", Err: err}
	}
	return inv, nil
}

func (s *PostgresStore) ListInvestors(ctx context.Context) ([]domain.Investor, error) {
	return listInvestors(ctx, s.db)
}

func listInvestors(ctx context.Context, q sqlx.QueryerContext) ([]domain.Investor, error) {
	var out []domain.Investor
	err := sqlx.SelectContext(ctx, q, &out,
		`SELECT id, name, phone, email, address, join_date, is_fund_manager FROM fund_investors ORDER BY id`)
	if err != nil {
		return nil, &ledgererr.StorageError{Op: "list_investors", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) ListTranchesByInvestor(ctx context.Context, investorID int64) ([]domain.Tranche, error) {
	return listTranches(ctx, s.db, "WHERE investor_id = $1", investorID)
}

func (s *PostgresStore) ListAllTranches(ctx context.Context) ([]domain.Tranche, error) {
	return listTranches(ctx, s.db, "")
}

func listTranches(ctx context.Context, q sqlx.QueryerContext, where string, args ...interface{}) ([]domain.Tranche, error) {
	query := `SELECT tranche_id, investor_id, entry_date, entry_nav, original_entry_date,
		original_entry_nav, units, original_invested_value, invested_value, hwm,
		cumulative_fees_paid FROM fund_tranches ` + where + ` ORDER BY original_entry_date, tranche_id`
	var out []domain.Tranche
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, &ledgererr.StorageError{Op: "list_tranches", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) GetTranche(ctx context.Context, trancheID string) (domain.Tranche, error) {
	return getTranche(ctx, s.db, trancheID)
}

func getTranche(ctx context.Context, q sqlx.QueryerContext, trancheID string) (domain.Tranche, error) {
	var t domain.Tranche
	err := sqlx.GetContext(ctx, q, &t, `SELECT tranche_id, investor_id, entry_date, entry_nav,
		original_entry_date, original_entry_nav, units, original_invested_value, invested_value,
		hwm, cumulative_fees_paid FROM fund_tranches WHERE tranche_id = $1`, trancheID)
	if err == sql.ErrNoRows {
		return domain.Tranche{}, &ledgererr.NotFoundError{Kind: "tranche", ID: trancheID}
	}
	if err != nil {
		return domain.Tranche{}, &ledgererr.StorageError{Op: "get_tranche", Err: err}
	}
	return t, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

func getTransaction(ctx context.Context, q sqlx.QueryerContext, id int64) (domain.Transaction, error) {
	var row transactionRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT id, investor_id, date, type, amount, nav,
		units_change, affected_tranches FROM fund_transactions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return domain.Transaction{}, &ledgererr.NotFoundError{Kind: "transaction", ID: fmt.Sprint(id)}
	}
	if err != nil {
		return domain.Transaction{}, &ledgererr.StorageError{Op: "get_transaction", Err: err}
	}
	return row.toDomain()
}

// transactionRow mirrors domain.Transaction but stores AffectedTranches as a
// raw JSON column, since sqlx does not know how to scan a slice directly.
type transactionRow struct {
	ID               int64           `db:"id"`
	InvestorID       int64           `db:"investor_id"`
	Date             time.Time       `db:"date"`
	Type             string          `db:"type"`
	Amount           decimal.Decimal `db:"amount"`
	NAV              decimal.Decimal `db:"nav"`
	UnitsChange      decimal.Decimal `db:"units_change"`
	AffectedTranches []byte          `db:"affected_tranches"`
}

func (r transactionRow) toDomain() (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:          r.ID,
		InvestorID:  r.InvestorID,
		Date:        r.Date,
		Type:        domain.TransactionType(r.Type),
		Amount:      r.Amount,
		NAV:         r.NAV,
		UnitsChange: r.UnitsChange,
	}
	if len(r.AffectedTranches) > 0 {
		if err := json.Unmarshal(r.AffectedTranches, &tx.AffectedTranches); err != nil {
			return domain.Transaction{}, &ledgererr.StorageError{Op: "decode_affected_tranches", Err: err}
		}
	}
	return tx, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	return listTransactions(ctx, s.db, filter)
}

func listTransactions(ctx context.Context, q sqlx.QueryerContext, filter TransactionFilter) ([]domain.Transaction, error) {
	query := `SELECT id, investor_id, date, type, amount, nav, units_change, affected_tranches
		FROM fund_transactions WHERE 1=1`
	var args []interface{}
	n := 1
	if filter.InvestorID != nil {
		query += fmt.Sprintf(" AND investor_id = $%d", n)
		args = append(args, *filter.InvestorID)
		n++
	}
	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", n)
		args = append(args, string(*filter.Type))
		n++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND date >= $%d", n)
		args = append(args, *filter.Since)
		n++
	}
	if filter.Until != nil {
		query += fmt.Sprintf(" AND date <= $%d", n)
		args = append(args, *filter.Until)
		n++
	}
	query += " ORDER BY date, id"

	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, &ledgererr.StorageError{Op: "list_transactions", Err: err}
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *PostgresStore) LatestTransaction(ctx context.Context) (domain.Transaction, bool, error) {
	return latestTransaction(ctx, s.db, nil)
}

func (s *PostgresStore) LastTransactionForInvestor(ctx context.Context, investorID int64) (domain.Transaction, bool, error) {
	return latestTransaction(ctx, s.db, &investorID)
}

func latestTransaction(ctx context.Context, q sqlx.QueryerContext, investorID *int64) (domain.Transaction, bool, error) {
	query := `SELECT id, investor_id, date, type, amount, nav, units_change, affected_tranches
		FROM fund_transactions`
	var args []interface{}
	if investorID != nil {
		query += " WHERE investor_id = $1"
		args = append(args, *investorID)
	}
	query += " ORDER BY date DESC, id DESC LIMIT 1"

	var row transactionRow
	err := sqlx.GetContext(ctx, q, &row, query, args...)
	if err == sql.ErrNoRows {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, &ledgererr.StorageError{Op: "latest_transaction", Err: err}
	}
	tx, err := row.toDomain()
	return tx, true, err
}

func (s *PostgresStore) NextTransactionID(ctx context.Context) (int64, error) {
	return nextTransactionID(ctx, s.db)
}

func nextTransactionID(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var max sql.NullInt64
	if err := sqlx.GetContext(ctx, q, &max, `SELECT MAX(id) FROM fund_transactions`); err != nil {
		return 0, &ledgererr.StorageError{Op: "next_transaction_id", Err: err}
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

func (s *PostgresStore) ListFeeRecords(ctx context.Context, filter FeeRecordFilter) ([]domain.FeeRecord, error) {
	return listFeeRecords(ctx, s.db, filter)
}

func listFeeRecords(ctx context.Context, q sqlx.QueryerContext, filter FeeRecordFilter) ([]domain.FeeRecord, error) {
	query := `SELECT id, period, investor_id, fee_amount, fee_units, calculation_date,
		units_before, units_after, nav_per_unit, description FROM fund_fee_records WHERE 1=1`
	var args []interface{}
	n := 1
	if filter.Period != nil {
		query += fmt.Sprintf(" AND period = $%d", n)
		args = append(args, *filter.Period)
		n++
	}
	if filter.InvestorID != nil {
		query += fmt.Sprintf(" AND investor_id = $%d", n)
		args = append(args, *filter.InvestorID)
		n++
	}
	query += " ORDER BY id"

	var out []domain.FeeRecord
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, &ledgererr.StorageError{Op: "list_fee_records", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) ListAuditEntries(ctx context.Context) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := sqlx.SelectContext(ctx, s.db, &out, `SELECT id, timestamp, actor, action, target,
		before_hash, after_hash, detail FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, &ledgererr.StorageError{Op: "list_audit_entries", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (Snapshot, error) {
	investors, err := listInvestors(ctx, s.db)
	if err != nil {
		return Snapshot{}, err
	}
	tranches, err := listTranches(ctx, s.db, "")
	if err != nil {
		return Snapshot{}, err
	}
	transactions, err := listTransactions(ctx, s.db, TransactionFilter{})
	if err != nil {
		return Snapshot{}, err
	}
	feeRecords, err := listFeeRecords(ctx, s.db, FeeRecordFilter{})
	if err != nil {
		return Snapshot{}, err
	}
	// Every committed mutation appends an audit_log row, so the highest
	// audit id advances with each write and serves as the snapshot version.
	var version sql.NullInt64
	if err := sqlx.GetContext(ctx, s.db, &version, `SELECT MAX(id) FROM audit_log`); err != nil {
		return Snapshot{}, &ledgererr.StorageError{Op: "snapshot_version", Err: err}
	}
	return Snapshot{
		Version:      version.Int64,
		Investors:    investors,
		Tranches:     tranches,
		Transactions: transactions,
		FeeRecords:   feeRecords,
	}, nil
}

func (s *PostgresStore) WithWriteTxn(ctx context.Context, fn func(WriteTxn) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &ledgererr.StorageError{Op: "begin_txn", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(pgTxn{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &ledgererr.StorageError{Op: "commit_txn", Err: err}
	}
	return nil
}

// pgTxn is the WriteTxn facade bound to one sqlx.Tx.
type pgTxn struct{ tx *sqlx.Tx }

func (t pgTxn) GetInvestor(ctx context.Context, id int64) (domain.Investor, error) {
	return getInvestor(ctx, t.tx, id)
}
func (t pgTxn) ListInvestors(ctx context.Context) ([]domain.Investor, error) {
	return listInvestors(ctx, t.tx)
}
func (t pgTxn) ListTranchesByInvestor(ctx context.Context, id int64) ([]domain.Tranche, error) {
	return listTranches(ctx, t.tx, "WHERE investor_id = $1", id)
}
func (t pgTxn) ListAllTranches(ctx context.Context) ([]domain.Tranche, error) {
	return listTranches(ctx, t.tx, "")
}
func (t pgTxn) GetTranche(ctx context.Context, id string) (domain.Tranche, error) {
	return getTranche(ctx, t.tx, id)
}
func (t pgTxn) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return getTransaction(ctx, t.tx, id)
}
func (t pgTxn) ListTransactions(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error) {
	return listTransactions(ctx, t.tx, f)
}
func (t pgTxn) LatestTransaction(ctx context.Context) (domain.Transaction, bool, error) {
	return latestTransaction(ctx, t.tx, nil)
}
func (t pgTxn) LastTransactionForInvestor(ctx context.Context, id int64) (domain.Transaction, bool, error) {
	return latestTransaction(ctx, t.tx, &id)
}
func (t pgTxn) NextTransactionID(ctx context.Context) (int64, error) {
	return nextTransactionID(ctx, t.tx)
}
func (t pgTxn) ListFeeRecords(ctx context.Context, f FeeRecordFilter) ([]domain.FeeRecord, error) {
	return listFeeRecords(ctx, t.tx, f)
}
func (t pgTxn) ListAuditEntries(ctx context.Context) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := sqlx.SelectContext(ctx, t.tx, &out, `SELECT id, timestamp, actor, action, target,
		before_hash, after_hash, detail FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, &ledgererr.StorageError{Op: "list_audit_entries", Err: err}
	}
	return out, nil
}

func (t pgTxn) UpsertInvestor(ctx context.Context, inv domain.Investor) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO fund_investors
		(id, name, phone, email, address, join_date, is_fund_manager)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name=$2, phone=$3, email=$4, address=$5,
			join_date=$6, is_fund_manager=$7`,
		inv.ID, inv.Name, inv.Phone, inv.Email, inv.Address, inv.JoinDate, inv.IsFundManager)
	if err != nil {
		return &ledgererr.StorageError{Op: "upsert_investor", Err: err}
	}
	return nil
}

func (t pgTxn) EnsureFundManager(ctx context.Context) (domain.Investor, error) {
	fm, err := getInvestor(ctx, t.tx, domain.FundManagerInvestorID)
	if err == nil {
		return fm, nil
	}
	if _, ok := err.(*ledgererr.NotFoundError); !ok {
		return domain.Investor{}, err
	}
	fm = domain.Investor{
		ID:            domain.FundManagerInvestorID,
		Name:          "Fund Manager",
		IsFundManager: true,
	}
	if uerr := t.UpsertInvestor(ctx, fm); uerr != nil {
		return domain.Investor{}, uerr
	}
	return fm, nil
}

func (t pgTxn) UpsertTranche(ctx context.Context, tr domain.Tranche) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO fund_tranches
		(tranche_id, investor_id, entry_date, entry_nav, original_entry_date, original_entry_nav,
		 units, original_invested_value, invested_value, hwm, cumulative_fees_paid)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (tranche_id) DO UPDATE SET investor_id=$2, entry_date=$3, entry_nav=$4,
			original_entry_date=$5, original_entry_nav=$6, units=$7, original_invested_value=$8,
			invested_value=$9, hwm=$10, cumulative_fees_paid=$11`,
		tr.TrancheID, tr.InvestorID, tr.EntryDate, tr.EntryNAV, tr.OriginalEntryDate,
		tr.OriginalEntryNAV, tr.Units, tr.OriginalInvestedValue, tr.InvestedValue, tr.HWM,
		tr.CumulativeFeesPaid)
	if err != nil {
		return &ledgererr.StorageError{Op: "upsert_tranche", Err: err}
	}
	return nil
}

func (t pgTxn) DeleteTranche(ctx context.Context, trancheID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM fund_tranches WHERE tranche_id = $1`, trancheID)
	if err != nil {
		return &ledgererr.StorageError{Op: "delete_tranche", Err: err}
	}
	return nil
}

func (t pgTxn) AppendTransaction(ctx context.Context, tx domain.Transaction) (int64, error) {
	affected, err := json.Marshal(tx.AffectedTranches)
	if err != nil {
		return 0, &ledgererr.StorageError{Op: "encode_affected_tranches", Err: err}
	}
	if tx.ID == 0 {
		id, err := nextTransactionID(ctx, t.tx)
		if err != nil {
			return 0, err
		}
		tx.ID = id
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO fund_transactions
		(id, investor_id, date, type, amount, nav, units_change, affected_tranches)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		tx.ID, tx.InvestorID, tx.Date, string(tx.Type), tx.Amount, tx.NAV, tx.UnitsChange, affected)
	if err != nil {
		return 0, &ledgererr.StorageError{Op: "append_transaction", Err: err}
	}
	return tx.ID, nil
}

func (t pgTxn) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM fund_transactions WHERE id = $1`, id)
	if err != nil {
		return &ledgererr.StorageError{Op: "delete_transaction", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &ledgererr.NotFoundError{Kind: "transaction", ID: fmt.Sprint(id)}
	}
	return nil
}

func (t pgTxn) AppendFeeRecord(ctx context.Context, fr domain.FeeRecord) (int64, error) {
	if fr.ID == 0 {
		var max sql.NullInt64
		if err := sqlx.GetContext(ctx, t.tx, &max, `SELECT MAX(id) FROM fund_fee_records`); err != nil {
			return 0, &ledgererr.StorageError{Op: "next_fee_record_id", Err: err}
		}
		fr.ID = 1
		if max.Valid {
			fr.ID = max.Int64 + 1
		}
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO fund_fee_records
		(id, period, investor_id, fee_amount, fee_units, calculation_date, units_before,
		 units_after, nav_per_unit, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		fr.ID, fr.Period, fr.InvestorID, fr.FeeAmount, fr.FeeUnits, fr.CalculationDate,
		fr.UnitsBefore, fr.UnitsAfter, fr.NAVPerUnit, fr.Description)
	if err != nil {
		return 0, &ledgererr.StorageError{Op: "append_fee_record", Err: err}
	}
	return fr.ID, nil
}

func (t pgTxn) AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO audit_log
		(timestamp, actor, action, target, before_hash, after_hash, detail)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.Timestamp, e.Actor, e.Action, e.Target, e.BeforeHash, e.AfterHash, e.Detail)
	if err != nil {
		return &ledgererr.StorageError{Op: "append_audit_entry", Err: err}
	}
	return nil
}

func (t pgTxn) ReplaceAll(ctx context.Context, snap Snapshot) error {
	for _, table := range []string{"fund_fee_records", "fund_transactions", "fund_tranches", "fund_investors"} {
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return &ledgererr.StorageError{Op: "truncate_" + table, Err: err}
		}
	}
	for _, inv := range snap.Investors {
		if err := t.UpsertInvestor(ctx, inv); err != nil {
			return err
		}
	}
	for _, tr := range snap.Tranches {
		if err := t.UpsertTranche(ctx, tr); err != nil {
			return err
		}
	}
	for _, tx := range snap.Transactions {
		if _, err := t.AppendTransaction(ctx, tx); err != nil {
			return err
		}
	}
	for _, fr := range snap.FeeRecords {
		if _, err := t.AppendFeeRecord(ctx, fr); err != nil {
			return err
		}
	}
	return nil
}
