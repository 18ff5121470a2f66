package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledgererr"
)

// MockStore is an in-memory Store, generalizing the teacher's
// sync.RWMutex + map[id]*T + sequence-counter mock adapters to the fund
// entity set. It backs the CLI's mock developer mode (data_source "mock",
// e.g. FUNDLEDGER_DATA_SOURCE=mock) and unit tests of C2-C6 that don't need
// a database.
type MockStore struct {
	mu sync.Mutex

	investors    map[int64]domain.Investor
	tranches     map[string]domain.Tranche
	transactions map[int64]domain.Transaction
	feeRecords   map[int64]domain.FeeRecord
	auditLog     []domain.AuditEntry

	nextTxID  int64
	nextFeeID int64
	version   int64
}

// NewMockStore returns an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		investors:    map[int64]domain.Investor{},
		tranches:     map[string]domain.Tranche{},
		transactions: map[int64]domain.Transaction{},
		feeRecords:   map[int64]domain.FeeRecord{},
		nextTxID:     1,
		nextFeeID:    1,
	}
}

func (s *MockStore) Close() error { return nil }

// The *Locked helpers below hold the actual read logic and assume the
// caller already holds s.mu. The exported ReadStore methods lock and
// delegate to them; mockTxn (running inside WithWriteTxn, which already
// holds the lock for the duration of the callback) calls them directly so a
// mutation's own reads never re-enter the mutex.

func (s *MockStore) getInvestorLocked(id int64) (domain.Investor, error) {
	inv, ok := s.investors[id]
	if !ok {
		return domain.Investor{}, &ledgererr.NotFoundError{Kind: "investor", ID: itoa(id)}
	}
	return inv, nil
}

func (s *MockStore) listInvestorsLocked() []domain.Investor {
	out := make([]domain.Investor, 0, len(s.investors))
	for _, inv := range s.investors {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MockStore) listTranchesByInvestorLocked(investorID int64) []domain.Tranche {
	var out []domain.Tranche
	for _, t := range s.tranches {
		if t.InvestorID == investorID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OriginalEntryDate.Equal(out[j].OriginalEntryDate) {
			return out[i].OriginalEntryDate.Before(out[j].OriginalEntryDate)
		}
		return out[i].TrancheID < out[j].TrancheID
	})
	return out
}

func (s *MockStore) listAllTranchesLocked() []domain.Tranche {
	out := make([]domain.Tranche, 0, len(s.tranches))
	for _, t := range s.tranches {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrancheID < out[j].TrancheID })
	return out
}

func (s *MockStore) getTrancheLocked(trancheID string) (domain.Tranche, error) {
	t, ok := s.tranches[trancheID]
	if !ok {
		return domain.Tranche{}, &ledgererr.NotFoundError{Kind: "tranche", ID: trancheID}
	}
	return t, nil
}

func (s *MockStore) getTransactionLocked(id int64) (domain.Transaction, error) {
	tx, ok := s.transactions[id]
	if !ok {
		return domain.Transaction{}, &ledgererr.NotFoundError{Kind: "transaction", ID: itoa(id)}
	}
	return tx, nil
}

func (s *MockStore) listTransactionsLocked(filter TransactionFilter) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range s.transactions {
		if filter.InvestorID != nil && tx.InvestorID != *filter.InvestorID {
			continue
		}
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		if filter.Since != nil && tx.Date.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && tx.Date.After(*filter.Until) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// latestLocked returns the transaction with the highest (date, id), filtered
// by investor when investorID is non-nil. Caller must hold s.mu.
func (s *MockStore) latestLocked(investorID *int64) (domain.Transaction, bool, error) {
	var best domain.Transaction
	found := false
	for _, tx := range s.transactions {
		if investorID != nil && tx.InvestorID != *investorID {
			continue
		}
		if !found || tx.Date.After(best.Date) || (tx.Date.Equal(best.Date) && tx.ID > best.ID) {
			best = tx
			found = true
		}
	}
	return best, found, nil
}

func (s *MockStore) listFeeRecordsLocked(filter FeeRecordFilter) []domain.FeeRecord {
	var out []domain.FeeRecord
	for _, fr := range s.feeRecords {
		if filter.Period != nil && fr.Period != *filter.Period {
			continue
		}
		if filter.InvestorID != nil && fr.InvestorID != *filter.InvestorID {
			continue
		}
		out = append(out, fr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MockStore) listAuditEntriesLocked() []domain.AuditEntry {
	out := make([]domain.AuditEntry, len(s.auditLog))
	copy(out, s.auditLog)
	return out
}

func (s *MockStore) GetInvestor(_ context.Context, id int64) (domain.Investor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getInvestorLocked(id)
}

func (s *MockStore) ListInvestors(_ context.Context) ([]domain.Investor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listInvestorsLocked(), nil
}

func (s *MockStore) ListTranchesByInvestor(_ context.Context, investorID int64) ([]domain.Tranche, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTranchesByInvestorLocked(investorID), nil
}

func (s *MockStore) ListAllTranches(_ context.Context) ([]domain.Tranche, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listAllTranchesLocked(), nil
}

func (s *MockStore) GetTranche(_ context.Context, trancheID string) (domain.Tranche, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTrancheLocked(trancheID)
}

func (s *MockStore) GetTransaction(_ context.Context, id int64) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTransactionLocked(id)
}

func (s *MockStore) ListTransactions(_ context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTransactionsLocked(filter), nil
}

func (s *MockStore) LatestTransaction(_ context.Context) (domain.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked(nil)
}

func (s *MockStore) LastTransactionForInvestor(_ context.Context, investorID int64) (domain.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked(&investorID)
}

func (s *MockStore) NextTransactionID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextTxID, nil
}

func (s *MockStore) ListFeeRecords(_ context.Context, filter FeeRecordFilter) ([]domain.FeeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listFeeRecordsLocked(filter), nil
}

func (s *MockStore) ListAuditEntries(_ context.Context) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listAuditEntriesLocked(), nil
}

// mockTxn is the WriteTxn facade handed to WithWriteTxn's callback. Every
// method here assumes s.mu is already held by the enclosing WithWriteTxn
// call, so reads go straight through the *Locked helpers and writes mutate
// the same maps the parent store holds directly; WithWriteTxn restores a
// pre-call deep copy if the callback fails, giving it transaction semantics
// without a second storage engine underneath.
type mockTxn struct{ s *MockStore }

func (t mockTxn) GetInvestor(_ context.Context, id int64) (domain.Investor, error) {
	return t.s.getInvestorLocked(id)
}
func (t mockTxn) ListInvestors(_ context.Context) ([]domain.Investor, error) {
	return t.s.listInvestorsLocked(), nil
}
func (t mockTxn) ListTranchesByInvestor(_ context.Context, id int64) ([]domain.Tranche, error) {
	return t.s.listTranchesByInvestorLocked(id), nil
}
func (t mockTxn) ListAllTranches(_ context.Context) ([]domain.Tranche, error) {
	return t.s.listAllTranchesLocked(), nil
}
func (t mockTxn) GetTranche(_ context.Context, id string) (domain.Tranche, error) {
	return t.s.getTrancheLocked(id)
}
func (t mockTxn) GetTransaction(_ context.Context, id int64) (domain.Transaction, error) {
	return t.s.getTransactionLocked(id)
}
func (t mockTxn) ListTransactions(_ context.Context, f TransactionFilter) ([]domain.Transaction, error) {
	return t.s.listTransactionsLocked(f), nil
}
func (t mockTxn) LatestTransaction(_ context.Context) (domain.Transaction, bool, error) {
	return t.s.latestLocked(nil)
}
func (t mockTxn) LastTransactionForInvestor(_ context.Context, id int64) (domain.Transaction, bool, error) {
	return t.s.latestLocked(&id)
}
func (t mockTxn) NextTransactionID(_ context.Context) (int64, error) {
	return t.s.nextTxID, nil
}
func (t mockTxn) ListFeeRecords(_ context.Context, f FeeRecordFilter) ([]domain.FeeRecord, error) {
	return t.s.listFeeRecordsLocked(f), nil
}
func (t mockTxn) ListAuditEntries(_ context.Context) ([]domain.AuditEntry, error) {
	return t.s.listAuditEntriesLocked(), nil
}

func (t mockTxn) UpsertInvestor(_ context.Context, inv domain.Investor) error {
	t.s.investors[inv.ID] = inv
	return nil
}

func (t mockTxn) EnsureFundManager(_ context.Context) (domain.Investor, error) {
	if fm, ok := t.s.investors[domain.FundManagerInvestorID]; ok {
		return fm, nil
	}
	fm := domain.Investor{
		ID:            domain.FundManagerInvestorID,
		Name:          "Fund Manager",
		IsFundManager: true,
		JoinDate:      time.Now().UTC(),
	}
	t.s.investors[fm.ID] = fm
	return fm, nil
}

func (t mockTxn) UpsertTranche(_ context.Context, tr domain.Tranche) error {
	t.s.tranches[tr.TrancheID] = tr
	return nil
}

func (t mockTxn) DeleteTranche(_ context.Context, trancheID string) error {
	delete(t.s.tranches, trancheID)
	return nil
}

func (t mockTxn) AppendTransaction(_ context.Context, tx domain.Transaction) (int64, error) {
	if tx.ID == 0 {
		tx.ID = t.s.nextTxID
	}
	t.s.transactions[tx.ID] = tx
	if tx.ID >= t.s.nextTxID {
		t.s.nextTxID = tx.ID + 1
	}
	return tx.ID, nil
}

func (t mockTxn) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := t.s.transactions[id]; !ok {
		return &ledgererr.NotFoundError{Kind: "transaction", ID: itoa(id)}
	}
	delete(t.s.transactions, id)
	return nil
}

func (t mockTxn) AppendFeeRecord(_ context.Context, fr domain.FeeRecord) (int64, error) {
	if fr.ID == 0 {
		fr.ID = t.s.nextFeeID
	}
	t.s.feeRecords[fr.ID] = fr
	if fr.ID >= t.s.nextFeeID {
		t.s.nextFeeID = fr.ID + 1
	}
	return fr.ID, nil
}

func (t mockTxn) AppendAuditEntry(_ context.Context, e domain.AuditEntry) error {
	e.ID = int64(len(t.s.auditLog) + 1)
	t.s.auditLog = append(t.s.auditLog, e)
	return nil
}

func (t mockTxn) ReplaceAll(_ context.Context, snap Snapshot) error {
	t.s.investors = map[int64]domain.Investor{}
	for _, inv := range snap.Investors {
		t.s.investors[inv.ID] = inv
	}
	t.s.tranches = map[string]domain.Tranche{}
	for _, tr := range snap.Tranches {
		t.s.tranches[tr.TrancheID] = tr
	}
	t.s.transactions = map[int64]domain.Transaction{}
	t.s.nextTxID = 1
	for _, tx := range snap.Transactions {
		t.s.transactions[tx.ID] = tx
		if tx.ID >= t.s.nextTxID {
			t.s.nextTxID = tx.ID + 1
		}
	}
	t.s.feeRecords = map[int64]domain.FeeRecord{}
	t.s.nextFeeID = 1
	for _, fr := range snap.FeeRecords {
		t.s.feeRecords[fr.ID] = fr
		if fr.ID >= t.s.nextFeeID {
			t.s.nextFeeID = fr.ID + 1
		}
	}
	return nil
}

func (s *MockStore) WithWriteTxn(ctx context.Context, fn func(WriteTxn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.deepCopyLocked()
	if err := fn(mockTxn{s: s}); err != nil {
		s.restoreLocked(before)
		return err
	}
	s.version++
	return nil
}

func (s *MockStore) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Version: s.version}
	for _, inv := range s.investors {
		snap.Investors = append(snap.Investors, inv)
	}
	for _, tr := range s.tranches {
		snap.Tranches = append(snap.Tranches, tr)
	}
	for _, tx := range s.transactions {
		snap.Transactions = append(snap.Transactions, tx)
	}
	for _, fr := range s.feeRecords {
		snap.FeeRecords = append(snap.FeeRecords, fr)
	}
	sort.Slice(snap.Investors, func(i, j int) bool { return snap.Investors[i].ID < snap.Investors[j].ID })
	sort.Slice(snap.Tranches, func(i, j int) bool { return snap.Tranches[i].TrancheID < snap.Tranches[j].TrancheID })
	sort.Slice(snap.Transactions, func(i, j int) bool { return snap.Transactions[i].ID < snap.Transactions[j].ID })
	sort.Slice(snap.FeeRecords, func(i, j int) bool { return snap.FeeRecords[i].ID < snap.FeeRecords[j].ID })
	return snap, nil
}

type mockState struct {
	investors    map[int64]domain.Investor
	tranches     map[string]domain.Tranche
	transactions map[int64]domain.Transaction
	feeRecords   map[int64]domain.FeeRecord
	auditLen     int
	nextTxID     int64
	nextFeeID    int64
}

func (s *MockStore) deepCopyLocked() mockState {
	st := mockState{
		investors:    make(map[int64]domain.Investor, len(s.investors)),
		tranches:     make(map[string]domain.Tranche, len(s.tranches)),
		transactions: make(map[int64]domain.Transaction, len(s.transactions)),
		feeRecords:   make(map[int64]domain.FeeRecord, len(s.feeRecords)),
		auditLen:     len(s.auditLog),
		nextTxID:     s.nextTxID,
		nextFeeID:    s.nextFeeID,
	}
	for k, v := range s.investors {
		st.investors[k] = v
	}
	for k, v := range s.tranches {
		st.tranches[k] = v
	}
	for k, v := range s.transactions {
		st.transactions[k] = v
	}
	for k, v := range s.feeRecords {
		st.feeRecords[k] = v
	}
	return st
}

func (s *MockStore) restoreLocked(st mockState) {
	s.investors = st.investors
	s.tranches = st.tranches
	s.transactions = st.transactions
	s.feeRecords = st.feeRecords
	s.auditLog = s.auditLog[:st.auditLen]
	s.nextTxID = st.nextTxID
	s.nextFeeID = st.nextFeeID
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
