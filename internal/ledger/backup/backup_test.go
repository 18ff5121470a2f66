package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/store"
)

func sampleSnapshot() store.Snapshot {
	return store.Snapshot{
		Version: 7,
		Investors: []domain.Investor{
			{ID: 1, Name: "Investor One"},
			{ID: 0, Name: "Fund Manager", IsFundManager: true},
		},
		Tranches: []domain.Tranche{
			{InvestorID: 1, TrancheID: "t1", Units: decimal.NewFromInt(1000), EntryNAV: decimal.NewFromInt(10000)},
		},
		Transactions: []domain.Transaction{
			{ID: 1, InvestorID: 1, Type: domain.TxDeposit, Amount: decimal.NewFromInt(10000000)},
		},
		FeeRecords: nil,
	}
}

func TestSnapshotThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	info, err := s.Snapshot("backup-1", KindManual, sampleSnapshot(), now)
	require.NoError(t, err)
	assert.Equal(t, "backup-1", info.ID)
	assert.Equal(t, KindManual, info.Kind)

	archive, err := s.Load("backup-1")
	require.NoError(t, err)
	require.Len(t, archive.Investors, 2)
	require.Len(t, archive.Tranches, 1)
	assert.Equal(t, SchemaVersion, archive.Manifest.SchemaVersion)
	assert.NotEmpty(t, archive.Manifest.Checksum)
}

func TestLoadRejectsTamperedChecksum(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	_, err = s.Snapshot("backup-1", KindManual, sampleSnapshot(), time.Now().UTC())
	require.NoError(t, err)

	a, err := s.readArchive("backup-1")
	require.NoError(t, err)
	a.Manifest.Checksum = "deadbeef"
	data, err := json.MarshalIndent(a, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup-1.json"), data, 0o644))

	_, err = s.Load("backup-1")
	require.Error(t, err)
}

func TestListOrdersByCreatedAt(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.Snapshot("b-new", KindAuto, sampleSnapshot(), newer)
	require.NoError(t, err)
	_, err = s.Snapshot("b-old", KindManual, sampleSnapshot(), older)
	require.NoError(t, err)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b-old", list[0].ID)
	assert.Equal(t, "b-new", list[1].ID)
}

func TestToSnapshotPreservesTables(t *testing.T) {
	snap := sampleSnapshot()
	a := Archive{
		Investors:    snap.Investors,
		Tranches:     snap.Tranches,
		Transactions: snap.Transactions,
		FeeRecords:   snap.FeeRecords,
	}
	got := a.ToSnapshot()
	assert.Equal(t, snap.Investors, got.Investors)
	assert.Equal(t, snap.Tranches, got.Tranches)
}
