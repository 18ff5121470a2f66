package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundledger/internal/ledgererr"
)

func newMockedStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresStoreFromDB(sqlxDB), mock
}

func TestGetInvestor_ReturnsRow(t *testing.T) {
	s, mock := newMockedStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "name", "phone", "email", "address", "join_date", "is_fund_manager"}).
		AddRow(int64(1), "Investor One", "", "", "", now, false)
	mock.ExpectQuery(`SELECT id, name, phone, email, address, join_date, is_fund_manager FROM fund_investors WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	inv, err := s.GetInvestor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Investor One", inv.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInvestor_NotFound(t *testing.T) {
	s, mock := newMockedStore(t)
	mock.ExpectQuery(`SELECT id, name, phone, email, address, join_date, is_fund_manager FROM fund_investors WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "email", "address", "join_date", "is_fund_manager"}))

	_, err := s.GetInvestor(context.Background(), 99)
	require.Error(t, err)
	var notFound *ledgererr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListInvestors_OrdersByID(t *testing.T) {
	s, mock := newMockedStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "phone", "email", "address", "join_date", "is_fund_manager"}).
		AddRow(int64(0), "Fund Manager", "", "", "", now, true).
		AddRow(int64(1), "Investor One", "", "", "", now, false)
	mock.ExpectQuery(`SELECT id, name, phone, email, address, join_date, is_fund_manager FROM fund_investors ORDER BY id`).
		WillReturnRows(rows)

	investors, err := s.ListInvestors(context.Background())
	require.NoError(t, err)
	require.Len(t, investors, 2)
	assert.True(t, investors[0].IsFundManager)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrap_RunsSchemaDDL(t *testing.T) {
	s, mock := newMockedStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS fund_investors`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Bootstrap(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNextTransactionID_QueriesMax(t *testing.T) {
	s, mock := newMockedStore(t)
	mock.ExpectQuery(`SELECT MAX\(id\) FROM fund_transactions`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(4)))

	id, err := s.NextTransactionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNextTransactionID_EmptyTableStartsAtOne(t *testing.T) {
	s, mock := newMockedStore(t)
	mock.ExpectQuery(`SELECT MAX\(id\) FROM fund_transactions`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	id, err := s.NextTransactionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.NoError(t, mock.ExpectationsWereMet())
}
