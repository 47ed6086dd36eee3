package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort/internal/db"
	"ecosort/internal/domain"
	"ecosort/internal/migrate"
)

func newMockRepo(t *testing.T) (Repo, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return Repo{DB: conn}, mock
}

func TestRunInTxCommitFailureAborts(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET points").WithArgs(int64(40), "A", int64(120)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err := r.RunInTx(context.Background(), func(tx *sql.Tx) error {
		ok, err := r.CompareAndSetPointsTx(context.Background(), tx, "A", 120, 40)
		require.True(t, ok)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrTransactionAborted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxBeginFailureAborts(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	called := false
	err := r.RunInTx(context.Background(), func(tx *sql.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrTransactionAborted)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxDomainErrorRollsBack(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := r.RunInTx(context.Background(), func(tx *sql.Tx) error {
		return domain.ErrInsufficientBalance
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.NotErrorIs(t, err, domain.ErrTransactionAborted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newSQLiteRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	return Repo{DB: conn}
}

func TestConditionalWrites(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	require.NoError(t, r.InsertAccount(ctx, domain.Account{ID: "A", Username: "a", RoleID: "student", Points: 10, CreatedAt: "2024-01-01T00:00:00.000000Z"}))
	require.NoError(t, r.InsertWasteItem(ctx, domain.WasteItem{ID: "w1", Points: 5, CreatedAt: "2024-01-01 10:00:00"}))

	err := r.RunInTx(ctx, func(tx *sql.Tx) error {
		ok, err := r.MarkCollectedTx(ctx, tx, "w1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = r.MarkCollectedTx(ctx, tx, "w1")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = r.CompareAndSetPointsTx(ctx, tx, "A", 99, 1)
		require.NoError(t, err)
		assert.False(t, ok, "stale balance must not be written")
		ok, err = r.CompareAndSetPointsTx(ctx, tx, "A", 10, 15)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	a, err := r.GetAccount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(15), a.Points)

	_, err = r.GetAccount(ctx, "nobody")
	var nf domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "account", nf.Kind)
}

func TestNegativeBalanceRejectedByStore(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	require.NoError(t, r.InsertAccount(ctx, domain.Account{ID: "A", Username: "a", RoleID: "student", Points: 3, CreatedAt: "2024-01-01T00:00:00.000000Z"}))

	err := r.RunInTx(ctx, func(tx *sql.Tx) error {
		_, err := r.CompareAndSetPointsTx(ctx, tx, "A", 3, -1)
		return err
	})
	require.Error(t, err)
	a, err := r.GetAccount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.Points)
}

func TestBatchDeleteSkipsDeleted(t *testing.T) {
	r := newSQLiteRepo(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.InsertWasteItem(ctx, domain.WasteItem{ID: id, CreatedAt: "2024-05-01 10:00:00"}))
	}
	err := r.RunInTx(ctx, func(tx *sql.Tx) error {
		ok, err := r.MarkDeletedTx(ctx, tx, "b", "2024-05-02T00:00:00.000000Z", "first")
		require.NoError(t, err)
		require.True(t, ok)
		n, err := r.MarkWasteDeletedTx(ctx, tx, []string{"a", "b", "c"}, "2024-05-03T00:00:00.000000Z", "second")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		return nil
	})
	require.NoError(t, err)

	b, err := r.GetWasteItem(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "first", *b.DeletedBy)

	deleted, err := r.ListDeletedWaste(ctx, DeletedFilters{DeletedBy: "second"})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
}
