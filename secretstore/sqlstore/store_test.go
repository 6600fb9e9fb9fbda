package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/github-authentication/internal/errors"
	"github.com/jrsteele09/github-authentication/sessions"
)

var testCreatedAt = time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestSession(id, token string, scopeList ...string) sessions.Session {
	return sessions.Session{
		ID:           id,
		AccountLabel: "octocat",
		AccountID:    "583231",
		Scopes:       scopeList,
		AccessToken:  token,
		CreatedAt:    testCreatedAt,
	}
}

func TestLoad_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows(sessionColumns).
		AddRow("a", "octocat", "583231", "repo user:email", "gho_a", testCreatedAt.UnixMilli()).
		AddRow("b", "octocat", "583231", "gist", "gho_b", testCreatedAt.UnixMilli())
	mock.ExpectQuery("SELECT (.+) FROM sessions ORDER BY position ASC").WillReturnRows(rows)

	list, err := New(db).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []sessions.Session{
		newTestSession("a", "gho_a", "repo", "user:email"),
		newTestSession("b", "gho_b", "gist"),
	}, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnError(errors.New("no such table"))

	_, err = New(db).Load(context.Background())
	assert.ErrorContains(t, err, "no such table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows(sessionColumns).
		AddRow("a", "octocat", "583231", "repo", "gho_a", "not-a-number")
	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnRows(rows)

	_, err = New(db).Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCorruptData)
}

func TestSave_ReplacesContentsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("a", "octocat", "583231", "repo user:email", "gho_a", testCreatedAt.UnixMilli(), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("b", "octocat", "583231", "gist", "gho_b", testCreatedAt.UnixMilli(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = New(db).Save(context.Background(), []sessions.Session{
		newTestSession("a", "gho_a", "user:email", "repo"),
		newTestSession("b", "gho_b", "gist"),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_EmptyListClearsTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, New(db).Save(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_RollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = New(db).Save(context.Background(), []sessions.Session{newTestSession("a", "gho_a", "repo")})
	assert.ErrorContains(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	err = New(db).Save(context.Background(), nil)
	assert.ErrorContains(t, err, "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, New(db).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(ctx, dir)
	require.NoError(t, err)

	list := []sessions.Session{
		newTestSession("a", "gho_a", "repo", "user:email"),
		newTestSession("b", "gho_b", "gist"),
	}
	require.NoError(t, store.Save(ctx, list))
	require.NoError(t, store.Save(ctx, list[1:]))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, dir)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, list[1:], loaded)
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := Open(context.Background(), " ")
	require.Error(t, err)
}
