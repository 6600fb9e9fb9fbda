// Package sqlstore persists sessions in a SQLite database.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	apperrors "github.com/jrsteele09/github-authentication/internal/errors"
	"github.com/jrsteele09/github-authentication/scopes"
	"github.com/jrsteele09/github-authentication/sessions"
)

const (
	FileName   = "sessions.db"
	tableName  = "sessions"
	driverName = "sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	account_label TEXT NOT NULL,
	account_id    TEXT NOT NULL,
	scopes        TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	position      INTEGER NOT NULL
)`

// qsq is the SQLite statement builder with question mark placeholders.
var qsq = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// sessionColumns lists columns returned by session SELECT queries, in scan order.
var sessionColumns = []string{
	"id", "account_label", "account_id", "scopes", "access_token", "created_at",
}

var insertColumns = []string{
	"id", "account_label", "account_id", "scopes", "access_token", "created_at", "position",
}

// Store is a sessions.Repo backed by one SQLite table. Save replaces the
// table contents in a single transaction.
type Store struct {
	db *sql.DB
}

var _ sessions.Repo = (*Store)(nil)

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the database in dir and applies the schema.
func Open(ctx context.Context, dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session storage directory: %w", err)
	}
	path := filepath.Join(filepath.Clean(dir), FileName)
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("Opened session database")
	return s, nil
}

// Migrate creates the sessions table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the persisted sessions in the order they were saved.
func (s *Store) Load(ctx context.Context) ([]sessions.Session, error) {
	query, args, err := qsq.Select(sessionColumns...).
		From(tableName).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []sessions.Session
	for rows.Next() {
		var (
			session   sessions.Session
			scopeKey  string
			createdAt int64
		)
		if err := rows.Scan(&session.ID, &session.AccountLabel, &session.AccountID, &scopeKey, &session.AccessToken, &createdAt); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrCorruptData, "scanning session row: %v", err)
		}
		session.Scopes = scopes.Split(scopeKey)
		session.CreatedAt = time.UnixMilli(createdAt).UTC()
		list = append(list, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return list, nil
}

// Save replaces every stored session with list.
func (s *Store) Save(ctx context.Context, list []sessions.Session) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := qsq.Delete(tableName).ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clearing sessions: %w", err)
	}

	for i, session := range list {
		query, args, err = qsq.Insert(tableName).
			Columns(insertColumns...).
			Values(
				session.ID,
				session.AccountLabel,
				session.AccountID,
				session.ScopeKey(),
				session.AccessToken,
				session.CreatedAt.UTC().UnixMilli(),
				i,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting session %s: %w", session.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing sessions: %w", err)
	}
	return nil
}
