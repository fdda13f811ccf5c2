package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/spec-kit/storefront-service/internal/domain"
)

const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyAccount      = "account"
)

// SQLiteStore keeps the session in a local key-value table, surviving
// process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps the given database handle and ensures the schema
// exists.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS session_state (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns the persisted session, or nil when no session is stored.
func (s *SQLiteStore) Load(ctx context.Context) (*PersistedSession, error) {
	accessToken, err := s.get(ctx, keyAccessToken)
	if err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, nil
	}

	refreshToken, err := s.get(ctx, keyRefreshToken)
	if err != nil {
		return nil, err
	}

	accountJSON, err := s.get(ctx, keyAccount)
	if err != nil {
		return nil, err
	}

	session := &PersistedSession{AccessToken: accessToken, RefreshToken: refreshToken}
	if accountJSON != "" {
		var account domain.PublicAccount
		if err := json.Unmarshal([]byte(accountJSON), &account); err != nil {
			return nil, err
		}
		session.Account = account
	}
	return session, nil
}

// Save writes the whole session in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, session *PersistedSession) error {
	accountJSON, err := json.Marshal(session.Account)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	pairs := [][2]string{
		{keyAccessToken, session.AccessToken},
		{keyRefreshToken, session.RefreshToken},
		{keyAccount, string(accountJSON)},
	}
	for _, pair := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_state(key, value) VALUES(?, ?)
			 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
			pair[0], pair[1]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Clear drops all persisted session rows.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_state`)
	return err
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_state WHERE key=?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
