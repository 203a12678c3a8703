// Package storage persists the client's durable local state. It plays the
// role browser localStorage plays for a web client: a single credential
// string under a fixed key, surviving process restarts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"spendtrack/internal/core"
	"spendtrack/internal/log"

	_ "modernc.org/sqlite"
)

// credentialKey is the fixed storage key the credential lives under.
const credentialKey = "token"

type StateDB struct {
	db     *sql.DB
	logger *log.Logger
}

func NewStateDB(dbPath string, logger *log.Logger) (*StateDB, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &StateDB{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (s *StateDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveCredential persists the credential, replacing any previous one.
func (s *StateDB) SaveCredential(ctx context.Context, cred core.Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		credentialKey, string(cred))
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	s.logger.DebugContext(ctx, "Credential persisted")
	return nil
}

// LoadCredential returns the persisted credential, or an empty credential
// and no error when none is stored.
func (s *StateDB) LoadCredential(ctx context.Context) (core.Credential, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session WHERE key = ?`, credentialKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return core.Credential(value), nil
}

// DeleteCredential removes the persisted credential. Deleting an absent
// credential is not an error.
func (s *StateDB) DeleteCredential(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session WHERE key = ?`, credentialKey)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	s.logger.DebugContext(ctx, "Credential cleared from storage")
	return nil
}
