// Package sqlite provides a SQLite-backed implementation of the account
// Backend port for installs that prefer a database file over the JSON
// resource.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keyfob/keyfob/internal/domain"
	"github.com/keyfob/keyfob/internal/store"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var _ store.Backend = (*Backend)(nil)

// Backend implements store.Backend using SQLite (via database/sql). It is
// safe for concurrent use; database/sql manages connection pooling.
type Backend struct{ db *sql.DB }

// New constructs a Backend, initializing the required schema if absent.
func New(db *sql.DB) (*Backend, error) {
	b := &Backend{db: db}
	if err := b.init(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) init() error {
	schema := `CREATE TABLE IF NOT EXISTS accounts (
position INTEGER PRIMARY KEY AUTOINCREMENT,
name TEXT NOT NULL UNIQUE,
secret TEXT NOT NULL,
digits INTEGER NOT NULL DEFAULT 6,
algorithm TEXT NOT NULL DEFAULT 'SHA1'
);`
	_, err := b.db.Exec(schema)
	return err
}

// Load returns all accounts in insertion (display) order.
func (b *Backend) Load(ctx context.Context) ([]domain.Account, error) {
	const q = `SELECT name, secret, digits, algorithm FROM accounts ORDER BY position`
	rows, err := b.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var algo string
		if err := rows.Scan(&a.Name, &a.Secret, &a.Digits, &algo); err != nil {
			return nil, err
		}
		a.Algorithm = domain.Algorithm(algo)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Save replaces the stored collection inside a single transaction so a
// failed save leaves the previous state intact.
func (b *Backend) Save(ctx context.Context, accounts []domain.Account) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	const ins = `INSERT INTO accounts (name, secret, digits, algorithm) VALUES (?,?,?,?)`
	for _, a := range accounts {
		if _, err = tx.ExecContext(ctx, ins, a.Name, a.Secret, a.Digits, string(a.Algorithm)); err != nil {
			return fmt.Errorf("insert account %q: %w", a.Name, err)
		}
	}
	return tx.Commit()
}
