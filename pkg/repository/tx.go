package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/tendant/social-idm/pkg/domain"
)

// Tx runs fn inside a transaction. The transaction commits if fn returns nil
// and rolls back otherwise.
func Tx(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return translateError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

// TxManager implements domain.UnitOfWork over a sqlx database. Postgres
// transactions run SERIALIZABLE so concurrent registrations cannot both pass
// their uniqueness reads; the loser fails with domain.ErrAlreadyExists and
// may retry.
type TxManager struct {
	db   *sqlx.DB
	opts *sql.TxOptions
}

// NewTxManager creates a transaction manager for db.
func NewTxManager(db *sqlx.DB) *TxManager {
	m := &TxManager{db: db}
	if db.DriverName() == DriverPostgres {
		m.opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return m
}

// WithinTx runs fn with an account repository bound to one transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, accounts domain.AccountRepository) error) error {
	return Tx(ctx, m.db, m.opts, func(tx *sqlx.Tx) error {
		return fn(ctx, &AccountsRepository{db: tx})
	})
}
