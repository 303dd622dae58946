// Package sqlxrepos is the Postgres storage backend built on sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/storage/database"
)

type DB struct {
	db *sqlx.DB
}

var _ database.Backend = (*DB)(nil)

// New wraps a lib/pq connection pool.
func New(db *sql.DB) *DB {
	return &DB{db: sqlx.NewDb(db, "postgres")}
}

func (db *DB) WithinTx(ctx context.Context, fn func(tx database.Tx) error) (err error) {
	sqlTx, err := db.db.BeginTxx(ctx, nil)
	if err != nil {
		return database.ClassifyError(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	return database.ClassifyError(sqlTx.Commit(), "committing transaction")
}

func (db *DB) Close() error {
	return errors.Wrap(db.db.Close(), "closing database")
}

// tx implements database.Tx on one sql transaction.
type tx struct {
	tx *sqlx.Tx
}

var _ database.Tx = (*tx)(nil)

func (t *tx) get(ctx context.Context, dest interface{}, msg, query string, args ...interface{}) error {
	if err := t.tx.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.WithStack(core.ErrNoRecord)
		}
		return database.ClassifyError(err, msg)
	}
	return nil
}

func (t *tx) sel(ctx context.Context, dest interface{}, msg, query string, args ...interface{}) error {
	return database.ClassifyError(t.tx.SelectContext(ctx, dest, query, args...), msg)
}

func (t *tx) count(ctx context.Context, msg, query string, args ...interface{}) (int, error) {
	var n int
	if err := t.tx.GetContext(ctx, &n, query, args...); err != nil {
		return 0, database.ClassifyError(err, msg)
	}
	return n, nil
}

func (t *tx) exec(ctx context.Context, msg, query string, args ...interface{}) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, database.ClassifyError(err, msg)
	}
	return res, nil
}

// execOne fails with core.ErrNoRecord when no row was affected.
func (t *tx) execOne(ctx context.Context, msg, query string, args ...interface{}) error {
	res, err := t.exec(ctx, msg, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.WithStack(core.ErrNoRecord)
	}
	return nil
}

func classify(err error, msg string) error {
	return database.ClassifyError(err, msg)
}
