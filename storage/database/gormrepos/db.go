// Package gormrepos is the Postgres storage backend built on gorm.
package gormrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/storage/database"
)

type DB struct {
	db *gorm.DB
}

var _ database.Backend = (*DB)(nil)

// New opens gorm on an existing connection pool, so both Postgres backends share database.Open.
func New(sqlDB *sql.DB, debug bool) (*DB, error) {
	conf := &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                core.NowFunc,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
	if debug {
		conf.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening gorm")
	}
	return &DB{db: db}, nil
}

func (db *DB) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	var fnErr error
	err := db.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		fnErr = fn(&tx{db: gtx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed
		return database.ClassifyError(err, "committing transaction")
	}
	return err
}

func (db *DB) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return errors.Wrap(err, "closing database")
	}
	return errors.Wrap(sqlDB.Close(), "closing database")
}

// tx implements database.Tx on one gorm transaction.
type tx struct {
	db *gorm.DB
}

var _ database.Tx = (*tx)(nil)

func (t *tx) q(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

// first maps gorm.ErrRecordNotFound to core.ErrNoRecord.
func first(res *gorm.DB, msg string) error {
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return errors.WithStack(core.ErrNoRecord)
		}
		return database.ClassifyError(res.Error, msg)
	}
	return nil
}

// affectedOne fails with core.ErrNoRecord when no row was affected.
func affectedOne(res *gorm.DB, msg string) error {
	if res.Error != nil {
		return database.ClassifyError(res.Error, msg)
	}
	if res.RowsAffected == 0 {
		return errors.WithStack(core.ErrNoRecord)
	}
	return nil
}
