package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/report"
	"github.com/trezcool/asm/core/user"
)

// Tx is one storage transaction. Every backend's transaction serves all stores.
type Tx interface {
	user.Store
	course.Store
	enrollment.Store
	attendance.Store
	report.Store
}

// Backend is a storage backend (Postgres via sqlx or gorm, or in-memory).
type Backend interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type binding[S any] struct {
	backend Backend
}

// Bind narrows a backend to the store S expected by a service or manager.
func Bind[S any](b Backend) core.Transactor[S] {
	return binding[S]{backend: b}
}

func (bd binding[S]) WithinTx(ctx context.Context, fn func(store S) error) error {
	return bd.backend.WithinTx(ctx, func(tx Tx) error {
		store, ok := any(tx).(S)
		if !ok {
			return errors.Errorf("storage transaction %T does not implement the requested store", tx)
		}
		return fn(store)
	})
}

// Stores bundles the store-narrowed views of a backend.
type Stores struct {
	Users       core.Transactor[user.Store]
	Courses     core.Transactor[course.Store]
	Enrollments core.Transactor[enrollment.Store]
	Attendances core.Transactor[attendance.Store]
	Reports     core.Transactor[report.Store]
}

func NewStores(b Backend) Stores {
	return Stores{
		Users:       Bind[user.Store](b),
		Courses:     Bind[course.Store](b),
		Enrollments: Bind[enrollment.Store](b),
		Attendances: Bind[attendance.Store](b),
		Reports:     Bind[report.Store](b),
	}
}
