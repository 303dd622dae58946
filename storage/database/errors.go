package database

import (
	"context"
	"database/sql/driver"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
)

// Postgres error codes
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// sqlStateErr is implemented by drivers other than lib/pq (e.g. pgconn.PgError).
type sqlStateErr interface {
	SQLState() string
	Error() string
}

func sqlState(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	var stateErr sqlStateErr
	if errors.As(err, &stateErr) {
		return stateErr.SQLState(), true
	}
	return "", false
}

// ClassifyError maps driver errors to core error kinds:
// lock and serialization failures are transient, unique violations are conflicts
// and foreign key violations are invalid states. Other errors are wrapped with msg.
func ClassifyError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if core.KindOf(err) != core.KindInternal {
		return err
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return core.Transient(err, "%s: storage unavailable", msg)
	}

	code, ok := sqlState(err)
	if !ok {
		return errors.Wrap(err, msg)
	}
	switch code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
		return core.Transient(err, "%s: transient storage failure", msg)
	case codeUniqueViolation:
		e := core.Conflict("%s: duplicate record", msg)
		e.Err = err
		return e
	case codeForeignKeyViolation:
		e := core.InvalidState("%s: referenced record missing or still referenced", msg)
		e.Err = err
		return e
	}
	return errors.Wrap(err, msg)
}
