// Package inmemdb is an in-memory storage backend with real transaction semantics:
// each transaction works on a snapshot that replaces the committed state only on success.
// It emulates the unique and foreign key constraints of the Postgres schema.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/attendance"
	"github.com/trezcool/asm/core/course"
	"github.com/trezcool/asm/core/enrollment"
	"github.com/trezcool/asm/core/user"
	"github.com/trezcool/asm/storage/database"
)

type state struct {
	users       map[int]user.User
	courses     map[int]course.Course
	enrollments map[int]enrollment.Enrollment
	attendances map[int]attendance.Attendance
	seqs        map[string]int
}

func newState() *state {
	return &state{
		users:       make(map[int]user.User),
		courses:     make(map[int]course.Course),
		enrollments: make(map[int]enrollment.Enrollment),
		attendances: make(map[int]attendance.Attendance),
		seqs:        make(map[string]int),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range s.attendances {
		c.attendances[k] = v
	}
	for k, v := range s.seqs {
		c.seqs[k] = v
	}
	return c
}

func (s *state) nextID(table string) int {
	s.seqs[table]++
	return s.seqs[table]
}

// DB serializes transactions: one runs at a time.
type DB struct {
	mu             sync.Mutex
	state          *state
	commitFailures []error
	txCount        int
}

var _ database.Backend = (*DB)(nil)

func New() *DB {
	return &DB{state: newState()}
}

// FailCommits makes the next len(errs) commits fail with errs, in order, discarding their writes.
func (db *DB) FailCommits(errs ...error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.commitFailures = append(db.commitFailures, errs...)
}

// TxCount is the number of transactions started so far.
func (db *DB) TxCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.txCount
}

func (db *DB) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.txCount++

	t := &tx{state: db.state.clone()}
	if err := fn(t); err != nil {
		return err // rollback
	}

	if len(db.commitFailures) > 0 {
		err := db.commitFailures[0]
		db.commitFailures = db.commitFailures[1:]
		return database.ClassifyError(err, "committing transaction")
	}
	db.state = t.state
	return nil
}

func (db *DB) Close() error { return nil }

// tx implements database.Tx on a snapshot.
type tx struct {
	state *state
}

var _ database.Tx = (*tx)(nil)

func conflict(format string, args ...interface{}) error {
	return core.Conflict(format, args...)
}

func fkViolation(format string, args ...interface{}) error {
	return core.InvalidState(format, args...)
}
