package database

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/asm/core"
)

type pgxLikeError struct{ code string }

func (e pgxLikeError) SQLState() string { return e.code }
func (e pgxLikeError) Error() string    { return "ERROR (SQLSTATE " + e.code + ")" }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.Kind
	}{
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: core.KindConflict},
		{name: "foreign key violation", err: &pq.Error{Code: "23503"}, want: core.KindInvalidState},
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: core.KindTransient},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: core.KindTransient},
		{name: "lock not available", err: &pq.Error{Code: "55P03"}, want: core.KindTransient},
		{name: "wrapped deadlock", err: errors.Wrap(&pq.Error{Code: "40P01"}, "inserting"), want: core.KindTransient},
		{name: "sqlstate error", err: pgxLikeError{code: "23505"}, want: core.KindConflict},
		{name: "bad connection", err: driver.ErrBadConn, want: core.KindTransient},
		{name: "deadline", err: context.DeadlineExceeded, want: core.KindTransient},
		{name: "syntax error", err: &pq.Error{Code: "42601"}, want: core.KindInternal},
		{name: "plain error", err: errors.New("boom"), want: core.KindInternal},
		{name: "domain error passes through", err: core.NotFound("course 5 not found"), want: core.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyError(tt.err, "doing things")
			assert.Error(t, err)
			assert.Equal(t, tt.want, core.KindOf(err))
			assert.True(t, errors.Is(err, tt.err) || core.KindOf(tt.err) != core.KindInternal)
		})
	}
	assert.NoError(t, ClassifyError(nil, "doing things"))
}

func TestURL(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine: "postgres", Host: "db", Port: "5432", Name: "asm",
		User:   "asm", Password: "p@ss", AdminUser: "postgres", AdminPassword: "root", DisableTLS: true,
	}}
	assert.Equal(t, "postgres://asm:p%40ss@db:5432/asm?sslmode=disable&timezone=utc", URL("asm", false, conf))
	assert.Equal(t, "postgres://postgres:root@db:5432/postgres?sslmode=disable&timezone=utc", URL("postgres", true, conf))
}
