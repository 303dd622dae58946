package inmemdb_test

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/core/user"
	"github.com/trezcool/asm/storage/database"
	inmemdb "github.com/trezcool/asm/storage/database/inmem"
	"github.com/trezcool/asm/tests"
)

func TestBackend(t *testing.T) {
	testutil.RunBackendTests(t, inmemdb.New())
}

func TestDB_FailCommits(t *testing.T) {
	db := inmemdb.New()
	ctx := context.Background()
	db.FailCommits(&pq.Error{Code: "40001"}, &pq.Error{Code: "23505"})

	create := func(email string) error {
		return db.WithinTx(ctx, func(tx database.Tx) error {
			_, err := tx.CreateUser(ctx, user.User{Name: "Dan", Email: email, Role: user.RoleStudent})
			return err
		})
	}

	err := create("dan@test.cd")
	assert.True(t, core.IsKind(err, core.KindTransient), "got %v", err)
	err = create("dan@test.cd")
	assert.True(t, core.IsKind(err, core.KindConflict), "got %v", err)
	require.NoError(t, create("dan@test.cd"))
	assert.Equal(t, 3, db.TxCount())

	// failed commits left nothing behind
	require.NoError(t, db.WithinTx(ctx, func(tx database.Tx) error {
		users, err := tx.QueryUsers(ctx, user.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, 1, users[0].ID)
		return nil
	}))
}

func TestDB_canceledContext(t *testing.T) {
	db := inmemdb.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := db.WithinTx(ctx, func(database.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Zero(t, db.TxCount())
}
