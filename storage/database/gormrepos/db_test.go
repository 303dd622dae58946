package gormrepos_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/asm/storage/database/gormrepos"
	"github.com/trezcool/asm/tests"
)

func TestBackend(t *testing.T) {
	db := testutil.PrepareDB(t)
	backend, err := gormrepos.New(db, false)
	require.NoError(t, err)
	testutil.RunBackendTests(t, backend)
}
