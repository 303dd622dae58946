package sqlxrepos_test

import (
	"testing"

	"github.com/trezcool/asm/storage/database/sqlxrepos"
	"github.com/trezcool/asm/tests"
)

func TestBackend(t *testing.T) {
	db := testutil.PrepareDB(t)
	testutil.RunBackendTests(t, sqlxrepos.New(db))
}
