package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errors.New("migrations require a Postgres backend")
	}
	return gooseRunFunc(context.Background(), cli.db, args[0], args[1:]...)
}
