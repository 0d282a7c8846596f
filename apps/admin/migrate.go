package main

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/trezcool/matokeo/storage/database"
)

var errNoDatabase = errors.New("migrations need the postgres database engine")

var migrateFunc = func(ctx context.Context, db *sql.DB, command string, args ...string) error { // mockable
	if db == nil {
		return errNoDatabase
	}
	return database.Migrate(ctx, db, command, args...)
}

func (cl *commandLine) migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)",
		UsageText: "admin migrate COMMAND [ARGS...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return usage(c)
			}
			return migrateFunc(c.Context, cl.db, c.Args().First(), c.Args().Tail()...)
		},
	}
}
