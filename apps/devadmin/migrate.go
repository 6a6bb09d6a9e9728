package main

import (
	"database/sql"
	"errors"

	"github.com/trezcool/goose"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

// mockable
var gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
	return goose.RunFS(command, db, database.MigrationsFS, dir, args...)
}

var errNoSQL = errors.New("migrations need a SQL database")

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQL
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, database.MigrationsDir, arguments...)
}
