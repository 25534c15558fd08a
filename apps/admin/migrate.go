package main

import (
	"errors"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/juku/storage/database"
)

var (
	gooseRunFunc = goose.Run // mockable

	errNoSQL = errors.New("migrate requires the postgres store (set store.driver=postgres)")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQL
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, database.MigrationsDir, arguments...)
}
