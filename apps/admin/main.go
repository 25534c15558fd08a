package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/core/attendance"
	"github.com/trezcool/juku/services/locker"
	"github.com/trezcool/juku/services/logger"
	"github.com/trezcool/juku/storage/database"
)

func main() {
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	if err := conf.Validate(); err != nil {
		stdLogger.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up the document store; schema changes go through `migrate`
	ctx := context.Background()
	backend, err := database.OpenStore(ctx, conf, false /* migrate */)
	if err != nil {
		logger.Fatal("opening document store", err)
	}
	lck, closeLock, err := locksvc.New(ctx, conf.Lock, logger)
	if err != nil {
		_ = backend.Close()
		logger.Fatal("opening document locks", err)
	}

	// start CLI
	cli := commandLine{
		db:  backend.SQL,
		svc: attendance.NewService(backend.Store, lck, logger),
		out: os.Stdout,
	}
	err = cli.run(os.Args)

	closeLock()
	if cErr := backend.Close(); cErr != nil {
		logger.Error("closing document store", cErr)
	}
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
