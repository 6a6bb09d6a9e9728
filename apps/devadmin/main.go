// Command devadmin runs maintenance tasks against the development backend's SQL database.
package main

import (
	"fmt"
	"os"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	emailsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/email"
	logsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/logger"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
	sqlxrepos "github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewConsole(os.Stdout, conf.Debug).With("app", "devadmin"), conf)
	defer logger.Close()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	store := sqlxrepos.New(db)
	validator := core.NewValidator()
	tokens := user.NewTokenGenerator(conf.DevAPI.SecretKey, conf.DevAPI.PasswordResetTimeoutDelta)
	usrSvc, err := user.NewService(store, validator, tokens, emailsvc.NewConsoleService(os.Stdout, conf, logger))
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up user service: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:        db.DB,
		store:     store,
		usrSvc:    usrSvc,
		validator: validator,
		logger:    logger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
