// Command devapi serves the internship backend contract for local development and end-to-end
// tests of the client.
package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/lamngoctuu18/chuyen-doi-so-sub001/apps/devapi/echo"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	emailsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/email"
	logsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/logger"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
	inmemdb "github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database/inmem"
	sqlxrepos "github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database/sqlx"
)

// demoPassword is the password of the accounts seeded into a memory store.
const demoPassword = "Thuctap@2024"

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewConsole(os.Stdout, conf.Debug).With("app", "devapi"), conf)
	defer logger.Close()

	store, err := openStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	if conf.Database.Driver == database.DriverMemory {
		n, err := echoapi.Seed(context.Background(), store, demoPassword)
		if err != nil {
			logger.Fatal(fmt.Sprintf("seeding memory store: %v", err), err)
		}
		logger.Info("memory store seeded", map[string]interface{}{"accounts": n, "password": demoPassword})
	}

	validator := core.NewValidator()
	mailSvc := emailsvc.NewService(conf, logger, emailsvc.NewConsoleService(os.Stdout, conf, logger))
	tokens := user.NewTokenGenerator(conf.DevAPI.SecretKey, conf.DevAPI.PasswordResetTimeoutDelta)
	usrSvc, err := user.NewService(store, validator, tokens, mailSvc)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up user service: %v", err), err)
	}
	if w, ok := mailSvc.(interface{ Wait() }); ok {
		defer w.Wait() // flush mails queued by the last requests
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.DevAPI.DebugAddress != "" {
		go func() {
			if err := http.ListenAndServe(conf.DevAPI.DebugAddress, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	server, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:      conf,
		Logger:    logger,
		Store:     store,
		UserSvc:   usrSvc,
		Validator: validator,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.DevAPI.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// openStore returns the store named by the configured driver; SQL databases are migrated first.
func openStore(conf *core.Config) (database.Store, error) {
	if conf.Database.Driver == database.DriverMemory {
		return inmemdb.Open(), nil
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlxrepos.New(db), nil
}
