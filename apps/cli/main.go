// Command internctl is the terminal front end of the internship platform.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
	emailsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/email"
	logsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/logger"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/credentials"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewConsole(os.Stderr, conf.Debug).With("app", "internctl"), conf)
	defer logger.Close()

	sessions := session.NewManager(credentials.NewFileStore(conf.Session.File))
	client, err := restapi.NewClient(restapi.Options{BaseURL: conf.API.BaseURL, Timeout: conf.API.Timeout}, sessions, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up client: %v", err), err)
		return 1
	}
	mailSvc := emailsvc.NewService(conf, logger, emailsvc.NewConsoleService(os.Stderr, conf, logger))
	if w, ok := mailSvc.(interface{ Wait() }); ok {
		defer w.Wait()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := commandLine{
		conf:     conf,
		logger:   logger,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		sessions: sessions,
		client:   client,
		mailSvc:  mailSvc,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			cli.printError(os.Stderr, err)
		}
		return 1
	}
	return 0
}
