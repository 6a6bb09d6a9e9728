package main

import (
	"context"

	echoapi "github.com/lamngoctuu18/chuyen-doi-so-sub001/apps/devapi/echo"
)

// seed adds the demo data; every new account gets pwd.
func (cli *commandLine) seed(pwd string) error {
	n, err := echoapi.Seed(context.Background(), cli.store, pwd)
	if err != nil {
		return err
	}
	cli.logger.Info("demo data seeded", map[string]interface{}{"accounts": n})
	return nil
}
