package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.usrSvc.SetPassword(context.Background(), uname, pwd)
	if err != nil {
		return err
	}
	cli.logger.Info("password reset", map[string]interface{}{"username": usr.Username})
	return nil
}
