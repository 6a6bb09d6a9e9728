package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

// addUser updates or creates the account of nu.Username. The password policy applies either way.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	nu.Clean()

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, nu.Username)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, nu)
		if err != nil {
			return err
		}
		cli.logger.Info("user created", map[string]interface{}{"id": usr.ID, "username": usr.Username, "role": usr.Role})
		return nil
	}

	if err := cli.validator.Struct(nu); err != nil {
		return err
	}
	usr.Name = nu.Name
	usr.Role = nu.Role
	usr.IsActive = true
	if nu.Email != "" {
		usr.Email = nu.Email
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = nowFunc().UTC()
	if _, err := cli.store.UpdateUser(ctx, usr); err != nil {
		return err
	}
	cli.logger.Info("user updated", map[string]interface{}{"id": usr.ID, "username": usr.Username, "role": usr.Role})
	return nil
}
