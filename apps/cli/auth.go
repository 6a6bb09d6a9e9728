package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login", cli.out)
	uname := fs.String("username", "", "The username or email.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uname == "" {
		fs.Usage()
		return errHelp
	}
	pwd, err := cli.promptPassword()
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}

	prof, err := cli.client.Login(ctx, *uname, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Signed in as %s (%s).\n", prof.Name, prof.Role)
	return nil
}

func (cli *commandLine) logout(context.Context, []string) error {
	if cli.sessions.Current().IsZero() {
		fmt.Fprintln(cli.out, "Not signed in.")
		return nil
	}
	if err := cli.sessions.SignOut(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Signed out.")
	return nil
}

// whoami asks the backend who the token belongs to, and how many notifications are unread.
func (cli *commandLine) whoami(ctx context.Context, _ []string) error {
	if cli.sessions.Current().IsZero() {
		return session.ErrNoSession
	}

	var (
		prof  user.Profile
		items []notification.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		prof, err = cli.client.Me(gctx)
		return err
	})
	g.Go(func() (err error) {
		items, err = restapi.NewNotifications(cli.client).List(gctx)
		return errors.Wrap(err, "listing notifications")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s <%s>\nrole: %s\nid: %s\nunread notifications: %d\n",
		prof.Name, prof.Email, prof.Role, prof.ID, notification.CountUnread(items))
	return nil
}
