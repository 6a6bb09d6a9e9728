package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

func (cli *commandLine) newNotificationStore() (*notification.Store, error) {
	return notification.NewStore(restapi.NewNotifications(cli.client), cli.sessions, cli.logger, notification.Options{
		PollInterval: cli.conf.Notifications.PollInterval,
	})
}

func (cli *commandLine) notifications(ctx context.Context, args []string) error {
	sub, args, err := subcommand(args, "list", "list", "read", "read-all", "delete", "watch", "remind", "assign")
	if err != nil {
		return err
	}
	if cli.sessions.Current().IsZero() {
		return session.ErrNoSession
	}

	store, err := cli.newNotificationStore()
	if err != nil {
		return err
	}
	if sub == "watch" {
		return cli.watchNotifications(ctx, store)
	}

	defer store.Dispose()
	if err := store.Fetch(ctx); err != nil {
		return err
	}

	switch sub {
	case "read", "delete":
		if len(args) != 1 {
			return fmt.Errorf("usage: notifications %s ID", sub)
		}
		if !hasNotification(store.List(), args[0]) {
			return fmt.Errorf("no notification with id %q", args[0])
		}
		if sub == "read" {
			store.MarkRead(args[0])
		} else {
			store.Delete(args[0])
		}
	case "read-all":
		n := store.UnreadCount()
		store.MarkAllRead()
		fmt.Fprintf(cli.out, "Marked %d notification(s) as read.\n", n)
		return nil
	case "remind":
		return cli.remind(store, args)
	case "assign":
		return cli.assign(store, args)
	}
	return cli.printNotifications(store.List())
}

func hasNotification(items []notification.Notification, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (cli *commandLine) printNotifications(items []notification.Notification) error {
	if len(items) == 0 {
		fmt.Fprintln(cli.out, "No notifications.")
		return nil
	}
	t := newTable(cli.out, "ID", "", "TYPE", "TITLE", "MESSAGE", "CREATED")
	for _, it := range items {
		mark := "*"
		if it.Read {
			mark = ""
		}
		t.row(it.ID, mark, string(it.Severity), it.Title, it.Message, formatTime(it.CreatedAt))
	}
	if err := t.flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d unread\n", notification.CountUnread(items))
	return nil
}

// remind warns a student of an upcoming report deadline.
func (cli *commandLine) remind(store *notification.Store, args []string) error {
	fs := newFlagSet("notifications remind", cli.out)
	student := fs.String("student", "", "The student's id.")
	week := fs.Int("week", 0, "The week of the report.")
	deadline := fs.String("deadline", "", "The deadline, "+timeLayout+".")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *student == "" || *week <= 0 || *deadline == "" {
		fs.Usage()
		return errHelp
	}
	due, err := parseTime(*deadline)
	if err != nil {
		return err
	}
	n, err := notification.NotifyReportDeadline(store, *student, *week, due)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Sent %q to %s.\n", n.Title, *student)
	return nil
}

// assign tells a student who advises and hosts them.
func (cli *commandLine) assign(store *notification.Store, args []string) error {
	fs := newFlagSet("notifications assign", cli.out)
	student := fs.String("student", "", "The student's id.")
	teacher := fs.String("teacher", "", "The advising teacher's name.")
	company := fs.String("company", "", "The host company's name.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *student == "" || (*teacher == "" && *company == "") {
		fs.Usage()
		return errHelp
	}
	n, err := notification.NotifyAssignment(store, *student, *teacher, *company)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Sent %q to %s.\n", n.Title, *student)
	return nil
}

// watchNotifications prints every new unread notification until ctx is done or the session
// ends. When a digest address is configured, each batch of new notifications is mailed too.
func (cli *commandLine) watchNotifications(ctx context.Context, store *notification.Store) error {
	prof, err := cli.sessions.Profile()
	if err != nil {
		return err
	}
	tracker := notification.NewTracker()

	var mu sync.Mutex
	unsubscribe := store.Subscribe(func(snap notification.Snapshot) {
		fresh := tracker.Fresh(snap)
		if len(fresh) == 0 {
			return
		}
		mu.Lock()
		for _, it := range fresh {
			fmt.Fprintf(cli.out, "[%s] %s %s: %s\n", formatTime(it.CreatedAt), it.Severity, it.Title, it.Message)
		}
		mu.Unlock()
		if to := cli.conf.Notifications.DigestTo; to != "" {
			if msg := notification.Digest(to, prof, fresh); msg != nil {
				cli.mailSvc.SendMessages(msg)
			}
		}
	})
	defer unsubscribe()

	ended := make(chan session.Event, 1)
	unsubLogout := cli.sessions.OnLogout(func(e session.Event) {
		select {
		case ended <- e:
		default:
		}
	})
	defer unsubLogout()

	err = store.Init(ctx)
	defer store.Dispose()
	if err != nil {
		if core.IsUnauthorized(err) {
			return err
		}
		// polling goes on; the next tick retries
		cli.logger.Warn("first notification fetch failed", err)
		fmt.Fprintf(cli.out, "Could not load notifications (%s), retrying every %s.\n", restapi.Message(err, "server unavailable"), cli.conf.Notifications.PollInterval)
	}
	fmt.Fprintf(cli.out, "Watching notifications of %s, %d unread. Press Ctrl+C to stop.\n", prof.Name, store.UnreadCount())

	select {
	case <-ctx.Done():
		return nil
	case e := <-ended:
		return errors.Errorf("session ended (%s)", e.Reason)
	}
}
