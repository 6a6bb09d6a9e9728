package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/term"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	nowFunc          = time.Now          // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	logger   core.Logger
	in       *bufio.Reader
	out      io.Writer
	sessions *session.Manager
	client   *restapi.Client
	mailSvc  core.EmailService
}

type command struct {
	usage string
	run   func(cli *commandLine, ctx context.Context, args []string) error
}

// commands is a func so the command table can be reached from the commands themselves.
func commands() map[string]command {
	return map[string]command{
		"login":         {"login -username USERNAME - sign in; the password is prompted next", (*commandLine).login},
		"logout":        {"logout - sign out and forget the token", (*commandLine).logout},
		"whoami":        {"whoami - show the signed-in user and the unread notifications", (*commandLine).whoami},
		"notifications": {"notifications [list|read ID|read-all|delete ID|watch|remind|assign] - manage notifications", (*commandLine).notifications},
		"slots":         {"slots [list|create|times|statuses|comment] - teacher submission slots", (*commandLine).slots},
		"student":       {"student [slots|upload|submissions] - student report submissions", (*commandLine).student},
		"company":       {"company [sheet|score|remark|submit] - company evaluation sheet", (*commandLine).company},
		"grade":         {"grade -student ID -score SCORE [-remark TEXT|-canned N] - grade a student", (*commandLine).grade},
		"register":      {"register -batch ID -preference nha_truong|tu_lien_he [...] - register for an internship", (*commandLine).register},
		"list":          {"list students|teachers|companies|batches|reports [-page N] [-limit N] [-search S] [-status S] [-ordering F] [-all] [-active]", (*commandLine).list},
	}
}

func commandNames() []string {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	cmds := commands()
	for _, name := range commandNames() {
		fmt.Fprintln(cli.out, "  "+cmds[name].usage)
	}
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	cmd, ok := commands()[args[1]]
	if !ok {
		if matches := suggest(args[1], commandNames()); len(matches) > 0 {
			return fmt.Errorf("unknown command %q, did you mean %s?", args[1], strings.Join(matches, " or "))
		}
		cli.printUsage()
		return errHelp
	}
	return cmd.run(cli, ctx, args[2:])
}

// subcommand returns the first arg when it names one of subs, else def.
func subcommand(args []string, def string, subs ...string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args, nil
	}
	for _, s := range subs {
		if args[0] == s {
			return s, args[1:], nil
		}
	}
	if matches := suggest(args[0], subs); len(matches) > 0 {
		return "", nil, fmt.Errorf("unknown subcommand %q, did you mean %s?", args[0], strings.Join(matches, " or "))
	}
	return "", nil, fmt.Errorf("unknown subcommand %q, expected one of: %s", args[0], strings.Join(subs, ", "))
}

// suggest returns the candidates close enough to word to be a typo of it.
func suggest(word string, candidates []string) []string {
	var matches []string
	for _, c := range candidates {
		m := difflib.NewMatcher(strings.Split(word, ""), strings.Split(c, ""))
		if m.Ratio() >= 0.6 {
			matches = append(matches, c)
		}
	}
	return matches
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (cli *commandLine) confirm(question string) bool {
	fmt.Fprintf(cli.out, "%s [y/N] ", question)
	answer, _ := cli.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// printError renders validation errors field by field and anything else as one line.
func (cli *commandLine) printError(w io.Writer, err error) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		if vErr.Err != nil {
			fmt.Fprintf(w, "error: %s\n", vErr.Err)
		}
		for _, fld := range vErr.Fields {
			fmt.Fprintf(w, "  %s: %s\n", fld.Field, fld.Error)
		}
		if vErr.Err != nil || len(vErr.Fields) > 0 {
			return
		}
	}
	if core.IsUnauthorized(err) {
		fmt.Fprintln(w, "error: your session has ended, please sign in again")
		return
	}
	fmt.Fprintf(w, "error: %s\n", restapi.Message(err, err.Error()))
}
