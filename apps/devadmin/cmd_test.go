package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	emailsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/email"
	sqlxrepos "github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database/sqlx"
	testutil "github.com/lamngoctuu18/chuyen-doi-so-sub001/tests"
)

const goodPassword = "Thuc-tap@2024x"

var store *sqlxrepos.DB

func setup(t *testing.T) *commandLine {
	// set up DB & services
	db := testutil.PrepareDB(t)
	store = sqlxrepos.New(db)

	conf := &core.Config{}
	validator := core.NewValidator()
	usrSvc, err := user.NewService(store, validator, user.NewTokenGenerator("test-secret", 24*time.Hour),
		emailsvc.NewConsoleService(io.Discard, conf, core.NopLogger()))
	require.NoError(t, err)

	// start CLI
	return &commandLine{
		db:        db.DB,
		store:     store,
		usrSvc:    usrSvc,
		validator: validator,
		logger:    core.NopLogger(),
	}
}

type cliTest struct {
	name        string
	args        []string // without program name
	wantErr     error
	wantErrStr  string
	wantInvalid bool
	extra       interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantInvalid:
		assert.True(t, core.IsValidationError(err), "got %v", err)
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

// mockPassword makes the prompt answer pwd.
func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "create", args: []string{"migrate", "create", "grades", "sql"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"devadmin"}, tt.args...)))
		})
	}

	t.Run("no SQL database", func(t *testing.T) {
		noSQL := *cli
		noSQL.db = nil
		assert.Equal(t, errNoSQL, noSQL.run([]string{"devadmin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, store, "gv1", "Le Van C", "levanc", "c@test.vn", goodPassword, core.RoleTeacher, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-username", "minh"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-username", "minh", "-name", "Minh", "-role", "dean"}, wantErrStr: "dean"},
		{name: "no password", args: []string{"adduser", "-username", "minh", "-name", "Minh"}, wantErr: errHelp},
		{
			name:        "weak password",
			args:        []string{"adduser", "-username", "minh", "-name", "Pham Minh"},
			extra:       "password",
			wantInvalid: true,
		},
		{
			name:  "create",
			args:  []string{"adduser", "-username", "Minh", "-name", "Pham Minh", "-email", "minh@test.vn", "-id", "sv7"},
			extra: goodPassword,
		},
		{
			name:  "update existing",
			args:  []string{"adduser", "-username", "levanc", "-name", "Le Van Cuong", "-role", "admin"},
			extra: goodPassword + "!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(pwd)
			tt.check(t, cli.run(append([]string{"devadmin"}, tt.args...)))
		})
	}

	created, err := store.GetUserByID(ctx, "sv7")
	require.NoError(t, err)
	assert.Equal(t, "minh", created.Username)
	assert.Equal(t, core.RoleStudent, created.Role)
	assert.True(t, created.IsActive)
	assert.NoError(t, created.CheckPassword(goodPassword))

	updated, err := store.GetUserByID(ctx, "gv1")
	require.NoError(t, err)
	assert.Equal(t, "Le Van Cuong", updated.Name)
	assert.Equal(t, "c@test.vn", updated.Email)
	assert.Equal(t, core.RoleAdmin, updated.Role)
	assert.True(t, updated.IsActive)
	assert.NoError(t, updated.CheckPassword(goodPassword+"!"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, store, "sv1", "Nguyen Van A", "sv1", "sv1@test.vn", goodPassword, core.RoleStudent, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "SV1@test.vn"}, extra: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(pwd)
			tt.check(t, cli.run(append([]string{"devadmin"}, tt.args...)))
		})
	}

	refreshed, err := store.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	mockPassword("")
	assert.Equal(t, errHelp, cli.run([]string{"devadmin", "seed"}))

	mockPassword(goodPassword)
	require.NoError(t, cli.run([]string{"devadmin", "seed"}))
	// a second run keeps what is there
	require.NoError(t, cli.run([]string{"devadmin", "seed"}))

	users, err := store.QueryAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 5)

	usr, err := cli.usrSvc.Authenticate(ctx, "fptsoftware", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, core.RoleCompany, usr.Role)

	slot, err := store.GetSlot(ctx, "tuan1")
	require.NoError(t, err)
	assert.Equal(t, "gv001", slot.TeacherID)
}
