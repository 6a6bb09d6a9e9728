package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/lamngoctuu18/chuyen-doi-so-sub001/apps/devapi/echo"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/evaluation"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/grading"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	emailsvc "github.com/lamngoctuu18/chuyen-doi-so-sub001/services/email"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/credentials"
	inmemdb "github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database/inmem"
)

const password = "Thuctap@2024"

// syncBuffer lets the notification watcher write while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

type mailRecorder struct {
	mu   sync.Mutex
	msgs []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(msgs ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msgs...)
}

func (m *mailRecorder) Sent() []*core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.EmailMessage(nil), m.msgs...)
}

type fixture struct {
	cli         *commandLine
	out         *syncBuffer
	mail        *mailRecorder
	store       *inmemdb.DB
	sessionFile string
	// outages is how many upcoming notification list requests fail with 502.
	outages atomic.Int32
}

// setup serves the demo data of the development backend and points a fresh CLI at it.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	srvConf := &core.Config{
		TestMode: true,
		DevAPI: core.DevAPIConfig{
			SecretKey:                 "test-secret",
			JWTExpirationDelta:        time.Hour,
			PasswordResetTimeoutDelta: time.Hour,
			UploadDir:                 t.TempDir(),
			DisableReqLogs:            true,
		},
	}
	store := inmemdb.Open()
	_, err := echoapi.Seed(ctx, store, password)
	require.NoError(t, err)

	validator := core.NewValidator()
	usrSvc, err := user.NewService(store, validator,
		user.NewTokenGenerator(srvConf.DevAPI.SecretKey, srvConf.DevAPI.PasswordResetTimeoutDelta),
		emailsvc.NewConsoleService(io.Discard, srvConf, core.NopLogger()))
	require.NoError(t, err)
	srv, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:      srvConf,
		Logger:    core.NopLogger(),
		Store:     store,
		UserSvc:   usrSvc,
		Validator: validator,
	})
	require.NoError(t, err)
	f := &fixture{out: &syncBuffer{}, mail: &mailRecorder{}, store: store}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/notifications") && f.outages.Load() > 0 {
			f.outages.Add(-1)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		srv.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	sessions := session.NewManager(credentials.NewFileStore(sessionFile))
	client, err := restapi.NewClient(restapi.Options{BaseURL: ts.URL + "/api", Timeout: 5 * time.Second}, sessions, core.NopLogger())
	require.NoError(t, err)

	f.sessionFile = sessionFile
	f.cli = &commandLine{
		conf:     &core.Config{PageSize: 10},
		logger:   core.NopLogger(),
		in:       bufio.NewReader(strings.NewReader("")),
		out:      f.out,
		sessions: sessions,
		client:   client,
		mailSvc:  f.mail,
	}
	return f
}

// run executes one command line; the output of earlier commands is dropped.
func (f *fixture) run(args ...string) error {
	f.out.Reset()
	return f.cli.run(context.Background(), append([]string{"internctl"}, args...))
}

func (f *fixture) login(t *testing.T, username string) {
	t.Helper()
	mockPassword(password)
	require.NoError(t, f.run("login", "-username", username))
}

func (f *fixture) answer(s string) {
	f.cli.in = bufio.NewReader(strings.NewReader(s))
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

func TestRun_Usage(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name       string
		args       []string
		wantErr    error
		wantErrStr string
	}{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"zzz"}, wantErr: errHelp},
		{name: "typo", args: []string{"logn"}, wantErrStr: `did you mean login`},
		{name: "subcommand typo", args: []string{"company", "sheeet"}, wantErrStr: `did you mean sheet`},
		{name: "unknown subcommand", args: []string{"slots", "purge"}, wantErrStr: "expected one of"},
		{name: "list without kind", args: []string{"list"}, wantErr: errHelp},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.run(tc.args...)
			if tc.wantErr != nil {
				assert.Equal(t, tc.wantErr, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErrStr)
		})
	}
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, []string{"notifications"}, suggest("notificatons", commandNames()))
	assert.Equal(t, []string{"read"}, suggest("red", []string{"read", "read-all", "delete"}))
	assert.Empty(t, suggest("xyz", commandNames()))
}

func TestLoginLogout(t *testing.T) {
	f := setup(t)

	mockPassword("")
	assert.Equal(t, errHelp, f.run("login"))
	assert.Equal(t, errHelp, f.run("login", "-username", "sv001"))

	mockPassword("wrong")
	err := f.run("login", "-username", "sv001")
	var apiErr *restapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, f.cli.sessions.Current().IsZero())

	f.login(t, "SV001")
	assert.Contains(t, f.out.String(), "Signed in as Nguyen Van An (student)")
	info, err := os.Stat(f.sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, f.run("whoami"))
	assert.Contains(t, f.out.String(), "role: student")
	assert.Contains(t, f.out.String(), "unread notifications: 0")

	require.NoError(t, f.run("logout"))
	assert.Contains(t, f.out.String(), "Signed out.")
	assert.Equal(t, session.ErrNoSession, f.run("whoami"))
	require.NoError(t, f.run("logout"))
	assert.Contains(t, f.out.String(), "Not signed in.")
}

func TestStudentAndTeacherFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.login(t, "sv001")

	require.NoError(t, f.run("student", "slots"))
	assert.Contains(t, f.out.String(), "tuan1")
	assert.Contains(t, f.out.String(), "open")

	report := filepath.Join(t.TempDir(), "bao-cao.pdf")
	require.NoError(t, os.WriteFile(report, []byte("%PDF-1.4"), 0o600))

	assert.Equal(t, errHelp, f.run("student", "upload", "-slot", "tuan1"))
	assert.Error(t, f.run("student", "upload", "-slot", "nope", report))
	assert.Error(t, f.run("student", "upload", "-slot", "tuan1", filepath.Join(t.TempDir(), "missing.pdf")))

	require.NoError(t, f.run("student", "upload", "-slot", "tuan1", report))
	assert.Contains(t, f.out.String(), "Uploaded 1 file(s)")
	require.NoError(t, f.run("student", "submissions", "-slot", "tuan1"))
	assert.Contains(t, f.out.String(), "bao-cao.pdf")

	// the teacher was told and reviews it
	f.login(t, "gv001")
	require.NoError(t, f.run("notifications"))
	assert.Contains(t, f.out.String(), "New report submitted")
	assert.Contains(t, f.out.String(), "1 unread")

	require.NoError(t, f.run("slots", "statuses", "-id", "tuan1"))
	assert.Contains(t, f.out.String(), "Nguyen Van An")
	assert.Contains(t, f.out.String(), "1/2 handed in")

	subs, err := f.store.ListSubmissions(ctx, "tuan1", "sv001")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	err = f.run("slots", "comment", "-submission", subs[0].ID, "-status", "da_duyet")
	assert.True(t, core.IsValidationError(err), "got %v", err)
	require.NoError(t, f.run("slots", "comment", "-submission", subs[0].ID, "-text", "Tot", "-status", "da_duyet"))
	assert.Contains(t, f.out.String(), `"approved"`)

	f.login(t, "sv001")
	require.NoError(t, f.run("student", "submissions", "-slot", "tuan1"))
	assert.Contains(t, f.out.String(), "Tot")
}

func TestTeacherSlots(t *testing.T) {
	f := setup(t)
	f.login(t, "gv001")

	err := f.run("slots", "create", "-title", "Tuan 2", "-start", "2024-03-10 08:00", "-end", "2024-03-09 08:00")
	assert.True(t, core.IsValidationError(err), "got %v", err)
	assert.Error(t, f.run("slots", "create", "-title", "Tuan 2", "-start", "tomorrow", "-end", "2024-03-09 08:00"))
	assert.Equal(t, errHelp, f.run("slots", "create", "-title", "Tuan 2"))

	require.NoError(t, f.run("slots", "create", "-title", "Tuan 2", "-start", "2024-03-10 08:00", "-end", "2024-03-17 08:00"))
	assert.Contains(t, f.out.String(), "Created slot")

	require.NoError(t, f.run("slots"))
	assert.Contains(t, f.out.String(), "Tuan 2")
	assert.Contains(t, f.out.String(), "2024-03-10 08:00")

	require.NoError(t, f.run("slots", "times", "-id", "tuan1", "-start", "2024-03-01 08:00", "-end", "2024-03-02 08:00"))
	assert.Contains(t, f.out.String(), "2024-03-02 08:00")

	// the window closed, the student is refused before any upload
	f.login(t, "sv001")
	report := filepath.Join(t.TempDir(), "late.pdf")
	require.NoError(t, os.WriteFile(report, []byte("%PDF"), 0o600))
	assert.Equal(t, submission.ErrWindowClosed, f.run("student", "upload", "-slot", "tuan1", report))
}

func TestCompanyEvaluations(t *testing.T) {
	f := setup(t)
	f.login(t, "fptsoftware")

	require.NoError(t, f.run("company"))
	assert.Contains(t, f.out.String(), "Nguyen Van An")

	assert.Equal(t, evaluation.ErrNothingToSend, f.run("company", "submit", "-yes"))

	for _, bad := range []string{"11", "NaN", "-Inf"} {
		err := f.run("company", "score", "-student", "sv001", "-value", bad)
		assert.True(t, core.IsValidationError(err), "%s: got %v", bad, err)
	}
	require.NoError(t, f.run("company", "score", "-student", "sv001", "-value", "8,5"))
	assert.Contains(t, f.out.String(), "score 8.5")
	require.NoError(t, f.run("company", "remark", "-student", "sv001", "-value", "  Cham chi  "))
	assert.Contains(t, f.out.String(), `remark "Cham chi"`)

	f.answer("n\n")
	require.NoError(t, f.run("company", "submit"))
	assert.Contains(t, f.out.String(), "Cancelled.")

	f.answer("y\n")
	require.NoError(t, f.run("company", "submit"))
	assert.Contains(t, f.out.String(), "Send 1 evaluation(s) to the teachers?")
	assert.Contains(t, f.out.String(), "Sent 1 evaluation(s).")

	// the backend counts only rows it had not sent before
	require.NoError(t, f.run("company", "submit", "-yes"))
	assert.Contains(t, f.out.String(), "Sent 0 evaluation(s).")

	// sent evaluations are read-only
	assert.Error(t, f.run("company", "score", "-student", "sv001", "-value", "9"))
}

func TestGrade(t *testing.T) {
	f := setup(t)
	f.login(t, "gv001")

	require.NoError(t, f.run("grade", "-scale"))
	assert.Contains(t, f.out.String(), "0.0 0.5 1.0")
	assert.Contains(t, f.out.String(), "1. "+grading.CannedRemarks[0])

	assert.Equal(t, errHelp, f.run("grade", "-score", "8"))
	assert.Equal(t, grading.ErrScoreRequired, f.run("grade", "-student", "sv001"))
	err := f.run("grade", "-student", "sv001", "-score", "7.3")
	assert.True(t, core.IsValidationError(err), "got %v", err)
	assert.Error(t, f.run("grade", "-student", "sv001", "-score", "8", "-canned", "9"))

	require.NoError(t, f.run("grade", "-student", "sv001", "-score", "8.5", "-canned", "2"))
	assert.Contains(t, f.out.String(), "Graded sv001: 8.5 ("+grading.CannedRemarks[1]+").")
}

func TestRegister(t *testing.T) {
	f := setup(t)
	f.login(t, "sv002")

	err := f.run("register", "-batch", "dot1", "-preference", "tu_lien_he", "-company", "Viettel")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 3)

	var buf bytes.Buffer
	f.cli.printError(&buf, err)
	assert.Contains(t, buf.String(), "error: please fill in the company details")
	assert.Contains(t, buf.String(), "  dia_chi_cong_ty: this field is required")

	require.NoError(t, f.run("register", "-batch", "dot1"))
	assert.Contains(t, f.out.String(), "for batch dot1 is cho_duyet")

	err = f.run("register", "-batch", "dot1")
	require.Error(t, err)
	buf.Reset()
	f.cli.printError(&buf, err)
	assert.Contains(t, buf.String(), "already registered")
}

func TestList(t *testing.T) {
	f := setup(t)
	assert.True(t, core.IsUnauthorized(f.run("list", "students")))

	f.login(t, "admin")

	tests := []struct {
		name     string
		args     []string
		want     []string
		dontWant []string
	}{
		{"first page", []string{"students"}, []string{"SV001", "SV002", "page 1/1, 2 item(s)"}, nil},
		{"second page", []string{"students", "-limit", "1", "-page", "2", "-ordering", "ma_sinh_vien"}, []string{"SV002", "page 2/2"}, []string{"SV001"}},
		{"every page", []string{"students", "-limit", "1", "-all"}, []string{"SV001", "SV002", "2 item(s)"}, nil},
		{"search", []string{"teachers", "-search", "zzz"}, []string{"Nothing found.", "0 item(s)"}, nil},
		{"active", []string{"companies", "-active"}, []string{"FPT Software"}, []string{"page"}},
		{"batches", []string{"batches"}, []string{"dot1"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, f.run(append([]string{"list"}, tc.args...)...))
			for _, s := range tc.want {
				assert.Contains(t, f.out.String(), s)
			}
			for _, s := range tc.dontWant {
				assert.NotContains(t, f.out.String(), s)
			}
		})
	}
}

func TestNotifications(t *testing.T) {
	f := setup(t)
	assert.Equal(t, session.ErrNoSession, f.run("notifications"))

	f.login(t, "gv001")
	assert.Equal(t, errHelp, f.run("notifications", "remind", "-student", "sv001"))
	require.NoError(t, f.run("notifications", "remind", "-student", "sv001", "-week", "2", "-deadline", "2024-03-10 17:00"))
	assert.Contains(t, f.out.String(), `Sent "Report deadline approaching" to sv001.`)
	require.NoError(t, f.run("notifications", "assign", "-student", "sv001", "-teacher", "Le Van Cuong", "-company", "FPT Software"))

	f.login(t, "sv001")
	require.NoError(t, f.run("notifications", "list"))
	assert.Contains(t, f.out.String(), "Report deadline approaching")
	assert.Contains(t, f.out.String(), "Internship assignment")
	assert.Contains(t, f.out.String(), "2 unread")

	assert.Error(t, f.run("notifications", "read", "nope"))
	assert.Error(t, f.run("notifications", "read"))

	items, err := f.store.ListNotifications(context.Background(), "sv001")
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, f.run("notifications", "read", items[0].ID))
	require.NoError(t, f.run("notifications", "read-all"))
	assert.Contains(t, f.out.String(), "Marked 1 notification(s) as read.")
	require.NoError(t, f.run("notifications", "delete", items[1].ID))

	left, err := f.store.ListNotifications(context.Background(), "sv001")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.True(t, left[0].Read)
}

func TestWatchNotifications(t *testing.T) {
	f := setup(t)
	f.cli.conf.Notifications.DigestTo = "an@example.vn"
	require.NoError(t, f.store.CreateNotification(context.Background(), notification.Notification{
		ID: "n1", Title: "Welcome", Message: "Hello", Severity: notification.SeverityInfo,
		UserID: "sv001", UserRole: core.RoleStudent, CreatedAt: time.Now(),
	}))
	f.login(t, "sv001")
	f.out.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.cli.run(ctx, []string{"internctl", "notifications", "watch"}) }()

	require.Eventually(t, func() bool { return len(f.mail.Sent()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Contains(t, f.out.String(), "info Welcome: Hello")
	msg := f.mail.Sent()[0]
	assert.Equal(t, "an@example.vn", msg.To[0].Address)
	assert.Equal(t, "You have 1 unread notification(s)", msg.Subject)
}

func TestWatchNotifications_FirstFetchFails(t *testing.T) {
	f := setup(t)
	f.cli.conf.Notifications.PollInterval = time.Second
	require.NoError(t, f.store.CreateNotification(context.Background(), notification.Notification{
		ID: "n1", Title: "Welcome", Message: "Hello", Severity: notification.SeverityInfo,
		UserID: "sv001", UserRole: core.RoleStudent, CreatedAt: time.Now(),
	}))
	f.login(t, "sv001")
	f.outages.Store(1)
	f.out.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.cli.run(ctx, []string{"internctl", "notifications", "watch"}) }()

	require.Eventually(t, func() bool { return strings.Contains(f.out.String(), "info Welcome: Hello") }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	out := f.out.String()
	assert.Contains(t, out, "Could not load notifications")
	assert.Contains(t, out, "Watching notifications of Nguyen Van An, 0 unread.")
	assert.Zero(t, f.outages.Load())
	assert.False(t, f.cli.sessions.Current().IsZero())
}

func TestWatchNotifications_SessionEnds(t *testing.T) {
	f := setup(t)
	f.login(t, "sv001")

	done := make(chan error, 1)
	go func() { done <- f.cli.run(context.Background(), []string{"internctl", "notifications", "watch"}) }()

	require.Eventually(t, func() bool { return strings.Contains(f.out.String(), "Watching") }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, f.cli.sessions.SignOut())

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session ended (sign_out)")
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
