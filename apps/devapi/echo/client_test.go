package echoapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/evaluation"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/grading"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/resource"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/services/restapi"
	testutil "github.com/lamngoctuu18/chuyen-doi-so-sub001/tests"
)

// newClient signs in a fresh HTTP client as username against a live server.
func newClient(t *testing.T, baseURL, username string) (*restapi.Client, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(session.NewMemStore())
	c, err := restapi.NewClient(restapi.Options{BaseURL: baseURL, Timeout: 5 * time.Second}, mgr, core.NopLogger())
	require.NoError(t, err)
	_, err = c.Login(context.Background(), username, studentPassword)
	require.NoError(t, err)
	return c, mgr
}

func TestClientRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.store, "gv3", "Ngo Van K", "gv3", "gv3@test.vn", studentPassword, core.RoleTeacher, true)
	testutil.CreateUser(t, f.store, "dn3", "Viettel", "viettel", "hr@viettel.vn", studentPassword, core.RoleCompany, true)
	require.NoError(t, PutResources(ctx, f.store,
		resource.Student{ID: "sv1", Code: "SV001", Name: "Nguyen Van A", Status: ActiveStatus,
			TeacherID: null.StringFrom("gv3"), CompanyID: null.StringFrom("dn3")},
	))
	require.NoError(t, f.store.CreateSlot(ctx, submission.Slot{
		ID: "w1", Title: "Week 1", Kind: submission.KindWeekly, TeacherID: "gv3",
		StartAt: time.Now().Add(-time.Hour), EndAt: time.Now().Add(time.Hour),
	}))

	srv := httptest.NewServer(f.srv)
	t.Cleanup(srv.Close)
	baseURL := srv.URL + "/api"

	student, studentSession := newClient(t, baseURL, "sv1")
	teacher, _ := newClient(t, baseURL, "gv3")
	company, _ := newClient(t, baseURL, "viettel")

	t.Run("me", func(t *testing.T) {
		prof, err := student.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.student.Profile(), prof)
	})

	t.Run("upload notifies the teacher", func(t *testing.T) {
		slots, err := restapi.NewSubmissions(student).OpenSlots(ctx)
		require.NoError(t, err)
		require.Len(t, slots, 1)

		subs, err := restapi.NewSubmissions(student).Upload(ctx, "w1", []submission.Attachment{{Name: "tuan1.pdf", Content: []byte("%PDF")}})
		require.NoError(t, err)
		require.Len(t, subs, 1)

		store, err := notification.NewStore(restapi.NewNotifications(teacher), teacher.Sessions(), core.NopLogger(), notification.Options{PollInterval: time.Hour})
		require.NoError(t, err)
		require.NoError(t, store.Init(ctx))
		require.Equal(t, 1, store.UnreadCount())
		assert.Equal(t, notification.ActionReportSubmission, store.List()[0].ActionType)

		store.MarkAllRead()
		store.Dispose()
		items, err := f.store.ListNotifications(ctx, "gv3")
		require.NoError(t, err)
		assert.Zero(t, notification.CountUnread(items))

		rows, err := restapi.NewSubmissions(teacher).Statuses(ctx, "w1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, submission.StatusSubmitted, rows[0].Status)
	})

	t.Run("evaluate and grade", func(t *testing.T) {
		score := null.Float64From(9)
		ev, err := restapi.NewEvaluations(company).Save(ctx, "sv1", evaluation.Update{Score: &score})
		require.NoError(t, err)
		assert.Equal(t, score, ev.Score)

		res, err := restapi.NewEvaluations(company).SubmitAll(ctx, []string{"sv1"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count)

		rows, err := restapi.NewSubmissions(teacher).Statuses(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, score, rows[0].CompanyScore)

		g, err := restapi.NewGrades(teacher).Grade(ctx, "sv1", grading.Grade{Score: 9.5, Remark: "Xuat sac"})
		require.NoError(t, err)
		assert.Equal(t, "Ngo Van K", g.GradedBy)
	})

	t.Run("register", func(t *testing.T) {
		reg, err := restapi.NewRegistrations(student).Submit(ctx, registration.Form{
			Preference: registration.PreferenceSchool, BatchID: "b1",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusPending, reg.Status)

		_, err = restapi.NewRegistrations(student).Submit(ctx, registration.Form{
			Preference: registration.PreferenceSchool, BatchID: "b1",
		})
		require.Error(t, err)
		assert.Contains(t, restapi.Message(err, ""), "already registered")
	})

	t.Run("resources", func(t *testing.T) {
		res, err := restapi.NewResources(student)
		require.NoError(t, err)
		page, err := res.Students.List(ctx, resource.Query{Page: 1, Limit: 1, Ordering: []core.Ordering{{Field: "ma_sinh_vien", Ascending: true}}})
		require.NoError(t, err)
		assert.Equal(t, resource.NewPagination(2, 1, 1), page.Pagination)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "SV001", page.Items[0].Code)
		assert.True(t, page.Pagination.HasNext())

		_, err = res.Students.Get(ctx, "nope")
		assert.True(t, restapi.IsNotFound(err))
	})

	t.Run("deactivated account loses its session", func(t *testing.T) {
		var events []session.Event
		studentSession.OnLogout(func(e session.Event) { events = append(events, e) })

		usr, err := f.store.GetUserByID(ctx, "sv1")
		require.NoError(t, err)
		usr.IsActive = false
		_, err = f.store.UpdateUser(ctx, usr)
		require.NoError(t, err)

		_, err = student.Me(ctx)
		require.Error(t, err)
		assert.True(t, core.IsUnauthorized(err))
		assert.True(t, studentSession.Current().IsZero())
		require.Len(t, events, 1)
		assert.Equal(t, session.ReasonUnauthorized, events[0].Reason)
		assert.Equal(t, user.Profile{ID: "sv1", Name: "Nguyen Van A", Email: "sv1@test.vn", Role: core.RoleStudent}, events[0].User)
	})

	// wrong password never reaches a session
	mgr := session.NewManager(session.NewMemStore())
	c, err := restapi.NewClient(restapi.Options{BaseURL: baseURL}, mgr, core.NopLogger())
	require.NoError(t, err)
	_, err = c.Login(ctx, "gv3", "wrong")
	require.Error(t, err)
	var apiErr *restapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.True(t, mgr.Current().IsZero())
}
