// Package storetest checks that a database.Store implementation behaves like the others.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
	testutil "github.com/lamngoctuu18/chuyen-doi-so-sub001/tests"
)

var t0 = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)

// Run runs every store check against a fresh store from newStore.
func Run(t *testing.T, newStore func(t *testing.T) database.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
	t.Run("submissions", func(t *testing.T) { testSubmissions(t, newStore(t)) })
	t.Run("evaluations", func(t *testing.T) { testEvaluations(t, newStore(t)) })
	t.Run("registrations", func(t *testing.T) { testRegistrations(t, newStore(t)) })
	t.Run("documents", func(t *testing.T) { testDocuments(t, newStore(t)) })
}

func testUsers(t *testing.T, store database.Store) {
	ctx := context.Background()
	usr := testutil.CreateUser(t, store, "u1", "Nguyen Van A", "sv001", "sv001@example.com", "Secret@123", core.RoleStudent, true, t0)
	testutil.CreateUser(t, store, "u2", "Le Thi B", "gv001", "", "", core.RoleTeacher, true, t0.Add(time.Minute))

	tests := []struct {
		name     string
		username string
		email    string
		excluded []user.User
		wantErr  error
	}{
		{name: "free", username: "sv002", email: "sv002@example.com"},
		{name: "username taken", username: "sv001", email: "x@example.com", wantErr: user.ErrUsernameExists},
		{name: "email taken", username: "sv002", email: "sv001@example.com", wantErr: user.ErrEmailExists},
		{name: "blank email is never taken", username: "sv002", email: ""},
		{name: "excluded owner", username: "sv001", email: "sv001@example.com", excluded: []user.User{usr}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CheckUsernameUniqueness(ctx, tt.username, tt.email, tt.excluded...)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}

	got, err := store.GetUserByUsernameOrEmail(ctx, "sv001@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.NoError(t, got.CheckPassword("Secret@123"))

	_, err = store.GetUserByID(ctx, "nope")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	got.Name = "Nguyen Van An"
	got.IsActive = false
	got.PasswordHash = nil // keep
	_, err = store.UpdateUser(ctx, got)
	require.NoError(t, err)
	got, err = store.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Nguyen Van An", got.Name)
	assert.False(t, got.IsActive)
	assert.NoError(t, got.CheckPassword("Secret@123"))

	all, err := store.QueryAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testNotifications(t *testing.T, store database.Store) {
	ctx := context.Background()
	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, store.CreateNotification(ctx, notification.Notification{
			ID:        id,
			Title:     "Title " + id,
			Severity:  notification.SeverityInfo,
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
			UserID:    "u1",
			UserRole:  core.RoleStudent,
			Metadata:  &notification.Metadata{WeekNumber: i + 1},
		}))
	}
	require.NoError(t, store.CreateNotification(ctx, notification.Notification{ID: "other", Title: "x", UserID: "u2", CreatedAt: t0}))

	items, err := store.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 2, items[1].Metadata.WeekNumber)

	n, err := store.SetNotificationsRead(ctx, "u1", "n1", "n2", "other")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.SetNotificationsRead(ctx, "u1", "n1", "n3")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "already read rows are not counted")

	assert.True(t, errors.Is(store.DeleteNotification(ctx, "u1", "other"), database.ErrNotFound))
	require.NoError(t, store.DeleteNotification(ctx, "u1", "n2"))

	items, err = store.ListNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Zero(t, notification.CountUnread(items))
}

func testSubmissions(t *testing.T, store database.Store) {
	ctx := context.Background()
	slot := submission.Slot{
		ID:        "s1",
		Title:     "Week 1",
		Kind:      submission.KindWeekly,
		StartAt:   t0,
		EndAt:     t0.Add(7 * 24 * time.Hour),
		TeacherID: "gv1",
	}
	require.NoError(t, store.CreateSlot(ctx, slot))
	require.NoError(t, store.CreateSlot(ctx, submission.Slot{ID: "s2", Title: "Other", Kind: submission.KindMonthly, StartAt: t0, EndAt: t0, TeacherID: "gv2"}))

	slots, err := store.ListSlots(ctx, "gv1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slot.EndAt.Equal(slots[0].EndAt))

	slots, err = store.ListSlots(ctx, "")
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	end := t0.Add(14 * 24 * time.Hour)
	require.NoError(t, store.UpdateSlotTimes(ctx, "s1", t0, end))
	got, err := store.GetSlot(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, end.Equal(got.EndAt))
	assert.True(t, errors.Is(store.UpdateSlotTimes(ctx, "nope", t0, end), database.ErrNotFound))

	sub := submission.Submission{
		ID:          "sub1",
		SlotID:      "s1",
		StudentID:   "u1",
		Files:       []submission.File{{Name: "week1.pdf", URL: "/files/week1.pdf"}},
		SubmittedAt: t0.Add(time.Hour),
		Status:      submission.StatusSubmitted,
	}
	require.NoError(t, store.CreateSubmission(ctx, sub))

	subs, err := store.ListSubmissions(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.Files, subs[0].Files)
	assert.False(t, subs[0].TeacherComment.Valid)

	require.NoError(t, store.ReviewSubmission(ctx, "sub1", "Good work", submission.StatusApproved))
	reviewed, err := store.GetSubmission(ctx, "sub1")
	require.NoError(t, err)
	assert.Equal(t, submission.StatusApproved, reviewed.Status)
	assert.Equal(t, null.StringFrom("Good work"), reviewed.TeacherComment)

	_, err = store.GetSubmission(ctx, "nope")
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func testEvaluations(t *testing.T, store database.Store) {
	ctx := context.Background()
	require.NoError(t, store.SaveEvaluation(ctx, database.Evaluation{StudentID: "u1", CompanyID: "c1", Score: null.Float64From(8.5), UpdatedAt: t0}))
	require.NoError(t, store.SaveEvaluation(ctx, database.Evaluation{StudentID: "u2", CompanyID: "c1", Remark: null.StringFrom("ok"), UpdatedAt: t0}))
	require.NoError(t, store.SaveEvaluation(ctx, database.Evaluation{StudentID: "u3", CompanyID: "c1", Score: null.Float64From(7), SentAt: null.TimeFrom(t0), UpdatedAt: t0}))

	// upsert
	require.NoError(t, store.SaveEvaluation(ctx, database.Evaluation{StudentID: "u1", CompanyID: "c1", Score: null.Float64From(9), UpdatedAt: t0}))
	ev, err := store.GetEvaluation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, null.Float64From(9), ev.Score)

	n, err := store.MarkEvaluationsSent(ctx, t0.Add(time.Hour), "u1", "u3", "missing")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	evals, err := store.ListEvaluations(ctx, "u1", "u2", "u3")
	require.NoError(t, err)
	require.Len(t, evals, 3)
	sent := map[string]null.Time{}
	for _, e := range evals {
		sent[e.StudentID] = e.SentAt
	}
	assert.True(t, sent["u1"].Valid)
	assert.False(t, sent["u2"].Valid)
	assert.True(t, t0.Equal(sent["u3"].Time), "earlier sent_at is kept")

	_, err = store.GetGrade(ctx, "u1")
	assert.True(t, errors.Is(err, database.ErrNotFound))
	require.NoError(t, store.SaveGrade(ctx, database.Grade{StudentID: "u1", TeacherID: "gv1", Score: 8, GradedAt: t0}))
	require.NoError(t, store.SaveGrade(ctx, database.Grade{StudentID: "u1", TeacherID: "gv1", Score: 8.5, Remark: "Tốt", GradedAt: t0}))
	g, err := store.GetGrade(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 8.5, g.Score)
	assert.Equal(t, "Tốt", g.Remark)
}

func testRegistrations(t *testing.T, store database.Store) {
	ctx := context.Background()
	reg := registration.Registration{
		ID:        "r1",
		StudentID: "u1",
		Form: registration.Form{
			Preference:     registration.PreferenceSelfArranged,
			CompanyName:    "FPT Software",
			CompanyAddress: "Ha Noi",
			ContactName:    "Tran C",
			ContactPhone:   "0912345678",
			BatchID:        "b1",
		},
		Status:    "cho_duyet",
		CreatedAt: t0,
	}
	require.NoError(t, store.CreateRegistration(ctx, reg))
	require.NoError(t, store.CreateRegistration(ctx, registration.Registration{ID: "r2", StudentID: "u2", Form: registration.Form{Preference: registration.PreferenceSchool, BatchID: "b1"}, Status: "cho_duyet", CreatedAt: t0}))

	regs, err := store.ListRegistrations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, reg.Form, regs[0].Form)

	regs, err = store.ListRegistrations(ctx, "")
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}

func testDocuments(t *testing.T, store database.Store) {
	ctx := context.Background()
	docs := []database.Document{
		{Kind: "students", ID: "a", Code: "SV003", Name: "Tran Van C", Status: "active", TeacherID: null.StringFrom("gv1"), CreatedAt: t0},
		{Kind: "students", ID: "b", Code: "SV001", Name: "Nguyen Van A", Status: "active", TeacherID: null.StringFrom("gv1"), CompanyID: null.StringFrom("c1"), CreatedAt: t0.Add(time.Minute)},
		{Kind: "students", ID: "c", Code: "SV002", Name: "Le Thi B", Status: "inactive", CreatedAt: t0.Add(2 * time.Minute)},
		{Kind: "teachers", ID: "gv1", Code: "GV001", Name: "Pham D", CreatedAt: t0},
	}
	for _, d := range docs {
		d.Data = []byte(`{"id":"` + d.ID + `"}`)
		d.UpdatedAt = d.CreatedAt
		require.NoError(t, store.PutDocument(ctx, d))
	}

	tests := []struct {
		name      string
		q         database.DocQuery
		wantIDs   []string
		wantTotal int
	}{
		{name: "newest first by default", q: database.DocQuery{Kind: "students"}, wantIDs: []string{"c", "b", "a"}, wantTotal: 3},
		{name: "search name", q: database.DocQuery{Kind: "students", Search: "van"}, wantIDs: []string{"b", "a"}, wantTotal: 2},
		{name: "search code", q: database.DocQuery{Kind: "students", Search: "sv002"}, wantIDs: []string{"c"}, wantTotal: 1},
		{name: "status", q: database.DocQuery{Kind: "students", Status: "active"}, wantIDs: []string{"b", "a"}, wantTotal: 2},
		{name: "teacher", q: database.DocQuery{Kind: "students", TeacherID: "gv1", CompanyID: "c1"}, wantIDs: []string{"b"}, wantTotal: 1},
		{
			name:      "ordering",
			q:         database.DocQuery{Kind: "students", Ordering: []core.Ordering{{Field: "code", Ascending: true}}},
			wantIDs:   []string{"b", "c", "a"},
			wantTotal: 3,
		},
		{
			name:      "page",
			q:         database.DocQuery{Kind: "students", Ordering: []core.Ordering{{Field: "name", Ascending: false}}, Limit: 2, Offset: 1},
			wantIDs:   []string{"b", "c"},
			wantTotal: 3,
		},
		{name: "past the end", q: database.DocQuery{Kind: "students", Limit: 10, Offset: 10}, wantIDs: []string{}, wantTotal: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := store.ListDocuments(ctx, tt.q)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, total)
		})
	}

	// update keeps created_at
	upd := docs[0]
	upd.Name = "Tran Van Cuong"
	upd.Data = []byte(`{"id":"a","ho_ten":"Tran Van Cuong"}`)
	upd.CreatedAt = t0.Add(time.Hour)
	upd.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, store.PutDocument(ctx, upd))
	got, err := store.GetDocument(ctx, "students", "a")
	require.NoError(t, err)
	assert.Equal(t, "Tran Van Cuong", got.Name)
	assert.JSONEq(t, string(upd.Data), string(got.Data))
	assert.True(t, t0.Equal(got.CreatedAt))

	require.NoError(t, store.DeleteDocument(ctx, "students", "a"))
	assert.True(t, errors.Is(store.DeleteDocument(ctx, "students", "a"), database.ErrNotFound))
	_, err = store.GetDocument(ctx, "teachers", "a")
	assert.True(t, errors.Is(err, database.ErrNotFound))
}
