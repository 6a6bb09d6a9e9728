package echoapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
	testutil "github.com/lamngoctuu18/chuyen-doi-so-sub001/tests"
)

var submissionNow = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

// seedSlots gives gv1 an open weekly slot, a closed weekly slot that came before it, and
// gv2 an open slot.
func seedSlots(t *testing.T, f *fixture) {
	t.Helper()
	nowFunc = func() time.Time { return submissionNow }
	t.Cleanup(func() { nowFunc = time.Now })

	day := 24 * time.Hour
	for _, slot := range []submission.Slot{
		{ID: "w2", Title: "Week 2", Kind: submission.KindWeekly, StartAt: submissionNow.Add(-day), EndAt: submissionNow.Add(day), TeacherID: "gv1"},
		{ID: "w1", Title: "Week 1", Kind: submission.KindWeekly, StartAt: submissionNow.Add(-8 * day), EndAt: submissionNow.Add(-6 * day), TeacherID: "gv1"},
		{ID: "x1", Title: "Other", Kind: submission.KindWeekly, StartAt: submissionNow.Add(-day), EndAt: submissionNow.Add(day), TeacherID: "gv2"},
	} {
		require.NoError(t, f.store.CreateSlot(context.Background(), slot))
	}
}

// upload posts files under field as a multipart form.
func (f *fixture) upload(t *testing.T, path, token, field string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func TestSlots_Teacher(t *testing.T) {
	f := setup(t)
	seedSlots(t, f)
	token := f.token(t, f.teacher)

	rec := f.do(t, http.MethodGet, "/api/teacher-submissions/slots", token, nil)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, []string{"w1", "w2"}, slotIDs(decode[[]submission.Slot](t, rec).Data))

	rec = f.do(t, http.MethodGet, "/api/teacher-submissions/slots", f.token(t, f.admin), nil)
	checkCode(t, rec, http.StatusOK)
	assert.Len(t, decode[[]submission.Slot](t, rec).Data, 3)

	start := submissionNow.Add(7 * 24 * time.Hour)
	tests := []struct {
		name     string
		body     submission.NewSlot
		wantCode int
	}{
		{"missing title", submission.NewSlot{Kind: submission.KindWeekly, StartAt: start, EndAt: start.Add(time.Hour)}, http.StatusBadRequest},
		{"unknown kind", submission.NewSlot{Title: "Week 3", Kind: "daily", StartAt: start, EndAt: start.Add(time.Hour)}, http.StatusBadRequest},
		{"missing window", submission.NewSlot{Title: "Week 3", Kind: submission.KindWeekly}, http.StatusBadRequest},
		{"end before start", submission.NewSlot{Title: "Week 3", Kind: submission.KindWeekly, StartAt: start, EndAt: start.Add(-time.Hour)}, http.StatusBadRequest},
		{"ok", submission.NewSlot{Title: " Week 3 ", Kind: submission.KindWeekly, StartAt: start, EndAt: start.Add(48 * time.Hour)}, http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/teacher-submissions/slots", token, tc.body)
			checkCode(t, rec, tc.wantCode)
			if tc.wantCode != http.StatusCreated {
				return
			}
			slot := decode[submission.Slot](t, rec).Data
			assert.Equal(t, "Week 3", slot.Title)
			assert.Equal(t, "gv1", slot.TeacherID)
			assert.NotEmpty(t, slot.ID)

			stored, err := f.store.GetSlot(context.Background(), slot.ID)
			require.NoError(t, err)
			assert.True(t, stored.StartAt.Equal(start))
		})
	}
}

func slotIDs(slots []submission.Slot) []string {
	ids := make([]string, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestSlots_UpdateTimes(t *testing.T) {
	f := setup(t)
	seedSlots(t, f)
	token := f.token(t, f.teacher)
	start := submissionNow.Add(time.Hour)

	tests := []struct {
		name     string
		path     string
		body     submission.SlotTimes
		wantCode int
	}{
		{"someone else's slot", "/api/teacher-submissions/slots/x1/times", submission.SlotTimes{StartAt: start, EndAt: start.Add(time.Hour)}, http.StatusNotFound},
		{"unknown slot", "/api/teacher-submissions/slots/nope/times", submission.SlotTimes{StartAt: start, EndAt: start.Add(time.Hour)}, http.StatusNotFound},
		{"inverted", "/api/teacher-submissions/slots/w2/times", submission.SlotTimes{StartAt: start, EndAt: start}, http.StatusBadRequest},
		{"ok", "/api/teacher-submissions/slots/w2/times", submission.SlotTimes{StartAt: start, EndAt: start.Add(time.Hour)}, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPut, tc.path, token, tc.body)
			checkCode(t, rec, tc.wantCode)
		})
	}

	slot, err := f.store.GetSlot(context.Background(), "w2")
	require.NoError(t, err)
	assert.True(t, slot.StartAt.Equal(start))
	assert.True(t, slot.EndAt.Equal(start.Add(time.Hour)))
}

func TestSlots_Student(t *testing.T) {
	f := setup(t)
	seedSlots(t, f)

	rec := f.do(t, http.MethodGet, "/api/teacher-submissions/student/all-slots", f.token(t, f.student), nil)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, []string{"w1", "w2"}, slotIDs(decode[[]submission.Slot](t, rec).Data))

	rec = f.do(t, http.MethodGet, "/api/teacher-submissions/student/open-slots", f.token(t, f.student), nil)
	checkCode(t, rec, http.StatusOK)
	assert.Equal(t, []string{"w2"}, slotIDs(decode[[]submission.Slot](t, rec).Data))

	// no student record, no advisor
	loner := testutil.CreateUser(t, f.store, "sv3", "Hoang Van E", "sv3", "", "", core.RoleStudent, true)
	rec = f.do(t, http.MethodGet, "/api/teacher-submissions/student/all-slots", f.token(t, loner), nil)
	checkCode(t, rec, http.StatusOK)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
}

func TestUpload(t *testing.T) {
	f := setup(t)
	seedSlots(t, f)
	token := f.token(t, f.student)

	tests := []struct {
		name     string
		path     string
		field    string
		files    map[string]string
		wantCode int
	}{
		{"closed window", "/api/teacher-submissions/student/slots/w1/upload", "file", map[string]string{"a.pdf": "A"}, http.StatusBadRequest},
		{"other teacher's slot", "/api/teacher-submissions/student/slots/x1/upload", "file", map[string]string{"a.pdf": "A"}, http.StatusNotFound},
		{"no file", "/api/teacher-submissions/student/slots/w2/upload", "file", nil, http.StatusBadRequest},
		{"wrong field", "/api/teacher-submissions/student/slots/w2/upload", "files", map[string]string{"a.pdf": "A"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.upload(t, tc.path, token, tc.field, tc.files)
			checkCode(t, rec, tc.wantCode)
		})
	}

	subs, err := f.store.ListSubmissions(context.Background(), "", "sv1")
	require.NoError(t, err)
	assert.Empty(t, subs)

	t.Run("single file", func(t *testing.T) {
		rec := f.upload(t, "/api/teacher-submissions/student/slots/w2/upload", token, "file", map[string]string{"../bao-cao.pdf": "week 2"})
		checkCode(t, rec, http.StatusCreated)

		sub := decode[submission.Submission](t, rec).Data
		assert.Equal(t, submission.StatusSubmitted, sub.Status)
		assert.Equal(t, "w2", sub.SlotID)
		assert.Equal(t, "sv1", sub.StudentID)
		assert.Equal(t, submissionNow, sub.SubmittedAt)
		require.Len(t, sub.Files, 1)
		assert.Equal(t, "bao-cao.pdf", sub.Files[0].Name)

		// the stored file is served back
		get := httptest.NewRequest(http.MethodGet, sub.Files[0].URL, nil)
		got := httptest.NewRecorder()
		f.srv.ServeHTTP(got, get)
		checkCode(t, got, http.StatusOK)
		assert.Equal(t, "week 2", got.Body.String())
	})

	t.Run("many files", func(t *testing.T) {
		rec := f.upload(t, "/api/teacher-submissions/student/slots/w2/uploads", token, "files", map[string]string{"a.pdf": "A", "b.docx": "B"})
		checkCode(t, rec, http.StatusCreated)
		assert.Len(t, decode[[]submission.Submission](t, rec).Data, 2)
	})

	rec := f.do(t, http.MethodGet, "/api/teacher-submissions/student/slots/w2/my-submissions", token, nil)
	checkCode(t, rec, http.StatusOK)
	assert.Len(t, decode[[]submission.Submission](t, rec).Data, 3)

	// every upload tells the advising teacher; w2 is the second weekly slot
	items, err := f.store.ListNotifications(context.Background(), "gv1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, n := range items {
		assert.Equal(t, "Nguyen Van A submitted the report for week 2.", n.Message)
		require.NotNil(t, n.Metadata)
		assert.Equal(t, 2, n.Metadata.WeekNumber)
	}
}

func TestUpload_Disabled(t *testing.T) {
	f := setup(t)
	seedSlots(t, f)
	api := submissionApi{store: f.store, validator: f.srv.Validator, logger: f.srv.Logger}

	ctx := f.srv.app.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	ctx.Set(contextUserKey, f.student)
	_, err := api.upload(ctx, "file")
	assert.Equal(t, errUploadsOff, err)
}

func TestStatusesAndComment(t *testing.T) {
	f := setup(t)
	seedSlots(t, f)
	ctx := context.Background()

	for _, sub := range []submission.Submission{
		{ID: "s-old", SlotID: "w2", StudentID: "sv1", SubmittedAt: submissionNow.Add(-2 * time.Hour), Status: submission.StatusSubmitted,
			Files: []submission.File{{Name: "v1.pdf", URL: "/uploads/w2/sv1/v1.pdf"}}},
		{ID: "s-new", SlotID: "w2", StudentID: "sv1", SubmittedAt: submissionNow.Add(-time.Hour), Status: submission.StatusSubmitted,
			Files: []submission.File{{Name: "v2.pdf", URL: "/uploads/w2/sv1/v2.pdf"}}},
	} {
		require.NoError(t, f.store.CreateSubmission(ctx, sub))
	}
	require.NoError(t, f.store.SaveEvaluation(ctx, database.Evaluation{
		StudentID: "sv1", CompanyID: "dn1", Score: null.Float64From(8.5), Remark: null.StringFrom("Cham chi"), UpdatedAt: submissionNow,
	}))

	token := f.token(t, f.teacher)
	checkCode(t, f.do(t, http.MethodGet, "/api/teacher-submissions/slots/x1/statuses", token, nil), http.StatusNotFound)

	rec := f.do(t, http.MethodGet, "/api/teacher-submissions/slots/w2/statuses", token, nil)
	checkCode(t, rec, http.StatusOK)
	rows := decode[[]submission.StudentStatus](t, rec).Data
	require.Len(t, rows, 2)

	assert.Equal(t, "sv1", rows[0].StudentID)
	assert.Equal(t, "s-new", rows[0].SubmissionID.String)
	assert.Equal(t, submission.StatusSubmitted, rows[0].Status)
	require.NotNil(t, rows[0].File)
	assert.Equal(t, "v2.pdf", rows[0].File.Name)
	assert.Equal(t, 8.5, rows[0].CompanyScore.Float64)
	assert.Equal(t, "Cham chi", rows[0].CompanyComment.String)

	assert.Equal(t, "sv2", rows[1].StudentID)
	assert.Equal(t, submission.StatusNotSubmitted, rows[1].Status)
	assert.False(t, rows[1].SubmissionID.Valid)
	assert.False(t, rows[1].CompanyScore.Valid)

	tests := []struct {
		name       string
		token      string
		body       submission.Comment
		wantCode   int
		wantStatus submission.Status
	}{
		{"blank comment", token, submission.Comment{Text: " "}, http.StatusBadRequest, ""},
		{"not the advisor", f.token(t, f.otherTeacher), submission.Comment{Text: "Good"}, http.StatusNotFound, ""},
		{"comment keeps status", token, submission.Comment{Text: "Add the timesheet"}, http.StatusOK, submission.StatusSubmitted},
		{"approve", token, submission.Comment{Text: "Good", Status: submission.StatusApproved}, http.StatusOK, submission.StatusApproved},
		{"back to submitted", token, submission.Comment{Text: "Oops", Status: submission.StatusSubmitted}, http.StatusBadRequest, ""},
		{"reject", token, submission.Comment{Text: "Redo", Status: submission.StatusRejected}, http.StatusOK, submission.StatusRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPut, "/api/teacher-submissions/submissions/s-new/comment", tc.token, tc.body)
			checkCode(t, rec, tc.wantCode)
			if tc.wantCode != http.StatusOK {
				return
			}
			sub := decode[submission.Submission](t, rec).Data
			assert.Equal(t, tc.wantStatus, sub.Status)

			stored, err := f.store.GetSubmission(ctx, "s-new")
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, stored.Status)
			assert.Equal(t, tc.body.Text, stored.TeacherComment.String)
		})
	}
}

func TestOrdinal(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	slots := []submission.Slot{
		{ID: "a", Kind: submission.KindWeekly, StartAt: base},
		{ID: "m", Kind: submission.KindMonthly, StartAt: base.Add(time.Hour)},
		{ID: "b", Kind: submission.KindWeekly, StartAt: base.Add(2 * time.Hour)},
		{ID: "c", Kind: submission.KindWeekly, StartAt: base.Add(3 * time.Hour)},
	}
	tests := []struct {
		slot int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 3},
	}
	for _, tc := range tests {
		t.Run(slots[tc.slot].ID, func(t *testing.T) {
			assert.Equal(t, tc.want, ordinal(slots[tc.slot], slots))
		})
	}
}
