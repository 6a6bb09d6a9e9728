package echoapi

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

const uploadsPath = "/uploads"

var (
	errWindowClosed = echo.NewHTTPError(http.StatusBadRequest, "the submission window of this slot is closed")
	errNoFiles      = echo.NewHTTPError(http.StatusBadRequest, "select at least one file to upload")
	errUploadsOff   = echo.NewHTTPError(http.StatusServiceUnavailable, "uploads are disabled")
)

type submissionApi struct {
	store     database.Store
	validator *core.Validator
	uploadDir string
	logger    core.Logger
}

func registerSubmissionAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *Server) {
	api := submissionApi{
		store:     s.Store,
		validator: s.Validator,
		uploadDir: s.Conf.DevAPI.UploadDir,
		logger:    s.Logger,
	}

	sg := g.Group("/teacher-submissions", authed...)

	tg := sg.Group("", roleMiddleware(core.RoleTeacher))
	tg.GET("/slots", api.querySlots)
	tg.POST("/slots", api.createSlot)
	tg.PUT("/slots/:id/times", api.updateTimes)
	tg.GET("/slots/:id/statuses", api.statuses)
	tg.PUT("/submissions/:id/comment", api.comment)

	stg := sg.Group("/student", roleMiddleware(core.RoleStudent))
	stg.GET("/all-slots", api.studentSlots)
	stg.GET("/open-slots", api.openSlots)
	stg.POST("/slots/:id/upload", api.uploadOne)
	stg.POST("/slots/:id/uploads", api.uploadMany)
	stg.GET("/slots/:id/my-submissions", api.mySubmissions)
}

// Teacher endpoints

func (api *submissionApi) querySlots(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	teacherID := usr.ID
	if usr.Role == core.RoleAdmin {
		teacherID = ""
	}
	slots, err := api.store.ListSlots(ctx.Request().Context(), teacherID)
	if err != nil {
		return errors.Wrap(err, "listing slots")
	}
	return respond(ctx, http.StatusOK, sortSlots(slots))
}

func (api *submissionApi) createSlot(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data submission.NewSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSlot")
	}
	data.Title = core.CleanString(data.Title)
	data.Description = core.CleanString(data.Description)
	if err := api.validator.Struct(data); err != nil {
		return err
	}
	if err := core.ValidateWindow(data.StartAt, data.EndAt); err != nil {
		return err
	}

	slot := submission.Slot{
		ID:          uuid.NewString(),
		Title:       data.Title,
		Kind:        data.Kind,
		Description: data.Description,
		StartAt:     data.StartAt.UTC(),
		EndAt:       data.EndAt.UTC(),
		TeacherID:   usr.ID,
	}
	if err := api.store.CreateSlot(ctx.Request().Context(), slot); err != nil {
		return errors.Wrap(err, "creating slot")
	}
	return respond(ctx, http.StatusCreated, slot)
}

func (api *submissionApi) updateTimes(ctx echo.Context) error {
	slot, err := api.ownSlot(ctx)
	if err != nil {
		return err
	}
	var data submission.SlotTimes
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SlotTimes")
	}
	if err := core.ValidateWindow(data.StartAt, data.EndAt); err != nil {
		return err
	}

	slot.StartAt, slot.EndAt = data.StartAt.UTC(), data.EndAt.UTC()
	if err := api.store.UpdateSlotTimes(ctx.Request().Context(), slot.ID, slot.StartAt, slot.EndAt); err != nil {
		return errors.Wrap(err, "updating slot times")
	}
	return respond(ctx, http.StatusOK, slot)
}

// statuses lists every student of the slot's teacher with their latest submission and the
// company's score.
func (api *submissionApi) statuses(ctx echo.Context) error {
	slot, err := api.ownSlot(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	students, err := studentsOf(rctx, api.store, slot.TeacherID, "")
	if err != nil {
		return err
	}
	subs, err := api.store.ListSubmissions(rctx, slot.ID, "")
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	latest := latestSubmissions(subs)

	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	evals, err := api.store.ListEvaluations(rctx, ids...)
	if err != nil {
		return errors.Wrap(err, "listing evaluations")
	}
	evalsByStudent := make(map[string]database.Evaluation, len(evals))
	for _, ev := range evals {
		evalsByStudent[ev.StudentID] = ev
	}

	rows := make([]submission.StudentStatus, 0, len(students))
	for _, st := range students {
		row := submission.StudentStatus{
			StudentID:   st.ID,
			StudentCode: st.Code,
			StudentName: st.Name,
			ClassName:   st.ClassName,
			Status:      submission.StatusNotSubmitted,
		}
		if sub, ok := latest[st.ID]; ok {
			row.SubmissionID = null.StringFrom(sub.ID)
			row.Status = sub.Status
			row.SubmittedAt = null.TimeFrom(sub.SubmittedAt)
			row.TeacherComment = sub.TeacherComment
			if len(sub.Files) > 0 {
				f := sub.Files[0]
				row.File = &f
			}
		}
		if ev, ok := evalsByStudent[st.ID]; ok {
			row.CompanyScore = ev.Score
			row.CompanyComment = ev.Remark
		}
		rows = append(rows, row)
	}
	return respond(ctx, http.StatusOK, rows)
}

func (api *submissionApi) comment(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	var data submission.Comment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Comment")
	}
	data.Text = core.CleanString(data.Text)
	if err := api.validator.Struct(data); err != nil {
		return err
	}

	sub, err := api.store.GetSubmission(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	slot, err := api.store.GetSlot(rctx, sub.SlotID)
	if err != nil {
		return errors.Wrap(err, "getting slot")
	}
	if !ownsSlot(usr, slot) {
		return errHttpNotFound
	}

	status := data.Status
	if status == "" {
		status = sub.Status
	}
	if !sub.Status.CanTransition(status) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: "a " + sub.Status.Label() + " submission cannot become " + status.Label(),
		})
	}
	if err := api.store.ReviewSubmission(rctx, sub.ID, data.Text, status); err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	sub.TeacherComment = null.StringFrom(data.Text)
	sub.Status = status
	return respond(ctx, http.StatusOK, sub)
}

func (api *submissionApi) ownSlot(ctx echo.Context) (submission.Slot, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return submission.Slot{}, err
	}
	slot, err := api.store.GetSlot(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return submission.Slot{}, errors.Wrap(err, "getting slot")
	}
	if !ownsSlot(usr, slot) {
		return submission.Slot{}, errHttpNotFound
	}
	return slot, nil
}

func ownsSlot(usr user.User, slot submission.Slot) bool {
	return usr.Role == core.RoleAdmin || slot.TeacherID == usr.ID
}

// Student endpoints

func (api *submissionApi) studentSlots(ctx echo.Context) error {
	slots, err := api.advisorSlots(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, slots)
}

func (api *submissionApi) openSlots(ctx echo.Context) error {
	slots, err := api.advisorSlots(ctx)
	if err != nil {
		return err
	}
	now := nowFunc()
	open := make([]submission.Slot, 0, len(slots))
	for _, slot := range slots {
		if core.IsWithinWindow(now, slot.StartAt, slot.EndAt) {
			open = append(open, slot)
		}
	}
	return respond(ctx, http.StatusOK, open)
}

// advisorSlots returns the slots of the signed-in student's advising teacher. Students with no
// teacher yet have no slot.
func (api *submissionApi) advisorSlots(ctx echo.Context) ([]submission.Slot, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return nil, err
	}
	rctx := ctx.Request().Context()

	st, err := getStudent(rctx, api.store, usr.ID)
	if err != nil {
		if errors.Cause(err) == database.ErrNotFound {
			return []submission.Slot{}, nil
		}
		return nil, err
	}
	if !st.TeacherID.Valid || st.TeacherID.String == "" {
		return []submission.Slot{}, nil
	}
	slots, err := api.store.ListSlots(rctx, st.TeacherID.String)
	if err != nil {
		return nil, errors.Wrap(err, "listing slots")
	}
	return sortSlots(slots), nil
}

func (api *submissionApi) uploadOne(ctx echo.Context) error {
	subs, err := api.upload(ctx, "file")
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, subs[0])
}

func (api *submissionApi) uploadMany(ctx echo.Context) error {
	subs, err := api.upload(ctx, "files")
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, subs)
}

// upload stores the files of field, one submission per file. The window is checked here
// whatever the client already checked.
func (api *submissionApi) upload(ctx echo.Context, field string) ([]submission.Submission, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return nil, err
	}
	if api.uploadDir == "" {
		return nil, errUploadsOff
	}
	rctx := ctx.Request().Context()

	slots, err := api.advisorSlots(ctx)
	if err != nil {
		return nil, err
	}
	slot, ok := findSlot(slots, ctx.Param("id"))
	if !ok {
		return nil, errHttpNotFound
	}
	now := nowFunc()
	if !core.IsWithinWindow(now, slot.StartAt, slot.EndAt) {
		return nil, errWindowClosed
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, errNoFiles
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, errNoFiles
	}

	subs := make([]submission.Submission, 0, len(headers))
	for _, fh := range headers {
		file, err := api.saveFile(slot.ID, usr.ID, fh)
		if err != nil {
			return nil, err
		}
		sub := submission.Submission{
			ID:          uuid.NewString(),
			SlotID:      slot.ID,
			StudentID:   usr.ID,
			Files:       []submission.File{file},
			SubmittedAt: now.UTC(),
			Status:      submission.StatusSubmitted,
		}
		if err := api.store.CreateSubmission(rctx, sub); err != nil {
			return nil, errors.Wrap(err, "creating submission")
		}
		subs = append(subs, sub)
	}

	api.notifyTeacher(rctx, usr, slot, slots)
	return subs, nil
}

func (api *submissionApi) saveFile(slotID, studentID string, fh *multipart.FileHeader) (submission.File, error) {
	src, err := fh.Open()
	if err != nil {
		return submission.File{}, errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if name == "/" || name == "." {
		name = "file"
	}
	stored := uuid.NewString()[:8] + "-" + name

	dir := filepath.Join(api.uploadDir, slotID, studentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return submission.File{}, errors.Wrap(err, "creating upload directory")
	}
	dst, err := os.Create(filepath.Join(dir, stored))
	if err != nil {
		return submission.File{}, errors.Wrap(err, "creating upload file")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return submission.File{}, errors.Wrap(err, "writing upload file")
	}

	u := path.Join(uploadsPath, url.PathEscape(slotID), url.PathEscape(studentID), url.PathEscape(stored))
	return submission.File{Name: name, URL: u}, nil
}

// notifyTeacher tells the advising teacher about the upload. A failure does not undo the upload.
func (api *submissionApi) notifyTeacher(ctx context.Context, usr user.User, slot submission.Slot, slots []submission.Slot) {
	if _, err := notification.NotifyReportSubmitted(
		newNotifier(ctx, api.store, api.validator),
		slot.TeacherID,
		usr.Name,
		ordinal(slot, slots),
	); err != nil {
		api.logger.Error("notifying teacher of an upload", err, usr.Profile().Person())
	}
}

func (api *submissionApi) mySubmissions(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	subs, err := api.store.ListSubmissions(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return respond(ctx, http.StatusOK, subs)
}

// helpers

func sortSlots(slots []submission.Slot) []submission.Slot {
	if slots == nil {
		return []submission.Slot{}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].StartAt.Before(slots[j].StartAt) })
	return slots
}

func findSlot(slots []submission.Slot, id string) (submission.Slot, bool) {
	for _, slot := range slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return submission.Slot{}, false
}

// ordinal numbers slot among the slots of the same kind, by start time; eg. week 3.
func ordinal(slot submission.Slot, slots []submission.Slot) int {
	n := 1
	for _, s := range slots {
		if s.ID != slot.ID && s.Kind == slot.Kind && s.StartAt.Before(slot.StartAt) {
			n++
		}
	}
	return n
}

// latestSubmissions keeps the most recent submission of every student.
func latestSubmissions(subs []submission.Submission) map[string]submission.Submission {
	latest := make(map[string]submission.Submission, len(subs))
	for _, sub := range subs {
		if cur, ok := latest[sub.StudentID]; !ok || sub.SubmittedAt.After(cur.SubmittedAt) {
			latest[sub.StudentID] = sub
		}
	}
	return latest
}
