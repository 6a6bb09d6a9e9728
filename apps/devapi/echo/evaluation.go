package echoapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/evaluation"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/grading"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/resource"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

var errEvaluationSent = core.NewValidationError(errors.New("this evaluation was already sent and can no longer be changed"))

type evaluationApi struct {
	store     database.Store
	validator *core.Validator
	logger    core.Logger
}

func registerEvaluationAPI(g *echo.Group, authed []echo.MiddlewareFunc, s *Server) {
	api := evaluationApi{store: s.Store, validator: s.Validator, logger: s.Logger}

	cg := g.Group("/company-internships", with(authed, roleMiddleware(core.RoleCompany))...)
	cg.GET("/students", api.query)
	cg.PUT("/students/:id/evaluation", api.save)
	cg.POST("/submit-all-evaluations", api.submitAll)

	tg := g.Group("/teacher-reports", with(authed, roleMiddleware(core.RoleTeacher))...)
	tg.POST("/students/:id/grade", api.grade)
}

type SubmitAllRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
}

// GradeRequest needs an explicit score; a missing or null one is rejected rather than read as 0.
type GradeRequest struct {
	Score  *float64 `json:"score" validate:"required,halfpoint"`
	Remark string   `json:"remark"`
}

// query returns the evaluation sheet: every student hosted by the company, evaluated or not.
func (api *evaluationApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	students, err := studentsOf(rctx, api.store, "", usr.ID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	evals, err := api.store.ListEvaluations(rctx, ids...)
	if err != nil {
		return errors.Wrap(err, "listing evaluations")
	}
	byStudent := make(map[string]database.Evaluation, len(evals))
	for _, ev := range evals {
		byStudent[ev.StudentID] = ev
	}

	sheet := make([]evaluation.StudentEvaluation, 0, len(students))
	for _, st := range students {
		sheet = append(sheet, studentEvaluation(st, byStudent[st.ID]))
	}
	return respond(ctx, http.StatusOK, sheet)
}

// save applies the fields present in the body; a field sent as null is cleared.
func (api *evaluationApi) save(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	st, err := api.hostedStudent(ctx, usr.ID)
	if err != nil {
		return err
	}

	// decoded by hand: a field sent as null must be told apart from a missing one
	var body map[string]json.RawMessage
	if err := json.NewDecoder(ctx.Request().Body).Decode(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid evaluation update").SetInternal(err)
	}

	ev, err := api.store.GetEvaluation(rctx, st.ID)
	switch {
	case errors.Cause(err) == database.ErrNotFound:
		ev = database.Evaluation{StudentID: st.ID}
	case err != nil:
		return errors.Wrap(err, "getting evaluation")
	}
	if ev.SentAt.Valid {
		return errEvaluationSent
	}

	if raw, ok := body["score"]; ok {
		var score null.Float64
		if err := json.Unmarshal(raw, &score); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "score must be a number"})
		}
		if score.Valid && !evaluation.ValidScore(score.Float64) {
			return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "score must be between 0 and 10"})
		}
		ev.Score = score
	}
	if raw, ok := body["remark"]; ok {
		var remark null.String
		if err := json.Unmarshal(raw, &remark); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "remark", Error: "remark must be a string"})
		}
		remark.String = strings.TrimSpace(remark.String)
		if remark.String == "" {
			remark = null.String{}
		}
		ev.Remark = remark
	}

	ev.CompanyID = usr.ID
	ev.UpdatedAt = nowFunc().UTC()
	if err := api.store.SaveEvaluation(rctx, ev); err != nil {
		return errors.Wrap(err, "saving evaluation")
	}
	return respond(ctx, http.StatusOK, studentEvaluation(st, ev))
}

// submitAll sends the qualifying evaluations among student_ids. Those sent before keep their
// sent_at; students of other companies are ignored.
func (api *evaluationApi) submitAll(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	var data SubmitAllRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAllRequest")
	}
	if err := api.validator.Struct(data); err != nil {
		return err
	}

	students, err := studentsOf(rctx, api.store, "", usr.ID)
	if err != nil {
		return err
	}
	hosted := make(map[string]resource.Student, len(students))
	for _, st := range students {
		hosted[st.ID] = st
	}
	var ids []string
	for _, id := range data.StudentIDs {
		if _, ok := hosted[id]; ok {
			ids = append(ids, id)
		}
	}

	evals, err := api.store.ListEvaluations(rctx, ids...)
	if err != nil {
		return errors.Wrap(err, "listing evaluations")
	}
	var qualifying []string
	for _, ev := range evals {
		if studentEvaluation(hosted[ev.StudentID], ev).Qualifies() {
			qualifying = append(qualifying, ev.StudentID)
		}
	}
	if len(qualifying) == 0 {
		return core.NewValidationError(evaluation.ErrNothingToSend)
	}

	sentAt := nowFunc().UTC().Truncate(time.Second)
	n, err := api.store.MarkEvaluationsSent(rctx, sentAt, qualifying...)
	if err != nil {
		return errors.Wrap(err, "marking evaluations sent")
	}
	api.logger.Info("evaluations sent", map[string]interface{}{"company": usr.ID, "count": n})
	return respond(ctx, http.StatusOK, evaluation.SubmitResult{Count: n, SentAt: sentAt})
}

func (api *evaluationApi) hostedStudent(ctx echo.Context, companyID string) (resource.Student, error) {
	st, err := getStudent(ctx.Request().Context(), api.store, ctx.Param("id"))
	if err != nil {
		return resource.Student{}, err
	}
	if st.CompanyID.String != companyID {
		return resource.Student{}, errHttpNotFound
	}
	return st, nil
}

// grade records the advising teacher's final grade, replacing any previous one.
func (api *evaluationApi) grade(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	st, err := getStudent(rctx, api.store, ctx.Param("id"))
	if err != nil {
		return err
	}
	if usr.Role != core.RoleAdmin && st.TeacherID.String != usr.ID {
		return errHttpNotFound
	}

	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	data.Remark = core.CleanString(data.Remark)
	if err := api.validator.Struct(data); err != nil {
		return err
	}

	g := database.Grade{
		StudentID: st.ID,
		TeacherID: usr.ID,
		Score:     *data.Score,
		Remark:    data.Remark,
		GradedAt:  nowFunc().UTC(),
	}
	if err := api.store.SaveGrade(rctx, g); err != nil {
		return errors.Wrap(err, "saving grade")
	}
	return respond(ctx, http.StatusOK, grading.Result{
		StudentID: st.ID,
		Score:     g.Score,
		Remark:    g.Remark,
		GradedBy:  usr.Name,
	})
}

func studentEvaluation(st resource.Student, ev database.Evaluation) evaluation.StudentEvaluation {
	return evaluation.StudentEvaluation{
		StudentID:   st.ID,
		StudentCode: st.Code,
		StudentName: st.Name,
		ClassName:   st.ClassName,
		Score:       ev.Score,
		Remark:      ev.Remark,
		SentAt:      ev.SentAt,
	}
}
