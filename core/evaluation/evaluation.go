// Package evaluation is the company side of the internship: a per-student score and remark,
// saved field by field, then sent to the advising teachers in one go.
package evaluation

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

var (
	ErrNothingToSend = errors.New("there are no evaluations to send: give at least one student a score or a remark")

	nowFunc = time.Now // mockable
)

type (
	StudentEvaluation struct {
		StudentID   string       `json:"student_id"`
		StudentCode string       `json:"student_code,omitempty"`
		StudentName string       `json:"student_name"`
		ClassName   string       `json:"class_name,omitempty"`
		Score       null.Float64 `json:"score"`
		Remark      null.String  `json:"remark"`
		SentAt      null.Time    `json:"sent_at"`
	}

	// Update carries the one field being saved; a nil field stays untouched on the backend.
	Update struct {
		Score  *null.Float64 `json:"score,omitempty"`
		Remark *null.String  `json:"remark,omitempty"`
	}

	// SubmitResult is the backend's answer to a bulk submit.
	SubmitResult struct {
		Count  int       `json:"count"`
		SentAt time.Time `json:"sent_at"`
	}

	Repository interface {
		List(ctx context.Context) ([]StudentEvaluation, error)
		Save(ctx context.Context, studentID string, u Update) (StudentEvaluation, error)
		SubmitAll(ctx context.Context, studentIDs []string) (SubmitResult, error)
	}
)

// Qualifies reports whether the evaluation has a score or a non-blank remark.
func (e StudentEvaluation) Qualifies() bool {
	return e.Score.Valid || (e.Remark.Valid && strings.TrimSpace(e.Remark.String) != "")
}

func (e StudentEvaluation) Sent() bool { return e.SentAt.Valid }

// Qualifying returns the evaluations that would be sent by SubmitAll.
func Qualifying(evals []StudentEvaluation) []StudentEvaluation {
	var out []StudentEvaluation
	for _, e := range evals {
		if e.Qualifies() {
			out = append(out, e)
		}
	}
	return out
}

type Service struct {
	repo   Repository
	logger core.Logger
}

func NewService(repo Repository, logger core.Logger) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Service{repo: repo, logger: logger}, nil
}

func (svc *Service) Evaluations(ctx context.Context) ([]StudentEvaluation, error) {
	return svc.repo.List(ctx)
}

// ValidScore reports whether score is a finite number between 0 and 10.
func ValidScore(score float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false
	}
	return score >= 0 && score <= 10
}

// SaveScore persists the score alone. A null score clears it.
func (svc *Service) SaveScore(ctx context.Context, studentID string, score null.Float64) (StudentEvaluation, error) {
	if score.Valid && !ValidScore(score.Float64) {
		return StudentEvaluation{}, core.NewValidationError(nil, core.FieldError{
			Field: "score",
			Error: "score must be between 0 and 10",
		})
	}
	return svc.repo.Save(ctx, studentID, Update{Score: &score})
}

// SaveRemark persists the remark alone. A blank remark is stored as null.
func (svc *Service) SaveRemark(ctx context.Context, studentID string, remark null.String) (StudentEvaluation, error) {
	if remark.Valid {
		remark.String = strings.TrimSpace(remark.String)
		if remark.String == "" {
			remark.Valid = false
		}
	}
	return svc.repo.Save(ctx, studentID, Update{Remark: &remark})
}

// SubmitAll sends every qualifying evaluation to the teachers and stamps sent_at on those
// that were not sent before. It returns the updated slice and the number of evaluations the
// backend reports as sent; evals is left untouched.
func (svc *Service) SubmitAll(ctx context.Context, evals []StudentEvaluation) ([]StudentEvaluation, int, error) {
	qualifying := Qualifying(evals)
	if len(qualifying) == 0 {
		return nil, 0, ErrNothingToSend
	}

	ids := make([]string, 0, len(qualifying))
	for _, e := range qualifying {
		ids = append(ids, e.StudentID)
	}
	res, err := svc.repo.SubmitAll(ctx, ids)
	if err != nil {
		return nil, 0, errors.Wrap(err, "submitting evaluations")
	}

	sentAt := res.SentAt
	if sentAt.IsZero() {
		sentAt = nowFunc().UTC()
	}
	out := make([]StudentEvaluation, len(evals))
	for i, e := range evals {
		if e.Qualifies() && !e.Sent() {
			e.SentAt = null.TimeFrom(sentAt)
		}
		out[i] = e
	}
	svc.logger.Info("evaluations sent", map[string]interface{}{"requested": len(ids), "count": res.Count})
	return out, res.Count, nil
}
