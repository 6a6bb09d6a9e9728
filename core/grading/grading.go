// Package grading records a teacher's final grade for a student's internship.
package grading

import (
	"context"
	"strconv"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

var ErrScoreRequired = errors.New("please select a score before saving")

// CannedRemarks are the phrases offered next to the free text remark.
var CannedRemarks = []string{
	"Excellent work, fully met the internship objectives.",
	"Good work, met most of the internship objectives.",
	"Satisfactory, some objectives still need improvement.",
	"Needs improvement in attendance and reporting.",
	"Did not meet the internship objectives.",
}

type (
	Grade struct {
		Score  float64 `json:"score" validate:"halfpoint"`
		Remark string  `json:"remark"`
	}

	// Result is what the backend stored.
	Result struct {
		StudentID string  `json:"student_id"`
		Score     float64 `json:"score"`
		Remark    string  `json:"remark"`
		GradedBy  string  `json:"graded_by,omitempty"`
	}

	Repository interface {
		Grade(ctx context.Context, studentID string, g Grade) (Result, error)
	}
)

// Scale returns every selectable score, 0.0 to 10.0 in steps of 0.5.
func Scale() []float64 {
	scale := make([]float64, 0, 21)
	for i := 0; i <= 20; i++ {
		scale = append(scale, float64(i)/2)
	}
	return scale
}

// ParseScore reads a score as typed or selected by the user.
func ParseScore(input string) (float64, error) {
	input = strings.TrimSpace(strings.Replace(input, ",", ".", 1))
	if input == "" {
		return 0, ErrScoreRequired
	}
	score, err := strconv.ParseFloat(input, 64)
	if err != nil || !core.IsHalfPoint(score) {
		return 0, core.NewValidationError(nil, core.FieldError{
			Field: "score",
			Error: "score must be between 0 and 10 in steps of 0.5",
		})
	}
	return score, nil
}

type Service struct {
	repo      Repository
	validator *core.Validator
}

func NewService(repo Repository) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
	).Check(); err != nil {
		return nil, err
	}
	return &Service{repo: repo, validator: core.NewValidator()}, nil
}

// Grade saves the score and the optional remark together. An empty score never reaches the backend.
func (svc *Service) Grade(ctx context.Context, studentID, scoreInput, remark string) (Result, error) {
	score, err := ParseScore(scoreInput)
	if err != nil {
		return Result{}, err
	}
	g := Grade{Score: score, Remark: core.CleanString(remark)}
	if err := svc.validator.Struct(g); err != nil {
		return Result{}, err
	}
	return svc.repo.Grade(ctx, studentID, g)
}
