package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

func (s *DB) GetEvaluation(ctx context.Context, studentID string) (database.Evaluation, error) {
	var ev database.Evaluation
	if err := s.get(ctx, &ev, "SELECT * FROM evaluations WHERE student_id = ?", studentID); err != nil {
		return database.Evaluation{}, errors.Wrap(err, "getting evaluation")
	}
	return ev, nil
}

func (s *DB) ListEvaluations(ctx context.Context, studentIDs ...string) ([]database.Evaluation, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := s.in("SELECT * FROM evaluations WHERE student_id IN (?)", studentIDs)
	if err != nil {
		return nil, err
	}
	var evals []database.Evaluation
	if err = s.db.SelectContext(ctx, &evals, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying evaluations")
	}
	return evals, nil
}

func (s *DB) SaveEvaluation(ctx context.Context, ev database.Evaluation) error {
	// upsert, understood by both sqlite and postgres
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO evaluations (student_id, company_id, score, remark, sent_at, updated_at) "+
			"VALUES (:student_id, :company_id, :score, :remark, :sent_at, :updated_at) "+
			"ON CONFLICT (student_id) DO UPDATE SET company_id = excluded.company_id, score = excluded.score, "+
			"remark = excluded.remark, sent_at = excluded.sent_at, updated_at = excluded.updated_at",
		ev,
	)
	return errors.Wrap(err, "saving evaluation")
}

func (s *DB) MarkEvaluationsSent(ctx context.Context, at time.Time, studentIDs ...string) (int, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	query, args, err := s.in("UPDATE evaluations SET sent_at = ? WHERE sent_at IS NULL AND student_id IN (?)", at.UTC(), studentIDs)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking evaluations sent")
	}
	return affected(res)
}

func (s *DB) SaveGrade(ctx context.Context, g database.Grade) error {
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO grades (student_id, teacher_id, score, remark, graded_at) "+
			"VALUES (:student_id, :teacher_id, :score, :remark, :graded_at) "+
			"ON CONFLICT (student_id) DO UPDATE SET teacher_id = excluded.teacher_id, score = excluded.score, "+
			"remark = excluded.remark, graded_at = excluded.graded_at",
		g,
	)
	return errors.Wrap(err, "saving grade")
}

func (s *DB) GetGrade(ctx context.Context, studentID string) (database.Grade, error) {
	var g database.Grade
	if err := s.get(ctx, &g, "SELECT * FROM grades WHERE student_id = ?", studentID); err != nil {
		return database.Grade{}, errors.Wrap(err, "getting grade")
	}
	return g, nil
}
