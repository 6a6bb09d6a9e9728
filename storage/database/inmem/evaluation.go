package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

func (db *DB) GetEvaluation(_ context.Context, studentID string) (database.Evaluation, error) {
	db.evaluations.mutex.RLock()
	defer db.evaluations.mutex.RUnlock()

	if ev, ok := db.evaluations.rows[studentID]; ok {
		return *ev, nil
	}
	return database.Evaluation{}, database.ErrNotFound
}

func (db *DB) ListEvaluations(_ context.Context, studentIDs ...string) ([]database.Evaluation, error) {
	db.evaluations.mutex.RLock()
	defer db.evaluations.mutex.RUnlock()

	evals := make([]database.Evaluation, 0, len(studentIDs))
	for _, id := range studentIDs {
		if ev, ok := db.evaluations.rows[id]; ok {
			evals = append(evals, *ev)
		}
	}
	return evals, nil
}

func (db *DB) SaveEvaluation(_ context.Context, ev database.Evaluation) error {
	db.evaluations.mutex.Lock()
	defer db.evaluations.mutex.Unlock()

	db.evaluations.put(ev.StudentID, ev)
	return nil
}

func (db *DB) MarkEvaluationsSent(_ context.Context, at time.Time, studentIDs ...string) (int, error) {
	db.evaluations.mutex.Lock()
	defer db.evaluations.mutex.Unlock()

	var count int
	for _, id := range studentIDs {
		if ev, ok := db.evaluations.rows[id]; ok && !ev.SentAt.Valid {
			ev.SentAt = null.TimeFrom(at)
			count++
		}
	}
	return count, nil
}

func (db *DB) SaveGrade(_ context.Context, g database.Grade) error {
	db.grades.mutex.Lock()
	defer db.grades.mutex.Unlock()

	db.grades.put(g.StudentID, g)
	return nil
}

func (db *DB) GetGrade(_ context.Context, studentID string) (database.Grade, error) {
	db.grades.mutex.RLock()
	defer db.grades.mutex.RUnlock()

	if g, ok := db.grades.rows[studentID]; ok {
		return *g, nil
	}
	return database.Grade{}, database.ErrNotFound
}
