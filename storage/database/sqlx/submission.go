package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
)

type (
	slotRow struct {
		ID          string    `db:"id"`
		Title       string    `db:"title"`
		Kind        string    `db:"report_type"`
		Description string    `db:"description"`
		StartAt     time.Time `db:"start_at"`
		EndAt       time.Time `db:"end_at"`
		TeacherID   string    `db:"teacher_id"`
	}

	submissionRow struct {
		ID             string      `db:"id"`
		SlotID         string      `db:"slot_id"`
		StudentID      string      `db:"student_id"`
		Files          string      `db:"files"`
		SubmittedAt    time.Time   `db:"submitted_at"`
		Status         string      `db:"status"`
		TeacherComment null.String `db:"teacher_comment"`
	}
)

func (row slotRow) slot() submission.Slot {
	return submission.Slot{
		ID:          row.ID,
		Title:       row.Title,
		Kind:        submission.ReportKind(row.Kind),
		Description: row.Description,
		StartAt:     row.StartAt.UTC(),
		EndAt:       row.EndAt.UTC(),
		TeacherID:   row.TeacherID,
	}
}

func (row submissionRow) submission() (submission.Submission, error) {
	sub := submission.Submission{
		ID:             row.ID,
		SlotID:         row.SlotID,
		StudentID:      row.StudentID,
		SubmittedAt:    row.SubmittedAt.UTC(),
		Status:         submission.Status(row.Status),
		TeacherComment: row.TeacherComment,
	}
	if err := json.Unmarshal([]byte(row.Files), &sub.Files); err != nil {
		return submission.Submission{}, errors.Wrapf(err, "decoding files of %s", row.ID)
	}
	return sub, nil
}

func (s *DB) CreateSlot(ctx context.Context, slot submission.Slot) error {
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO submission_slots (id, title, report_type, description, start_at, end_at, teacher_id) "+
			"VALUES (:id, :title, :report_type, :description, :start_at, :end_at, :teacher_id)",
		slotRow{
			ID:          slot.ID,
			Title:       slot.Title,
			Kind:        string(slot.Kind),
			Description: slot.Description,
			StartAt:     slot.StartAt.UTC(),
			EndAt:       slot.EndAt.UTC(),
			TeacherID:   slot.TeacherID,
		},
	)
	return errors.Wrap(err, "inserting slot")
}

func (s *DB) GetSlot(ctx context.Context, id string) (submission.Slot, error) {
	var row slotRow
	if err := s.get(ctx, &row, "SELECT * FROM submission_slots WHERE id = ?", id); err != nil {
		return submission.Slot{}, errors.Wrap(err, "getting slot")
	}
	return row.slot(), nil
}

func (s *DB) ListSlots(ctx context.Context, teacherID string) ([]submission.Slot, error) {
	query, args := "SELECT * FROM submission_slots", []interface{}(nil)
	if teacherID != "" {
		query += " WHERE teacher_id = ?"
		args = append(args, teacherID)
	}
	var rows []slotRow
	if err := s.selectAll(ctx, &rows, query+" ORDER BY start_at", args...); err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	slots := make([]submission.Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, row.slot())
	}
	return slots, nil
}

func (s *DB) UpdateSlotTimes(ctx context.Context, id string, start, end time.Time) error {
	res, err := s.exec(ctx, "UPDATE submission_slots SET start_at = ?, end_at = ? WHERE id = ?", start.UTC(), end.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating slot times")
	}
	return mustAffect(res)
}

func (s *DB) CreateSubmission(ctx context.Context, sub submission.Submission) error {
	files := sub.Files
	if files == nil {
		files = []submission.File{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return errors.Wrap(err, "encoding files")
	}
	_, err = s.db.NamedExecContext(ctx,
		"INSERT INTO submissions (id, slot_id, student_id, files, submitted_at, status, teacher_comment) "+
			"VALUES (:id, :slot_id, :student_id, :files, :submitted_at, :status, :teacher_comment)",
		submissionRow{
			ID:             sub.ID,
			SlotID:         sub.SlotID,
			StudentID:      sub.StudentID,
			Files:          string(data),
			SubmittedAt:    sub.SubmittedAt.UTC(),
			Status:         string(sub.Status),
			TeacherComment: sub.TeacherComment,
		},
	)
	return errors.Wrap(err, "inserting submission")
}

func (s *DB) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	var row submissionRow
	if err := s.get(ctx, &row, "SELECT * FROM submissions WHERE id = ?", id); err != nil {
		return submission.Submission{}, errors.Wrap(err, "getting submission")
	}
	return row.submission()
}

func (s *DB) ListSubmissions(ctx context.Context, slotID, studentID string) ([]submission.Submission, error) {
	query, args := "SELECT * FROM submissions WHERE 1 = 1", []interface{}(nil)
	if slotID != "" {
		query += " AND slot_id = ?"
		args = append(args, slotID)
	}
	if studentID != "" {
		query += " AND student_id = ?"
		args = append(args, studentID)
	}
	var rows []submissionRow
	if err := s.selectAll(ctx, &rows, query+" ORDER BY submitted_at", args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := row.submission()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *DB) ReviewSubmission(ctx context.Context, id string, comment string, status submission.Status) error {
	res, err := s.exec(ctx, "UPDATE submissions SET teacher_comment = ?, status = ? WHERE id = ?", comment, string(status), id)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return mustAffect(res)
}
