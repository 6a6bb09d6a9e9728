package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

func (db *DB) CreateSlot(_ context.Context, slot submission.Slot) error {
	db.slots.mutex.Lock()
	defer db.slots.mutex.Unlock()

	db.slots.put(slot.ID, slot)
	return nil
}

func (db *DB) GetSlot(_ context.Context, id string) (submission.Slot, error) {
	db.slots.mutex.RLock()
	defer db.slots.mutex.RUnlock()

	if slot, ok := db.slots.rows[id]; ok {
		return *slot, nil
	}
	return submission.Slot{}, database.ErrNotFound
}

func (db *DB) ListSlots(_ context.Context, teacherID string) ([]submission.Slot, error) {
	db.slots.mutex.RLock()
	defer db.slots.mutex.RUnlock()

	return db.slots.query(func(s submission.Slot) bool { return teacherID == "" || s.TeacherID == teacherID }), nil
}

func (db *DB) UpdateSlotTimes(_ context.Context, id string, start, end time.Time) error {
	db.slots.mutex.Lock()
	defer db.slots.mutex.Unlock()

	slot, ok := db.slots.rows[id]
	if !ok {
		return database.ErrNotFound
	}
	slot.StartAt, slot.EndAt = start, end
	return nil
}

func (db *DB) CreateSubmission(_ context.Context, sub submission.Submission) error {
	db.submissions.mutex.Lock()
	defer db.submissions.mutex.Unlock()

	sub.Files = append([]submission.File(nil), sub.Files...)
	db.submissions.put(sub.ID, sub)
	return nil
}

func (db *DB) GetSubmission(_ context.Context, id string) (submission.Submission, error) {
	db.submissions.mutex.RLock()
	defer db.submissions.mutex.RUnlock()

	if sub, ok := db.submissions.rows[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, database.ErrNotFound
}

func (db *DB) ListSubmissions(_ context.Context, slotID, studentID string) ([]submission.Submission, error) {
	db.submissions.mutex.RLock()
	defer db.submissions.mutex.RUnlock()

	return db.submissions.query(func(s submission.Submission) bool {
		return (slotID == "" || s.SlotID == slotID) && (studentID == "" || s.StudentID == studentID)
	}), nil
}

func (db *DB) ReviewSubmission(_ context.Context, id string, comment string, status submission.Status) error {
	db.submissions.mutex.Lock()
	defer db.submissions.mutex.Unlock()

	sub, ok := db.submissions.rows[id]
	if !ok {
		return database.ErrNotFound
	}
	sub.TeacherComment = null.StringFrom(comment)
	sub.Status = status
	return nil
}
