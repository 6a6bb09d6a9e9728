package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

var ErrNotFound = errors.New("not found")

type (
	// Document is a stored resource (student, teacher, company, batch or report). Data holds the
	// JSON of the resource; the other columns are copies used to search, filter and sort.
	Document struct {
		Kind      string      `db:"kind"`
		ID        string      `db:"id"`
		Code      string      `db:"code"`
		Name      string      `db:"name"`
		Status    string      `db:"status"`
		TeacherID null.String `db:"teacher_id"`
		CompanyID null.String `db:"company_id"`
		Data      []byte      `db:"data"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	// DocQuery filters documents of one kind. Search matches code or name, case-insensitive.
	DocQuery struct {
		Kind      string
		Search    string
		Status    string
		TeacherID string
		CompanyID string
		Ordering  []core.Ordering // on code, name, status, created_at or updated_at
		Limit     int             // 0: no limit
		Offset    int
	}

	// Evaluation is the company's record of a student.
	Evaluation struct {
		StudentID string       `db:"student_id"`
		CompanyID string       `db:"company_id"`
		Score     null.Float64 `db:"score"`
		Remark    null.String  `db:"remark"`
		SentAt    null.Time    `db:"sent_at"`
		UpdatedAt time.Time    `db:"updated_at"`
	}

	Grade struct {
		StudentID string    `db:"student_id"`
		TeacherID string    `db:"teacher_id"`
		Score     float64   `db:"score"`
		Remark    string    `db:"remark"`
		GradedAt  time.Time `db:"graded_at"`
	}

	NotificationStore interface {
		ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error)
		CreateNotification(ctx context.Context, n notification.Notification) error
		// SetNotificationsRead marks the listed notifications of userID read and returns how many changed.
		SetNotificationsRead(ctx context.Context, userID string, ids ...string) (int, error)
		DeleteNotification(ctx context.Context, userID, id string) error
	}

	SubmissionStore interface {
		CreateSlot(ctx context.Context, slot submission.Slot) error
		GetSlot(ctx context.Context, id string) (submission.Slot, error)
		// ListSlots returns the slots of teacherID, or every slot when teacherID is empty.
		ListSlots(ctx context.Context, teacherID string) ([]submission.Slot, error)
		UpdateSlotTimes(ctx context.Context, id string, start, end time.Time) error
		CreateSubmission(ctx context.Context, sub submission.Submission) error
		GetSubmission(ctx context.Context, id string) (submission.Submission, error)
		// ListSubmissions filters on slot and student; an empty filter matches everything.
		ListSubmissions(ctx context.Context, slotID, studentID string) ([]submission.Submission, error)
		ReviewSubmission(ctx context.Context, id string, comment string, status submission.Status) error
	}

	EvaluationStore interface {
		GetEvaluation(ctx context.Context, studentID string) (Evaluation, error)
		ListEvaluations(ctx context.Context, studentIDs ...string) ([]Evaluation, error)
		SaveEvaluation(ctx context.Context, ev Evaluation) error
		// MarkEvaluationsSent stamps sent_at on the listed evaluations not sent yet.
		MarkEvaluationsSent(ctx context.Context, at time.Time, studentIDs ...string) (int, error)
		SaveGrade(ctx context.Context, g Grade) error
		GetGrade(ctx context.Context, studentID string) (Grade, error)
	}

	RegistrationStore interface {
		CreateRegistration(ctx context.Context, reg registration.Registration) error
		ListRegistrations(ctx context.Context, studentID string) ([]registration.Registration, error)
	}

	DocumentStore interface {
		PutDocument(ctx context.Context, doc Document) error
		GetDocument(ctx context.Context, kind, id string) (Document, error)
		// ListDocuments returns one page of matches and the total count of matches.
		ListDocuments(ctx context.Context, q DocQuery) ([]Document, int, error)
		DeleteDocument(ctx context.Context, kind, id string) error
	}

	// Store is everything the development backend persists.
	Store interface {
		user.Repository
		NotificationStore
		SubmissionStore
		EvaluationStore
		RegistrationStore
		DocumentStore
		Close() error
	}
)

// OrderableFields are the document columns a DocQuery may sort on.
var OrderableFields = map[string]bool{
	"code":       true,
	"name":       true,
	"status":     true,
	"created_at": true,
	"updated_at": true,
}
