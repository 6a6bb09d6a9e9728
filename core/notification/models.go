package notification

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

// Severity is the visual weight of a notification; sent as "type" on the wire.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ActionType tells the UI what a click on the notification leads to.
type ActionType string

const (
	ActionReportSubmission ActionType = "report_submission"
	ActionReportDeadline   ActionType = "report_deadline"
	ActionRegistration     ActionType = "registration"
	ActionAssignment       ActionType = "assignment"
	ActionSystem           ActionType = "system"
)

type (
	Metadata struct {
		StudentName string    `json:"student_name,omitempty"`
		TeacherName string    `json:"teacher_name,omitempty"`
		CompanyName string    `json:"company_name,omitempty"`
		WeekNumber  int       `json:"week_number,omitempty"`
		Deadline    null.Time `json:"deadline"`
	}

	Notification struct {
		ID         string     `json:"id"`
		Title      string     `json:"title"`
		Message    string     `json:"message"`
		Severity   Severity   `json:"type"`
		Read       bool       `json:"read"`
		CreatedAt  time.Time  `json:"created_at"`
		UserID     string     `json:"user_id"`
		UserRole   core.Role  `json:"user_role"`
		ActionType ActionType `json:"action_type,omitempty"`
		ActionURL  string     `json:"action_url,omitempty"`
		Metadata   *Metadata  `json:"metadata,omitempty"`
	}

	// NewNotification is what callers provide; the store fills id, timestamp and read flag.
	NewNotification struct {
		Title      string     `json:"title" validate:"notblank"`
		Message    string     `json:"message"`
		Severity   Severity   `json:"type" validate:"omitempty,oneof=info success warning error"`
		UserID     string     `json:"user_id"`
		UserRole   core.Role  `json:"user_role"`
		ActionType ActionType `json:"action_type" validate:"omitempty,oneof=report_submission report_deadline registration assignment system"`
		ActionURL  string     `json:"action_url"`
		Metadata   *Metadata  `json:"metadata"`
	}

	// Repository is the server side of the store.
	Repository interface {
		List(ctx context.Context) ([]Notification, error)
		Create(ctx context.Context, n Notification) error
		MarkRead(ctx context.Context, id string) error
		MarkManyRead(ctx context.Context, ids []string) error
		Delete(ctx context.Context, id string) error
	}

	// Snapshot is the store state handed to subscribers. Seq grows with every change; listeners
	// may run concurrently, so a snapshot with a lower Seq than one already seen is stale.
	Snapshot struct {
		Seq         uint64
		Items       []Notification
		UnreadCount int
	}
)

func (nn NewNotification) clean() NewNotification {
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	if nn.Severity == "" {
		nn.Severity = SeverityInfo
	}
	return nn
}

// CountUnread counts the notifications whose read flag is false.
func CountUnread(items []Notification) int {
	var n int
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}
