package submission

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"
)

// ReportKind is the kind of report a slot collects.
type ReportKind string

const (
	KindWeekly  ReportKind = "tuan"
	KindMonthly ReportKind = "thang"
	KindFinal   ReportKind = "cuoi_ky"
	KindSummary ReportKind = "tong_ket"
)

var AllKinds = []ReportKind{KindWeekly, KindMonthly, KindFinal, KindSummary}

func (k ReportKind) Label() string {
	switch k {
	case KindWeekly:
		return "weekly"
	case KindMonthly:
		return "monthly"
	case KindFinal:
		return "final"
	case KindSummary:
		return "summary"
	}
	return string(k)
}

// Status of a (slot, student) pair.
type Status string

const (
	StatusNotSubmitted Status = "chua_nop"
	StatusSubmitted    Status = "da_nop"
	StatusApproved     Status = "da_duyet"
	StatusRejected     Status = "tu_choi"
)

var AllStatuses = []Status{StatusNotSubmitted, StatusSubmitted, StatusApproved, StatusRejected}

func (s Status) Label() string {
	switch s {
	case StatusNotSubmitted:
		return "not submitted"
	case StatusSubmitted:
		return "submitted"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	}
	return string(s)
}

// CanTransition reports whether a submission may move from s to to.
// Only a student upload leaves chua_nop; reviewed submissions never go back to da_nop.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusNotSubmitted:
		return to == StatusSubmitted
	case StatusSubmitted:
		return to == StatusSubmitted || to == StatusApproved || to == StatusRejected
	case StatusApproved, StatusRejected:
		return to == StatusApproved || to == StatusRejected
	}
	return false
}

type (
	Slot struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Kind        ReportKind `json:"report_type"`
		Description string     `json:"description,omitempty"`
		StartAt     time.Time  `json:"start_at"`
		EndAt       time.Time  `json:"end_at"`
		TeacherID   string     `json:"teacher_id"`
	}

	NewSlot struct {
		Title       string     `json:"title" validate:"notblank,max=255"`
		Kind        ReportKind `json:"report_type" validate:"required,oneof=tuan thang cuoi_ky tong_ket"`
		Description string     `json:"description,omitempty"`
		StartAt     time.Time  `json:"start_at"`
		EndAt       time.Time  `json:"end_at"`
	}

	// SlotTimes is the body of a time window edit.
	SlotTimes struct {
		StartAt time.Time `json:"start_at"`
		EndAt   time.Time `json:"end_at"`
	}

	// File is a reference to an uploaded file.
	File struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	// Attachment is a file picked for upload.
	Attachment struct {
		Name    string
		Content []byte
	}

	Submission struct {
		ID             string       `json:"id"`
		SlotID         string       `json:"slot_id"`
		StudentID      string       `json:"student_id"`
		Files          []File       `json:"files"`
		SubmittedAt    time.Time    `json:"submitted_at"`
		Status         Status       `json:"status"`
		TeacherComment null.String  `json:"teacher_comment"`
		CompanyScore   null.Float64 `json:"company_score"`
		CompanyComment null.String  `json:"company_comment"`
	}

	// StudentStatus is one row of the teacher's per-slot status grid.
	StudentStatus struct {
		StudentID      string       `json:"student_id"`
		StudentCode    string       `json:"student_code"`
		StudentName    string       `json:"student_name"`
		ClassName      string       `json:"class_name"`
		SubmissionID   null.String  `json:"submission_id"`
		Status         Status       `json:"status"`
		SubmittedAt    null.Time    `json:"submitted_at"`
		File           *File        `json:"file,omitempty"`
		TeacherComment null.String  `json:"teacher_comment"`
		CompanyScore   null.Float64 `json:"company_score"`
		CompanyComment null.String  `json:"company_comment"`
	}

	// Comment is a teacher's feedback on a submission; an empty Status keeps the current one.
	Comment struct {
		Text   string `json:"comment" validate:"notblank"`
		Status Status `json:"status,omitempty" validate:"omitempty,oneof=da_nop da_duyet tu_choi"`
	}

	// Summary counts the students of a slot per status.
	Summary struct {
		Total        int
		NotSubmitted int
		Submitted    int
		Approved     int
		Rejected     int
	}

	Repository interface {
		CreateSlot(ctx context.Context, ns NewSlot) (Slot, error)
		TeacherSlots(ctx context.Context) ([]Slot, error)
		UpdateTimes(ctx context.Context, slotID string, times SlotTimes) (Slot, error)
		Statuses(ctx context.Context, slotID string) ([]StudentStatus, error)
		Comment(ctx context.Context, submissionID string, c Comment) (Submission, error)
		StudentSlots(ctx context.Context) ([]Slot, error)
		OpenSlots(ctx context.Context) ([]Slot, error)
		Upload(ctx context.Context, slotID string, files []Attachment) ([]Submission, error)
		MySubmissions(ctx context.Context, slotID string) ([]Submission, error)
	}
)

// Summarize counts rows per status; unknown statuses count as not submitted.
func Summarize(rows []StudentStatus) Summary {
	sum := Summary{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case StatusSubmitted:
			sum.Submitted++
		case StatusApproved:
			sum.Approved++
		case StatusRejected:
			sum.Rejected++
		default:
			sum.NotSubmitted++
		}
	}
	return sum
}

// Handed counts the students who uploaded something, whatever the review outcome.
func (s Summary) Handed() int {
	return s.Submitted + s.Approved + s.Rejected
}
