// Package submission drives the report submission workflow: teachers open time-windowed slots
// and review what students upload into them.
package submission

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

var (
	ErrWindowClosed = errors.New("this slot is not open for submissions")
	ErrNoFiles      = errors.New("select at least one file to upload")

	nowFunc = time.Now // mockable
)

type Service struct {
	repo      Repository
	logger    core.Logger
	validator *core.Validator
}

func NewService(repo Repository, logger core.Logger) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Service{repo: repo, logger: logger, validator: core.NewValidator()}, nil
}

// ValidateSlot checks the fields and the time window of a new slot.
func (svc *Service) ValidateSlot(ns NewSlot) error {
	var flds []core.FieldError
	if err := svc.validator.Struct(ns); err != nil {
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			return err
		}
		flds = append(flds, vErr.Fields...)
	}
	if err := core.ValidateWindow(ns.StartAt, ns.EndAt); err != nil {
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			return err
		}
		if len(flds) == 0 {
			return vErr
		}
		flds = append(flds, vErr.Fields...)
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (svc *Service) CreateSlot(ctx context.Context, ns NewSlot) (Slot, error) {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	if err := svc.ValidateSlot(ns); err != nil {
		return Slot{}, err
	}
	return svc.repo.CreateSlot(ctx, ns)
}

func (svc *Service) TeacherSlots(ctx context.Context) ([]Slot, error) {
	return svc.repo.TeacherSlots(ctx)
}

// UpdateTimes moves the window of a slot. Submissions already accepted are left as they are.
func (svc *Service) UpdateTimes(ctx context.Context, slotID string, start, end time.Time) (Slot, error) {
	if err := core.ValidateWindow(start, end); err != nil {
		return Slot{}, err
	}
	return svc.repo.UpdateTimes(ctx, slotID, SlotTimes{StartAt: start, EndAt: end})
}

func (svc *Service) Statuses(ctx context.Context, slotID string) ([]StudentStatus, Summary, error) {
	rows, err := svc.repo.Statuses(ctx, slotID)
	if err != nil {
		return nil, Summary{}, err
	}
	return rows, Summarize(rows), nil
}

// Comment attaches feedback to a submission and optionally sets its status.
func (svc *Service) Comment(ctx context.Context, submissionID, text string, status Status) (Submission, error) {
	c := Comment{Text: core.CleanString(text), Status: status}
	if err := svc.validator.Struct(c); err != nil {
		return Submission{}, err
	}
	return svc.repo.Comment(ctx, submissionID, c)
}

func (svc *Service) StudentSlots(ctx context.Context) ([]Slot, error) {
	return svc.repo.StudentSlots(ctx)
}

func (svc *Service) OpenSlots(ctx context.Context) ([]Slot, error) {
	return svc.repo.OpenSlots(ctx)
}

// CanUpload reports whether slot accepts uploads at now.
func (svc *Service) CanUpload(slot Slot, now time.Time) bool {
	return core.IsWithinWindow(now, slot.StartAt, slot.EndAt)
}

// Upload sends files to slot. It refuses before any request when the window is closed.
func (svc *Service) Upload(ctx context.Context, slot Slot, files []Attachment) ([]Submission, error) {
	if !svc.CanUpload(slot, nowFunc()) {
		return nil, ErrWindowClosed
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	subs, err := svc.repo.Upload(ctx, slot.ID, files)
	if err != nil {
		return nil, errors.Wrapf(err, "uploading to slot %s", slot.ID)
	}
	return subs, nil
}

func (svc *Service) MySubmissions(ctx context.Context, slotID string) ([]Submission, error) {
	return svc.repo.MySubmissions(ctx, slotID)
}
