// Package registration submits a student's internship registration.
package registration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

// Preference is where the student wants to do the internship.
type Preference string

const (
	PreferenceSchool       Preference = "nha_truong" // placed by the school
	PreferenceSelfArranged Preference = "tu_lien_he" // found by the student
)

type (
	Form struct {
		Preference     Preference `json:"nguyen_vong_thuc_tap" validate:"required,oneof=nha_truong tu_lien_he"`
		CompanyName    string     `json:"cong_ty_tu_lien_he,omitempty"`
		CompanyAddress string     `json:"dia_chi_cong_ty,omitempty"`
		ContactName    string     `json:"nguoi_lien_he_cong_ty,omitempty"`
		ContactPhone   string     `json:"sdt_nguoi_lien_he,omitempty" validate:"omitempty,max=20"`
		BatchID        string     `json:"dot_thuc_tap_id" validate:"required"`
		Note           string     `json:"ghi_chu,omitempty"`
	}

	Registration struct {
		ID        string `json:"id"`
		StudentID string `json:"student_id"`
		Form
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}

	Repository interface {
		Submit(ctx context.Context, f Form) (Registration, error)
	}
)

func (f *Form) Clean() {
	f.Preference = Preference(core.CleanString(string(f.Preference), true /* lower */))
	f.CompanyName = core.CleanString(f.CompanyName)
	f.CompanyAddress = core.CleanString(f.CompanyAddress)
	f.ContactName = core.CleanString(f.ContactName)
	f.ContactPhone = core.CleanString(f.ContactPhone)
	f.BatchID = core.CleanString(f.BatchID)
	f.Note = core.CleanString(f.Note)
	if f.Preference == PreferenceSchool {
		f.CompanyName, f.CompanyAddress, f.ContactName, f.ContactPhone = "", "", "", ""
	}
}

// companyFields lists the company details a self-arranged internship needs, in form order.
func (f Form) companyFields() []struct{ name, value string } {
	return []struct{ name, value string }{
		{"cong_ty_tu_lien_he", f.CompanyName},
		{"dia_chi_cong_ty", f.CompanyAddress},
		{"nguoi_lien_he_cong_ty", f.ContactName},
		{"sdt_nguoi_lien_he", f.ContactPhone},
	}
}

// Validate checks the form. Missing company details of a self-arranged internship are reported
// together, alongside any other field errors, as one error.
func (f Form) Validate(v *core.Validator) error {
	var flds []core.FieldError
	if err := v.Struct(f); err != nil {
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			return err
		}
		flds = append(flds, vErr.Fields...)
	}

	var missing []string
	if f.Preference == PreferenceSelfArranged {
		for _, fld := range f.companyFields() {
			if strings.TrimSpace(fld.value) == "" {
				missing = append(missing, fld.name)
				flds = append(flds, core.FieldError{Field: fld.name, Error: "this field is required"})
			}
		}
	}
	if len(flds) == 0 {
		return nil
	}

	var err error
	if len(missing) > 0 {
		err = fmt.Errorf("please fill in the company details: %s", strings.Join(missing, ", "))
	}
	return core.NewValidationError(err, flds...)
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

func (svc *Service) Submit(ctx context.Context, f Form) (Registration, error) {
	f.Clean()
	if err := f.Validate(svc.validator); err != nil {
		return Registration{}, err
	}
	return svc.repo.Submit(ctx, f)
}
