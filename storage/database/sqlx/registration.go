package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
)

type registrationRow struct {
	ID             string    `db:"id"`
	StudentID      string    `db:"student_id"`
	Preference     string    `db:"preference"`
	CompanyName    string    `db:"company_name"`
	CompanyAddress string    `db:"company_address"`
	ContactName    string    `db:"contact_name"`
	ContactPhone   string    `db:"contact_phone"`
	BatchID        string    `db:"batch_id"`
	Note           string    `db:"note"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

func (s *DB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO registrations (id, student_id, preference, company_name, company_address, contact_name, "+
			"contact_phone, batch_id, note, status, created_at) VALUES (:id, :student_id, :preference, :company_name, "+
			":company_address, :contact_name, :contact_phone, :batch_id, :note, :status, :created_at)",
		registrationRow{
			ID:             reg.ID,
			StudentID:      reg.StudentID,
			Preference:     string(reg.Preference),
			CompanyName:    reg.CompanyName,
			CompanyAddress: reg.CompanyAddress,
			ContactName:    reg.ContactName,
			ContactPhone:   reg.ContactPhone,
			BatchID:        reg.BatchID,
			Note:           reg.Note,
			Status:         reg.Status,
			CreatedAt:      reg.CreatedAt.UTC(),
		},
	)
	return errors.Wrap(err, "inserting registration")
}

func (s *DB) ListRegistrations(ctx context.Context, studentID string) ([]registration.Registration, error) {
	query, args := "SELECT * FROM registrations", []interface{}(nil)
	if studentID != "" {
		query += " WHERE student_id = ?"
		args = append(args, studentID)
	}
	var rows []registrationRow
	if err := s.selectAll(ctx, &rows, query+" ORDER BY created_at", args...); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]registration.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, registration.Registration{
			ID:        row.ID,
			StudentID: row.StudentID,
			Form: registration.Form{
				Preference:     registration.Preference(row.Preference),
				CompanyName:    row.CompanyName,
				CompanyAddress: row.CompanyAddress,
				ContactName:    row.ContactName,
				ContactPhone:   row.ContactPhone,
				BatchID:        row.BatchID,
				Note:           row.Note,
			},
			Status:    row.Status,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return regs, nil
}
