package echoapi

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/resource"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

type demoAccount struct {
	id, name, username, email string
	role                      core.Role
}

var demoAccounts = []demoAccount{
	{"admin", "Quan tri vien", "admin", "admin@example.edu.vn", core.RoleAdmin},
	{"gv001", "Le Van Cuong", "gv001", "cuong.lv@example.edu.vn", core.RoleTeacher},
	{"dn001", "FPT Software", "fptsoftware", "hr@fpt.example.vn", core.RoleCompany},
	{"sv001", "Nguyen Van An", "sv001", "an.nv@example.edu.vn", core.RoleStudent},
	{"sv002", "Tran Thi Binh", "sv002", "binh.tt@example.edu.vn", core.RoleStudent},
}

// Seed fills an empty store with one account per role, the matching records and an open
// weekly slot. Every account gets password. Accounts that already exist are left alone.
func Seed(ctx context.Context, store database.Store, password string) (created int, err error) {
	now := nowFunc().UTC().Truncate(time.Second)

	for _, acc := range demoAccounts {
		if _, err := store.GetUserByID(ctx, acc.id); err == nil {
			continue
		} else if errors.Cause(err) != user.ErrNotFound {
			return created, errors.Wrapf(err, "getting user %q", acc.id)
		}
		usr := user.User{
			ID:        acc.id,
			Name:      acc.name,
			Username:  acc.username,
			Email:     acc.email,
			Role:      acc.role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := usr.SetPassword(password); err != nil {
			return created, errors.Wrap(err, "hashing password")
		}
		if _, err := store.CreateUser(ctx, usr); err != nil {
			return created, errors.Wrapf(err, "creating user %q", acc.id)
		}
		created++
	}

	batchStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	err = PutResources(ctx, store,
		resource.Teacher{ID: "gv001", Code: "GV001", Name: "Le Van Cuong", Email: "cuong.lv@example.edu.vn",
			Department: "Cong nghe phan mem", Degree: "ThS", Status: ActiveStatus, CreatedAt: now},
		resource.Company{ID: "dn001", Code: "DN001", Name: "FPT Software", Address: "Ha Noi", Email: "hr@fpt.example.vn",
			Field: "Phan mem", Quota: 10, Status: ActiveStatus, CreatedAt: now},
		resource.Batch{ID: "dot1", Name: "Dot thuc tap " + batchStart.Format("01/2006"), StartDate: batchStart,
			EndDate: batchStart.AddDate(0, 3, 0), RegistrationDeadline: null.TimeFrom(batchStart.AddDate(0, 0, 14)),
			Status: ActiveStatus, CreatedAt: now},
		resource.Student{ID: "sv001", Code: "SV001", Name: "Nguyen Van An", Email: "an.nv@example.edu.vn", ClassName: "CNTT-K15",
			Status: ActiveStatus, TeacherID: null.StringFrom("gv001"), CompanyID: null.StringFrom("dn001"),
			BatchID: null.StringFrom("dot1"), CreatedAt: now},
		resource.Student{ID: "sv002", Code: "SV002", Name: "Tran Thi Binh", Email: "binh.tt@example.edu.vn", ClassName: "CNTT-K15",
			Status: ActiveStatus, TeacherID: null.StringFrom("gv001"), BatchID: null.StringFrom("dot1"), CreatedAt: now},
	)
	if err != nil {
		return created, err
	}

	if _, err := store.GetSlot(ctx, "tuan1"); errors.Cause(err) == database.ErrNotFound {
		slot := submission.Slot{
			ID:        "tuan1",
			Title:     "Bao cao tuan 1",
			Kind:      submission.KindWeekly,
			StartAt:   now.Add(-24 * time.Hour),
			EndAt:     now.Add(6 * 24 * time.Hour),
			TeacherID: "gv001",
		}
		if err := store.CreateSlot(ctx, slot); err != nil {
			return created, errors.Wrap(err, "creating slot")
		}
	} else if err != nil {
		return created, errors.Wrap(err, "getting slot")
	}
	return created, nil
}
