package resource

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Base paths of the list endpoints.
const (
	PathStudents  = "/students"
	PathTeachers  = "/teachers"
	PathCompanies = "/companies"
	PathBatches   = "/batches"
	PathReports   = "/reports"
)

// Key holds the fields every resource is searched, filtered and sorted on.
type Key struct {
	Code   string
	Name   string
	Status string
}

// Keyed is implemented by every resource type.
type Keyed interface {
	Key() Key
}

type (
	Student struct {
		ID        string      `json:"id"`
		Code      string      `json:"ma_sinh_vien" validate:"required,max=20"`
		Name      string      `json:"ho_ten" validate:"notblank"`
		Email     string      `json:"email" validate:"omitempty,email"`
		Phone     string      `json:"so_dien_thoai,omitempty"`
		ClassName string      `json:"lop,omitempty"`
		Faculty   string      `json:"khoa,omitempty"`
		Status    string      `json:"trang_thai,omitempty"`
		TeacherID null.String `json:"giang_vien_id"`
		CompanyID null.String `json:"doanh_nghiep_id"`
		BatchID   null.String `json:"dot_thuc_tap_id"`
		CreatedAt time.Time   `json:"created_at"`
	}

	Teacher struct {
		ID         string    `json:"id"`
		Code       string    `json:"ma_giang_vien" validate:"required,max=20"`
		Name       string    `json:"ho_ten" validate:"notblank"`
		Email      string    `json:"email" validate:"omitempty,email"`
		Phone      string    `json:"so_dien_thoai,omitempty"`
		Department string    `json:"bo_mon,omitempty"`
		Degree     string    `json:"hoc_vi,omitempty"`
		Status     string    `json:"trang_thai,omitempty"`
		CreatedAt  time.Time `json:"created_at"`
	}

	Company struct {
		ID          string    `json:"id"`
		Code        string    `json:"ma_doanh_nghiep" validate:"required,max=20"`
		Name        string    `json:"ten_doanh_nghiep" validate:"notblank"`
		Address     string    `json:"dia_chi,omitempty"`
		Email       string    `json:"email" validate:"omitempty,email"`
		Phone       string    `json:"so_dien_thoai,omitempty"`
		ContactName string    `json:"nguoi_lien_he,omitempty"`
		Field       string    `json:"linh_vuc,omitempty"`
		Quota       int       `json:"so_luong_nhan" validate:"gte=0"`
		Status      string    `json:"trang_thai,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}

	Batch struct {
		ID                   string    `json:"id"`
		Name                 string    `json:"ten_dot" validate:"notblank"`
		StartDate            time.Time `json:"ngay_bat_dau"`
		EndDate              time.Time `json:"ngay_ket_thuc"`
		RegistrationDeadline null.Time `json:"han_dang_ky"`
		Description          string    `json:"mo_ta,omitempty"`
		Status               string    `json:"trang_thai,omitempty"`
		CreatedAt            time.Time `json:"created_at"`
	}

	Report struct {
		ID          string       `json:"id"`
		StudentID   string       `json:"sinh_vien_id" validate:"required"`
		Title       string       `json:"tieu_de" validate:"notblank"`
		Kind        string       `json:"loai_bao_cao" validate:"omitempty,oneof=tuan thang cuoi_ky tong_ket"`
		Week        int          `json:"tuan,omitempty" validate:"gte=0"`
		Content     string       `json:"noi_dung,omitempty"`
		FileURL     string       `json:"file_url,omitempty"`
		SubmittedAt null.Time    `json:"ngay_nop"`
		Status      string       `json:"trang_thai,omitempty"`
		Score       null.Float64 `json:"diem"`
		Comment     null.String  `json:"nhan_xet"`
		CreatedAt   time.Time    `json:"created_at"`
	}
)

func (s Student) Key() Key { return Key{Code: s.Code, Name: s.Name, Status: s.Status} }
func (t Teacher) Key() Key { return Key{Code: t.Code, Name: t.Name, Status: t.Status} }
func (c Company) Key() Key { return Key{Code: c.Code, Name: c.Name, Status: c.Status} }
func (b Batch) Key() Key {
	return Key{Code: b.StartDate.Format("2006-01-02"), Name: b.Name, Status: b.Status}
}
func (r Report) Key() Key { return Key{Code: r.StudentID, Name: r.Title, Status: r.Status} }
