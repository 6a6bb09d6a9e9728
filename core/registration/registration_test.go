package registration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

type fakeRepo struct {
	forms []Form
}

func (r *fakeRepo) Submit(_ context.Context, f Form) (Registration, error) {
	r.forms = append(r.forms, f)
	return Registration{ID: "r1", Form: f, Status: "cho_duyet"}, nil
}

func TestService_Submit(t *testing.T) {
	selfArranged := Form{
		Preference:     PreferenceSelfArranged,
		CompanyName:    "FPT Software",
		CompanyAddress: "Ha Noi",
		ContactName:    "Tran Van B",
		ContactPhone:   "0912345678",
		BatchID:        "d1",
	}

	tests := []struct {
		name        string
		form        func() Form
		wantMsg     string
		wantMissing []string
	}{
		{
			name: "self arranged without company details",
			form: func() Form {
				return Form{Preference: PreferenceSelfArranged, BatchID: "d1"}
			},
			wantMsg:     "please fill in the company details: cong_ty_tu_lien_he, dia_chi_cong_ty, nguoi_lien_he_cong_ty, sdt_nguoi_lien_he",
			wantMissing: []string{"cong_ty_tu_lien_he", "dia_chi_cong_ty", "nguoi_lien_he_cong_ty", "sdt_nguoi_lien_he"},
		},
		{
			name: "self arranged missing phone",
			form: func() Form {
				f := selfArranged
				f.ContactPhone = "   "
				return f
			},
			wantMsg:     "please fill in the company details: sdt_nguoi_lien_he",
			wantMissing: []string{"sdt_nguoi_lien_he"},
		},
		{name: "self arranged complete", form: func() Form { return selfArranged }},
		{
			name: "school placement needs no company",
			form: func() Form { return Form{Preference: PreferenceSchool, BatchID: "d1", CompanyName: "ignored"} },
		},
		{
			name: "self arranged without batch or company details",
			form: func() Form {
				return Form{Preference: PreferenceSelfArranged, CompanyName: "Viettel"}
			},
			wantMsg:     "please fill in the company details: dia_chi_cong_ty, nguoi_lien_he_cong_ty, sdt_nguoi_lien_he",
			wantMissing: []string{"dot_thuc_tap_id", "dia_chi_cong_ty", "nguoi_lien_he_cong_ty", "sdt_nguoi_lien_he"},
		},
		{
			name:        "missing preference and batch",
			form:        func() Form { return Form{} },
			wantMissing: []string{"nguyen_vong_thuc_tap", "dot_thuc_tap_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(fakeRepo)
			svc, err := NewService(repo)
			require.NoError(t, err)

			reg, err := svc.Submit(context.Background(), tt.form())
			if len(tt.wantMissing) == 0 {
				require.NoError(t, err)
				assert.Equal(t, "r1", reg.ID)
				require.Len(t, repo.forms, 1)
				if reg.Preference == PreferenceSchool {
					assert.Empty(t, reg.CompanyName)
				}
				return
			}

			require.Error(t, err)
			assert.Empty(t, repo.forms)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
			var names []string
			for _, f := range vErr.Fields {
				names = append(names, f.Field)
			}
			assert.Equal(t, tt.wantMissing, names)
		})
	}
}
