package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the kind of account using the platform.
type Role string

// Roles
const (
	RoleUnknown Role = ""
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

var (
	AllRoles = []Role{RoleStudent, RoleTeacher, RoleCompany, RoleAdmin}

	// legacyRoles maps every spelling the backend has used for a role to its canonical value.
	legacyRoles = map[string]Role{
		"student":      RoleStudent,
		"sinh-vien":    RoleStudent,
		"sinh_vien":    RoleStudent,
		"teacher":      RoleTeacher,
		"giang-vien":   RoleTeacher,
		"giang_vien":   RoleTeacher,
		"company":      RoleCompany,
		"doanh-nghiep": RoleCompany,
		"doanh_nghiep": RoleCompany,
		"admin":        RoleAdmin,
		"quan-tri":     RoleAdmin,
		"quan_tri":     RoleAdmin,
	}

	legacyNames = map[Role]string{
		RoleStudent: "sinh-vien",
		RoleTeacher: "giang-vien",
		RoleCompany: "doanh-nghiep",
		RoleAdmin:   "quan-tri",
	}
)

// ParseRole resolves any known spelling of a role.
func ParseRole(s string) (Role, error) {
	if role, ok := legacyRoles[CleanString(s, true /* lower */)]; ok {
		return role, nil
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }

// Legacy returns the hyphenated Vietnamese spelling still expected by some endpoints.
func (r Role) Legacy() string { return legacyNames[r] }

func (r Role) IsValid() bool {
	_, ok := legacyNames[r]
	return ok
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*r = RoleUnknown
		return nil
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
