package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

// Profile is the signed-in user as the client knows it.
type Profile struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  core.Role `json:"role"`
}

func (p Profile) IsStudent() bool { return p.Role == core.RoleStudent }
func (p Profile) IsTeacher() bool { return p.Role == core.RoleTeacher }
func (p Profile) IsCompany() bool { return p.Role == core.RoleCompany }
func (p Profile) IsAdmin() bool   { return p.Role == core.RoleAdmin }

// Person returns the logger identity of the profile.
func (p Profile) Person() core.Person {
	return core.Person{ID: p.ID, Name: p.Name, Email: p.Email}
}

// User is an account stored by the development backend.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	Role         core.Role `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	ID       string    `json:"id,omitempty"` // generated when empty
	Name     string    `json:"name" validate:"required"`
	Username string    `json:"username" validate:"required,min=3,alphanum_"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Password string    `json:"password" validate:"required"`
	Role     core.Role `json:"role" validate:"required,oneof=student teacher company admin"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the data of a successful POST /auth/login.
type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}
