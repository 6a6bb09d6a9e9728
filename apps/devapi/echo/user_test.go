package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

func TestAuthentication(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"malformed token", "not-a-jwt", http.StatusUnauthorized},
		{"token signed with another key", signedElsewhere(t, f.student), http.StatusUnauthorized},
		{"expired token", signedWith(t, f.student, "test-secret", -time.Hour), http.StatusUnauthorized},
		{"inactive user", f.token(t, f.inactive), http.StatusUnauthorized},
		{"active user", f.token(t, f.student), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/auth/me", tc.token, nil)
			checkCode(t, rec, tc.wantCode)

			res := decode[user.Profile](t, rec)
			if tc.wantCode != http.StatusOK {
				assert.False(t, res.Success)
				assert.NotEmpty(t, res.Message)
				return
			}
			assert.True(t, res.Success)
			assert.Equal(t, f.student.Profile(), res.Data)
		})
	}
}

func signedElsewhere(t *testing.T, usr user.User) string {
	t.Helper()
	return signedWith(t, usr, "another-secret", time.Hour)
}

func signedWith(t *testing.T, usr user.User, secret string, expiry time.Duration) string {
	t.Helper()
	auth := newAuthenticator(&core.Config{DevAPI: core.DevAPIConfig{SecretKey: secret, JWTExpirationDelta: expiry}})
	token, err := auth.generateToken(usr)
	require.NoError(t, err)
	return token
}

func TestRoles(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		usr      user.User
		path     string
		wantCode int
	}{
		{"student on company endpoint", f.student, "/api/company-internships/students", http.StatusForbidden},
		{"teacher on student endpoint", f.teacher, "/api/teacher-submissions/student/all-slots", http.StatusForbidden},
		{"company on teacher endpoint", f.company, "/api/teacher-submissions/slots", http.StatusForbidden},
		{"company on its endpoint", f.company, "/api/company-internships/students", http.StatusOK},
		{"admin anywhere", f.admin, "/api/company-internships/students", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tc.path, f.token(t, tc.usr), nil)
			checkCode(t, rec, tc.wantCode)
		})
	}
}

func TestLogin(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{"missing password", map[string]string{"username": "sv1"}, http.StatusBadRequest},
		{"wrong password", user.LoginRequest{Username: "sv1", Password: "nope"}, http.StatusBadRequest},
		{"inactive user", user.LoginRequest{Username: "ghost", Password: studentPassword}, http.StatusBadRequest},
		{"unknown user", user.LoginRequest{Username: "nobody", Password: studentPassword}, http.StatusBadRequest},
		{"username", user.LoginRequest{Username: "SV1", Password: studentPassword}, http.StatusOK},
		{"email", user.LoginRequest{Username: "sv1@test.vn", Password: studentPassword}, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/auth/login", "", tc.body)
			checkCode(t, rec, tc.wantCode)
			if tc.wantCode != http.StatusOK {
				return
			}

			res := decode[user.LoginResponse](t, rec)
			assert.Equal(t, f.student.Profile(), res.Data.User)
			require.NotEmpty(t, res.Data.Token)

			me := f.do(t, http.MethodGet, "/api/auth/me", res.Data.Token, nil)
			checkCode(t, me, http.StatusOK)
		})
	}
}

func TestPasswordReset(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		email    string
		wantCode int
		wantSent int
	}{
		{"invalid email", "sv1", http.StatusBadRequest, 0},
		{"unknown email", "nobody@test.vn", http.StatusOK, 0},
		{"inactive user", "ghost@test.vn", http.StatusOK, 0},
		{"active user", "SV1@test.vn", http.StatusOK, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := len(f.mail.Sent())
			rec := f.do(t, http.MethodPost, "/api/auth/password-reset", "", PasswordResetRequest{Email: tc.email})
			checkCode(t, rec, tc.wantCode)

			sent := f.mail.Sent()[before:]
			require.Len(t, sent, tc.wantSent)
			if tc.wantSent > 0 {
				assert.Equal(t, "sv1@test.vn", sent[0].To[0].Address)
			}
		})
	}
}
