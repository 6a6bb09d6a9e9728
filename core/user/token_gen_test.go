package user

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

func newResetUser(t *testing.T) User {
	t.Helper()
	stamp := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	usr := User{
		ID:        "sv001",
		Name:      "Nguyen Van An",
		Username:  "sv001",
		Email:     "an.nv@example.edu.vn",
		Role:      core.RoleStudent,
		IsActive:  true,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	require.NoError(t, usr.SetPassword("Thuctap@2024"))
	return usr
}

func TestTokenGenerator_Verify(t *testing.T) {
	gen := NewTokenGenerator("secret", 3*24*time.Hour)
	usr := newResetUser(t)
	fresh := gen.MakeToken(usr)

	// minted four days ago, one past the timeout
	gen.now = func() time.Time { return time.Now().AddDate(0, 0, -4) }
	stale := gen.MakeToken(usr)
	gen.now = time.Now

	rehashed := usr
	require.NoError(t, rehashed.SetPassword("Thuctap@2025"))
	touched := usr
	touched.UpdatedAt = touched.UpdatedAt.Add(time.Minute)

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "empty", usr: usr, wantErr: errInvalidToken},
		{name: "single part", usr: usr, token: "abcdef", wantErr: errInvalidToken},
		{name: "stamp not base32", usr: usr, token: "!!!-sig", wantErr: errInvalidToken},
		{name: "stamp not a number", usr: usr, token: "NRXWY-sig", wantErr: errInvalidToken},
		{name: "forged signature", usr: usr, token: "HE4TS-sig", wantErr: errInvalidToken},
		{name: "expired", usr: usr, token: stale, wantErr: errTokenExpired},
		{name: "password changed since", usr: rehashed, token: fresh, wantErr: errInvalidToken},
		{name: "account updated since", usr: touched, token: fresh, wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: NewTokenGenerator("other", time.Hour).MakeToken(usr), wantErr: errInvalidToken},
		{name: "ok", usr: usr, token: fresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, gen.Verify(tt.usr, tt.token))
		})
	}
}

func TestTokenGenerator_Link(t *testing.T) {
	gen := NewTokenGenerator("secret", 24*time.Hour)
	usr := newResetUser(t)

	link := gen.Link("http://localhost:8080/reset/%s/%s", usr)
	parts := strings.Split(strings.TrimPrefix(link, "http://localhost:8080/reset/"), "/")
	require.Len(t, parts, 2, link)

	id, err := DecodeUID(parts[0])
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)
	assert.NoError(t, gen.Verify(usr, parts[1]))
}

func TestDecodeUID(t *testing.T) {
	for _, id := range []string{"sv001", "2f1c6a0e-9b3d-4c1e-8f7a-0d5e6b7c8a9f"} {
		t.Run(id, func(t *testing.T) {
			got, err := DecodeUID(EncodeUID(User{ID: id}))
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}

	_, err := DecodeUID("%%%")
	assert.Error(t, err, fmt.Sprintf("decoding %q", "%%%"))
}
