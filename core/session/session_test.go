package session

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

func signedToken(t *testing.T, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: "u1", ExpiresAt: exp.Unix()})
	ss, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return ss
}

func TestManager_SignOutBroadcastsOnce(t *testing.T) {
	prof := user.Profile{ID: "u1", Role: core.RoleTeacher}
	mgr := NewManager(NewMemStore(Session{Token: "opaque", User: prof}))

	var events []Event
	unsubscribe := mgr.OnLogout(func(e Event) { events = append(events, e) })
	defer unsubscribe()

	assert.Equal(t, "opaque", mgr.Token())

	require.NoError(t, mgr.Revoke())
	require.NoError(t, mgr.Revoke()) // already cleared: no second broadcast

	assert.Equal(t, "", mgr.Token())
	require.Len(t, events, 1)
	assert.Equal(t, ReasonUnauthorized, events[0].Reason)
	assert.Equal(t, prof, events[0].User)

	_, err := mgr.Profile()
	assert.Equal(t, ErrNoSession, err)
}

func TestManager_ExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	tests := []struct {
		name      string
		token     string
		wantToken bool
	}{
		{name: "opaque token", token: "not-a-jwt", wantToken: true},
		{name: "valid jwt", token: signedToken(t, now.Add(time.Hour)), wantToken: true},
		{name: "expired jwt", token: signedToken(t, now.Add(-time.Hour)), wantToken: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemStore(Session{Token: tt.token})
			mgr := NewManager(store)
			var reason string
			mgr.OnLogout(func(e Event) { reason = e.Reason })

			got := mgr.Token()
			if tt.wantToken {
				assert.Equal(t, tt.token, got)
				assert.Empty(t, reason)
				return
			}
			assert.Empty(t, got)
			assert.Equal(t, ReasonExpired, reason)
			_, err := store.Load()
			assert.Equal(t, ErrNoSession, err)
		})
	}
}

func TestManager_SignIn(t *testing.T) {
	store := NewMemStore()
	mgr := NewManager(store)
	assert.Empty(t, mgr.Token())

	assert.Error(t, mgr.SignIn(Session{}))

	s := Session{Token: "t", User: user.Profile{ID: "c1", Role: core.RoleCompany}}
	require.NoError(t, mgr.SignIn(s))
	assert.Equal(t, "t", mgr.Token())
	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, s, stored)
}
