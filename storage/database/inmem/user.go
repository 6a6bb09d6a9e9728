package inmemdb

import (
	"context"
	"sort"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

func (db *DB) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	db.users.mutex.RLock()
	defer db.users.mutex.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range db.users.query(nil) {
		if usr.Username == username && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (db *DB) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	db.users.mutex.Lock()
	defer db.users.mutex.Unlock()

	for _, u := range db.users.rows {
		if u.Username == usr.Username {
			return user.User{}, user.ErrUsernameExists
		}
	}
	db.users.put(usr.ID, usr)
	return usr, nil
}

func (db *DB) QueryAllUsers(_ context.Context) ([]user.User, error) {
	db.users.mutex.RLock()
	defer db.users.mutex.RUnlock()
	return db.users.query(nil), nil
}

func (db *DB) GetUserByID(_ context.Context, id string) (user.User, error) {
	db.users.mutex.RLock()
	defer db.users.mutex.RUnlock()

	if usr, ok := db.users.rows[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	db.users.mutex.RLock()
	defer db.users.mutex.RUnlock()

	for _, usr := range db.users.query(nil) {
		if (usr.Username == username) || (usr.Email != "" && usr.Email == username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	db.users.mutex.Lock()
	defer db.users.mutex.Unlock()

	origUsr, ok := db.users.rows[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	origUsr.Name = usr.Name
	origUsr.Username = usr.Username
	origUsr.Email = usr.Email
	origUsr.Role = usr.Role
	origUsr.IsActive = usr.IsActive
	origUsr.UpdatedAt = usr.UpdatedAt
	return *origUsr, nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}
