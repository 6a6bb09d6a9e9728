package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

const userColumns = "id, name, username, email, role, is_active, password_hash, created_at, updated_at"

func (s *DB) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	// SELECT username, email FROM users WHERE (username = $1 OR email = $2) AND id NOT IN ($3,$4)
	query := "SELECT username, email FROM users WHERE (username = ? OR (email <> '' AND email = ?))"
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND id NOT IN (?)"
		args = append(args, ids)
	}
	query, args, err := s.in(query, args...)
	if err != nil {
		return err
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
		if r.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (s *DB) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES "+
			"(:id, :name, :username, :email, :role, :is_active, :password_hash, :created_at, :updated_at)",
		usr,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (s *DB) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := s.selectAll(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY created_at, username"); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (s *DB) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var usr user.User
	err := s.get(ctx, &usr, "SELECT "+userColumns+" FROM users WHERE "+where, args...)
	if errors.Is(err, database.ErrNotFound) {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "getting user")
}

func (s *DB) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *DB) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return s.getUser(ctx, "username = ? OR (email <> '' AND email = ?) LIMIT 1", username, username)
}

func (s *DB) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	orig, err := s.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}
	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	usr.CreatedAt = orig.CreatedAt

	_, err = s.db.NamedExecContext(ctx,
		"UPDATE users SET name = :name, username = :username, email = :email, role = :role, "+
			"is_active = :is_active, password_hash = :password_hash, updated_at = :updated_at WHERE id = :id",
		usr,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}
