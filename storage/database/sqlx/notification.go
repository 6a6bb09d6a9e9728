package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
)

type notificationRow struct {
	ID         string      `db:"id"`
	UserID     string      `db:"user_id"`
	UserRole   string      `db:"user_role"`
	Title      string      `db:"title"`
	Message    string      `db:"message"`
	Type       string      `db:"type"`
	Read       bool        `db:"read"`
	ActionType string      `db:"action_type"`
	ActionURL  string      `db:"action_url"`
	Metadata   null.String `db:"metadata"`
	CreatedAt  time.Time   `db:"created_at"`
}

func toNotificationRow(n notification.Notification) (notificationRow, error) {
	row := notificationRow{
		ID:         n.ID,
		UserID:     n.UserID,
		UserRole:   string(n.UserRole),
		Title:      n.Title,
		Message:    n.Message,
		Type:       string(n.Severity),
		Read:       n.Read,
		ActionType: string(n.ActionType),
		ActionURL:  n.ActionURL,
		CreatedAt:  n.CreatedAt,
	}
	if n.Metadata != nil {
		data, err := json.Marshal(n.Metadata)
		if err != nil {
			return notificationRow{}, errors.Wrap(err, "encoding metadata")
		}
		row.Metadata = null.StringFrom(string(data))
	}
	return row, nil
}

func (row notificationRow) notification() (notification.Notification, error) {
	n := notification.Notification{
		ID:         row.ID,
		Title:      row.Title,
		Message:    row.Message,
		Severity:   notification.Severity(row.Type),
		Read:       row.Read,
		CreatedAt:  row.CreatedAt,
		UserID:     row.UserID,
		UserRole:   core.Role(row.UserRole),
		ActionType: notification.ActionType(row.ActionType),
		ActionURL:  row.ActionURL,
	}
	if row.Metadata.Valid {
		n.Metadata = new(notification.Metadata)
		if err := json.Unmarshal([]byte(row.Metadata.String), n.Metadata); err != nil {
			return notification.Notification{}, errors.Wrapf(err, "decoding metadata of %s", row.ID)
		}
	}
	return n, nil
}

func (s *DB) ListNotifications(ctx context.Context, userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	if err := s.selectAll(ctx, &rows, "SELECT * FROM notifications WHERE user_id = ? ORDER BY created_at", userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	items := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := row.notification()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (s *DB) CreateNotification(ctx context.Context, n notification.Notification) error {
	row, err := toNotificationRow(n)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx,
		"INSERT INTO notifications (id, user_id, user_role, title, message, type, read, action_type, action_url, metadata, created_at) "+
			"VALUES (:id, :user_id, :user_role, :title, :message, :type, :read, :action_type, :action_url, :metadata, :created_at)",
		row,
	)
	return errors.Wrap(err, "inserting notification")
}

func (s *DB) SetNotificationsRead(ctx context.Context, userID string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := s.in("UPDATE notifications SET read = ? WHERE user_id = ? AND read = ? AND id IN (?)", true, userID, false, ids)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return affected(res)
}

func (s *DB) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := s.exec(ctx, "DELETE FROM notifications WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return mustAffect(res)
}
