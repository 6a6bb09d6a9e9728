package inmemdb

import (
	"context"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

func (db *DB) ListNotifications(_ context.Context, userID string) ([]notification.Notification, error) {
	db.notifications.mutex.RLock()
	defer db.notifications.mutex.RUnlock()

	return db.notifications.query(func(n notification.Notification) bool { return n.UserID == userID }), nil
}

func (db *DB) CreateNotification(_ context.Context, n notification.Notification) error {
	db.notifications.mutex.Lock()
	defer db.notifications.mutex.Unlock()

	db.notifications.put(n.ID, n)
	return nil
}

func (db *DB) SetNotificationsRead(_ context.Context, userID string, ids ...string) (int, error) {
	db.notifications.mutex.Lock()
	defer db.notifications.mutex.Unlock()

	var count int
	for _, id := range ids {
		if n, ok := db.notifications.rows[id]; ok && n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (db *DB) DeleteNotification(_ context.Context, userID, id string) error {
	db.notifications.mutex.Lock()
	defer db.notifications.mutex.Unlock()

	if n, ok := db.notifications.rows[id]; !ok || n.UserID != userID {
		return database.ErrNotFound
	}
	db.notifications.remove(id)
	return nil
}
