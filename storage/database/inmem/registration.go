package inmemdb

import (
	"context"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
)

func (db *DB) CreateRegistration(_ context.Context, reg registration.Registration) error {
	db.registrations.mutex.Lock()
	defer db.registrations.mutex.Unlock()

	db.registrations.put(reg.ID, reg)
	return nil
}

func (db *DB) ListRegistrations(_ context.Context, studentID string) ([]registration.Registration, error) {
	db.registrations.mutex.RLock()
	defer db.registrations.mutex.RUnlock()

	return db.registrations.query(func(r registration.Registration) bool {
		return studentID == "" || r.StudentID == studentID
	}), nil
}
