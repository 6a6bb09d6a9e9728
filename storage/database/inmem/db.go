// Package inmemdb keeps the development backend's data in memory.
package inmemdb

import (
	"sync"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/notification"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/registration"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/submission"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

type (
	DB struct {
		users         *table[string, user.User]
		notifications *table[string, notification.Notification]
		slots         *table[string, submission.Slot]
		submissions   *table[string, submission.Submission]
		evaluations   *table[string, database.Evaluation]
		grades        *table[string, database.Grade]
		registrations *table[string, registration.Registration]
		documents     *table[docKey, database.Document]
	}

	table[K comparable, V any] struct {
		mutex sync.RWMutex
		rows  map[K]*V
		order []K // insertion order
	}

	docKey struct{ kind, id string }
)

var _ database.Store = (*DB)(nil) // interface compliance check

func newTable[K comparable, V any]() *table[K, V] {
	return &table[K, V]{rows: make(map[K]*V)}
}

func Open() *DB {
	return &DB{
		users:         newTable[string, user.User](),
		notifications: newTable[string, notification.Notification](),
		slots:         newTable[string, submission.Slot](),
		submissions:   newTable[string, submission.Submission](),
		evaluations:   newTable[string, database.Evaluation](),
		grades:        newTable[string, database.Grade](),
		registrations: newTable[string, registration.Registration](),
		documents:     newTable[docKey, database.Document](),
	}
}

func (db *DB) Close() error { return nil }

// query returns copies of the rows in insertion order. The caller holds the lock.
func (t *table[K, V]) query(keep func(V) bool) []V {
	rows := make([]V, 0, len(t.rows))
	for _, k := range t.order {
		if row, ok := t.rows[k]; ok && (keep == nil || keep(*row)) {
			rows = append(rows, *row)
		}
	}
	return rows
}

// put inserts or replaces a row. The caller holds the lock.
func (t *table[K, V]) put(k K, v V) {
	if _, ok := t.rows[k]; !ok {
		t.order = append(t.order, k)
	}
	t.rows[k] = &v
}

// remove deletes a row. The caller holds the lock.
func (t *table[K, V]) remove(k K) bool {
	if _, ok := t.rows[k]; !ok {
		return false
	}
	delete(t.rows, k)
	for i, key := range t.order {
		if key == k {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}
