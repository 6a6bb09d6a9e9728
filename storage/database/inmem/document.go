package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

func (db *DB) PutDocument(_ context.Context, doc database.Document) error {
	db.documents.mutex.Lock()
	defer db.documents.mutex.Unlock()

	k := docKey{doc.Kind, doc.ID}
	if orig, ok := db.documents.rows[k]; ok {
		doc.CreatedAt = orig.CreatedAt
	}
	doc.Data = append([]byte(nil), doc.Data...)
	db.documents.put(k, doc)
	return nil
}

func (db *DB) GetDocument(_ context.Context, kind, id string) (database.Document, error) {
	db.documents.mutex.RLock()
	defer db.documents.mutex.RUnlock()

	if doc, ok := db.documents.rows[docKey{kind, id}]; ok {
		return *doc, nil
	}
	return database.Document{}, database.ErrNotFound
}

func (db *DB) ListDocuments(_ context.Context, q database.DocQuery) ([]database.Document, int, error) {
	db.documents.mutex.RLock()
	docs := db.documents.query(func(d database.Document) bool { return matches(d, q) })
	db.documents.mutex.RUnlock()

	sortDocuments(docs, q)

	total := len(docs)
	if q.Offset >= total {
		return []database.Document{}, total, nil
	}
	docs = docs[q.Offset:]
	if q.Limit > 0 && q.Limit < len(docs) {
		docs = docs[:q.Limit]
	}
	return docs, total, nil
}

func (db *DB) DeleteDocument(_ context.Context, kind, id string) error {
	db.documents.mutex.Lock()
	defer db.documents.mutex.Unlock()

	if !db.documents.remove(docKey{kind, id}) {
		return database.ErrNotFound
	}
	return nil
}

func matches(d database.Document, q database.DocQuery) bool {
	if d.Kind != q.Kind {
		return false
	}
	if q.Status != "" && d.Status != q.Status {
		return false
	}
	if q.TeacherID != "" && d.TeacherID.String != q.TeacherID {
		return false
	}
	if q.CompanyID != "" && d.CompanyID.String != q.CompanyID {
		return false
	}
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		return strings.Contains(strings.ToLower(d.Code), term) || strings.Contains(strings.ToLower(d.Name), term)
	}
	return true
}

// sortDocuments applies the query ordering, newest first by default.
func sortDocuments(docs []database.Document, q database.DocQuery) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, ord := range q.Ordering {
			c := compareField(docs[i], docs[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		if len(q.Ordering) == 0 {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return false
	})
}

func compareField(a, b database.Document, field string) int {
	switch field {
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "status":
		return strings.Compare(a.Status, b.Status)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}
