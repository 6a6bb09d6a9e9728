package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

// documentRow carries Data as text; lib/pq would send []byte as bytea.
type documentRow struct {
	Kind      string      `db:"kind"`
	ID        string      `db:"id"`
	Code      string      `db:"code"`
	Name      string      `db:"name"`
	Status    string      `db:"status"`
	TeacherID null.String `db:"teacher_id"`
	CompanyID null.String `db:"company_id"`
	Data      string      `db:"data"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (row documentRow) document() database.Document {
	return database.Document{
		Kind:      row.Kind,
		ID:        row.ID,
		Code:      row.Code,
		Name:      row.Name,
		Status:    row.Status,
		TeacherID: row.TeacherID,
		CompanyID: row.CompanyID,
		Data:      []byte(row.Data),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (s *DB) PutDocument(ctx context.Context, doc database.Document) error {
	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO documents (kind, id, code, name, status, teacher_id, company_id, data, created_at, updated_at) "+
			"VALUES (:kind, :id, :code, :name, :status, :teacher_id, :company_id, :data, :created_at, :updated_at) "+
			"ON CONFLICT (kind, id) DO UPDATE SET code = excluded.code, name = excluded.name, status = excluded.status, "+
			"teacher_id = excluded.teacher_id, company_id = excluded.company_id, data = excluded.data, "+
			"updated_at = excluded.updated_at",
		documentRow{
			Kind:      doc.Kind,
			ID:        doc.ID,
			Code:      doc.Code,
			Name:      doc.Name,
			Status:    doc.Status,
			TeacherID: doc.TeacherID,
			CompanyID: doc.CompanyID,
			Data:      string(doc.Data),
			CreatedAt: doc.CreatedAt.UTC(),
			UpdatedAt: doc.UpdatedAt.UTC(),
		},
	)
	return errors.Wrap(err, "saving document")
}

func (s *DB) GetDocument(ctx context.Context, kind, id string) (database.Document, error) {
	var row documentRow
	if err := s.get(ctx, &row, "SELECT * FROM documents WHERE kind = ? AND id = ?", kind, id); err != nil {
		return database.Document{}, errors.Wrapf(err, "getting %s", kind)
	}
	return row.document(), nil
}

func (s *DB) ListDocuments(ctx context.Context, q database.DocQuery) ([]database.Document, int, error) {
	where := []string{"kind = ?"}
	args := []interface{}{q.Kind}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.TeacherID != "" {
		where = append(where, "teacher_id = ?")
		args = append(args, q.TeacherID)
	}
	if q.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, q.CompanyID)
	}
	if q.Search != "" {
		term := "%" + strings.ToLower(q.Search) + "%"
		where = append(where, "(LOWER(code) LIKE ? OR LOWER(name) LIKE ?)")
		args = append(args, term, term)
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.get(ctx, &total, "SELECT COUNT(*) FROM documents"+cond, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting documents")
	}

	query := "SELECT * FROM documents" + cond + " ORDER BY " + orderBy(q)
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}
	var rows []documentRow
	if err := s.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying documents")
	}
	docs := make([]database.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.document())
	}
	return docs, total, nil
}

// orderBy renders the ordering clause from whitelisted fields only.
func orderBy(q database.DocQuery) string {
	parts := make([]string, 0, len(q.Ordering)+1)
	for _, ord := range q.Ordering {
		if database.OrderableFields[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return "created_at DESC"
	}
	return strings.Join(parts, ", ")
}

func (s *DB) DeleteDocument(ctx context.Context, kind, id string) error {
	res, err := s.exec(ctx, "DELETE FROM documents WHERE kind = ? AND id = ?", kind, id)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", kind)
	}
	return mustAffect(res)
}
