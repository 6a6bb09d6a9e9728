package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/resource"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

// ActiveStatus is the status listed by the /active endpoints.
const ActiveStatus = "active"

// Document kinds, named after their collection path.
var (
	kindStudents = kindOf(resource.PathStudents)
	kindBatches  = kindOf(resource.PathBatches)
)

func kindOf(path string) string { return strings.TrimPrefix(path, "/") }

// collection describes how one resource type is stored.
type collection[T resource.Keyed] struct {
	path    string
	aliases map[string]string // ordering param -> document column
	stamp   func(item *T, id string, createdAt time.Time)
	links   func(item T) (teacherID, companyID null.String)
}

func (c collection[T]) kind() string { return kindOf(c.path) }

// commonAliases lets every collection be sorted on the stored columns by name.
func commonAliases(extra map[string]string) map[string]string {
	aliases := map[string]string{
		"code":       "code",
		"name":       "name",
		"status":     "status",
		"trang_thai": "status",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	for k, v := range extra {
		aliases[k] = v
	}
	return aliases
}

func noLinks[T any](T) (null.String, null.String) { return null.String{}, null.String{} }

var (
	students = collection[resource.Student]{
		path:    resource.PathStudents,
		aliases: commonAliases(map[string]string{"ma_sinh_vien": "code", "ho_ten": "name"}),
		stamp: func(s *resource.Student, id string, at time.Time) {
			s.ID, s.CreatedAt = id, at
		},
		links: func(s resource.Student) (null.String, null.String) { return s.TeacherID, s.CompanyID },
	}
	teachers = collection[resource.Teacher]{
		path:    resource.PathTeachers,
		aliases: commonAliases(map[string]string{"ma_giang_vien": "code", "ho_ten": "name"}),
		stamp: func(t *resource.Teacher, id string, at time.Time) {
			t.ID, t.CreatedAt = id, at
		},
		links: noLinks[resource.Teacher],
	}
	companies = collection[resource.Company]{
		path:    resource.PathCompanies,
		aliases: commonAliases(map[string]string{"ma_doanh_nghiep": "code", "ten_doanh_nghiep": "name"}),
		stamp: func(c *resource.Company, id string, at time.Time) {
			c.ID, c.CreatedAt = id, at
		},
		links: noLinks[resource.Company],
	}
	batches = collection[resource.Batch]{
		path:    resource.PathBatches,
		aliases: commonAliases(map[string]string{"ten_dot": "name", "ngay_bat_dau": "code"}),
		stamp: func(b *resource.Batch, id string, at time.Time) {
			b.ID, b.CreatedAt = id, at
		},
		links: noLinks[resource.Batch],
	}
	reports = collection[resource.Report]{
		path:    resource.PathReports,
		aliases: commonAliases(map[string]string{"tieu_de": "name", "sinh_vien_id": "code"}),
		stamp: func(r *resource.Report, id string, at time.Time) {
			r.ID, r.CreatedAt = id, at
		},
		links: noLinks[resource.Report],
	}
)

type resourceApi[T resource.Keyed] struct {
	coll      collection[T]
	store     database.DocumentStore
	validator *core.Validator
}

func registerResourceAPIs(g *echo.Group, authed []echo.MiddlewareFunc, s *Server) {
	registerResourceAPI(g, authed, s, students)
	registerResourceAPI(g, authed, s, teachers)
	registerResourceAPI(g, authed, s, companies)
	registerResourceAPI(g, authed, s, batches)
	registerResourceAPI(g, authed, s, reports)
}

// registerResourceAPI serves the CRUD endpoints of one collection. Everyone signed in reads,
// only admins write.
func registerResourceAPI[T resource.Keyed](g *echo.Group, authed []echo.MiddlewareFunc, s *Server, coll collection[T]) {
	api := resourceApi[T]{coll: coll, store: s.Store, validator: s.Validator}
	admin := roleMiddleware(core.RoleAdmin)

	rg := g.Group(coll.path, authed...)
	rg.GET("", api.query)
	rg.GET("/active", api.active)
	rg.POST("", api.create, admin)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update, admin)
	rg.DELETE("/:id", api.destroy, admin)
}

func (api *resourceApi[T]) query(ctx echo.Context) error {
	var q ListQuery
	q.Bind(ctx, api.coll.aliases)

	docs, total, err := api.store.ListDocuments(ctx.Request().Context(), database.DocQuery{
		Kind:     api.coll.kind(),
		Search:   q.Search,
		Status:   q.Status,
		Ordering: q.Orderings,
		Limit:    q.Limit,
		Offset:   q.Offset(),
	})
	if err != nil {
		return errors.Wrapf(err, "listing %s", api.coll.kind())
	}
	items, err := decodeDocuments[T](docs)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, resource.Page[T]{
		Items:      items,
		Pagination: resource.NewPagination(total, q.Page, q.Limit),
	})
}

func (api *resourceApi[T]) active(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx, api.coll.aliases)

	docs, _, err := api.store.ListDocuments(ctx.Request().Context(), database.DocQuery{
		Kind:     api.coll.kind(),
		Status:   ActiveStatus,
		Ordering: ord.Orderings,
	})
	if err != nil {
		return errors.Wrapf(err, "listing active %s", api.coll.kind())
	}
	items, err := decodeDocuments[T](docs)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, items)
}

func (api *resourceApi[T]) retrieve(ctx echo.Context) error {
	item, _, err := getDocument[T](ctx.Request().Context(), api.store, api.coll.kind(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, item)
}

func (api *resourceApi[T]) create(ctx echo.Context) error {
	var item T
	if err := ctx.Bind(&item); err != nil {
		return errors.Wrapf(err, "binding to %T", item)
	}
	if err := api.validator.Struct(item); err != nil {
		return err
	}
	id := uuid.NewString()
	api.coll.stamp(&item, id, nowFunc().UTC())

	if err := api.put(ctx.Request().Context(), item, id); err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, item)
}

func (api *resourceApi[T]) update(ctx echo.Context) error {
	_, orig, err := getDocument[T](ctx.Request().Context(), api.store, api.coll.kind(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var item T
	if err := ctx.Bind(&item); err != nil {
		return errors.Wrapf(err, "binding to %T", item)
	}
	if err := api.validator.Struct(item); err != nil {
		return err
	}
	api.coll.stamp(&item, orig.ID, orig.CreatedAt)

	if err := api.put(ctx.Request().Context(), item, orig.ID); err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, item)
}

func (api *resourceApi[T]) destroy(ctx echo.Context) error {
	if err := api.store.DeleteDocument(ctx.Request().Context(), api.coll.kind(), ctx.Param("id")); err != nil {
		return errors.Wrapf(err, "deleting from %s", api.coll.kind())
	}
	return respondMessage(ctx, http.StatusOK, "deleted")
}

func (api *resourceApi[T]) put(ctx context.Context, item T, id string) error {
	doc, err := newDocument(api.coll, item, id)
	if err != nil {
		return err
	}
	return errors.Wrapf(api.store.PutDocument(ctx, doc), "storing into %s", api.coll.kind())
}

func newDocument[T resource.Keyed](coll collection[T], item T, id string) (database.Document, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return database.Document{}, errors.Wrapf(err, "encoding %T", item)
	}
	key := item.Key()
	teacherID, companyID := coll.links(item)
	now := nowFunc().UTC()
	return database.Document{
		Kind:      coll.kind(),
		ID:        id,
		Code:      key.Code,
		Name:      key.Name,
		Status:    key.Status,
		TeacherID: teacherID,
		CompanyID: companyID,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func getDocument[T any](ctx context.Context, store database.DocumentStore, kind, id string) (T, database.Document, error) {
	var item T
	doc, err := store.GetDocument(ctx, kind, id)
	if err != nil {
		return item, database.Document{}, errors.Wrapf(err, "getting %s %q", kind, id)
	}
	if err := json.Unmarshal(doc.Data, &item); err != nil {
		return item, database.Document{}, errors.Wrapf(err, "decoding %s %q", kind, id)
	}
	return item, doc, nil
}

func decodeDocuments[T any](docs []database.Document) ([]T, error) {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := json.Unmarshal(doc.Data, &item); err != nil {
			return nil, errors.Wrapf(err, "decoding %s %q", doc.Kind, doc.ID)
		}
		items = append(items, item)
	}
	return items, nil
}

// Students linked to an account

// studentsOf lists the students advised by teacherID or hosted by companyID.
func studentsOf(ctx context.Context, store database.DocumentStore, teacherID, companyID string) ([]resource.Student, error) {
	docs, _, err := store.ListDocuments(ctx, database.DocQuery{
		Kind:      kindStudents,
		TeacherID: teacherID,
		CompanyID: companyID,
		Ordering:  []core.Ordering{{Field: "code", Ascending: true}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	return decodeDocuments[resource.Student](docs)
}

// getStudent returns the student record of id; a user without one gets database.ErrNotFound.
func getStudent(ctx context.Context, store database.DocumentStore, id string) (resource.Student, error) {
	st, _, err := getDocument[resource.Student](ctx, store, kindStudents, id)
	return st, err
}

// PutResources stores items as they are, keeping their ids; used to seed a database.
func PutResources(ctx context.Context, store database.DocumentStore, items ...resource.Keyed) error {
	for _, it := range items {
		var (
			doc database.Document
			err error
		)
		switch v := it.(type) {
		case resource.Student:
			doc, err = newDocument(students, v, v.ID)
		case resource.Teacher:
			doc, err = newDocument(teachers, v, v.ID)
		case resource.Company:
			doc, err = newDocument(companies, v, v.ID)
		case resource.Batch:
			doc, err = newDocument(batches, v, v.ID)
		case resource.Report:
			doc, err = newDocument(reports, v, v.ID)
		default:
			err = errors.Errorf("unsupported resource %T", it)
		}
		if err != nil {
			return err
		}
		if err := store.PutDocument(ctx, doc); err != nil {
			return errors.Wrapf(err, "storing into %s", doc.Kind)
		}
	}
	return nil
}
