// Package resource holds the paginated list plumbing shared by students, teachers, companies,
// internship batches and reports.
package resource

import (
	"context"
	"net/url"
	"strconv"

	"github.com/kat-co/vala"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

const DefaultLimit = 10

type (
	// Query is a list request; zero values are left out of the query string.
	Query struct {
		Page     int
		Limit    int
		Search   string
		Status   string
		Ordering []core.Ordering
	}

	Pagination struct {
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
		Page       int `json:"page"`
		Limit      int `json:"limit"`
	}

	Page[T any] struct {
		Items      []T        `json:"items"`
		Pagination Pagination `json:"pagination"`
	}

	Repository[T any] interface {
		List(ctx context.Context, q Query) (Page[T], error)
		Active(ctx context.Context) ([]T, error)
		Get(ctx context.Context, id string) (T, error)
		Create(ctx context.Context, item T) (T, error)
		Update(ctx context.Context, id string, item T) (T, error)
		Delete(ctx context.Context, id string) error
	}

	// Requester is the HTTP client the resource endpoints are reached through.
	Requester interface {
		Get(ctx context.Context, path string, query map[string]string, out interface{}) error
		Post(ctx context.Context, path string, body, out interface{}) error
		Put(ctx context.Context, path string, body, out interface{}) error
		Delete(ctx context.Context, path string, out interface{}) error
	}
)

// Params renders q as query params.
func (q Query) Params() map[string]string {
	params := make(map[string]string)
	if q.Page > 0 {
		params["page"] = strconv.Itoa(q.Page)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	if q.Status != "" {
		params["status"] = q.Status
	}
	if len(q.Ordering) > 0 {
		params["ordering"] = core.OrderingsParam(q.Ordering)
	}
	return params
}

// HasNext reports whether pages remain after the current one.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// NewPagination computes the page count of total items split by limit.
func NewPagination(total, page, limit int) Pagination {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if page <= 0 {
		page = 1
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{Total: total, TotalPages: pages, Page: page, Limit: limit}
}

// Client reaches one resource collection, eg. /students.
type Client[T any] struct {
	req  Requester
	path string
}

var _ Repository[Student] = (*Client[Student])(nil)

func NewClient[T any](req Requester, path string) (*Client[T], error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(req, "req"),
		vala.StringNotEmpty(path, "path"),
	).Check(); err != nil {
		return nil, err
	}
	return &Client[T]{req: req, path: path}, nil
}

func (c *Client[T]) Path() string { return c.path }

func (c *Client[T]) item(id string) string { return c.path + "/" + url.PathEscape(id) }

func (c *Client[T]) List(ctx context.Context, q Query) (Page[T], error) {
	var page Page[T]
	err := c.req.Get(ctx, c.path, q.Params(), &page)
	return page, err
}

// Active lists the non-paged active subset, eg. the batches open for registration.
func (c *Client[T]) Active(ctx context.Context) ([]T, error) {
	var items []T
	err := c.req.Get(ctx, c.path+"/active", nil, &items)
	return items, err
}

func (c *Client[T]) Get(ctx context.Context, id string) (T, error) {
	var item T
	err := c.req.Get(ctx, c.item(id), nil, &item)
	return item, err
}

func (c *Client[T]) Create(ctx context.Context, item T) (T, error) {
	var created T
	err := c.req.Post(ctx, c.path, item, &created)
	return created, err
}

func (c *Client[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var updated T
	err := c.req.Put(ctx, c.item(id), item, &updated)
	return updated, err
}

func (c *Client[T]) Delete(ctx context.Context, id string) error {
	return c.req.Delete(ctx, c.item(id), nil)
}
