package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/resource"
)

const (
	orderingParam = "ordering"
	maxLimit      = 100
)

type Ordering struct {
	Orderings []core.Ordering
}

// Bind reads the `ordering` param, eg. "-created_at,ho_ten". Fields missing from aliases are
// dropped; aliases maps the JSON names to the stored columns.
func (ord *Ordering) Bind(ctx echo.Context, aliases map[string]string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, o := range core.ParseOrderings(val) {
		if field, ok := aliases[o.Field]; ok {
			ord.Orderings = append(ord.Orderings, core.Ordering{Field: field, Ascending: o.Ascending})
		}
	}
}

// ListQuery is the query string of a paginated list.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
	Ordering
}

// Bind reads page, limit, search, status and ordering. Invalid numbers fall back to the first
// page and the default limit.
func (q *ListQuery) Bind(ctx echo.Context, aliases map[string]string) {
	q.Page = positiveInt(ctx.QueryParam("page"), 1)
	q.Limit = positiveInt(ctx.QueryParam("limit"), resource.DefaultLimit)
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	q.Search = core.CleanString(ctx.QueryParam("search"))
	q.Status = core.CleanString(ctx.QueryParam("status"))
	q.Ordering.Bind(ctx, aliases)
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
