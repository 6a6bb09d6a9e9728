package resource

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
)

type fakeRepo struct {
	mu      sync.Mutex
	all     []Student
	queries []Query
	failing bool
	deleted []string
	// before, when set, runs ahead of every List outside the lock.
	before func(Query)
}

func (r *fakeRepo) List(_ context.Context, q Query) (Page[Student], error) {
	if r.before != nil {
		r.before(q)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	if r.failing {
		return Page[Student]{}, errors.New("503 service unavailable")
	}
	var matched []Student
	for _, s := range r.all {
		if q.Search == "" || s.Name == q.Search {
			matched = append(matched, s)
		}
	}
	p := NewPagination(len(matched), q.Page, q.Limit)
	start := (p.Page - 1) * p.Limit
	end := start + p.Limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return Page[Student]{Items: matched[start:end], Pagination: p}, nil
}

func (r *fakeRepo) Active(context.Context) ([]Student, error)            { return r.all, nil }
func (r *fakeRepo) Get(context.Context, string) (Student, error)         { return Student{}, nil }
func (r *fakeRepo) Create(_ context.Context, s Student) (Student, error) { return s, nil }
func (r *fakeRepo) Update(_ context.Context, _ string, s Student) (Student, error) {
	return s, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRepo) queryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func (r *fakeRepo) pageCount(page int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, q := range r.queries {
		if q.Page == page {
			n++
		}
	}
	return n
}

// holdPage blocks List calls for page of the unfiltered list until release is closed; started
// receives once per held call.
func (r *fakeRepo) holdPage(page int) (started <-chan struct{}, release chan struct{}) {
	st := make(chan struct{}, 4)
	release = make(chan struct{})
	r.before = func(q Query) {
		if q.Page == page && q.Search == "" {
			st <- struct{}{}
			<-release
		}
	}
	return st, release
}

func (r *fakeRepo) lastQuery() Query {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries[len(r.queries)-1]
}

func students(n int) []Student {
	out := make([]Student, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Student{ID: fmt.Sprint(i), Name: fmt.Sprintf("student %d", i)})
	}
	return out
}

func TestQuery_Params(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want map[string]string
	}{
		{name: "empty", q: Query{}, want: map[string]string{}},
		{
			name: "everything",
			q: Query{
				Page: 2, Limit: 20, Search: "nguyen", Status: "active",
				Ordering: []core.Ordering{{Field: "created_at"}, {Field: "ho_ten", Ascending: true}},
			},
			want: map[string]string{"page": "2", "limit": "20", "search": "nguyen", "status": "active", "ordering": "-created_at,ho_ten"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Params())
		})
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Total: 25, TotalPages: 3, Page: 1, Limit: 10}, NewPagination(25, 0, 0))
	assert.Equal(t, Pagination{Total: 20, TotalPages: 2, Page: 2, Limit: 10}, NewPagination(20, 2, 10))
	assert.Equal(t, Pagination{Total: 0, TotalPages: 0, Page: 1, Limit: 5}, NewPagination(0, 1, 5))
	assert.False(t, NewPagination(0, 1, 5).HasNext())
}

func TestState_LoadMoreAndSetQuery(t *testing.T) {
	repo := &fakeRepo{all: students(25)}
	st := NewState[Student](repo, Query{Limit: 10})
	ctx := context.Background()

	require.NoError(t, st.Refetch(ctx))
	assert.Len(t, st.Items(), 10)
	assert.True(t, st.HasMore())

	require.NoError(t, st.LoadMore(ctx))
	require.NoError(t, st.LoadMore(ctx))
	assert.Len(t, st.Items(), 25)
	assert.False(t, st.HasMore())
	assert.Equal(t, "25", st.Items()[24].ID)

	calls := repo.queryCount()
	require.NoError(t, st.LoadMore(ctx))
	assert.Equal(t, calls, repo.queryCount(), "no request past the last page")

	require.NoError(t, st.SetQuery(ctx, Query{Search: "student 3"}))
	assert.Equal(t, []Student{{ID: "3", Name: "student 3"}}, st.Items())
	assert.Equal(t, Query{Page: 1, Limit: DefaultLimit, Search: "student 3"}, repo.lastQuery())
}

func TestState_LoadMoreRunsOnce(t *testing.T) {
	repo := &fakeRepo{all: students(10)}
	st := NewState[Student](repo, Query{Limit: 2})
	ctx := context.Background()
	require.NoError(t, st.Refetch(ctx))

	started, release := repo.holdPage(2)
	done := make(chan error, 1)
	go func() { done <- st.LoadMore(ctx) }()
	<-started

	assert.True(t, st.Loading())
	require.NoError(t, st.LoadMore(ctx))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, repo.pageCount(2))
	assert.Equal(t, students(4), st.Items())
	assert.False(t, st.Loading())
}

func TestState_StaleLoadMoreIsDropped(t *testing.T) {
	repo := &fakeRepo{all: students(10)}
	st := NewState[Student](repo, Query{Limit: 2})
	ctx := context.Background()
	require.NoError(t, st.Refetch(ctx))

	started, release := repo.holdPage(2)
	done := make(chan error, 1)
	go func() { done <- st.LoadMore(ctx) }()
	<-started

	require.NoError(t, st.SetQuery(ctx, Query{Limit: 2, Search: "student 3"}))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, []Student{{ID: "3", Name: "student 3"}}, st.Items())
	assert.Equal(t, 1, st.Pagination().Total)
	assert.Equal(t, 1, st.Query().Page)
	assert.False(t, st.HasMore())
}

func TestState_ErrorKeepsItems(t *testing.T) {
	repo := &fakeRepo{all: students(3)}
	st := NewState[Student](repo, Query{})
	ctx := context.Background()
	require.NoError(t, st.Refetch(ctx))

	repo.failing = true
	assert.Error(t, st.Refetch(ctx))
	assert.Error(t, st.Err())
	assert.Len(t, st.Items(), 3)

	repo.failing = false
	require.NoError(t, st.Refetch(ctx))
	assert.NoError(t, st.Err())
}

func TestState_MutationsRefetch(t *testing.T) {
	repo := &fakeRepo{all: students(12)}
	st := NewState[Student](repo, Query{})
	ctx := context.Background()
	require.NoError(t, st.Refetch(ctx))
	require.NoError(t, st.LoadMore(ctx))
	require.Len(t, st.Items(), 12)

	require.NoError(t, st.Delete(ctx, "4"))
	assert.Equal(t, []string{"4"}, repo.deleted)
	assert.Equal(t, 1, repo.lastQuery().Page)
	assert.Len(t, st.Items(), 10, "a mutation reloads the first page")

	_, err := st.Create(ctx, Student{Name: "new"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastQuery().Page)
}

func TestState_SearchIsDebounced(t *testing.T) {
	repo := &fakeRepo{all: students(5)}
	st := NewState[Student](repo, Query{})
	d := NewDebouncer(20 * time.Millisecond)

	done := make(chan error, 3)
	for _, term := range []string{"s", "student", "student 2"} {
		st.Search(context.Background(), d, term, func(err error) { done <- err })
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("debounced search never ran")
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, repo.queryCount())
	assert.Equal(t, "student 2", repo.lastQuery().Search)
	assert.Len(t, st.Items(), 1)
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	ran := make(chan struct{}, 1)
	d.Do(func() { ran <- struct{}{} })
	d.Stop()
	select {
	case <-ran:
		t.Fatal("stopped call ran")
	case <-time.After(40 * time.Millisecond):
	}
}
