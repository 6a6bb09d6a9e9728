package resource

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// State is a paginated list as shown on screen: page one is replaced on every filter change,
// later pages are appended by LoadMore. Mutations go through State and always refetch.
type State[T any] struct {
	repo Repository[T]

	mu          sync.RWMutex
	query       Query
	items       []T
	pagination  Pagination
	inflight    int
	loadingMore bool
	// gen grows with every reload; responses to requests of an older generation are dropped.
	gen uint64
	err error
}

func NewState[T any](repo Repository[T], q Query) *State[T] {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	q.Page = 1
	return &State[T]{repo: repo, query: q}
}

func (s *State[T]) Query() Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

func (s *State[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

func (s *State[T]) Pagination() Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

func (s *State[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err is the error of the last fetch, kept until the next one succeeds.
func (s *State[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *State[T]) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination.HasNext()
}

// Refetch reloads the first page of the current query.
func (s *State[T]) Refetch(ctx context.Context) error {
	s.mu.Lock()
	s.query.Page = 1
	q := s.query
	gen := s.begin(true)
	s.mu.Unlock()
	return s.fetch(ctx, q, gen, false)
}

// SetQuery empties the list and loads the first page of q.
func (s *State[T]) SetQuery(ctx context.Context, q Query) error {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	q.Page = 1
	s.mu.Lock()
	s.query = q
	s.items = nil
	s.pagination = Pagination{}
	gen := s.begin(true)
	s.mu.Unlock()
	return s.fetch(ctx, q, gen, false)
}

// LoadMore appends the next page. It does nothing once the last page is loaded or while
// another LoadMore is running.
func (s *State[T]) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.pagination.HasNext() || s.loadingMore {
		s.mu.Unlock()
		return nil
	}
	s.loadingMore = true
	q := s.query
	q.Page = s.pagination.Page + 1
	gen := s.begin(false)
	s.mu.Unlock()
	return s.fetch(ctx, q, gen, true)
}

// begin counts a request in flight and returns its generation. Callers hold mu.
func (s *State[T]) begin(reload bool) uint64 {
	if reload {
		s.gen++
	}
	s.inflight++
	return s.gen
}

// fetch applies the page unless a reload started since the request was issued; a superseded
// response is dropped without error.
func (s *State[T]) fetch(ctx context.Context, q Query, gen uint64, appending bool) error {
	page, err := s.repo.List(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if appending {
		s.loadingMore = false
	}
	if gen != s.gen {
		return nil
	}
	if err != nil {
		s.err = err
		return errors.Wrap(err, "loading list")
	}
	s.err = nil
	s.query.Page = q.Page
	s.pagination = page.Pagination
	if appending {
		s.items = append(s.items, page.Items...)
	} else {
		s.items = page.Items
	}
	return nil
}

func (s *State[T]) Create(ctx context.Context, item T) (T, error) {
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return created, err
	}
	return created, s.Refetch(ctx)
}

func (s *State[T]) Update(ctx context.Context, id string, item T) (T, error) {
	updated, err := s.repo.Update(ctx, id, item)
	if err != nil {
		return updated, err
	}
	return updated, s.Refetch(ctx)
}

func (s *State[T]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.Refetch(ctx)
}

// Debouncer runs only the last of a burst of calls, once the burst has been quiet for delay.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

const DefaultDebounce = 500 * time.Millisecond

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop drops the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Search sets the search term of s after the debounce delay and reports the fetch result on done.
func (s *State[T]) Search(ctx context.Context, d *Debouncer, term string, done func(error)) {
	d.Do(func() {
		q := s.Query()
		q.Search = term
		err := s.SetQuery(ctx, q)
		if done != nil {
			done(err)
		}
	})
}
