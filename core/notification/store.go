// Package notification holds the signed-in user's notifications for the whole process.
//
// Mutations apply locally first and are mirrored to the server in the background; a failed
// mirror is logged and left for the next poll to reconcile.
package notification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
)

const DefaultPollInterval = 30 * time.Second

type Options struct {
	PollInterval time.Duration
	Now          func() time.Time
}

type Store struct {
	repo      Repository
	sessions  *session.Manager
	logger    core.Logger
	validator *core.Validator
	interval  time.Duration
	now       func() time.Time

	mu        sync.RWMutex
	items     []Notification
	listeners map[int]func(Snapshot)
	nextID    int
	seq       uint64

	lifeMu      sync.Mutex
	life        context.Context
	stopLife    context.CancelFunc
	scheduler   *cron.Cron
	unsubLogout func()
	mirrors     sync.WaitGroup
}

func NewStore(repo Repository, sessions *session.Manager, logger core.Logger, opts Options) (*Store, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		repo:      repo,
		sessions:  sessions,
		logger:    logger,
		validator: core.NewValidator(),
		interval:  opts.PollInterval,
		now:       opts.Now,
		listeners: make(map[int]func(Snapshot)),
		life:      context.Background(),
	}, nil
}

// Init fetches immediately, then keeps polling until Dispose. The store also clears itself
// whenever the session ends.
func (s *Store) Init(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.scheduler != nil {
		s.lifeMu.Unlock()
		return errors.New("notification store already initialized")
	}
	s.life, s.stopLife = context.WithCancel(context.WithoutCancel(ctx))
	s.unsubLogout = s.sessions.OnLogout(func(session.Event) { s.replace(nil) })
	s.scheduler = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.scheduler.Schedule(cron.Every(s.interval), cron.FuncJob(s.poll))
	s.scheduler.Start()
	s.lifeMu.Unlock()

	return s.Fetch(ctx)
}

// Dispose stops polling and waits for background server calls to finish.
func (s *Store) Dispose() {
	s.lifeMu.Lock()
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
		s.scheduler = nil
	}
	if s.unsubLogout != nil {
		s.unsubLogout()
		s.unsubLogout = nil
	}
	s.lifeMu.Unlock()

	s.mirrors.Wait()

	s.lifeMu.Lock()
	if s.stopLife != nil {
		s.stopLife()
		s.stopLife = nil
	}
	s.life = context.Background()
	s.lifeMu.Unlock()
}

func (s *Store) poll() {
	if err := s.Fetch(s.lifeContext()); err != nil {
		if core.IsUnauthorized(err) {
			s.logger.Warn("notification poll: session ended", err)
			return
		}
		s.logger.Error("notification poll failed", err)
	}
}

func (s *Store) lifeContext() context.Context {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	return s.life
}

// Fetch replaces the local list with the server's. Without a token the list is cleared and
// nothing is requested.
func (s *Store) Fetch(ctx context.Context) error {
	if s.sessions.Token() == "" {
		s.replace(nil)
		return nil
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		if core.IsUnauthorized(err) {
			// credentials were already cleared by the HTTP client
			s.replace(nil)
		}
		return errors.Wrap(err, "fetching notifications")
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	s.replace(items)
	return nil
}

// Add stores a new unread notification at the top of the list and mirrors it to the server.
func (s *Store) Add(nn NewNotification) (Notification, error) {
	nn = nn.clean()
	if err := s.validator.Struct(nn); err != nil {
		return Notification{}, err
	}
	if nn.UserID == "" {
		if prof, err := s.sessions.Profile(); err == nil {
			nn.UserID = prof.ID
			if nn.UserRole == core.RoleUnknown {
				nn.UserRole = prof.Role
			}
		}
	}

	now := s.now()
	n := Notification{
		ID:         newID(now),
		Title:      nn.Title,
		Message:    nn.Message,
		Severity:   nn.Severity,
		Read:       false,
		CreatedAt:  now,
		UserID:     nn.UserID,
		UserRole:   nn.UserRole,
		ActionType: nn.ActionType,
		ActionURL:  nn.ActionURL,
		Metadata:   nn.Metadata,
	}

	s.mutate(func(items []Notification) []Notification {
		return append([]Notification{n}, items...)
	})
	s.mirror("creating notification", func(ctx context.Context) error { return s.repo.Create(ctx, n) })
	return n, nil
}

// MarkRead flips the read flag of id. Unknown or already read ids change nothing.
func (s *Store) MarkRead(id string) {
	var changed bool
	s.mutate(func(items []Notification) []Notification {
		for i := range items {
			if items[i].ID == id && !items[i].Read {
				items[i].Read = true
				changed = true
			}
		}
		return items
	})
	if changed {
		s.mirror("marking notification read", func(ctx context.Context) error { return s.repo.MarkRead(ctx, id) })
	}
}

// MarkAllRead flips every unread notification and bulk-updates the server with those ids.
func (s *Store) MarkAllRead() {
	var ids []string
	s.mutate(func(items []Notification) []Notification {
		for i := range items {
			if !items[i].Read {
				items[i].Read = true
				ids = append(ids, items[i].ID)
			}
		}
		return items
	})
	if len(ids) > 0 {
		s.mirror("marking notifications read", func(ctx context.Context) error { return s.repo.MarkManyRead(ctx, ids) })
	}
}

func (s *Store) Delete(id string) {
	var found bool
	s.mutate(func(items []Notification) []Notification {
		kept := items[:0]
		for _, it := range items {
			if it.ID == id {
				found = true
				continue
			}
			kept = append(kept, it)
		}
		return kept
	})
	if found {
		s.mirror("deleting notification", func(ctx context.Context) error { return s.repo.Delete(ctx, id) })
	}
}

// List returns a copy of the notifications, newest first.
func (s *Store) List() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Notification(nil), s.items...)
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CountUnread(s.items)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Subscribe calls fn with a fresh snapshot after every change. fn runs outside the store lock,
// possibly on several goroutines at once; compare Snapshot.Seq to drop stale deliveries.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshot() Snapshot {
	items := append([]Notification(nil), s.items...)
	return Snapshot{Seq: s.seq, Items: items, UnreadCount: CountUnread(items)}
}

func (s *Store) replace(items []Notification) {
	s.mutate(func([]Notification) []Notification { return items })
}

func (s *Store) mutate(fn func([]Notification) []Notification) {
	s.mu.Lock()
	s.items = fn(s.items)
	s.seq++
	snap := s.snapshot()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// mirror runs call in the background; failures are logged and never rolled back.
func (s *Store) mirror(what string, call func(ctx context.Context) error) {
	ctx := s.lifeContext()
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		if err := call(ctx); err != nil {
			s.logger.Error(what, errors.Wrap(err, what))
		}
	}()
}

// newID is time based with a random suffix.
func newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
