package notification

import (
	"fmt"
	"net/mail"
	"sync"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
)

const digestTemplate = "notification_digest"

type digestData struct {
	Name  string
	Items []Notification
}

// Digest builds an email listing the unread notifications of items. It returns nil when
// nothing is unread.
func Digest(to string, prof user.Profile, items []Notification) *core.EmailMessage {
	var unread []Notification
	for _, it := range items {
		if !it.Read {
			unread = append(unread, it)
		}
	}
	if len(unread) == 0 {
		return nil
	}

	name := prof.Name
	if name == "" {
		name = prof.Email
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name, Address: to}},
		Subject:      fmt.Sprintf("You have %d unread notification(s)", len(unread)),
		TemplateName: digestTemplate,
		TemplateData: digestData{Name: name, Items: unread},
	}
}

// Tracker remembers which unread notifications were already reported.
type Tracker struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	lastSeq uint64
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Fresh returns the unread notifications of snap not reported before and marks them seen.
// Snapshots older than the last one handled are ignored.
func (t *Tracker) Fresh(snap Snapshot) []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	if snap.Seq != 0 {
		if snap.Seq <= t.lastSeq {
			return nil
		}
		t.lastSeq = snap.Seq
	}

	var fresh []Notification
	for _, it := range snap.Items {
		if it.Read {
			continue
		}
		if _, ok := t.seen[it.ID]; ok {
			continue
		}
		t.seen[it.ID] = struct{}{}
		fresh = append(fresh, it)
	}
	return fresh
}
