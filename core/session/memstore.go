package session

import "sync"

// MemStore keeps the session in memory only.
type MemStore struct {
	mu sync.RWMutex
	s  Session
}

var _ Store = (*MemStore)(nil)

func NewMemStore(initial ...Session) *MemStore {
	st := new(MemStore)
	if len(initial) > 0 {
		st.s = initial[0]
	}
	return st
}

func (st *MemStore) Load() (Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.s.IsZero() {
		return Session{}, ErrNoSession
	}
	return st.s, nil
}

func (st *MemStore) Save(s Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = s
	return nil
}

func (st *MemStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = Session{}
	return nil
}
