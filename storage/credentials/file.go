// Package credentials stores the client session in a JSON file.
package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/session"
)

type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ session.Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (st *FileStore) Path() string { return st.path }

func (st *FileStore) Load() (session.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session.Session{}, session.ErrNoSession
		}
		return session.Session{}, errors.Wrap(err, "reading session file")
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return session.Session{}, errors.Wrap(err, "decoding session file")
	}
	if s.IsZero() {
		return session.Session{}, session.ErrNoSession
	}
	return s, nil
}

func (st *FileStore) Save(s session.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}

	// write then rename so a crash never leaves a truncated file behind
	tmp, err := os.CreateTemp(filepath.Dir(st.path), ".session-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing session")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "chmod session")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing session")
	}
	return errors.Wrap(os.Rename(tmp.Name(), st.path), "renaming session")
}

func (st *FileStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.Remove(st.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
