package db

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/models"
)

// JSONStore keeps every record in one indented JSON object keyed by id.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Path() string { return s.path }

// Load returns an empty map when the file does not exist yet.
func (s *JSONStore) Load() (map[string]models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) load() (map[string]models.Connection, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]models.Connection{}, nil
	}
	if err != nil {
		return nil, errs.IO(err)
	}
	conns := map[string]models.Connection{}
	if len(data) == 0 {
		return conns, nil
	}
	if err := json.Unmarshal(data, &conns); err != nil {
		return nil, errs.Serialization(err)
	}
	return conns, nil
}

func (s *JSONStore) SaveAll(conns map[string]models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(conns)
}

func (s *JSONStore) save(conns map[string]models.Connection) error {
	data, err := json.MarshalIndent(conns, "", "  ")
	if err != nil {
		return errs.Serialization(err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errs.IO(err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errs.IO(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errs.IO(err)
	}
	return nil
}

func (s *JSONStore) Put(conn models.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, err := s.load()
	if err != nil {
		return err
	}
	conns[conn.ID] = conn
	return s.save(conns)
}

func (s *JSONStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := conns[id]; !ok {
		return nil
	}
	delete(conns, id)
	return s.save(conns)
}
