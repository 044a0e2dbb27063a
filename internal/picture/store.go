package picture

import (
	"sync"
	"time"
)

// Store holds the most recent JPEG preview per printer serial. Previous
// previews are overwritten; nothing is persisted.
type Store struct {
	mu      sync.RWMutex
	entries map[string]storedImage
}

type storedImage struct {
	data    []byte
	updated time.Time
}

// NewStore creates an empty preview store
func NewStore() *Store {
	return &Store{entries: make(map[string]storedImage)}
}

// Put replaces the preview for a serial
func (s *Store) Put(serial string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[serial] = storedImage{data: data, updated: time.Now().UTC()}
}

// Get returns the latest preview and when it was stored
func (s *Store) Get(serial string) ([]byte, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[serial]
	if !ok {
		return nil, time.Time{}, false
	}
	return entry.data, entry.updated, true
}
