package core

import (
	"encoding/json"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is what the snapshot remembers about one path.
type Entry struct {
	Exists    bool      `json:"exists"`
	HasData   bool      `json:"has_data,omitempty"`
	Data      []byte    `json:"data,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Snapshot is the explicit cache behind ExistsCached and ReadFileCached.
// It only holds what earlier host calls returned; an entry older than TTL
// is stale and is not served. A zero TTL never expires entries.
type Snapshot struct {
	// Map cleaned path -> Entry
	Entries map[string]*Entry `json:"entries"`
	Path    string            `json:"-"`
	TTL     time.Duration     `json:"-"`
	now     func() time.Time
	mu      sync.RWMutex
	saveMu  sync.Mutex // serializes writers of Path
}

func NewSnapshot(file string, ttl time.Duration) *Snapshot {
	return &Snapshot{
		Entries: make(map[string]*Entry),
		Path:    file,
		TTL:     ttl,
		now:     time.Now,
	}
}

func cacheKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Load reads a snapshot saved by Save. A missing file is not an error.
func (s *Snapshot) Load() error {
	if s.Path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	entries := make(map[string]*Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[string]*Entry)
	}
	for k, e := range entries {
		if e == nil {
			delete(entries, k)
		}
	}
	s.Entries = entries
	return nil
}

func (s *Snapshot) Save() error {
	if s.Path == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := json.MarshalIndent(s.Entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0644)
}

func (s *Snapshot) SetExists(p string, exists bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(p)
	e, ok := s.Entries[key]
	if !ok || !exists {
		e = &Entry{}
		s.Entries[key] = e
	}
	e.Exists = exists
	e.FetchedAt = s.now()
}

func (s *Snapshot) SetData(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Entries[cacheKey(p)] = &Entry{
		Exists:    true,
		HasData:   true,
		Data:      append([]byte(nil), data...),
		FetchedAt: s.now(),
	}
}

// Invalidate forgets p and everything below it.
func (s *Snapshot) Invalidate(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(p)
	for k := range s.Entries {
		if k == key || key == "" || strings.HasPrefix(k, key+"/") {
			delete(s.Entries, k)
		}
	}
}

func (s *Snapshot) fresh(e *Entry) bool {
	return s.TTL == 0 || s.now().Sub(e.FetchedAt) <= s.TTL
}

// Exists returns the cached existence of p; ok is false when nothing fresh is known.
func (s *Snapshot) Exists(p string) (exists, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, found := s.Entries[cacheKey(p)]
	if !found || !s.fresh(e) {
		return false, false
	}
	return e.Exists, true
}

// Data returns a copy of the cached contents of p.
func (s *Snapshot) Data(p string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, found := s.Entries[cacheKey(p)]
	if !found || !e.HasData || !s.fresh(e) {
		return nil, false
	}
	return append([]byte(nil), e.Data...), true
}

// Paths returns the cached paths in sorted order, with whether contents are held.
func (s *Snapshot) Paths() (paths []string, withData map[string]bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	withData = make(map[string]bool, len(s.Entries))
	for k, e := range s.Entries {
		paths = append(paths, k)
		withData[k] = e.HasData
	}
	sort.Strings(paths)
	return paths, withData
}
