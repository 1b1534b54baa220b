// Package store persists installation records.
//
// The state lives in a single JSON document mapping package id to
// Record. The document is only ever replaced whole (write temp file,
// fsync, rename), so a crash mid-write leaves either the old or the new
// document on disk, never a truncated one. Reads fail open: a missing
// or corrupt document is treated as "nothing installed".
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/logging"
)

// Record describes one installed package.
type Record struct {
	PackageID       string    `json:"-"`
	InstallDir      string    `json:"gameDir"`
	ResolvedBaseDir string    `json:"baseDir"`
	EntryPointFile  string    `json:"exe"`
	InstalledAt     time.Time `json:"installedAt"`
}

// EntryPointPath returns the absolute path of the recorded executable.
func (r Record) EntryPointPath() string {
	return filepath.Join(r.ResolvedBaseDir, r.EntryPointFile)
}

// Store reads and writes the installation document. All mutations go
// through one mutex; callers in other processes are not coordinated.
type Store struct {
	path   string
	mu     sync.Mutex
	logger logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report fail-open reads.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(l)
	}
}

// Open returns a Store backed by the document at path. Nothing is read
// or created until first use.
func Open(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load returns every record. A missing, unreadable or unparsable
// document yields an empty map.
func (s *Store) Load() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the document with records.
func (s *Store) Save(records map[string]Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

// Get returns the record for id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.load()[id]
	return rec, ok
}

// Set stores rec under id, replacing any previous record.
func (s *Store) Set(id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	rec.PackageID = id
	records[id] = rec
	return s.save(records)
}

// Remove deletes the record for id. Removing an unknown id still
// rewrites the document, which creates it on first use.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	delete(records, id)
	return s.save(records)
}

// Installed returns the set of installed package ids.
func (s *Store) Installed() map[string]bool {
	records := s.Load()
	ids := make(map[string]bool, len(records))
	for id := range records {
		ids[id] = true
	}
	return ids
}

// IDs returns installed package ids in sorted order.
func (s *Store) IDs() []string {
	records := s.Load()
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) load() map[string]Record {
	records := make(map[string]Record)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("installation state unreadable, treating as empty", "path", s.path, "error", err)
		}
		return records
	}

	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("installation state corrupt, treating as empty", "path", s.path, "error", err)
		return make(map[string]Record)
	}
	if records == nil {
		// "null" decodes to a nil map
		return make(map[string]Record)
	}

	for id, rec := range records {
		rec.PackageID = id
		records[id] = rec
	}
	return records
}

func (s *Store) save(records map[string]Record) error {
	if records == nil {
		records = map[string]Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperr.Storage(err, "marshal installation state")
	}

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return apperr.Storage(err, "write installation state %s", s.path)
	}
	return nil
}
