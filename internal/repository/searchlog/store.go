package searchlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/domain/trend"
)

// DefaultSaveEvery is how many appended entries trigger a periodic save.
const DefaultSaveEvery = 10

// fileFormat is the on-disk JSON document.
type fileFormat struct {
	Searches []trend.LogEntry `json:"searches"`
}

// Store keeps the full search log in memory and persists it as a single
// JSON document: bulk load at startup, save every Nth append and on Flush.
// Entries appended between periodic saves are lost if the process dies;
// the log is analytics data, not a system of record.
type Store struct {
	mu        sync.Mutex
	path      string
	entries   []trend.LogEntry
	saveEvery int
	logger    *zap.Logger
}

// New creates a store backed by the JSON file at path.
func New(path string, saveEvery int, logger *zap.Logger) *Store {
	if saveEvery <= 0 {
		saveEvery = DefaultSaveEvery
	}
	return &Store{path: path, saveEvery: saveEvery, logger: logger}
}

// Load reads the log file. A missing file starts an empty log; a corrupt
// file is discarded with a warning rather than failing startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.entries = nil
			return nil
		}
		return fmt.Errorf("read search log: %w", err)
	}

	var doc fileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("Discarding corrupt search log", zap.String("path", s.path), zap.Error(err))
		s.entries = nil
		return nil
	}

	s.entries = doc.Searches
	return nil
}

// Append adds an entry and saves the log when the periodic threshold is hit.
func (s *Store) Append(e trend.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if len(s.entries)%s.saveEvery != 0 {
		return nil
	}
	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("periodic save: %w", err)
	}
	return nil
}

// Entries returns a snapshot of the full log.
func (s *Store) Entries() []trend.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]trend.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Flush forces a save.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("flush search log: %w", err)
	}
	return nil
}

func (s *Store) saveLocked() error {
	data, err := json.Marshal(fileFormat{Searches: s.entries})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
