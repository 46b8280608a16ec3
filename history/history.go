// Package history persists the user's command history.
//
// History is a flat ordered list stored as JSON in the data directory.
// Persistence failures are logged and swallowed: losing a history write
// must never crash or stall a run.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"pipewatch/logger"
	"pipewatch/paths"
)

// DefaultLimit is the default cap on stored entries.
const DefaultLimit = 500

// Store holds command history and writes it through to disk on append.
type Store struct {
	mu       sync.Mutex
	entries  []string
	limit    int
	filePath string
}

// Load reads history from the default data-dir location.
// A missing or unreadable file yields an empty store.
func Load(limit int) *Store {
	fp, err := paths.HistoryFilePath()
	if err != nil {
		logger.WithComponent("history").Warn("history path unavailable", "error", err)
		return LoadFile("", limit)
	}
	return LoadFile(fp, limit)
}

// LoadFile reads history from an explicit path. An empty path disables
// persistence (entries are kept in memory only). A missing or corrupt file
// yields an empty store rather than an error.
func LoadFile(path string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Store{limit: limit, filePath: path}

	if path == "" {
		return s
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WithComponent("history").Warn("failed to read history", "path", path, "error", err)
		}
		return s
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.WithComponent("history").Warn("failed to parse history", "path", path, "error", err)
		return s
	}

	// Enforce the cap on load too, in case the limit shrank
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	s.entries = entries
	return s
}

// Append adds an entry, deduplicating only against the immediately
// preceding entry, evicting the oldest entries beyond the cap, and
// persisting to disk. Returns false if the entry was suppressed as an
// adjacent duplicate.
func (s *Store) Append(entry string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.entries); n > 0 && s.entries[n-1] == entry {
		return false
	}

	s.entries = append(s.entries, entry)
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}

	s.saveLocked()
	return true
}

// Entries returns a copy of the current history, oldest first.
func (s *Store) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// saveLocked writes history to disk. Failures are logged, never returned.
// Caller must hold mu.
func (s *Store) saveLocked() {
	if s.filePath == "" {
		return
	}

	log := logger.WithComponent("history")

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		log.Warn("failed to create history directory", "error", err)
		return
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		log.Warn("failed to encode history", "error", err)
		return
	}

	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		log.Warn("failed to write history", "path", s.filePath, "error", err)
	}
}
