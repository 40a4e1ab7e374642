package crawler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HistoryEntry records one archived URL. Entries are append-mostly and
// never removed by normal operation.
type HistoryEntry struct {
	Filename    string    `json:"filename"`
	Fingerprint string    `json:"fingerprint"`
	SavedAt     time.Time `json:"saved_at"`
}

// HistoryStore is the durable URL -> artifact mapping that makes crawls
// idempotent across restarts. It is the single source of truth for
// "already processed"; membership checks hit the in-memory set loaded
// once at startup, while every append is persisted with an atomic
// temp-file-plus-rename so readers never observe a torn file.
type HistoryStore struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]HistoryEntry
}

// NewHistoryStore builds a store backed by the JSON file at path.
// Call Load exactly once before scheduling begins.
func NewHistoryStore(path string, logger *zap.Logger) *HistoryStore {
	return &HistoryStore{
		path:    path,
		logger:  logger,
		entries: make(map[string]HistoryEntry),
	}
}

// Load reads the history file into memory. A missing file is a fresh
// start; an unreadable one is logged and treated as empty rather than
// aborting the run.
func (s *HistoryStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create history dir %s: %w", dir, err)
		}
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.entries = make(map[string]HistoryEntry)
		return nil
	}
	if err != nil {
		s.logger.Warn("Failed to read history file; starting empty",
			zap.String("path", s.path), zap.Error(err))
		s.entries = make(map[string]HistoryEntry)
		return nil
	}

	entries := make(map[string]HistoryEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("History file is malformed; starting empty",
			zap.String("path", s.path), zap.Error(err))
		s.entries = make(map[string]HistoryEntry)
		return nil
	}
	s.entries = entries
	s.logger.Info("Loaded history entries",
		zap.Int("count", len(entries)), zap.String("path", s.path))
	return nil
}

// Contains reports whether url was already archived. It consults only
// the in-memory set populated by Load.
func (s *HistoryStore) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[url]
	return ok
}

// Len returns the number of recorded URLs.
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Add records an archived URL and persists the full mapping. The
// in-memory set advances even when the disk write fails: the URL is
// then treated as processed for the remainder of this run but may be
// re-archived after a restart. That inconsistency is accepted and
// surfaced as a warning instead of failing the page.
func (s *HistoryStore) Add(url, filename, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[url] = HistoryEntry{
		Filename:    filename,
		Fingerprint: fingerprint,
		SavedAt:     nowUTC(),
	}

	if err := s.persistLocked(); err != nil {
		historyWriteErrors.Inc()
		s.logger.Warn("Failed to persist history; entry kept in memory only",
			zap.String("url", url), zap.Error(err))
		return err
	}
	return nil
}

// persistLocked serializes the whole mapping, writes it next to the
// canonical path, and renames it into place. Callers hold s.mu.
func (s *HistoryStore) persistLocked() error {
	payload, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write history temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.Debug("Failed to remove stale history temp", zap.Error(rmErr))
		}
		return fmt.Errorf("rename history %s: %w", s.path, err)
	}
	return nil
}
