package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davtask/davtask/internal/task"
)

// CacheEntry is the persisted per-calendar snapshot. The snapshot is
// advisory only: existence must be re-validated against a fresh server
// listing (or explicit absence of one) before being trusted.
type CacheEntry struct {
	Tasks []task.Task `json:"tasks"`

	// SyncToken is the opaque remote change token (CTag) the snapshot
	// was taken at. Empty means the snapshot was never validated.
	SyncToken string `json:"sync_token,omitempty"`
}

// LoadCache reads the cached snapshot for a calendar. A missing cache
// file yields an empty entry, not an error.
func (s *Store) LoadCache(calendarHref string) (CacheEntry, error) {
	path := s.CachePath(calendarHref)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CacheEntry{}, nil
		}
		return CacheEntry{}, fmt.Errorf("failed to read cache %s: %w", path, err)
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, fmt.Errorf("failed to parse cache %s: %w", path, err)
	}
	return entry, nil
}

// SaveCache atomically rewrites the cached snapshot for a calendar.
func (s *Store) SaveCache(calendarHref string, entry CacheEntry) error {
	path := s.CachePath(calendarHref)
	release, err := s.Lock(path)
	if err != nil {
		return err
	}
	defer release()

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache for %s: %w", calendarHref, err)
	}
	return s.AtomicWrite(path, data)
}
