package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Store is the atomic local store rooted at a data directory. The
// zero value is not usable; construct with New.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating the directory tree on
// first use.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	for _, sub := range []string{"", "cache", "local"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &Store{root: dir}, nil
}

// Root returns the data root directory.
func (s *Store) Root() string {
	return s.root
}

// JournalPath returns the path of the single journal file for this
// data root.
func (s *Store) JournalPath() string {
	return filepath.Join(s.root, "journal.json")
}

// CachePath returns the cache file path for a calendar href.
func (s *Store) CachePath(calendarHref string) string {
	return filepath.Join(s.root, "cache", escapeHref(calendarHref)+".json")
}

// LocalPath returns the data file path for a local-only calendar.
func (s *Store) LocalPath(calendarHref string) string {
	return filepath.Join(s.root, "local", escapeHref(calendarHref)+".json")
}

// escapeHref turns a calendar href into a safe flat filename.
func escapeHref(href string) string {
	return url.QueryEscape(href)
}

// Lock acquires a blocking exclusive advisory lock scoped to path.
// The lock file lives next to the data file so independent files can
// be locked independently. The returned release function must be
// called on every exit path; defer it immediately.
//
// Lock acquisition blocks rather than failing: correctness takes
// priority over latency when several processes share the data root.
func (s *Store) Lock(path string) (release func(), err error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// AtomicWrite replaces the file at path with data all-or-nothing.
// Readers never observe a partial file: the data is written to a
// temp file in the same directory, synced, then renamed over path.
func (s *Store) AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
