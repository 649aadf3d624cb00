// Package daemon runs the sync engine in the background: it drains
// the journal on a fixed interval and additionally whenever another
// process appends to the journal file.
//
// The daemon:
//  1. Performs an initial journal drain on start
//  2. Watches the data root for journal writes (debounced)
//  3. Drains periodically as a catch-all for transient retries
//  4. Shuts down cleanly when its context is cancelled
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/davtask/davtask/internal/engine"
)

// Config holds daemon tuning knobs.
type Config struct {
	// SyncInterval is how often to drain the journal regardless of
	// file activity. Retained entries get their retry here.
	SyncInterval time.Duration

	// DebounceInterval batches rapid journal appends into one drain.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon couples a sync engine to a journal watcher.
type Daemon struct {
	engine      *engine.Engine
	journalPath string
	config      *Config
}

// New creates a daemon draining the given engine's journal.
func New(eng *engine.Engine, config *Config) (*Daemon, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = time.Minute
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	return &Daemon{
		engine:      eng,
		journalPath: eng.Journal().Path(),
		config:      config,
	}, nil
}

// Run blocks until ctx is cancelled, draining the journal on start,
// on journal writes, and on the periodic interval.
func (d *Daemon) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: atomic rewrites replace the
	// inode, and a watch on the old inode would go quiet.
	dir := filepath.Dir(d.journalPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	d.config.Logger.Printf("watching %s", d.journalPath)

	d.drain(ctx)

	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Println("shutting down")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(d.journalPath) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(d.config.DebounceInterval, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.config.Logger.Printf("watcher error: %v", err)

		case <-trigger:
			d.drain(ctx)

		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// drain runs one journal sync, logging warnings and errors instead of
// propagating them; retained entries get retried on the next trigger.
func (d *Daemon) drain(ctx context.Context) {
	warnings, err := d.engine.SyncJournal(ctx)
	for _, w := range warnings {
		d.config.Logger.Printf("warning: %s", w)
	}
	if err != nil {
		d.config.Logger.Printf("sync: %v", err)
		return
	}
	if len(warnings) == 0 {
		d.config.Logger.Println("sync clean")
	}
}
