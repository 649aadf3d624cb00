package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/davtask/davtask/internal/task"
)

// Calendars returns the ordered calendar listing: discovered server
// calendars, configured local-only calendars, the synthetic local
// calendar, and the recovery calendar when it holds at least one task.
//
// When the server is unreachable the last successful discovery result
// is served from disk, so the listing works offline.
func (e *Engine) Calendars(ctx context.Context) ([]task.CalendarListEntry, error) {
	remote, err := e.discoverCalendars(ctx)
	if err != nil {
		return nil, err
	}

	entries := remote
	for _, c := range e.locals {
		c.LocalOnly = true
		entries = append(entries, c)
	}
	entries = append(entries, task.CalendarListEntry{
		Name:      "Local",
		Href:      task.LocalCalendarHref,
		LocalOnly: true,
	})

	// The recovery calendar is a trap for failed syncs: invisible
	// while empty, impossible to miss once something lands in it.
	recovered, err := e.store.LoadLocal(task.RecoveryCalendarHref)
	if err != nil {
		return nil, err
	}
	if len(recovered) > 0 {
		entries = append(entries, task.CalendarListEntry{
			Name:      "Recovery",
			Href:      task.RecoveryCalendarHref,
			LocalOnly: true,
		})
	}
	return entries, nil
}

// discoverCalendars queries the server and persists the result; on
// transport failure it falls back to the persisted listing.
func (e *Engine) discoverCalendars(ctx context.Context) ([]task.CalendarListEntry, error) {
	found, err := e.transport.FindCalendars(ctx)
	if err != nil {
		e.logger.Printf("calendar discovery failed, serving cached listing: %v", err)
		return e.loadCalendarListing()
	}

	entries := make([]task.CalendarListEntry, 0, len(found))
	for _, c := range found {
		entries = append(entries, task.CalendarListEntry{
			Name:  c.Name,
			Href:  c.Href,
			Color: c.Color,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Href < entries[j].Href
	})

	if err := e.saveCalendarListing(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (e *Engine) calendarListingPath() string {
	return filepath.Join(e.store.Root(), "calendars.json")
}

func (e *Engine) loadCalendarListing() ([]task.CalendarListEntry, error) {
	data, err := os.ReadFile(e.calendarListingPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read calendar listing: %w", err)
	}
	var entries []task.CalendarListEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse calendar listing: %w", err)
	}
	return entries, nil
}

func (e *Engine) saveCalendarListing(entries []task.CalendarListEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calendar listing: %w", err)
	}
	return e.store.AtomicWrite(e.calendarListingPath(), data)
}
