package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/davtask/davtask/internal/caldav"
	"github.com/davtask/davtask/internal/ics"
	"github.com/davtask/davtask/internal/journal"
	"github.com/davtask/davtask/internal/storage"
	"github.com/davtask/davtask/internal/task"
)

// reconcileParallelism bounds concurrent per-calendar reconciliations
// in GetAllTasks. The journal drain itself is always sequential.
const reconcileParallelism = 4

// GetTasks returns the effective task list for one calendar: the
// reconciled remote view (or local store) with pending journal state
// layered on top.
//
// The cache is never trusted on its own. A CTag match still gets
// ghost-pruned; a mismatch or absent token forces a full listing that
// rewrites cache and token. A cached task absent from a fresh listing
// was deleted on the server and is dropped.
func (e *Engine) GetTasks(ctx context.Context, calendarHref string) ([]task.Task, error) {
	if e.localOnly(calendarHref) {
		tasks, err := e.store.LoadLocal(calendarHref)
		if err != nil {
			return nil, err
		}
		return e.journal.ApplyToTasks(tasks, calendarHref)
	}

	queue, err := e.journal.Load()
	if err != nil {
		return nil, err
	}
	cache, err := e.store.LoadCache(calendarHref)
	if err != nil {
		return nil, err
	}

	tasks := cache.Tasks
	ctag, ctagErr := e.transport.CTag(ctx, calendarHref)
	switch {
	case ctagErr != nil:
		// Offline (or the server is refusing PROPFIND): serve the
		// snapshot. Ghost pruning below still applies.
		e.logger.Printf("reconcile %s: serving cache: %v", calendarHref, ctagErr)

	case cache.SyncToken != "" && ctag == cache.SyncToken:
		// Token fresh; the snapshot's membership is current.

	default:
		listing, listErr := e.transport.ListTodos(ctx, calendarHref)
		if listErr != nil {
			// The CTag came through but the listing did not; fall
			// back to the snapshot rather than failing the read.
			e.logger.Printf("reconcile %s: listing failed, serving cache: %v", calendarHref, listErr)
			break
		}
		tasks = e.fromListing(calendarHref, listing)
		if err := e.store.SaveCache(calendarHref, storage.CacheEntry{Tasks: tasks, SyncToken: ctag}); err != nil {
			return nil, err
		}
	}

	tasks = pruneGhosts(tasks, queue)
	return e.journal.ApplyToTasks(tasks, calendarHref)
}

// fromListing converts a fresh REPORT listing into tasks. Objects
// whose bodies fail to decode are skipped with a log line; a single
// malformed resource must not hide the rest of the calendar.
func (e *Engine) fromListing(calendarHref string, listing []caldav.Object) []task.Task {
	var tasks []task.Task
	for _, obj := range listing {
		t, err := ics.Decode(obj.Data)
		if err != nil {
			e.logger.Printf("reconcile %s: skipping %s: %v", calendarHref, obj.Href, err)
			continue
		}
		t.Href = obj.Href
		t.ETag = obj.ETag
		t.CalendarHref = calendarHref
		tasks = append(tasks, t)
	}
	return tasks
}

// pruneGhosts drops tasks with an empty etag that no pending journal
// Create backs. Such entries were never confirmed by the server and
// must not be shown as real. Local-only calendars never reach this
// path.
func pruneGhosts(tasks []task.Task, queue []task.Action) []task.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.ETag == "" && !journal.PendingCreate(queue, t.UID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// GetAllTasks reconciles every given calendar with bounded
// parallelism and returns the lists keyed by href. The first error
// wins; remaining calendars still finish.
func (e *Engine) GetAllTasks(ctx context.Context, hrefs []string) (map[string][]task.Task, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := make(chan struct{}, reconcileParallelism)
	out := make(map[string][]task.Task, len(hrefs))

	for _, href := range hrefs {
		wg.Add(1)
		go func(href string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tasks, err := e.GetTasks(ctx, href)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("reconcile %s: %w", href, err)
				}
				return
			}
			out[href] = tasks
		}(href)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
