package engine

import (
	"context"

	"github.com/davtask/davtask/internal/caldav"
	"github.com/davtask/davtask/internal/ics"
	"github.com/davtask/davtask/internal/task"
)

// The mutation entry points below implement the UI-facing write path:
// try the server directly while online, and queue the action in the
// journal whenever the direct attempt does not cleanly succeed. All
// classification beyond plain success stays in SyncJournal, so the
// retry/recovery rules live in exactly one place.

// Create adds a new task. Local-only calendars are written directly;
// remote calendars get one direct PUT attempt before queueing.
func (e *Engine) Create(ctx context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	a := task.NewCreate(t)
	if e.localOnly(t.CalendarHref) {
		_, _, err := e.syncCreate(ctx, t)
		return err
	}
	if e.tryDirectPut(ctx, t, caldav.PutOptions{IfNoneMatch: true}) {
		return nil
	}
	return e.journal.Push(a)
}

// Update queues or directly applies an edit. The caller passes the
// edited task; its ETag must be the one the edit was based on.
func (e *Engine) Update(ctx context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	a := task.NewUpdate(t)
	if e.localOnly(t.CalendarHref) {
		_, _, err := e.syncUpdate(ctx, a)
		return err
	}
	if t.ETag != "" && t.Href != "" &&
		e.tryDirectPut(ctx, t, caldav.PutOptions{IfMatch: t.ETag}) {
		return nil
	}
	return e.journal.Push(a)
}

// Delete removes a task, directly when possible.
func (e *Engine) Delete(ctx context.Context, t task.Task) error {
	a := task.NewDelete(t)
	if e.localOnly(t.CalendarHref) {
		_, _, err := e.syncDelete(ctx, t)
		return err
	}
	if t.Href != "" {
		if resp, err := e.transport.Delete(ctx, t.Href, t.ETag); err == nil && (resp.OK() || resp.StatusCode == 404) {
			return e.removeFromCache(t.CalendarHref, t.UID)
		}
	}
	return e.journal.Push(a)
}

// Move queues relocation of a task to another calendar. snapshot must
// be the task as it was before any caller-side mutation of its
// CalendarHref; deriving the source from an already-mutated task is
// how duplicate-task bugs happen.
func (e *Engine) Move(ctx context.Context, snapshot task.Task, targetHref string) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	return e.journal.Push(task.NewMove(snapshot, targetHref))
}

// tryDirectPut performs one optimistic PUT and folds a success into
// the cache. Any other outcome sends the caller to the journal.
func (e *Engine) tryDirectPut(ctx context.Context, t task.Task, opts caldav.PutOptions) bool {
	href := t.Href
	if href == "" {
		href = joinHref(t.CalendarHref, t.Filename())
	}
	body, err := ics.Encode(t)
	if err != nil {
		return false
	}
	resp, err := e.transport.Put(ctx, href, body, opts)
	if err != nil || !resp.OK() {
		return false
	}
	t.Href = href
	t.ETag = resp.ETag
	if err := e.upsertCache(t.CalendarHref, t); err != nil {
		e.logger.Printf("direct write of %s applied but cache update failed: %v", t.UID, err)
	}
	return true
}
