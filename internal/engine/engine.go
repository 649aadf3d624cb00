package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/davtask/davtask/internal/caldav"
	"github.com/davtask/davtask/internal/ics"
	"github.com/davtask/davtask/internal/journal"
	"github.com/davtask/davtask/internal/storage"
	"github.com/davtask/davtask/internal/task"
)

// ErrSyncIncomplete is returned by SyncJournal when at least one
// action was genuinely retained after a transient failure. The journal
// is left in a consistent, resumable state.
var ErrSyncIncomplete = errors.New("sync incomplete: transient failures remain queued")

// conflictNamespace derives deterministic uids for conflict copies
// from the journal entry id, so replaying an interrupted run cannot
// fork a second copy of the same edit.
var conflictNamespace = uuid.MustParse("9c0f6e3a-54d1-4df0-b6a1-5f6d2c8a7e41")

// outcome is the terminal state of one journal entry for one run.
type outcome int

const (
	outcomeApplied outcome = iota
	outcomeRecovered
	outcomeRetained
)

// Engine drains the journal and reconciles calendar views.
//
// The transport is constructor-injected so tests substitute a fake
// instance per engine instead of mutating shared process state.
type Engine struct {
	transport caldav.Transport
	store     *storage.Store
	journal   *journal.Journal
	locals    []task.CalendarListEntry
	logger    *log.Logger
}

// New creates an engine.
//
// locals lists the configured local-only calendars (the synthetic
// local and recovery calendars are always present and need not be
// listed). If logger is nil, a default logger writing to stderr is
// used.
func New(transport caldav.Transport, store *storage.Store, jnl *journal.Journal, locals []task.CalendarListEntry, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{
		transport: transport,
		store:     store,
		journal:   jnl,
		locals:    locals,
		logger:    logger,
	}
}

// Journal exposes the engine's journal for producers (CLI commands,
// UI adapters).
func (e *Engine) Journal() *journal.Journal {
	return e.journal
}

// localOnly reports whether href is a local-only calendar: either
// synthetic (local://) or configured as local.
func (e *Engine) localOnly(href string) bool {
	if task.IsLocalHref(href) {
		return true
	}
	for _, c := range e.locals {
		if c.Href == href && c.LocalOnly {
			return true
		}
	}
	return false
}

// SyncJournal processes the queue strictly in FIFO order, preserving
// the causal order of a user's edits to the same task.
//
// It returns human-readable warnings for every non-blocking resolution
// (conflict copies, recovery demotions) even on overall success, and a
// hard error only when at least one action was retained. Local I/O and
// lock errors abort the run and propagate as-is.
func (e *Engine) SyncJournal(ctx context.Context) ([]string, error) {
	queue, err := e.journal.Load()
	if err != nil {
		return nil, err
	}

	var warnings []string
	for i := 0; i < len(queue); i++ {
		a := queue[i]
		res, warns, err := e.dispatch(ctx, a)
		warnings = append(warnings, warns...)
		if err != nil {
			return warnings, err
		}
		if res == outcomeRetained {
			e.logger.Printf("retained %s; stopping this run", a)
			return warnings, fmt.Errorf("%w (%s)", ErrSyncIncomplete, a)
		}

		// Applied or Recovered: the entry is consumed. Removal and any
		// move retargeting happen in one locked journal rewrite so
		// entries pushed concurrently by other processes survive.
		var retarget map[string]retargetTo
		if res == outcomeApplied && a.Kind == task.ActionMove {
			retarget = map[string]retargetTo{
				a.Task.UID: {href: joinHref(a.MoveTarget, a.Task.Filename()), calendar: a.MoveTarget},
			}
			for j := i + 1; j < len(queue); j++ {
				if queue[j].Task.UID == a.Task.UID {
					queue[j].Task.Href = joinHref(a.MoveTarget, a.Task.Filename())
					queue[j].Task.CalendarHref = a.MoveTarget
				}
			}
		}
		if err := e.consume(a.ID, retarget); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

type retargetTo struct {
	href     string
	calendar string
}

// consume removes the entry with the given id and retargets any later
// queued actions per the map, in a single locked rewrite.
func (e *Engine) consume(id string, retarget map[string]retargetTo) error {
	return e.journal.Modify(func(queue []task.Action) []task.Action {
		out := queue[:0]
		for _, a := range queue {
			if a.ID == id {
				continue
			}
			if to, ok := retarget[a.Task.UID]; ok {
				a.Task.Href = to.href
				a.Task.CalendarHref = to.calendar
			}
			out = append(out, a)
		}
		return out
	})
}

// dispatch applies one action and classifies the result. The returned
// error is reserved for local I/O failures; server statuses map to
// outcomes.
func (e *Engine) dispatch(ctx context.Context, a task.Action) (outcome, []string, error) {
	switch a.Kind {
	case task.ActionCreate:
		return e.syncCreate(ctx, a.Task)
	case task.ActionUpdate:
		return e.syncUpdate(ctx, a)
	case task.ActionDelete:
		return e.syncDelete(ctx, a.Task)
	case task.ActionMove:
		return e.syncMove(ctx, a)
	default:
		// Unknown kinds cannot be applied and must not wedge the
		// queue forever.
		return outcomeRecovered, []string{fmt.Sprintf("dropped journal entry with unknown kind %q", a.Kind)}, nil
	}
}

// syncCreate writes a new resource with If-None-Match: * so a
// concurrently created resource is detected instead of overwritten.
func (e *Engine) syncCreate(ctx context.Context, t task.Task) (outcome, []string, error) {
	if e.localOnly(t.CalendarHref) {
		t.Href = ""
		t.ETag = ""
		if err := e.store.UpsertLocal(t.CalendarHref, t); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil
	}

	href := t.Href
	if href == "" {
		href = joinHref(t.CalendarHref, t.Filename())
	}
	body, err := ics.Encode(t)
	if err != nil {
		return 0, nil, err
	}

	resp, err := e.transport.Put(ctx, href, body, caldav.PutOptions{IfNoneMatch: true})
	if err != nil {
		e.logger.Printf("create %s: %v", t.UID, err)
		return outcomeRetained, nil, nil
	}

	switch {
	case resp.OK():
		t.Href = href
		t.ETag = resp.ETag
		if t.ETag == "" {
			// Some servers omit the ETag header on PUT; fetch it so
			// the task does not linger unconfirmed.
			if g, gerr := e.transport.Get(ctx, href); gerr == nil && g.OK() {
				t.ETag = g.ETag
			}
		}
		if err := e.upsertCache(t.CalendarHref, t); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil

	case resp.StatusCode == 412:
		// The resource already exists: a previous run applied this
		// create, or another device got there first. Fold the remote
		// copy in rather than erroring, which would retry forever.
		g, gerr := e.transport.Get(ctx, href)
		if gerr != nil || !g.OK() {
			return outcomeRetained, nil, nil
		}
		remote, derr := ics.Decode(g.Body)
		if derr != nil {
			return outcomeRetained, nil, nil
		}
		remote.Href = href
		remote.ETag = g.ETag
		remote.CalendarHref = t.CalendarHref
		if err := e.upsertCache(t.CalendarHref, remote); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil

	case resp.StatusCode == 404:
		// Collection not reachable yet; try again next run.
		return outcomeRetained, nil, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		warn, err := e.recover(t, resp.StatusCode)
		return outcomeRecovered, warn, err

	default:
		return outcomeRetained, nil, nil
	}
}

// syncUpdate writes an edit with If-Match so a concurrent server-side
// change surfaces as 412 instead of being overwritten.
func (e *Engine) syncUpdate(ctx context.Context, a task.Action) (outcome, []string, error) {
	t := a.Task
	if e.localOnly(t.CalendarHref) {
		t.Href = ""
		t.ETag = ""
		if err := e.store.UpsertLocal(t.CalendarHref, t); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil
	}
	if t.ETag == "" || t.Href == "" {
		// Never confirmed on the server; an update of it is a create.
		return e.syncCreate(ctx, t)
	}

	body, err := ics.Encode(t)
	if err != nil {
		return 0, nil, err
	}
	resp, err := e.transport.Put(ctx, t.Href, body, caldav.PutOptions{IfMatch: t.ETag})
	if err != nil {
		e.logger.Printf("update %s: %v", t.UID, err)
		return outcomeRetained, nil, nil
	}

	switch {
	case resp.OK():
		t.ETag = resp.ETag
		if err := e.upsertCache(t.CalendarHref, t); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil

	case resp.StatusCode == 404:
		// The resource vanished under us (deleted on the server or
		// moved by another device). Resurrect the edit as a create.
		fresh := t
		fresh.ETag = ""
		return e.syncCreate(ctx, fresh)

	case resp.StatusCode == 412:
		return e.forkConflictCopy(ctx, a)

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		warn, err := e.recover(t, resp.StatusCode)
		return outcomeRecovered, warn, err

	default:
		return outcomeRetained, nil, nil
	}
}

// forkConflictCopy preserves a local edit that lost an If-Match race:
// the server's version wins in place, and the edit is re-created as a
// new task. The copy's uid is derived from the journal entry id, so a
// replay after a crash folds into the already-created copy instead of
// forking another one.
func (e *Engine) forkConflictCopy(ctx context.Context, a task.Action) (outcome, []string, error) {
	local := a.Task

	copyTask := local
	copyTask.UID = uuid.NewSHA1(conflictNamespace, []byte(a.ID)).String()
	copyTask.Href = ""
	copyTask.ETag = ""

	res, warns, err := e.syncCreate(ctx, copyTask)
	if err != nil || res != outcomeApplied {
		return res, warns, err
	}

	// Refresh the cache with the server's winning version of the
	// original resource.
	if g, gerr := e.transport.Get(ctx, local.Href); gerr == nil && g.OK() {
		if remote, derr := ics.Decode(g.Body); derr == nil {
			remote.Href = local.Href
			remote.ETag = g.ETag
			remote.CalendarHref = local.CalendarHref
			if err := e.upsertCache(local.CalendarHref, remote); err != nil {
				return 0, warns, err
			}
		}
	}

	warns = append(warns, fmt.Sprintf(
		"task %q changed on the server while you edited it; your edit was saved as a new task", local.Summary))
	return outcomeApplied, warns, nil
}

func (e *Engine) syncDelete(ctx context.Context, t task.Task) (outcome, []string, error) {
	if e.localOnly(t.CalendarHref) {
		if err := e.store.RemoveLocal(t.CalendarHref, t.UID); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil
	}
	if t.Href == "" {
		// Never reached the server; nothing remote to delete.
		if err := e.removeFromCache(t.CalendarHref, t.UID); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil
	}

	resp, err := e.transport.Delete(ctx, t.Href, t.ETag)
	if err != nil {
		e.logger.Printf("delete %s: %v", t.UID, err)
		return outcomeRetained, nil, nil
	}
	// 404 means already gone, which is what the user wanted.
	if resp.OK() || resp.StatusCode == 404 {
		if err := e.removeFromCache(t.CalendarHref, t.UID); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil
	}
	return outcomeRetained, nil, nil
}

// syncMove relocates a resource. The action's task snapshot was taken
// before any caller-side mutation, so its Href and CalendarHref are
// the true source location.
func (e *Engine) syncMove(ctx context.Context, a task.Action) (outcome, []string, error) {
	t := a.Task
	target := a.MoveTarget

	// Moves touching local-only storage decompose into copy + delete.
	if e.localOnly(target) || e.localOnly(t.CalendarHref) {
		return e.moveAcrossLocal(ctx, a)
	}

	dst := joinHref(target, t.Filename())
	resp, err := e.transport.Move(ctx, t.Href, dst)
	if err != nil {
		e.logger.Printf("move %s: %v", t.UID, err)
		return outcomeRetained, nil, nil
	}

	switch {
	case resp.OK(), resp.StatusCode == 404:
		// 404 on the source means a previous run already moved it.
		if err := e.removeFromCache(t.CalendarHref, t.UID); err != nil {
			return 0, nil, err
		}
		moved := t
		moved.CalendarHref = target
		moved.Href = dst
		if resp.Location != "" {
			moved.Href = resp.Location
		}
		if err := e.upsertCache(target, moved); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil

	default:
		return outcomeRetained, nil, nil
	}
}

// moveAcrossLocal handles moves where either endpoint is local-only.
func (e *Engine) moveAcrossLocal(ctx context.Context, a task.Action) (outcome, []string, error) {
	t := a.Task
	target := a.MoveTarget

	moved := t
	moved.CalendarHref = target
	moved.Href = ""
	moved.ETag = ""

	if e.localOnly(target) {
		// Into local storage first so the task is never lost, then
		// remove the remote original.
		if err := e.store.UpsertLocal(target, moved); err != nil {
			return 0, nil, err
		}
		if !e.localOnly(t.CalendarHref) && t.Href != "" {
			resp, err := e.transport.Delete(ctx, t.Href, t.ETag)
			if err != nil {
				return outcomeRetained, nil, nil
			}
			if !resp.OK() && resp.StatusCode != 404 {
				return outcomeRetained, nil, nil
			}
			if err := e.removeFromCache(t.CalendarHref, t.UID); err != nil {
				return 0, nil, err
			}
		} else if err := e.store.RemoveLocal(t.CalendarHref, t.UID); err != nil {
			return 0, nil, err
		}
		return outcomeApplied, nil, nil
	}

	// Local source, remote target: create remotely, then drop the
	// local copy.
	res, warns, err := e.syncCreate(ctx, moved)
	if err != nil || res != outcomeApplied {
		return res, warns, err
	}
	if err := e.store.RemoveLocal(t.CalendarHref, t.UID); err != nil {
		return 0, warns, err
	}
	return outcomeApplied, warns, nil
}

// recover materializes a task whose action hit a fatal status into the
// recovery calendar: a durable, visible trap instead of silent loss.
func (e *Engine) recover(t task.Task, status int) ([]string, error) {
	recovered := t
	recovered.CalendarHref = task.RecoveryCalendarHref
	recovered.Href = ""
	recovered.ETag = ""
	if err := e.store.UpsertLocal(task.RecoveryCalendarHref, recovered); err != nil {
		return nil, err
	}
	if err := e.removeFromCache(t.CalendarHref, t.UID); err != nil {
		return nil, err
	}
	warn := fmt.Sprintf("task %q could not be synced (HTTP %d); it was moved to the recovery calendar", t.Summary, status)
	e.logger.Print(warn)
	return []string{warn}, nil
}

func (e *Engine) upsertCache(calendarHref string, t task.Task) error {
	entry, err := e.store.LoadCache(calendarHref)
	if err != nil {
		return err
	}
	entry.Tasks = task.Upsert(entry.Tasks, t)
	return e.store.SaveCache(calendarHref, entry)
}

func (e *Engine) removeFromCache(calendarHref, uid string) error {
	entry, err := e.store.LoadCache(calendarHref)
	if err != nil {
		return err
	}
	entry.Tasks = task.Remove(entry.Tasks, uid)
	return e.store.SaveCache(calendarHref, entry)
}

// joinHref joins a collection href and a resource name.
func joinHref(collection, name string) string {
	return strings.TrimSuffix(collection, "/") + "/" + name
}
