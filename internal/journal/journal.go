package journal

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davtask/davtask/internal/storage"
	"github.com/davtask/davtask/internal/task"
)

// Journal is the durable action queue for one data root.
type Journal struct {
	store *storage.Store
}

// New creates a journal backed by the store's data root.
func New(store *storage.Store) *Journal {
	return &Journal{store: store}
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.store.JournalPath()
}

// Load returns the persisted queue in push order. A missing journal
// file means an empty queue, not an error.
func (j *Journal) Load() ([]task.Action, error) {
	data, err := os.ReadFile(j.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	var actions []task.Action
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("failed to parse journal: %w", err)
	}
	return actions, nil
}

// Push appends one action to the queue: lock, load, append, atomic
// rewrite, release. Concurrent pushes from independent processes all
// survive; none are lost or duplicated.
func (j *Journal) Push(a task.Action) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("refusing to queue action: %w", err)
	}
	return j.Modify(func(queue []task.Action) []task.Action {
		return append(queue, a)
	})
}

// Modify performs a scoped read-modify-write of the whole queue under
// the journal lock. f receives the current queue and returns the queue
// to persist. Used by the sync engine to clear consumed entries and
// retarget later actions after a move.
func (j *Journal) Modify(f func([]task.Action) []task.Action) error {
	release, err := j.store.Lock(j.Path())
	if err != nil {
		return err
	}
	defer release()

	queue, err := j.Load()
	if err != nil {
		return err
	}
	queue = f(queue)
	if queue == nil {
		queue = []task.Action{}
	}
	data, err := json.MarshalIndent(queue, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}
	return j.store.AtomicWrite(j.Path(), data)
}

// Remove deletes the entry with the given id, leaving entries pushed
// concurrently by other processes untouched. Removing an absent id is
// a no-op.
func (j *Journal) Remove(id string) error {
	return j.Modify(func(queue []task.Action) []task.Action {
		out := queue[:0]
		for _, a := range queue {
			if a.ID != id {
				out = append(out, a)
			}
		}
		return out
	})
}

// ApplyToTasks projects the pending queue onto an in-memory task list
// for one calendar, so callers see effective, not-yet-confirmed state:
//
//   - pending Delete removes the task (the user must never see a task
//     reappear that they already asked to delete, even while the
//     delete call itself is still retained after a transient failure)
//   - pending Move removes the task from the source calendar and
//     upserts it into the target calendar
//   - pending Create and Update upsert the queued version
//
// Tasks with an empty etag are left alone here; ghost pruning is the
// reconciler's job and never applies to local-only calendars.
func (j *Journal) ApplyToTasks(tasks []task.Task, calendarHref string) ([]task.Task, error) {
	queue, err := j.Load()
	if err != nil {
		return nil, err
	}
	for _, a := range queue {
		switch a.Kind {
		case task.ActionDelete:
			if a.Task.CalendarHref == calendarHref {
				tasks = task.Remove(tasks, a.Task.UID)
			}
		case task.ActionMove:
			if a.Task.CalendarHref == calendarHref {
				tasks = task.Remove(tasks, a.Task.UID)
			}
			if a.MoveTarget == calendarHref {
				moved := a.Task
				moved.CalendarHref = a.MoveTarget
				tasks = task.Upsert(tasks, moved)
			}
		case task.ActionCreate, task.ActionUpdate:
			if a.Task.CalendarHref == calendarHref {
				tasks = task.Upsert(tasks, a.Task)
			}
		}
	}
	return tasks, nil
}

// PendingCreate reports whether the queue holds a Create for the
// given uid. The reconciler uses this to keep not-yet-synced tasks
// out of ghost pruning.
func PendingCreate(queue []task.Action, uid string) bool {
	for _, a := range queue {
		if a.Kind == task.ActionCreate && a.Task.UID == uid {
			return true
		}
	}
	return false
}
