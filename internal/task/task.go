package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status values for a VTODO task.
const (
	StatusNeedsAction = "NEEDS-ACTION"
	StatusInProcess   = "IN-PROCESS"
	StatusCompleted   = "COMPLETED"
	StatusCancelled   = "CANCELLED"
)

// Task represents a single VTODO item, local or remote.
//
// The sync engine only cares about the identity fields (UID, Href,
// ETag, CalendarHref, Sequence); the content fields travel opaquely
// through the ICS codec.
type Task struct {
	// ===== Identity =====
	UID          string `json:"uid"`
	Href         string `json:"href,omitempty"`
	ETag         string `json:"etag,omitempty"`
	CalendarHref string `json:"calendar_href"`

	// ===== Content =====
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority,omitempty"`
	Due         *time.Time `json:"due,omitempty"`

	// ===== Versioning =====
	Sequence   int       `json:"sequence"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// New creates a task with a fresh UID on the given calendar.
func New(calendarHref, summary string) Task {
	now := time.Now().UTC()
	return Task{
		UID:          uuid.NewString(),
		CalendarHref: calendarHref,
		Summary:      summary,
		Status:       StatusNeedsAction,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
}

// Validate checks that the task carries the fields every consumer
// relies on.
func (t *Task) Validate() error {
	if t.UID == "" {
		return fmt.Errorf("uid is required")
	}
	if t.CalendarHref == "" {
		return fmt.Errorf("calendar_href is required")
	}
	return nil
}

// Confirmed reports whether the server has ever acknowledged this
// task. An empty etag means local-only or never-confirmed.
func (t *Task) Confirmed() bool {
	return t.ETag != ""
}

// Touch bumps ModifiedAt and the SEQUENCE number. Call before queueing
// an update so the server sees a monotonic edit history.
func (t *Task) Touch() {
	t.ModifiedAt = time.Now().UTC()
	t.Sequence++
}

// Filename returns the canonical resource name for this task: {uid}.ics
func (t *Task) Filename() string {
	return t.UID + ".ics"
}

// Upsert inserts or replaces a task in the list, matching by UID.
// Returns the updated list.
func Upsert(tasks []Task, t Task) []Task {
	for i := range tasks {
		if tasks[i].UID == t.UID {
			tasks[i] = t
			return tasks
		}
	}
	return append(tasks, t)
}

// Remove drops the task with the given UID from the list, if present.
func Remove(tasks []Task, uid string) []Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.UID != uid {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the task with the given UID and whether it was present.
func Find(tasks []Task, uid string) (Task, bool) {
	for _, t := range tasks {
		if t.UID == uid {
			return t, true
		}
	}
	return Task{}, false
}
