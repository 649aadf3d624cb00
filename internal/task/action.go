package task

import (
	"fmt"

	"github.com/google/uuid"
)

// ActionKind discriminates the Action variants.
type ActionKind string

const (
	// ActionCreate queues a task that does not exist on the server yet.
	ActionCreate ActionKind = "create"
	// ActionUpdate queues an edit to a server-known task.
	ActionUpdate ActionKind = "update"
	// ActionDelete queues removal of a server-known task.
	ActionDelete ActionKind = "delete"
	// ActionMove queues relocation of a task to another calendar.
	ActionMove ActionKind = "move"
)

// Action is one pending local mutation in the journal.
//
// The embedded Task is a snapshot taken BEFORE the caller mutated any
// of its fields. For moves this matters: the snapshot's Href and
// CalendarHref identify the true source location even if the caller
// has already rewritten CalendarHref on its own copy. The constructors
// below enforce this contract; build Actions only through them.
type Action struct {
	// ID uniquely identifies this journal entry so it can be removed
	// selectively while other processes append concurrently.
	ID string `json:"id"`

	Kind ActionKind `json:"kind"`
	Task Task       `json:"task"`

	// MoveTarget is the destination calendar href. Set only for moves.
	MoveTarget string `json:"move_target,omitempty"`
}

// NewCreate builds a Create action from the new task.
func NewCreate(t Task) Action {
	return Action{ID: uuid.NewString(), Kind: ActionCreate, Task: t}
}

// NewUpdate builds an Update action from the edited task.
func NewUpdate(t Task) Action {
	return Action{ID: uuid.NewString(), Kind: ActionUpdate, Task: t}
}

// NewDelete builds a Delete action for the given task.
func NewDelete(t Task) Action {
	return Action{ID: uuid.NewString(), Kind: ActionDelete, Task: t}
}

// NewMove builds a Move action. snapshot must be the task as it was
// before any caller-side mutation of CalendarHref; target is the
// destination calendar href.
func NewMove(snapshot Task, target string) Action {
	return Action{ID: uuid.NewString(), Kind: ActionMove, Task: snapshot, MoveTarget: target}
}

// Validate checks structural requirements for a journal entry.
func (a *Action) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("action id is required")
	}
	switch a.Kind {
	case ActionCreate, ActionUpdate, ActionDelete:
	case ActionMove:
		if a.MoveTarget == "" {
			return fmt.Errorf("move action requires a target calendar")
		}
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if err := a.Task.Validate(); err != nil {
		return fmt.Errorf("invalid task in %s action: %w", a.Kind, err)
	}
	return nil
}

// String renders a short human-readable form for logs and warnings.
func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("%s %q -> %s", a.Kind, a.Task.Summary, a.MoveTarget)
	default:
		return fmt.Sprintf("%s %q", a.Kind, a.Task.Summary)
	}
}
