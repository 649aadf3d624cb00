package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davtask/davtask/internal/task"
)

// LoadLocal reads the task list of a local-only calendar. A missing
// file yields an empty list.
func (s *Store) LoadLocal(calendarHref string) ([]task.Task, error) {
	path := s.LocalPath(calendarHref)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read local calendar %s: %w", path, err)
	}
	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse local calendar %s: %w", path, err)
	}
	return tasks, nil
}

// SaveLocal atomically rewrites the task list of a local-only calendar.
func (s *Store) SaveLocal(calendarHref string, tasks []task.Task) error {
	path := s.LocalPath(calendarHref)
	release, err := s.Lock(path)
	if err != nil {
		return err
	}
	defer release()
	return s.saveLocalLocked(calendarHref, tasks)
}

// UpsertLocal inserts or replaces a single task in a local-only
// calendar under the calendar's lock, preserving concurrent writers.
func (s *Store) UpsertLocal(calendarHref string, t task.Task) error {
	path := s.LocalPath(calendarHref)
	release, err := s.Lock(path)
	if err != nil {
		return err
	}
	defer release()

	tasks, err := s.LoadLocal(calendarHref)
	if err != nil {
		return err
	}
	return s.saveLocalLocked(calendarHref, task.Upsert(tasks, t))
}

// RemoveLocal deletes a single task by uid from a local-only calendar.
// Removing an absent uid is not an error.
func (s *Store) RemoveLocal(calendarHref, uid string) error {
	path := s.LocalPath(calendarHref)
	release, err := s.Lock(path)
	if err != nil {
		return err
	}
	defer release()

	tasks, err := s.LoadLocal(calendarHref)
	if err != nil {
		return err
	}
	return s.saveLocalLocked(calendarHref, task.Remove(tasks, uid))
}

func (s *Store) saveLocalLocked(calendarHref string, tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal local calendar %s: %w", calendarHref, err)
	}
	return s.AtomicWrite(s.LocalPath(calendarHref), data)
}
