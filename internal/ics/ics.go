// Package ics converts between Task and VTODO calendar-object text.
//
// The codec is intentionally opaque to the rest of the system: the
// sync engine hands it a Task and gets bytes for a PUT body, or hands
// it a REPORT response fragment and gets a Task back, keyed by UID.
// Properties the client does not model pass through unrecognized and
// are dropped on re-encode.
package ics

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/davtask/davtask/internal/task"
)

const prodID = "-//davtask//davtask//EN"

// Encode renders a task as a single-VTODO VCALENDAR document.
func Encode(t task.Task) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("cannot encode invalid task: %w", err)
	}

	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, t.UID)
	todo.Props.SetText(ical.PropSummary, t.Summary)
	if t.Description != "" {
		todo.Props.SetText(ical.PropDescription, t.Description)
	}
	if t.Status != "" {
		todo.Props.SetText(ical.PropStatus, t.Status)
	}
	if t.Priority > 0 {
		todo.Props.SetText(ical.PropPriority, strconv.Itoa(t.Priority))
	}
	todo.Props.SetText(ical.PropSequence, strconv.Itoa(t.Sequence))
	if t.Due != nil {
		todo.Props.SetDateTime(ical.PropDue, t.Due.UTC())
	}
	if !t.CreatedAt.IsZero() {
		todo.Props.SetDateTime(ical.PropCreated, t.CreatedAt.UTC())
	}
	if !t.ModifiedAt.IsZero() {
		todo.Props.SetDateTime(ical.PropLastModified, t.ModifiedAt.UTC())
	}
	todo.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Children = append(cal.Children, todo)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode VTODO for %s: %w", t.UID, err)
	}
	return buf.Bytes(), nil
}

// Decode parses the first VTODO out of a VCALENDAR document.
func Decode(data []byte) (task.Task, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to parse calendar object: %w", err)
	}
	for _, child := range cal.Children {
		if child.Name == ical.CompToDo {
			return fromComponent(child)
		}
	}
	return task.Task{}, fmt.Errorf("calendar object contains no VTODO")
}

func fromComponent(c *ical.Component) (task.Task, error) {
	t := task.Task{
		UID:         propText(c, ical.PropUID),
		Summary:     propText(c, ical.PropSummary),
		Description: propText(c, ical.PropDescription),
		Status:      propText(c, ical.PropStatus),
	}
	if t.UID == "" {
		return task.Task{}, fmt.Errorf("VTODO is missing a UID")
	}
	if v := propText(c, ical.PropPriority); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.Priority = n
		}
	}
	if v := propText(c, ical.PropSequence); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.Sequence = n
		}
	}
	if due, ok := propTime(c, ical.PropDue); ok {
		t.Due = &due
	}
	if created, ok := propTime(c, ical.PropCreated); ok {
		t.CreatedAt = created
	}
	if modified, ok := propTime(c, ical.PropLastModified); ok {
		t.ModifiedAt = modified
	}
	return t, nil
}

func propText(c *ical.Component, name string) string {
	p := c.Props.Get(name)
	if p == nil {
		return ""
	}
	return p.Value
}

func propTime(c *ical.Component, name string) (time.Time, bool) {
	if c.Props.Get(name) == nil {
		return time.Time{}, false
	}
	ts, err := c.Props.DateTime(name, time.UTC)
	if err != nil || ts.IsZero() {
		return time.Time{}, false
	}
	return ts, true
}

// UIDFromHref extracts the resource basename without the .ics suffix.
// Servers are not required to name resources after the UID, so this is
// only a fallback when a body is unavailable.
func UIDFromHref(href string) string {
	base := href
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".ics")
}
