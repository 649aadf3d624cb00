package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/davtask/davtask/internal/task"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	due := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	in := task.Task{
		UID:          "round-trip-uid",
		CalendarHref: "/calendars/alice/work/",
		Summary:      "file quarterly report",
		Description:  "include the sync numbers",
		Status:       task.StatusInProcess,
		Priority:     2,
		Sequence:     3,
		Due:          &due,
		CreatedAt:    time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC),
		ModifiedAt:   time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{"BEGIN:VTODO", "UID:round-trip-uid", "SUMMARY:file quarterly report"} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded output missing %q", want)
		}
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.UID != in.UID || out.Summary != in.Summary || out.Description != in.Description {
		t.Errorf("content fields did not survive: %+v", out)
	}
	if out.Status != in.Status || out.Priority != in.Priority || out.Sequence != in.Sequence {
		t.Errorf("version fields did not survive: %+v", out)
	}
	if out.Due == nil || !out.Due.Equal(due) {
		t.Errorf("due date did not survive: %v", out.Due)
	}
}

func TestDecodeRejectsMissingUID(t *testing.T) {
	const doc = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//x//x//EN\r\nBEGIN:VTODO\r\nSUMMARY:no identity\r\nDTSTAMP:20260801T000000Z\r\nEND:VTODO\r\nEND:VCALENDAR\r\n"
	if _, err := Decode([]byte(doc)); err == nil {
		t.Errorf("VTODO without UID must be rejected")
	}
}

func TestDecodeRejectsEventOnlyDocument(t *testing.T) {
	const doc = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//x//x//EN\r\nBEGIN:VEVENT\r\nUID:ev1\r\nDTSTAMP:20260801T000000Z\r\nDTSTART:20260801T000000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	if _, err := Decode([]byte(doc)); err == nil {
		t.Errorf("document without a VTODO must be rejected")
	}
}

func TestUIDFromHref(t *testing.T) {
	if got := UIDFromHref("/calendars/alice/work/abc-123.ics"); got != "abc-123" {
		t.Errorf("unexpected uid %q", got)
	}
	if got := UIDFromHref("plain.ics"); got != "plain" {
		t.Errorf("unexpected uid %q", got)
	}
}
