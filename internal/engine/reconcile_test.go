package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/davtask/davtask/internal/ics"
	"github.com/davtask/davtask/internal/storage"
	"github.com/davtask/davtask/internal/task"
)

func TestGetTasksFullListingOnTokenMismatch(t *testing.T) {
	eng, transport, store, _ := setupEngine(t)
	ctx := context.Background()

	// Cache believes in tasks A and B at token "stale"; the server
	// only has A now.
	a := remoteTask("a", "kept")
	b := remoteTask("b", "deleted on server")
	a.ETag = "etag-a"
	b.ETag = "etag-b"
	if err := store.SaveCache(workCal, storage.CacheEntry{
		Tasks:     []task.Task{a, b},
		SyncToken: "stale",
	}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	body, err := ics.Encode(a)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	transport.seed(a.Href, body)

	got, err := eng.GetTasks(ctx, workCal)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if len(got) != 1 || got[0].UID != "a" {
		t.Fatalf("expected only task a, got %+v", got)
	}

	// The cache was rewritten with the fresh listing and token.
	entry, err := store.LoadCache(workCal)
	if err != nil {
		t.Fatalf("failed to load cache: %v", err)
	}
	if entry.SyncToken == "stale" || entry.SyncToken == "" {
		t.Errorf("cache token not refreshed: %q", entry.SyncToken)
	}
	if len(entry.Tasks) != 1 {
		t.Errorf("cache still holds %d tasks", len(entry.Tasks))
	}
}

func TestGetTasksGhostPruning(t *testing.T) {
	eng, transport, store, jnl := setupEngine(t)
	ctx := context.Background()

	// A cached entry with no etag and no journal Create backing it
	// is a ghost: it claims existence the server never confirmed.
	ghost := task.New(workCal, "ghost")
	confirmed := remoteTask("real", "confirmed")
	confirmed.ETag = "etag-real"
	pending := task.New(workCal, "pending create")

	transport.setCTag(workCal, "fresh")
	if err := store.SaveCache(workCal, storage.CacheEntry{
		Tasks:     []task.Task{ghost, confirmed, pending},
		SyncToken: "fresh", // token matches: no listing happens
	}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}
	mustPush(t, jnl, task.NewCreate(pending))

	got, err := eng.GetTasks(ctx, workCal)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}

	var uids []string
	for _, tk := range got {
		uids = append(uids, tk.UID)
	}
	want := []string{"real", pending.UID}
	if diff := cmp.Diff(want, uids); diff != "" {
		t.Errorf("unexpected task set (-want +got):\n%s", diff)
	}
}

func TestGetTasksLocalOnlyKeepsUnconfirmed(t *testing.T) {
	eng, _, store, _ := setupEngine(t)
	ctx := context.Background()

	// The same empty-etag shape that gets pruned on a remote
	// calendar is legitimate on a local-only one.
	tk := task.New(task.LocalCalendarHref, "local forever")
	if err := store.SaveLocal(task.LocalCalendarHref, []task.Task{tk}); err != nil {
		t.Fatalf("failed to seed local calendar: %v", err)
	}

	got, err := eng.GetTasks(ctx, task.LocalCalendarHref)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if _, ok := task.Find(got, tk.UID); !ok {
		t.Errorf("local-only task with empty etag must be listed")
	}
}

func TestGetTasksPendingDeleteSuppressesServerItem(t *testing.T) {
	eng, transport, store, jnl := setupEngine(t)
	ctx := context.Background()

	tk := remoteTask("doomed", "queued for deletion")
	tk.ETag = "etag-doomed"
	transport.setCTag(workCal, "fresh")
	if err := store.SaveCache(workCal, storage.CacheEntry{
		Tasks:     []task.Task{tk},
		SyncToken: "fresh",
	}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	// The delete is queued and stays retained after a transient
	// failure; the user must never see the task reappear.
	transport.forceStatus("DELETE", tk.Href, 503)
	mustPush(t, jnl, task.NewDelete(tk))
	if _, err := eng.SyncJournal(ctx); err == nil {
		t.Fatalf("expected the delete to be retained")
	}

	got, err := eng.GetTasks(ctx, workCal)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if _, ok := task.Find(got, "doomed"); ok {
		t.Errorf("task with pending delete must be suppressed from the listing")
	}
}

func TestGetTasksOfflineServesCache(t *testing.T) {
	eng, transport, store, _ := setupEngine(t)
	ctx := context.Background()

	tk := remoteTask("cached", "seen before")
	tk.ETag = "etag-cached"
	if err := store.SaveCache(workCal, storage.CacheEntry{
		Tasks:     []task.Task{tk},
		SyncToken: "old",
	}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}
	transport.forceNetErr("PROPFIND", workCal)

	got, err := eng.GetTasks(ctx, workCal)
	if err != nil {
		t.Fatalf("offline GetTasks must serve the cache: %v", err)
	}
	if _, ok := task.Find(got, "cached"); !ok {
		t.Errorf("cached confirmed task missing from offline listing")
	}
}

func TestGetAllTasks(t *testing.T) {
	eng, transport, _, _ := setupEngine(t)
	ctx := context.Background()

	a := remoteTask("a1", "in work")
	body, err := ics.Encode(a)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	transport.seed(a.Href, body)

	out, err := eng.GetAllTasks(ctx, []string{workCal, task.LocalCalendarHref})
	if err != nil {
		t.Fatalf("GetAllTasks failed: %v", err)
	}
	if len(out[workCal]) != 1 {
		t.Errorf("expected 1 task in %s, got %d", workCal, len(out[workCal]))
	}
	if len(out[task.LocalCalendarHref]) != 0 {
		t.Errorf("expected empty local calendar")
	}
}
