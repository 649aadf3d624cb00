package task

import "testing"

func TestActionValidate(t *testing.T) {
	base := New("/cal/work/", "thing")

	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"create", NewCreate(base), false},
		{"update", NewUpdate(base), false},
		{"delete", NewDelete(base), false},
		{"move", NewMove(base, "/cal/home/"), false},
		{"move without target", NewMove(base, ""), true},
		{"missing id", Action{Kind: ActionCreate, Task: base}, true},
		{"unknown kind", Action{ID: "id", Kind: "frobnicate", Task: base}, true},
		{"task without uid", NewCreate(Task{CalendarHref: "/cal/"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMoveSnapshotIsIndependent(t *testing.T) {
	// The action must keep the pre-mutation snapshot even if the
	// caller rewrites its own copy afterwards. Re-deriving the source
	// from a mutated task is how tasks get duplicated.
	original := New("/cal/work/", "migrating")
	original.Href = "/cal/work/" + original.UID + ".ics"

	a := NewMove(original, "/cal/home/")
	original.CalendarHref = "/cal/home/" // caller's premature mutation

	if a.Task.CalendarHref != "/cal/work/" {
		t.Errorf("snapshot lost the source calendar: %q", a.Task.CalendarHref)
	}
	if a.MoveTarget != "/cal/home/" {
		t.Errorf("unexpected target %q", a.MoveTarget)
	}
}

func TestUpsertRemoveFind(t *testing.T) {
	a := New("/cal/", "a")
	b := New("/cal/", "b")

	list := Upsert(nil, a)
	list = Upsert(list, b)
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}

	a.Summary = "a, revised"
	list = Upsert(list, a)
	if len(list) != 2 {
		t.Errorf("upsert of existing uid must replace, not append")
	}
	got, ok := Find(list, a.UID)
	if !ok || got.Summary != "a, revised" {
		t.Errorf("find returned %+v", got)
	}

	list = Remove(list, a.UID)
	if _, ok := Find(list, a.UID); ok {
		t.Errorf("removed task still present")
	}
	if len(list) != 1 {
		t.Errorf("expected 1 task, got %d", len(list))
	}
}
