// Package journal persists the ordered queue of pending local
// mutations as a single file per data root.
//
// The journal is the durability boundary of the client: an edit made
// while offline survives process restarts and concurrent CLI/GUI
// invocations because every push is a locked load-append-rewrite of
// the journal file. Entries leave the queue only when the sync engine
// confirms the action Applied or moot; a genuinely transient failure
// leaves the entry in place for the next run.
//
// Ordering is strict FIFO. Replaying the queue is idempotent: entries
// are removed one at a time by id, so a crash between actions neither
// re-applies completed work nor drops pending work.
package journal
