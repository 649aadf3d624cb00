// Package storage provides the file-backed persistence layer: advisory
// locking, atomic whole-file replacement, the per-calendar cache, and
// local-only calendar data files.
//
// Layout under the data root:
//
//	journal.json             pending action queue (owned by package journal)
//	cache/<escaped-href>.json  per-calendar snapshot + sync token
//	local/<escaped-href>.json  task file for a local-only calendar
//	*.lock                   advisory lock files, one per data file
//
// Multiple processes (GUI, TUI, CLI) may share one data root.
// Correctness under concurrency comes solely from the advisory flocks
// taken here; in-process mutexes would only cover a single process's
// own callers.
package storage
