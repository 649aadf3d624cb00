// Package engine contains the sync engine and reconciler: it drains
// the journal against the CalDAV server, classifies each outcome by
// HTTP status class, and merges cache, fresh listings, and pending
// journal state into the effective per-calendar task list.
//
// Outcome model. Every journal entry resolves to exactly one of:
//
//	Applied    the action (or its moot equivalent) took effect on the
//	           server; the entry is removed.
//	Recovered  the action hit a fatal, non-retryable status; the task
//	           is materialized into the recovery calendar and the
//	           entry is removed.
//	Retained   the failure was transient (5xx, transport); the entry
//	           stays untouched and the run stops, resumable.
//
// There is no half-applied action: a crash between entries leaves the
// journal consistent, and replay is idempotent.
//
// Classification is fixed by status-code class, not configurable:
//
//	Create (If-None-Match: *)   2xx applied; 412 folds the existing
//	                            remote copy in and counts as applied;
//	                            404 retained (collection unreachable);
//	                            other 4xx recovered; else retained.
//	Update (If-Match: etag)     2xx applied; 404 resurrects the task
//	                            as a create; 412 forks a conflict copy
//	                            carrying the local edit; other 4xx
//	                            recovered; else retained.
//	Delete                      2xx and 404 applied (already gone is
//	                            success); anything else retained.
//	Move                        2xx applied, later queued actions on
//	                            the same uid retargeted to the new
//	                            href; 404 applied; else retained.
package engine
