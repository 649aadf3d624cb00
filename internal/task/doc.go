// Package task defines the core data model shared by the journal,
// sync engine, and storage layers: the Task itself, the Action variants
// that describe pending local mutations, and calendar list entries.
//
// Identity rules:
//   - UID is the only identity that survives a move across calendars.
//     It is assigned once and never reused.
//   - Href locates the resource on the server. Empty for tasks that
//     only exist locally.
//   - ETag is the server's version token. Empty means the task was
//     never confirmed written to the server.
package task
