// Package keymutex provides per-key mutual exclusion.
//
// The Engine uses one [Group] keyed by username to guarantee at most one
// in-flight HWID registration per account within the process. Cross-process
// exclusion is the record store's job (conditional writes).
//
// # What this package must NOT do
//
//   - Hold locks across I/O it does not own; callers scope the critical section.
//   - Import hardwire or any sibling internal package.
package keymutex
