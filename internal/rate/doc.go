// Package rate provides Redis-backed fixed-window counters for login
// throttling.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - hl:  — login per-username
//   - hli: — login per-IP
//
// # What this package must NOT do
//
//   - Implement login policy (the Engine decides when to check and increment).
//   - Be imported outside the hardwire module.
package rate
