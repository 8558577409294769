// Package hardwire provides a credential + hardware-identifier (HWID) binding
// authentication engine. An account is bound to exactly one device on its first
// successful login; every later login must present the same HWID or be rejected.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// hardwire is the public surface. It exposes [Engine], [Builder], [Config], the
// [RecordStore] contract, and value types (LoginResult, MetricsSnapshot, SecurityReport).
// Durable storage is caller-owned: the shipped [RecordStore] implementations live under
// store/ and any conforming store may be injected instead. Internal coordination such as
// per-username registration locking, rate limiting, and audit dispatch lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, file handles, or store encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Route HTTP, bind ports, or report process health; those shims belong to the caller
//     (see examples/http-minimal).
//
// # Decision contract
//
// Login evaluates exactly one outcome per request, in fixed order: missing fields,
// missing HWID, invalid credentials, first-use HWID registration, HWID mismatch, match.
// The registration transition is serialized per username and performed as a conditional
// write at the store boundary, so two concurrent first logins for the same account can
// never bind conflicting devices.
package hardwire
