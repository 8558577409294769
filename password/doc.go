// Package password implements password hashing and verification with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// If a stored hash was produced with weaker parameters, [Argon2.NeedsRehash]
// returns true so a provisioning tool can re-hash the secret.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Whether records hold
// plaintext secrets or hashes is the Engine's CredentialConfig decision.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other hardwire package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
