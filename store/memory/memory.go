// Package memory provides a mutex-guarded in-memory [hardwire.RecordStore].
//
// It is the zero-dependency store: suitable for tests, examples, and embedded
// deployments where records are provisioned at startup and durability is not
// required.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hardwire-auth/hardwire"
)

// Store defines a public type used by hardwire APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	mu      sync.RWMutex
	records map[string]hardwire.UserRecord
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: map[string]hardwire.UserRecord{},
	}
}

// Seed inserts or replaces records. Intended for provisioning and tests; the
// login path never creates records.
func (s *Store) Seed(records ...hardwire.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.Username] = r
	}
}

// GetRecord implements [hardwire.RecordStore].
func (s *Store) GetRecord(ctx context.Context, username string) (hardwire.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return hardwire.UserRecord{}, fmt.Errorf("%w: %v", hardwire.ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[username]
	if !ok {
		return hardwire.UserRecord{}, hardwire.ErrRecordNotFound
	}
	return r, nil
}

// RegisterHWID implements [hardwire.RecordStore]. The check and the write
// happen under one lock, so concurrent registrations for the same username
// resolve to exactly one winner.
func (s *Store) RegisterHWID(ctx context.Context, username, hwid string) (hardwire.BindStatus, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", hardwire.ErrPersistFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[username]
	if !ok {
		return 0, hardwire.ErrRecordNotFound
	}

	switch {
	case r.HWID == "":
		r.HWID = hwid
		s.records[username] = r
		return hardwire.BindRegistered, nil
	case r.HWID == hwid:
		return hardwire.BindAlreadyMatched, nil
	default:
		return hardwire.BindConflict, nil
	}
}

// Len reports the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
