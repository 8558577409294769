// Package file provides a JSON-file-backed [hardwire.RecordStore].
//
// The whole record set is one JSON document; every registration rewrites it
// through a temp file + rename, so a concurrent reader of the same path never
// observes a torn write. An absent file at open time is an empty store, not
// an error. A present-but-unparsable file fails open to an empty store by
// default (the parse error is logged and retrievable via [Store.LoadError]);
// [WithFailClosed] makes Open return the error instead.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/hardwire-auth/hardwire"
)

const fileMode = 0o600

type document struct {
	Users []hardwire.UserRecord `json:"users"`
}

// Option configures a Store at open time.
type Option func(*Store)

// WithFailClosed makes Open return an error for a corrupt file instead of
// falling back to an empty store.
func WithFailClosed() Option {
	return func(s *Store) { s.failClosed = true }
}

// Store defines a public type used by hardwire APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	path       string
	failClosed bool

	mu      sync.RWMutex
	records map[string]hardwire.UserRecord
	loadErr error
}

// Open reads the record set at path. Missing file → empty store. Corrupt
// file → empty store with LoadError set, unless WithFailClosed was given.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		records: map[string]hardwire.UserRecord{},
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %v", hardwire.ErrStoreUnavailable, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		wrapped := fmt.Errorf("%w: %v", hardwire.ErrStoreCorrupt, err)
		if s.failClosed {
			return nil, wrapped
		}
		// Fail open: behave as if no users exist. Every login on this store
		// will report invalid credentials until the file is repaired.
		log.Printf("hardwire: record store %s is unparsable, continuing with empty store: %v", path, err)
		s.loadErr = wrapped
		return s, nil
	}

	for _, r := range doc.Users {
		s.records[r.Username] = r
	}
	return s, nil
}

// LoadError returns the parse error swallowed by a fail-open load, or nil.
func (s *Store) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Seed inserts or replaces records and persists the store. Intended for
// provisioning and tests; the login path never creates records.
func (s *Store) Seed(records ...hardwire.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.records[r.Username] = r
	}
	return s.persistLocked()
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

// RegisterHWID implements [hardwire.RecordStore]. The check, the in-memory
// mutation, and the durable rewrite happen under one writer lock: the store
// is the single writer for its path, and a persist failure rolls the
// in-memory record back so no registration is visible that was not written.
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
		prior := r
		r.HWID = hwid
		s.records[username] = r
		if err := s.persistLocked(); err != nil {
			s.records[username] = prior
			return 0, err
		}
		return hardwire.BindRegistered, nil
	case r.HWID == hwid:
		return hardwire.BindAlreadyMatched, nil
	default:
		return hardwire.BindConflict, nil
	}
}

// persistLocked rewrites the whole document atomically. Callers hold s.mu.
func (s *Store) persistLocked() error {
	doc := document{Users: make([]hardwire.UserRecord, 0, len(s.records))}
	for _, r := range s.records {
		doc.Users = append(doc.Users, r)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", hardwire.ErrPersistFailed, err)
	}

	if err := writeFileAtomic(s.path, data, fileMode); err != nil {
		return fmt.Errorf("%w: %v", hardwire.ErrPersistFailed, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory, fsyncs
// it, and renames it over path, then fsyncs the directory.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".hardwire-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
