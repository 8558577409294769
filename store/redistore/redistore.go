// Package redistore provides a Redis-backed [hardwire.RecordStore].
//
// Each account is one Redis hash (<prefix>:user:<username>) with password and
// hwid fields. RegisterHWID runs as a Lua script, so the empty-check and the
// write are a single atomic server-side operation: concurrent registrations
// from any number of processes resolve to exactly one winner.
package redistore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hardwire-auth/hardwire"
	"github.com/redis/go-redis/v9"
)

const (
	bindStatusNotFound   int64 = -1
	bindStatusRegistered int64 = 0
	bindStatusMatched    int64 = 1
	bindStatusConflict   int64 = 2
)

const registerHWIDScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local hwid = redis.call("HGET", KEYS[1], "hwid")
if hwid == false or hwid == "" then
  redis.call("HSET", KEYS[1], "hwid", ARGV[1])
  return 0
end
if hwid == ARGV[1] then
  return 1
end
return 2
`

var registerHWIDLua = redis.NewScript(registerHWIDScript)

// Store defines a public type used by hardwire APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Store on the given Redis client. An empty prefix defaults to "hw".
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "hw"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(username string) string {
	return s.prefix + ":user:" + username
}

// Seed inserts or replaces records. Intended for provisioning and tests; the
// login path never creates records.
func (s *Store) Seed(ctx context.Context, records ...hardwire.UserRecord) error {
	for _, r := range records {
		fields := map[string]interface{}{
			"username": r.Username,
			"password": r.Password,
			"hwid":     r.HWID,
		}
		if err := s.redis.HSet(ctx, s.key(r.Username), fields).Err(); err != nil {
			return fmt.Errorf("%w: %v", hardwire.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// GetRecord implements [hardwire.RecordStore].
func (s *Store) GetRecord(ctx context.Context, username string) (hardwire.UserRecord, error) {
	values, err := s.redis.HGetAll(ctx, s.key(username)).Result()
	if err != nil {
		return hardwire.UserRecord{}, fmt.Errorf("%w: %v", hardwire.ErrStoreUnavailable, err)
	}
	if len(values) == 0 {
		return hardwire.UserRecord{}, hardwire.ErrRecordNotFound
	}

	return hardwire.UserRecord{
		Username: username,
		Password: values["password"],
		HWID:     values["hwid"],
	}, nil
}

// RegisterHWID implements [hardwire.RecordStore] via a server-side
// conditional write.
func (s *Store) RegisterHWID(ctx context.Context, username, hwid string) (hardwire.BindStatus, error) {
	status, err := registerHWIDLua.Run(ctx, s.redis, []string{s.key(username)}, hwid).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", hardwire.ErrPersistFailed, err)
	}

	switch status {
	case bindStatusRegistered:
		return hardwire.BindRegistered, nil
	case bindStatusMatched:
		return hardwire.BindAlreadyMatched, nil
	case bindStatusConflict:
		return hardwire.BindConflict, nil
	case bindStatusNotFound:
		return 0, hardwire.ErrRecordNotFound
	default:
		return 0, fmt.Errorf("%w: unexpected script status %d", hardwire.ErrPersistFailed, status)
	}
}

// Delete removes a record. Administrative helper; the login path never
// deletes records.
func (s *Store) Delete(ctx context.Context, username string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(username)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", hardwire.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Healthy pings the backing Redis.
func (s *Store) Healthy(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", hardwire.ErrStoreUnavailable, err)
	}
	return nil
}
