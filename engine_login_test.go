package hardwire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hardwire-auth/hardwire/password"
	"github.com/redis/go-redis/v9"
)

func hashForTest(t *testing.T, cfg Config, plain string) string {
	t.Helper()
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Credentials.Memory,
		Time:        cfg.Credentials.Time,
		Parallelism: cfg.Credentials.Parallelism,
		SaltLength:  cfg.Credentials.SaltLength,
		KeyLength:   cfg.Credentials.KeyLength,
	})
	if err != nil {
		t.Fatalf("argon2 init: %v", err)
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		t.Fatalf("argon2 hash: %v", err)
	}
	return hash
}

// mockStore is an in-memory RecordStore with fault injection hooks. Root
// package tests cannot import store/memory without a cycle, so the mock
// mirrors its conditional-write semantics.
type mockStore struct {
	mu      sync.Mutex
	records map[string]UserRecord

	getErr   error
	regErr   error
	regDelay time.Duration

	getCalls int
	regCalls int
}

func newMockStore(records ...UserRecord) *mockStore {
	s := &mockStore{records: make(map[string]UserRecord)}
	for _, r := range records {
		s.records[r.Username] = r
	}
	return s
}

func (s *mockStore) GetRecord(_ context.Context, username string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return UserRecord{}, s.getErr
	}
	record, ok := s.records[username]
	if !ok {
		return UserRecord{}, ErrRecordNotFound
	}
	return record, nil
}

func (s *mockStore) RegisterHWID(_ context.Context, username, hwid string) (BindStatus, error) {
	if s.regDelay > 0 {
		time.Sleep(s.regDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regCalls++
	if s.regErr != nil {
		return BindConflict, s.regErr
	}
	record, ok := s.records[username]
	if !ok {
		return BindConflict, ErrRecordNotFound
	}
	switch {
	case record.HWID == "":
		record.HWID = hwid
		s.records[username] = record
		return BindRegistered, nil
	case record.HWID == hwid:
		return BindAlreadyMatched, nil
	default:
		return BindConflict, nil
	}
}

func (s *mockStore) storedHWID(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[username].HWID
}

func (s *mockStore) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func (s *mockStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regCalls
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func loginTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	return cfg
}

func newLoginTestEngine(t *testing.T, cfg Config, store RecordStore) *Engine {
	t.Helper()
	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func mustLogin(t *testing.T, engine *Engine, username, password, hwid string) *LoginResult {
	t.Helper()
	result, err := engine.Login(context.Background(), LoginRequest{
		Username: username,
		Password: password,
		HWID:     hwid,
	})
	if err != nil {
		t.Fatalf("login failed: %v (code=%s)", err, result.Code)
	}
	return result
}

func TestLoginMissingFields(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	cases := []LoginRequest{
		{Username: "", Password: "pw", HWID: "HW-1"},
		{Username: "alice", Password: "", HWID: "HW-1"},
		{Username: "", Password: "", HWID: ""},
	}
	for _, req := range cases {
		result, err := engine.Login(context.Background(), req)
		if !errors.Is(err, ErrMissingFields) {
			t.Fatalf("expected ErrMissingFields for %+v, got %v", req, err)
		}
		if result.Success || result.Code != CodeMissingFields {
			t.Fatalf("expected MISSING_FIELDS, got %+v", result)
		}
	}

	if store.reads() != 0 || store.writes() != 0 {
		t.Fatalf("missing-field rejections must not touch the store: reads=%d writes=%d", store.reads(), store.writes())
	}
	if got := engine.metrics.Value(MetricMissingFields); got != uint64(len(cases)) {
		t.Fatalf("expected MetricMissingFields=%d, got %d", len(cases), got)
	}
}

func TestLoginHWIDRequired(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	for _, hwid := range []string{"", "   ", "\t\n"} {
		result, err := engine.Login(context.Background(), LoginRequest{
			Username: "alice",
			Password: "pw",
			HWID:     hwid,
		})
		if !errors.Is(err, ErrHWIDRequired) {
			t.Fatalf("expected ErrHWIDRequired for hwid=%q, got %v", hwid, err)
		}
		if result.Code != CodeHWIDRequired {
			t.Fatalf("expected HWID_REQUIRED for hwid=%q, got %s", hwid, result.Code)
		}
	}

	if store.reads() != 0 {
		t.Fatalf("hwid-required rejections must not read the store, reads=%d", store.reads())
	}
}

// An unknown user with an empty HWID resolves to HWID_REQUIRED: field
// validation precedes every store access.
func TestLoginHWIDCheckedBeforeCredentials(t *testing.T) {
	store := newMockStore()
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result, err := engine.Login(context.Background(), LoginRequest{
		Username: "ghost",
		Password: "whatever",
		HWID:     "",
	})
	if !errors.Is(err, ErrHWIDRequired) {
		t.Fatalf("expected ErrHWIDRequired, got %v", err)
	}
	if result.Code != CodeHWIDRequired {
		t.Fatalf("expected HWID_REQUIRED, got %s", result.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	store := newMockStore()
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result, err := engine.Login(context.Background(), LoginRequest{
		Username: "ghost",
		Password: "pw",
		HWID:     "HW-1",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if result.Code != CodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS, got %s", result.Code)
	}
	if store.writes() != 0 {
		t.Fatal("unknown user must not trigger a registration")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result, err := engine.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "not-pw",
		HWID:     "HW-1",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if result.Code != CodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS, got %s", result.Code)
	}
	if store.writes() != 0 {
		t.Fatal("wrong password must not trigger a registration")
	}
	if got := engine.metrics.Value(MetricLoginFailure); got != 1 {
		t.Fatalf("expected MetricLoginFailure=1, got %d", got)
	}
}

func TestLoginFirstBindsHWID(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result := mustLogin(t, engine, "alice", "pw", "HW-1")
	if !result.Success || result.Code != CodeHWIDRegistered {
		t.Fatalf("expected HWID_REGISTERED, got %+v", result)
	}
	if got := store.storedHWID("alice"); got != "HW-1" {
		t.Fatalf("expected bound HWID HW-1, got %q", got)
	}
	if got := engine.metrics.Value(MetricHWIDRegistered); got != 1 {
		t.Fatalf("expected MetricHWIDRegistered=1, got %d", got)
	}
}

func TestLoginRepeatSameHWIDResolvesOK(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	mustLogin(t, engine, "alice", "pw", "HW-1")

	for i := 0; i < 3; i++ {
		result := mustLogin(t, engine, "alice", "pw", "HW-1")
		if !result.Success || result.Code != CodeOK {
			t.Fatalf("repeat login %d: expected OK, got %+v", i, result)
		}
	}

	if writes := store.writes(); writes != 1 {
		t.Fatalf("repeat logins must not rewrite the binding, writes=%d", writes)
	}
}

func TestLoginDifferentHWIDRejected(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw", HWID: "HW-1"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result, err := engine.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "pw",
		HWID:     "HW-2",
	})
	if !errors.Is(err, ErrHWIDMismatch) {
		t.Fatalf("expected ErrHWIDMismatch, got %v", err)
	}
	if result.Success || result.Code != CodeHWIDMismatch {
		t.Fatalf("expected HWID_MISMATCH, got %+v", result)
	}
	if store.writes() != 0 {
		t.Fatal("mismatch must stay read-only")
	}
	if got := store.storedHWID("alice"); got != "HW-1" {
		t.Fatalf("binding must survive a mismatch, got %q", got)
	}
}

func TestLoginStoreReadFailure(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	store.getErr = fmt.Errorf("%w: connection refused", ErrStoreUnavailable)
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result, err := engine.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "pw",
		HWID:     "HW-1",
	})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected wrapped ErrStoreUnavailable, got %v", err)
	}
	if result.Code != CodeServerError {
		t.Fatalf("expected SERVER_ERROR, got %s", result.Code)
	}
	if got := engine.metrics.Value(MetricStoreFailure); got != 1 {
		t.Fatalf("expected MetricStoreFailure=1, got %d", got)
	}
}

func TestLoginPersistFailureLeavesRecordUnbound(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	store.regErr = fmt.Errorf("%w: disk full", ErrPersistFailed)
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result, err := engine.Login(context.Background(), LoginRequest{
		Username: "alice",
		Password: "pw",
		HWID:     "HW-1",
	})
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected wrapped ErrPersistFailed, got %v", err)
	}
	if result.Code != CodeServerError {
		t.Fatalf("expected SERVER_ERROR, got %s", result.Code)
	}
	if got := store.storedHWID("alice"); got != "" {
		t.Fatalf("failed persist must not leave a binding, got %q", got)
	}

	// Once the store recovers the same request binds normally.
	store.mu.Lock()
	store.regErr = nil
	store.mu.Unlock()
	retry := mustLogin(t, engine, "alice", "pw", "HW-1")
	if retry.Code != CodeHWIDRegistered {
		t.Fatalf("expected HWID_REGISTERED on retry, got %s", retry.Code)
	}
}

func TestLoginRawHWIDBoundByDefault(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result := mustLogin(t, engine, "alice", "pw", "  HW-1  ")
	if result.Code != CodeHWIDRegistered {
		t.Fatalf("expected HWID_REGISTERED, got %s", result.Code)
	}
	if got := store.storedHWID("alice"); got != "  HW-1  " {
		t.Fatalf("default mode binds the raw HWID, got %q", got)
	}

	// The trimmed form is a different device under raw comparison.
	if _, err := engine.Login(context.Background(), LoginRequest{
		Username: "alice", Password: "pw", HWID: "HW-1",
	}); !errors.Is(err, ErrHWIDMismatch) {
		t.Fatalf("expected ErrHWIDMismatch for trimmed variant, got %v", err)
	}
}

func TestLoginTrimBeforePersist(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Binding.TrimBeforePersist = true

	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, cfg, store)

	mustLogin(t, engine, "alice", "pw", "  HW-1  ")
	if got := store.storedHWID("alice"); got != "HW-1" {
		t.Fatalf("trim mode binds the trimmed HWID, got %q", got)
	}

	result := mustLogin(t, engine, "alice", "pw", "HW-1\n")
	if result.Code != CodeOK {
		t.Fatalf("trim mode matches padded variants, got %s", result.Code)
	}
}

func TestLoginNilEngineNotReady(t *testing.T) {
	var engine *Engine
	result, err := engine.Login(context.Background(), LoginRequest{
		Username: "alice", Password: "pw", HWID: "HW-1",
	})
	if !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if result == nil || result.Code != CodeServerError {
		t.Fatalf("expected SERVER_ERROR result, got %+v", result)
	}
}

func TestLoginArgon2Mode(t *testing.T) {
	cfg := loginTestConfig()
	cfg.Credentials.Mode = CompareArgon2

	hash := hashForTest(t, cfg, "correct-horse")
	store := newMockStore(UserRecord{Username: "alice", Password: hash})
	engine := newLoginTestEngine(t, cfg, store)

	result := mustLogin(t, engine, "alice", "correct-horse", "HW-1")
	if result.Code != CodeHWIDRegistered {
		t.Fatalf("expected HWID_REGISTERED, got %s", result.Code)
	}

	if _, err := engine.Login(context.Background(), LoginRequest{
		Username: "alice", Password: "wrong-horse", HWID: "HW-1",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginIssuesAccessToken(t *testing.T) {
	cfg := loginTestConfig()
	cfg.JWT.Enabled = true
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.Issuer = "hardwire-test"

	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, cfg, store)

	result := mustLogin(t, engine, "alice", "pw", "HW-1")
	if result.AccessToken == "" {
		t.Fatal("expected access token on success")
	}

	claims, err := engine.jwtManager.ParseAccess(result.AccessToken)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Username != "alice" {
		t.Fatalf("expected subject alice, got %q", claims.Username)
	}
	if claims.HWIDHash != hwidFingerprint("HW-1") {
		t.Fatalf("expected HWID fingerprint claim, got %q", claims.HWIDHash)
	}
}

func TestLoginTokenDisabledByDefault(t *testing.T) {
	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine := newLoginTestEngine(t, loginTestConfig(), store)

	result := mustLogin(t, engine, "alice", "pw", "HW-1")
	if result.AccessToken != "" {
		t.Fatalf("expected no token by default, got %q", result.AccessToken)
	}
}
