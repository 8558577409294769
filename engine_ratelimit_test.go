package hardwire

import (
	"context"
	"errors"
	"testing"
	"time"
)

func throttleTestConfig() Config {
	cfg := loginTestConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.MaxLoginAttempts = 2
	cfg.Security.LoginCooldownDuration = time.Minute
	return cfg
}

func TestLoginThrottleBlocksAfterMaxAttempts(t *testing.T) {
	mr, rdb := newTestRedis(t)

	store := newMockStore(UserRecord{Username: "alice", Password: "pw"})
	engine, err := New().
		WithConfig(throttleTestConfig()).
		WithStore(store).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	bad := LoginRequest{Username: "alice", Password: "wrong", HWID: "HW-1"}

	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// The third failure exhausts the budget.
	result, err := engine.Login(ctx, bad)
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if result.Code != CodeRateLimited {
		t.Fatalf("expected RATE_LIMITED, got %s", result.Code)
	}

	// Correct credentials are also held back while the window is open.
	good := LoginRequest{Username: "alice", Password: "pw", HWID: "HW-1"}
	if _, err := engine.Login(ctx, good); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected cooldown to block valid credentials, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if result := mustLogin(t, engine, "alice", "pw", "HW-1"); result.Code != CodeHWIDRegistered {
		t.Fatalf("expected HWID_REGISTERED after cooldown, got %s", result.Code)
	}
	if got := engine.metrics.Value(MetricLoginRateLimited); got < 2 {
		t.Fatalf("expected MetricLoginRateLimited>=2, got %d", got)
	}
}

func TestLoginThrottleResetsOnSuccess(t *testing.T) {
	_, rdb := newTestRedis(t)

	store := newMockStore(UserRecord{Username: "alice", Password: "pw", HWID: "HW-1"})
	engine, err := New().
		WithConfig(throttleTestConfig()).
		WithStore(store).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	bad := LoginRequest{Username: "alice", Password: "wrong", HWID: "HW-1"}

	// One failure, then a success, then the budget is fresh again.
	for round := 0; round < 3; round++ {
		if _, err := engine.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("round %d: expected ErrInvalidCredentials, got %v", round, err)
		}
		if result := mustLogin(t, engine, "alice", "pw", "HW-1"); result.Code != CodeOK {
			t.Fatalf("round %d: expected OK, got %s", round, result.Code)
		}
	}
}

func TestLoginThrottleFailsOpenWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)

	store := newMockStore(UserRecord{Username: "alice", Password: "pw", HWID: "HW-1"})
	engine, err := New().
		WithConfig(throttleTestConfig()).
		WithStore(store).
		WithRedis(rdb).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	mr.Close()

	if result := mustLogin(t, engine, "alice", "pw", "HW-1"); result.Code != CodeOK {
		t.Fatalf("expected OK with redis down, got %s", result.Code)
	}
}

func TestBuildRequiresRedisForThrottle(t *testing.T) {
	store := newMockStore()
	if _, err := New().
		WithConfig(throttleTestConfig()).
		WithStore(store).
		Build(); err == nil {
		t.Fatal("expected Build to fail without redis client")
	}
}
