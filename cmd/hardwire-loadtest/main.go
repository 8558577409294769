package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	hardwire "github.com/hardwire-auth/hardwire"
	"github.com/hardwire-auth/hardwire/store/redistore"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		users       = flag.Int("users", 50000, "number of user records to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "login operations for the steady-state phase")
		racers      = flag.Int("racers", 64, "concurrent first logins per user in the binding phase")
		raceUsers   = flag.Int("race-users", 500, "users exercised in the binding phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "hw", "record key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 0 || *raceUsers <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops, racers, and race-users must be > 0")
		os.Exit(2)
	}
	if *raceUsers > *users {
		*raceUsers = *users
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := redistore.New(client, *prefix)

	// Seed users 0..raceUsers-1 unbound (binding phase), the rest pre-bound
	// for the steady-state phase.
	hwids := make([]string, *users)
	fmt.Printf("seeding %d user records...\n", *users)
	startSeed := time.Now()
	for i := 0; i < *users; i++ {
		record := hardwire.UserRecord{
			Username: fmt.Sprintf("user-%d", i),
			Password: fmt.Sprintf("secret-%d", i),
		}
		if i >= *raceUsers {
			hwids[i] = uuid.NewString()
			record.HWID = hwids[i]
		}
		if err := store.Seed(ctx, record); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cfg := hardwire.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := hardwire.New().
		WithConfig(cfg).
		WithStore(store).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	loginStats := runLoginPhase(ctx, engine, hwids, *raceUsers, *ops, *concurrency)
	bindStats, violations := runBindingPhase(ctx, engine, store, *raceUsers, *racers)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("bind", bindStats)
	if violations > 0 {
		fmt.Fprintf(os.Stderr, "BINDING INVARIANT VIOLATED: %d users with multiple registrations\n", violations)
		os.Exit(1)
	}
	fmt.Println("binding invariant held: every raced user bound exactly one HWID")

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("metrics: ok=%d registered=%d mismatch=%d failures=%d store_failures=%d\n",
		snapshot.Counters[hardwire.MetricLoginSuccess],
		snapshot.Counters[hardwire.MetricHWIDRegistered],
		snapshot.Counters[hardwire.MetricHWIDMismatch],
		snapshot.Counters[hardwire.MetricLoginFailure],
		snapshot.Counters[hardwire.MetricStoreFailure],
	)
}

// runLoginPhase hammers already-bound users with matching HWIDs; every
// request should resolve to OK.
func runLoginPhase(ctx context.Context, engine *hardwire.Engine, hwids []string, firstBound, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	bound := len(hwids) - firstBound
	if bound <= 0 {
		return phaseStats{}
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := firstBound + r.Intn(bound)
				t0 := time.Now()
				result, err := engine.Login(ctx, hardwire.LoginRequest{
					Username: fmt.Sprintf("user-%d", idx),
					Password: fmt.Sprintf("secret-%d", idx),
					HWID:     hwids[idx],
				})
				d := time.Since(t0)
				if err != nil || result.Code != hardwire.CodeOK {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runBindingPhase races N first logins per unbound user, each presenting a
// distinct HWID, then verifies exactly one registration stuck.
func runBindingPhase(ctx context.Context, engine *hardwire.Engine, store *redistore.Store, raceUsers, racers int) (phaseStats, int) {
	var (
		wg        sync.WaitGroup
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, raceUsers*racers)
	)

	type outcome struct {
		registered int64
	}
	outcomes := make([]outcome, raceUsers)

	start := time.Now()
	sem := make(chan struct{}, 512)
	for u := 0; u < raceUsers; u++ {
		for rIdx := 0; rIdx < racers; rIdx++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(u, rIdx int) {
				defer wg.Done()
				defer func() { <-sem }()

				t0 := time.Now()
				result, err := engine.Login(ctx, hardwire.LoginRequest{
					Username: fmt.Sprintf("user-%d", u),
					Password: fmt.Sprintf("secret-%d", u),
					HWID:     fmt.Sprintf("hw-%d-%d", u, rIdx),
				})
				d := time.Since(t0)

				switch {
				case err == nil && result.Code == hardwire.CodeHWIDRegistered:
					atomic.AddInt64(&outcomes[u].registered, 1)
				case errors.Is(err, hardwire.ErrHWIDMismatch):
					// lost the race, expected
				default:
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}(u, rIdx)
		}
	}
	wg.Wait()
	total := time.Since(start)

	violations := 0
	for u := 0; u < raceUsers; u++ {
		if outcomes[u].registered != 1 {
			violations++
			continue
		}
		record, err := store.GetRecord(ctx, fmt.Sprintf("user-%d", u))
		if err != nil || record.HWID == "" {
			violations++
		}
	}

	return computeStats(total, latencies, failures), violations
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
