// Command authsession-loadtest drives one session manager from many
// goroutines under each concurrency policy and reports outcome counts and
// latency percentiles.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/identity"
	"github.com/havenstay/authsession/session"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "operations per policy")
		latency     = flag.Duration("latency", 2*time.Millisecond, "simulated identity latency")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "authsession-loadtest:", "session key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	ctx := context.Background()
	fmt.Println("---- results ----")
	for _, policy := range []authsession.ConcurrencyPolicy{
		authsession.PolicyLastWriteWins,
		authsession.PolicyReject,
		authsession.PolicyQueue,
	} {
		backend := session.NewRedisBackend(client, *prefix+policy.String()+":")
		stats, err := runPolicy(ctx, backend, policy, *latency, *ops, *concurrency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", policy, err)
			os.Exit(1)
		}
		printStats(policy.String(), stats)
	}
}

func runPolicy(ctx context.Context, backend session.Backend, policy authsession.ConcurrencyPolicy, latency time.Duration, ops, concurrency int) (phaseStats, error) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock, err := identity.NewMock(identity.MockConfig{Latency: latency, Logger: discard})
	if err != nil {
		return phaseStats{}, err
	}

	cfg := authsession.DefaultConfig()
	cfg.Concurrency.Default = policy
	cfg.Notifications.DropIfFull = true
	m, err := authsession.New().
		WithConfig(cfg).
		WithStore(session.NewStore(backend)).
		WithIdentity(mock).
		Build()
	if err != nil {
		return phaseStats{}, err
	}
	defer m.Close()
	m.Start(ctx)
	<-m.Ready()

	if err := m.SignIn(ctx, identity.DemoEmail, identity.DemoPassword); err != nil {
		return phaseStats{}, fmt.Errorf("seed sign-in: %w", err)
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		rejected  int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

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
				t0 := time.Now()
				err := randomOperation(ctx, m, r, i)
				d := time.Since(t0)
				switch {
				case err == nil:
				case errors.Is(err, authsession.ErrOperationInFlight):
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	stats := computeStats(time.Since(start), latencies, failures)
	stats.rejected = rejected
	stats.dropped = m.DroppedNotifications()
	stats.authenticated = m.IsAuthenticated()
	return stats, nil
}

// randomOperation mixes session-replacing and session-mutating calls.
func randomOperation(ctx context.Context, m *authsession.Manager, r *rand.Rand, i int) error {
	switch r.Intn(4) {
	case 0:
		return m.SignIn(ctx, identity.DemoEmail, identity.DemoPassword)
	case 1:
		name := fmt.Sprintf("Load %d", i)
		return m.UpdateProfile(ctx, authsession.ProfileUpdate{Name: &name})
	case 2:
		return m.VerifyEmail(ctx, "token")
	default:
		return m.EnableTwoFactor(ctx)
	}
}

type phaseStats struct {
	total         time.Duration
	ops           int
	failures      int64
	rejected      int64
	dropped       uint64
	authenticated bool
	p50           time.Duration
	p95           time.Duration
	p99           time.Duration
	opsPerS       float64
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d rejected=%d failures=%d dropped_notifications=%d authenticated=%t total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.rejected,
		s.failures,
		s.dropped,
		s.authenticated,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
