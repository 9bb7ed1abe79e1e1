// Command mosession-loadtest benchmarks the session lifecycle against a
// Redis backend: it seeds sessions, then runs a read phase (Begin/End with
// no mutation) and a write phase (Begin, mutate, End) and prints latency
// percentiles. Without -redis-addr (or REDIS_ADDR) it runs against an
// embedded miniredis, which measures engine overhead rather than network.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	mosession "github.com/bayazee/mosession"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (read + write)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "mos", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
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

	cfg := mosession.DefaultConfig()
	cfg.Redis.KeyPrefix = *prefix
	cfg.Metrics.Enabled = true

	engine, err := mosession.New().
		WithConfig(cfg).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close(ctx)

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	tokens := make([]string, *sessions)
	for i := 0; i < *sessions; i++ {
		s, err := engine.Begin(ctx, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed begin failed: %v\n", err)
			os.Exit(1)
		}
		if err := s.Set("user", fmt.Sprintf("u-%d", i)); err != nil {
			fmt.Fprintf(os.Stderr, "seed set failed: %v\n", err)
			os.Exit(1)
		}
		if err := s.Set("counter", 0); err != nil {
			fmt.Fprintf(os.Stderr, "seed set failed: %v\n", err)
			os.Exit(1)
		}
		instr, err := engine.End(ctx, s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed end failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = instr.Token
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	readStats := runPhase(ctx, engine, tokens, *ops, *concurrency, false)
	writeStats := runPhase(ctx, engine, tokens, *ops, *concurrency, true)

	fmt.Println("---- results ----")
	printStats("read", readStats)
	printStats("write", writeStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("loaded=%d saved=%d discarded=%d corrupt=%d unavailable=%d\n",
		snap.Counters[mosession.MetricSessionLoaded],
		snap.Counters[mosession.MetricSessionSaved],
		snap.Counters[mosession.MetricSessionDiscarded],
		snap.Counters[mosession.MetricCorruptPayload],
		snap.Counters[mosession.MetricStoreUnavailable],
	)
}

func runPhase(ctx context.Context, engine *mosession.Engine, tokens []string, ops, concurrency int, mutate bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
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
				token := tokens[r.Intn(len(tokens))]

				t0 := time.Now()
				err := cycle(ctx, engine, token, mutate, i)
				d := time.Since(t0)
				if err != nil {
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

func cycle(ctx context.Context, engine *mosession.Engine, token string, mutate bool, i int) error {
	s, err := engine.Begin(ctx, token)
	if err != nil {
		return err
	}
	if mutate {
		if err := s.Set("counter", i); err != nil {
			return err
		}
	}
	_, err = engine.End(ctx, s)
	return err
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
