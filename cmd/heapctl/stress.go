package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/config"
	"github.com/joshuapare/heapkit/internal/telemetry"
)

var (
	stressPolicy      string
	stressWorkers     int
	stressIterations  int
	stressMaxSize     int
	stressFreeRatio   float64
	stressSeed        int64
	stressMetricsAddr string
	stressLinger      time.Duration
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().StringVar(&stressPolicy, "policy", "", "Concurrency policy: shared or local")
	cmd.Flags().IntVarP(&stressWorkers, "workers", "w", 0, "Number of concurrent workers")
	cmd.Flags().IntVarP(&stressIterations, "iterations", "n", 0, "Operations per worker")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 0, "Largest allocation request in bytes")
	cmd.Flags().Float64Var(&stressFreeRatio, "free-ratio", 0, "Probability that a step releases instead of allocating")
	cmd.Flags().Int64Var(&stressSeed, "seed", 0, "Random seed")
	cmd.Flags().StringVar(&stressMetricsAddr, "metrics-addr", "", "Serve /metrics and /debug/heap on this address")
	cmd.Flags().DurationVar(&stressLinger, "linger", 0, "Keep serving metrics this long after the run")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent allocate/release workload",
		Long: `The stress command runs workers that allocate random sizes, fill them
with random bytes, and release them in random order. Every payload's
xxhash digest is checked before release, so any overlap between live
allocations is reported. The heap's invariants are verified at the end.

Under the local policy each worker gets its own arena from a registry.

Example:
  heapctl stress --policy shared --workers 8 -n 200000
  heapctl stress --policy local --metrics-addr :9464 --linger 1m
  heapctl stress --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyStressFlags(cmd, &cfg.Stress)
			if stressMetricsAddr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Address = stressMetricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runStressCmd(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	return cmd
}

// applyStressFlags overrides config values with the flags the user set.
func applyStressFlags(cmd *cobra.Command, s *config.StressConfiguration) {
	flags := cmd.Flags()
	if flags.Changed("policy") {
		s.Policy = stressPolicy
	}
	if flags.Changed("workers") {
		s.Workers = stressWorkers
	}
	if flags.Changed("iterations") {
		s.Iterations = stressIterations
	}
	if flags.Changed("max-size") {
		s.MaxSize = stressMaxSize
	}
	if flags.Changed("free-ratio") {
		s.FreeRatio = stressFreeRatio
	}
	if flags.Changed("seed") {
		s.Seed = stressSeed
	}
}

func runStressCmd(ctx context.Context, w io.Writer, c *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	h, err := alloc.New(c.Alloc())
	if err != nil {
		return err
	}
	defer h.Close()

	var srv *telemetry.Server
	if c.Metrics.Enabled {
		srv, err = telemetry.Start(c.Metrics.Address, telemetry.Router(telemetry.NewRegistry(h), h))
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Telemetry shutdown failed")
			}
		}()
	}

	policy, err := config.ParsePolicy(c.Stress.Policy)
	if err != nil {
		return err
	}
	printVerbose(w, "Running %d %s workers, %d iterations each\n", c.Stress.Workers, policy, c.Stress.Iterations)

	res, err := runStress(h, stressOptions{
		Policy:     policy,
		Workers:    c.Stress.Workers,
		Iterations: c.Stress.Iterations,
		MaxSize:    c.Stress.MaxSize,
		FreeRatio:  c.Stress.FreeRatio,
		Seed:       c.Stress.Seed,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(w, res); err != nil {
			return err
		}
	} else {
		printStressResult(w, res)
	}

	if srv != nil && stressLinger > 0 {
		printInfo(w, "Serving metrics on %s for %s\n", srv.Addr(), stressLinger)
		select {
		case <-time.After(stressLinger):
		case <-ctx.Done():
		}
	}
	return nil
}

type stressOptions struct {
	Policy     alloc.Policy
	Workers    int
	Iterations int
	MaxSize    int
	FreeRatio  float64
	Seed       int64
}

// stressResult summarizes a stress run.
type stressResult struct {
	Policy     string        `json:"policy"`
	Workers    int           `json:"workers"`
	Iterations int           `json:"iterations"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Checked    uint64        `json:"checked"`
	Stats      alloc.Stats   `json:"stats"`
}

// byteAllocator is the slice API shared by *alloc.Heap and *alloc.Local.
type byteAllocator interface {
	AllocateBytes(size int) []byte
	ReleaseBytes(b []byte)
}

// heldBlock is a live allocation and the digest of what was written to it.
type heldBlock struct {
	buf    []byte
	digest uint64
}

// runStress runs the workload on h and verifies the heap afterwards. Every
// allocation is released before it returns.
func runStress(h *alloc.Heap, opts stressOptions) (stressResult, error) {
	res := stressResult{
		Policy:     opts.Policy.String(),
		Workers:    opts.Workers,
		Iterations: opts.Iterations,
	}

	workers := make([]byteAllocator, opts.Workers)
	reg := alloc.NewRegistry(h)
	for i := range workers {
		if opts.Policy == alloc.PolicyLocal {
			workers[i] = reg.For(uint64(i))
		} else {
			workers[i] = h
		}
	}

	var (
		checked   atomic.Uint64
		corrupted atomic.Uint64
		wg        sync.WaitGroup
	)
	start := time.Now()
	for i, a := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, bad := stressWorker(a, opts, opts.Seed+int64(i))
			checked.Add(c)
			corrupted.Add(bad)
		}()
	}
	wg.Wait()
	res.Elapsed = time.Since(start)
	res.Checked = checked.Load()
	res.Stats = h.TotalStats()

	if bad := corrupted.Load(); bad > 0 {
		return res, fmt.Errorf("%d of %d payloads were overwritten while live", bad, res.Checked)
	}
	if err := h.Verify(); err != nil {
		return res, fmt.Errorf("heap verification failed: %w", err)
	}
	return res, nil
}

// stressWorker runs one worker's loop and returns how many payloads it
// checked and how many of those had changed.
func stressWorker(a byteAllocator, opts stressOptions, seed int64) (checked, corrupted uint64) {
	rng := rand.New(rand.NewSource(seed))
	var held []heldBlock

	release := func(j int) {
		b := held[j]
		checked++
		if xxhash.Sum64(b.buf) != b.digest {
			corrupted++
			log.Error().
				Int64("seed", seed).
				Int("len", len(b.buf)).
				Msg("Payload digest mismatch")
		}
		a.ReleaseBytes(b.buf)
		held[j] = held[len(held)-1]
		held = held[:len(held)-1]
	}

	for range opts.Iterations {
		if len(held) > 0 && rng.Float64() < opts.FreeRatio {
			release(rng.Intn(len(held)))
			continue
		}
		buf := a.AllocateBytes(1 + rng.Intn(opts.MaxSize))
		_, _ = rng.Read(buf)
		held = append(held, heldBlock{buf: buf, digest: xxhash.Sum64(buf)})
	}
	for len(held) > 0 {
		release(len(held) - 1)
	}
	return checked, corrupted
}

func printStressResult(w io.Writer, res stressResult) {
	s := res.Stats
	ops := s.Allocations + s.Releases
	rate := 0.0
	if res.Elapsed > 0 {
		rate = float64(ops) / res.Elapsed.Seconds()
	}

	printInfo(w, "Policy:       %s\n", res.Policy)
	printInfo(w, "Workers:      %d x %d iterations\n", res.Workers, res.Iterations)
	printInfo(w, "Elapsed:      %s (%.0f ops/s)\n", res.Elapsed.Round(time.Millisecond), rate)
	printInfo(w, "Checked:      %d payloads, no overlap\n", res.Checked)
	printInfo(w, "Allocations:  %d (exact %d, whole %d, split %d, grow %d)\n",
		s.Allocations, s.ExactFits, s.WholeFits, s.Splits, s.Growths)
	printInfo(w, "Releases:     %d (merged backward %d, forward %d)\n",
		s.Releases, s.CoalesceBackward, s.CoalesceForward)
	printInfo(w, "Heap:         %d bytes, %d free blocks (%d bytes)\n",
		s.HeapBytes, s.FreeBlocks, s.FreeBytes)
}
