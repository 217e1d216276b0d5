// Package config loads heapctl configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// HeapConfiguration controls the heap's address-space reservation.
type HeapConfiguration struct {
	ReserveMB     int `toml:"reserve_mb"`      // Address space reserved up front
	CommitChunkKB int `toml:"commit_chunk_kb"` // Granularity in which it is made accessible
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// MetricsConfiguration controls the Prometheus endpoint
type MetricsConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// StressConfiguration holds defaults for `heapctl stress`.
type StressConfiguration struct {
	Policy     string  `toml:"policy"` // "shared" or "local"
	Workers    int     `toml:"workers"`
	Iterations int     `toml:"iterations"` // Per worker
	MaxSize    int     `toml:"max_size"`   // Largest request in bytes
	FreeRatio  float64 `toml:"free_ratio"` // Probability a step releases instead of allocating
	Seed       int64   `toml:"seed"`
}

// Config is the full heapctl configuration.
type Config struct {
	Heap    HeapConfiguration    `toml:"heap"`
	Logging LoggingConfiguration `toml:"logging"`
	Metrics MetricsConfiguration `toml:"metrics"`
	Stress  StressConfiguration  `toml:"stress"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Heap: HeapConfiguration{
			ReserveMB:     1024,
			CommitChunkKB: 1024,
		},
		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  FormatConsole,
		},
		Metrics: MetricsConfiguration{
			Enabled: false,
			Address: "127.0.0.1:9464",
		},
		Stress: StressConfiguration{
			Policy:     "local",
			Workers:    4,
			Iterations: 100000,
			MaxSize:    4096,
			FreeRatio:  0.45,
			Seed:       1,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Keys the file does not set keep their default values.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Heap.ReserveMB <= 0 {
		return fmt.Errorf("invalid heap.reserve_mb: %d", c.Heap.ReserveMB)
	}
	if c.Heap.CommitChunkKB <= 0 {
		return fmt.Errorf("invalid heap.commit_chunk_kb: %d", c.Heap.CommitChunkKB)
	}
	if c.Heap.CommitChunkKB > c.Heap.ReserveMB*1024 {
		return fmt.Errorf("heap.commit_chunk_kb (%d) exceeds heap.reserve_mb (%d)",
			c.Heap.CommitChunkKB, c.Heap.ReserveMB)
	}

	switch c.Logging.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("invalid logging.format %q (want %q or %q)", c.Logging.Format, FormatConsole, FormatJSON)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}

	if _, err := ParsePolicy(c.Stress.Policy); err != nil {
		return err
	}
	if c.Stress.Workers < 1 {
		return fmt.Errorf("invalid stress.workers: %d", c.Stress.Workers)
	}
	if c.Stress.Iterations < 0 {
		return fmt.Errorf("invalid stress.iterations: %d", c.Stress.Iterations)
	}
	if c.Stress.MaxSize < 1 {
		return fmt.Errorf("invalid stress.max_size: %d", c.Stress.MaxSize)
	}
	if c.Stress.FreeRatio < 0 || c.Stress.FreeRatio >= 1 {
		return fmt.Errorf("invalid stress.free_ratio: %g (want 0 <= r < 1)", c.Stress.FreeRatio)
	}
	return nil
}

// Alloc converts the heap section to an allocator configuration.
func (c *Config) Alloc() *alloc.Config {
	return &alloc.Config{
		ReserveBytes:     uint64(c.Heap.ReserveMB) << 20,
		CommitChunkBytes: uint64(c.Heap.CommitChunkKB) << 10,
	}
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ParsePolicy maps a policy name to an allocator policy.
func ParsePolicy(name string) (alloc.Policy, error) {
	switch name {
	case alloc.PolicyShared.String():
		return alloc.PolicyShared, nil
	case alloc.PolicyLocal.String():
		return alloc.PolicyLocal, nil
	default:
		return 0, fmt.Errorf("invalid policy %q (want %q or %q)", name, alloc.PolicyShared, alloc.PolicyLocal)
	}
}
