// Package config parses the REDUST_* environment variables of spec.md §6
// into a typed, mutable Config, grounded on the teacher's conf.go-style
// parsing (there read from a redis.conf file; here read from the
// environment, since spec.md §1 puts a config-file parser out of scope).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/tmfc/redust/internal/store"
)

// Config holds every REDUST_* setting plus the CONFIG GET/SET-mutable
// triad (maxmemory bytes/policy, maxvalue bytes, requirepass), guarded by a
// mutex so a concurrent CONFIG SET takes effect for the next command
// (spec.md SUPPLEMENTED FEATURES: CONFIG GET/SET).
type Config struct {
	mu sync.RWMutex

	Addr string

	AuthEnabled bool
	AuthPass    string

	MaxMemoryBytes int64
	MaxMemoryPolicy store.EvictionPolicy

	MaxValueBytes int64

	RDBPath           string
	RDBAutoSaveSecs   int64
	DisablePersistence bool

	MetricsAddr string

	SlowlogSlowerThanMicros int64
	SlowlogMaxLen           int

	Databases int
	Shards    int
}

// FromEnv builds a Config from the process environment, applying spec.md
// §6's documented defaults for every unset variable.
func FromEnv() (*Config, error) {
	c := &Config{
		Addr:                    getEnv("REDUST_ADDR", "127.0.0.1:6379"),
		RDBPath:                 getEnv("REDUST_RDB_PATH", "redust.rdb"),
		MetricsAddr:             getEnv("REDUST_METRICS_ADDR", ""),
		Databases:               16,
		Shards:                  16,
		SlowlogMaxLen:           128,
		SlowlogSlowerThanMicros: 10000,
	}

	if pass, ok := os.LookupEnv("REDUST_AUTH_PASSWORD"); ok && pass != "" {
		c.AuthEnabled = true
		c.AuthPass = pass
	}

	var err error
	if c.MaxMemoryBytes, err = getByteSize("REDUST_MAXMEMORY_BYTES", 0); err != nil {
		return nil, err
	}
	if c.MaxValueBytes, err = getByteSize("REDUST_MAXVALUE_BYTES", 0); err != nil {
		return nil, err
	}

	policyStr := getEnv("REDUST_MAXMEMORY_POLICY", "noeviction")
	policy, ok := store.ParsePolicy(policyStr)
	if !ok {
		return nil, fmt.Errorf("config: invalid REDUST_MAXMEMORY_POLICY %q", policyStr)
	}
	c.MaxMemoryPolicy = policy

	if c.RDBAutoSaveSecs, err = getInt("REDUST_RDB_AUTO_SAVE_SECS", 0); err != nil {
		return nil, err
	}
	c.DisablePersistence = getEnv("REDUST_DISABLE_PERSISTENCE", "") == "1"

	if v, err := getInt("REDUST_SLOWLOG_SLOWER_THAN", c.SlowlogSlowerThanMicros); err == nil {
		c.SlowlogSlowerThanMicros = v
	} else {
		return nil, err
	}
	if v, err := getInt("REDUST_SLOWLOG_MAX_LEN", int64(c.SlowlogMaxLen)); err == nil {
		c.SlowlogMaxLen = int(v)
	} else {
		return nil, err
	}
	if v, err := getInt("REDUST_DATABASES", int64(c.Databases)); err == nil {
		c.Databases = int(v)
	} else {
		return nil, err
	}
	if v, err := getInt("REDUST_SHARDS", int64(c.Shards)); err == nil {
		c.Shards = int(v)
	} else {
		return nil, err
	}

	return c, nil
}

func getEnv(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func getInt(name string, def int64) (int64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", name, v, err)
	}
	return n, nil
}

// getByteSize parses an integer with an optional trailing K/M/G suffix
// (case-insensitive), per spec.md §6.
func getByteSize(name string, def int64) (int64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := ParseByteSize(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", name, v, err)
	}
	return n, nil
}

// ParseByteSize parses a plain integer or one suffixed with K/M/G
// (case-insensitive, base 1024) into a byte count.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'k', 'K':
		mult = 1024
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

// Snapshot returns a value copy of the mutable triad CONFIG GET/SET expose.
type Snapshot struct {
	MaxMemoryBytes  int64
	MaxMemoryPolicy store.EvictionPolicy
	MaxValueBytes   int64
	AuthEnabled     bool
	AuthPass        string
}

func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		MaxMemoryBytes:  c.MaxMemoryBytes,
		MaxMemoryPolicy: c.MaxMemoryPolicy,
		MaxValueBytes:   c.MaxValueBytes,
		AuthEnabled:     c.AuthEnabled,
		AuthPass:        c.AuthPass,
	}
}

// SetMaxMemoryBytes updates the mutable maxmemory bound (CONFIG SET maxmemory).
func (c *Config) SetMaxMemoryBytes(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MaxMemoryBytes = n
}

// SetMaxMemoryPolicy updates the mutable eviction policy (CONFIG SET maxmemory-policy).
func (c *Config) SetMaxMemoryPolicy(p store.EvictionPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MaxMemoryPolicy = p
}

// SetMaxValueBytes updates the mutable per-write payload limit (CONFIG SET
// maxvalue-bytes, this spec's own addition beyond upstream's CONFIG surface).
func (c *Config) SetMaxValueBytes(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MaxValueBytes = n
}

// SetAuthPass updates the configured auth password (CONFIG SET requirepass).
func (c *Config) SetAuthPass(pass string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AuthPass = pass
	c.AuthEnabled = pass != ""
}

// Get returns a named option's current string value for CONFIG GET,
// matching upstream's lower-kebab option naming for the triad this spec
// exposes.
func (c *Config) Get(name string) (string, bool) {
	snap := c.Snapshot()
	switch strings.ToLower(name) {
	case "maxmemory":
		return strconv.FormatInt(snap.MaxMemoryBytes, 10), true
	case "maxmemory-policy":
		return snap.MaxMemoryPolicy.String(), true
	case "maxvalue-bytes":
		return strconv.FormatInt(snap.MaxValueBytes, 10), true
	case "requirepass":
		return snap.AuthPass, true
	default:
		return "", false
	}
}

// Set applies a named option's new value for CONFIG SET, returning an error
// if name is unrecognized or value doesn't parse.
func (c *Config) Set(name, value string) error {
	switch strings.ToLower(name) {
	case "maxmemory":
		n, err := ParseByteSize(value)
		if err != nil {
			return store.ErrSyntax
		}
		c.SetMaxMemoryBytes(n)
		return nil
	case "maxmemory-policy":
		p, ok := store.ParsePolicy(value)
		if !ok {
			return store.ErrSyntax
		}
		c.SetMaxMemoryPolicy(p)
		return nil
	case "maxvalue-bytes":
		n, err := ParseByteSize(value)
		if err != nil {
			return store.ErrSyntax
		}
		c.SetMaxValueBytes(n)
		return nil
	case "requirepass":
		c.SetAuthPass(value)
		return nil
	default:
		return store.ErrSyntax
	}
}
