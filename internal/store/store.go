// Package store implements the typed, sharded, TTL-aware key-value engine
// described in spec.md §4.C/§4.D: component C (typed store) and component D
// (expiration & eviction engine) live here together since eviction needs
// direct access to shard internals (access ticks, TTL presence) that a
// clean layering would otherwise have to expose anyway.
package store

import (
	"fmt"
	"hash/maphash"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// EvictionPolicy selects the victim pool and selection rule the eviction
// engine uses when a write would push memory usage above MaxMemoryBytes.
type EvictionPolicy int

const (
	PolicyNoEviction EvictionPolicy = iota
	PolicyAllKeysRandom
	PolicyAllKeysLRU
	PolicyVolatileRandom
	PolicyVolatileLRU
	PolicyVolatileTTL
)

// String renders the policy the way CONFIG GET/INFO report it.
func (p EvictionPolicy) String() string {
	switch p {
	case PolicyAllKeysRandom:
		return "allkeys-random"
	case PolicyAllKeysLRU:
		return "allkeys-lru"
	case PolicyVolatileRandom:
		return "volatile-random"
	case PolicyVolatileLRU:
		return "volatile-lru"
	case PolicyVolatileTTL:
		return "volatile-ttl"
	default:
		return "noeviction"
	}
}

// ParsePolicy maps a REDUST_MAXMEMORY_POLICY value to an EvictionPolicy.
func ParsePolicy(s string) (EvictionPolicy, bool) {
	switch s {
	case "noeviction", "":
		return PolicyNoEviction, true
	case "allkeys-random":
		return PolicyAllKeysRandom, true
	case "allkeys-lru":
		return PolicyAllKeysLRU, true
	case "volatile-random":
		return PolicyVolatileRandom, true
	case "volatile-lru":
		return PolicyVolatileLRU, true
	case "volatile-ttl":
		return PolicyVolatileTTL, true
	default:
		return PolicyNoEviction, false
	}
}

const sampleSize = 5 // S: approximate-LRU / volatile-ttl sample width

// Stats are the store's observable counters, read by INFO.
type Stats struct {
	ExpiredKeys uint64
	EvictedKeys uint64
}

// shard is one of the store's N lock-disjoint key-space partitions.
type shard struct {
	mu    sync.RWMutex
	data  map[string]*Entry
	bytes int64
}

// Store is the sharded mapping from physical key to typed Entry. A key's
// logical database is encoded as the "<db>:" prefix on its physical key
// (spec.md §3) — callers pass physical keys already prefixed via PhysicalKey.
type Store struct {
	shards    []*shard
	seed      maphash.Seed
	numShards int

	maxMemoryBytes atomic.Int64
	policy         atomic.Int32
	maxValueBytes  atomic.Int64

	totalBytes atomic.Int64
	tick       atomic.Uint64

	stats Stats

	rng   *rand.Rand
	rngMu sync.Mutex
}

// New creates a Store with the given shard count (at least 1).
func New(numShards int) *Store {
	if numShards < 1 {
		numShards = 1
	}
	s := &Store{
		shards:    make([]*shard, numShards),
		seed:      maphash.MakeSeed(),
		numShards: numShards,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[string]*Entry)}
	}
	s.policy.Store(int32(PolicyNoEviction))
	return s
}

// PhysicalKey applies the logical-database prefix convention of spec.md §3.
func PhysicalKey(db int, key string) string {
	return fmt.Sprintf("%d:%s", db, key)
}

// SetMaxMemory configures the memory bound consulted by the eviction engine.
// Zero disables eviction regardless of policy.
func (s *Store) SetMaxMemory(bytes int64) { s.maxMemoryBytes.Store(bytes) }

// MaxMemory returns the configured memory bound.
func (s *Store) MaxMemory() int64 { return s.maxMemoryBytes.Load() }

// SetPolicy configures the active eviction policy.
func (s *Store) SetPolicy(p EvictionPolicy) { s.policy.Store(int32(p)) }

// Policy returns the active eviction policy.
func (s *Store) Policy() EvictionPolicy { return EvictionPolicy(s.policy.Load()) }

// SetMaxValueBytes configures the per-write payload size limit. Zero disables it.
func (s *Store) SetMaxValueBytes(n int64) { s.maxValueBytes.Store(n) }

// MaxValueBytes returns the configured payload size limit.
func (s *Store) MaxValueBytes() int64 { return s.maxValueBytes.Load() }

// CheckValueSize rejects a write whose payload exceeds the configured limit.
func (s *Store) CheckValueSize(n int) error {
	limit := s.maxValueBytes.Load()
	if limit > 0 && int64(n) > limit {
		return ErrMaxValue
	}
	return nil
}

// UsedMemory returns the store's running memory estimate in bytes.
func (s *Store) UsedMemory() int64 { return s.totalBytes.Load() }

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() Stats {
	return Stats{
		ExpiredKeys: atomic.LoadUint64(&s.stats.ExpiredKeys),
		EvictedKeys: atomic.LoadUint64(&s.stats.EvictedKeys),
	}
}

func (s *Store) shardFor(physKey string) *shard {
	return s.shards[s.shardIndex(physKey)]
}

func (s *Store) shardIndex(physKey string) int {
	var h maphash.Hash
	h.SetSeed(s.seed)
	h.WriteString(physKey)
	return int(h.Sum64() % uint64(s.numShards))
}

func (s *Store) nextTick() uint64 { return s.tick.Add(1) }

// nowNano is overridable in tests via the timeNow package variable further down.
func (s *Store) nowNano() int64 { return timeNow().UnixNano() }

var timeNow = time.Now

// removeLocked deletes key from an already-locked shard, adjusting both the
// shard-local and store-wide memory estimate. Caller holds sh.mu for writing.
func (s *Store) removeLocked(sh *shard, key string) {
	if e, ok := sh.data[key]; ok {
		delta := e.approxBytes(key)
		sh.bytes -= delta
		s.totalBytes.Add(-delta)
		delete(sh.data, key)
	}
}

// putLocked inserts or replaces key's entry, adjusting memory accounting by
// the difference between its previous size (0 if it didn't exist) and its
// current size. Caller holds sh.mu for writing.
func (s *Store) putLocked(sh *shard, key string, e *Entry, prevBytes int64) {
	after := e.approxBytes(key)
	sh.data[key] = e
	delta := after - prevBytes
	sh.bytes += delta
	s.totalBytes.Add(delta)
}

// getLiveLocked returns the entry for key if present and not expired,
// lazily removing it if its deadline has passed (invariant 1, spec.md §3).
// Caller holds sh.mu for writing (lazy removal may mutate the map).
func (s *Store) getLiveLocked(sh *shard, key string, nowNano int64) (*Entry, bool) {
	e, ok := sh.data[key]
	if !ok {
		return nil, false
	}
	if e.expiredAt(nowNano) {
		s.removeLocked(sh, key)
		atomic.AddUint64(&s.stats.ExpiredKeys, 1)
		return nil, false
	}
	return e, true
}

// Version returns the entry's version, or (0, false) if the key is absent.
// Used by WATCH to snapshot a key's observed version.
func (s *Store) Version(physKey string) (uint64, bool) {
	sh := s.shardFor(physKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return s.versionLocked(sh, physKey)
}

// versionLocked is Version's body for a caller that already holds sh's
// lock (e.g. EXEC's watched-key re-check inside WithKeysLocked) — sh.mu is
// not reentrant, so re-locking here would deadlock.
func (s *Store) versionLocked(sh *shard, physKey string) (uint64, bool) {
	e, ok := s.getLiveLocked(sh, physKey, s.nowNano())
	if !ok {
		return 0, false
	}
	return e.Version, true
}

// VersionLocked is Version's counterpart for use inside a WithKeysLocked
// callback, where physKey's shard lock is already held by the caller and
// calling the public, self-locking Version would deadlock.
func (s *Store) VersionLocked(physKey string) (uint64, bool) {
	sh := s.shardFor(physKey)
	return s.versionLocked(sh, physKey)
}

// Del removes the given physical keys, returning the count actually removed.
func (s *Store) Del(physKeys ...string) int {
	idxs := s.sortedShardIndexesFor(physKeys)
	unlock := s.lockShards(idxs)
	defer unlock()

	now := s.nowNano()
	removed := 0
	for _, k := range physKeys {
		sh := s.shardFor(k)
		if _, ok := s.getLiveLocked(sh, k, now); ok {
			s.removeLocked(sh, k)
			removed++
		}
	}
	return removed
}

// Exists returns how many of the given physical keys are present and live.
func (s *Store) Exists(physKeys ...string) int {
	now := s.nowNano()
	count := 0
	for _, k := range physKeys {
		sh := s.shardFor(k)
		sh.mu.Lock()
		if _, ok := s.getLiveLocked(sh, k, now); ok {
			count++
		}
		sh.mu.Unlock()
	}
	return count
}

// Type returns the kind of physKey, or KindNone if absent.
func (s *Store) Type(physKey string) Kind {
	sh := s.shardFor(physKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := s.getLiveLocked(sh, physKey, s.nowNano())
	if !ok {
		return KindNone
	}
	return e.Kind
}

// TTLMillis returns the remaining time-to-live in milliseconds: -2 if absent, -1 if
// no TTL is set, else the remaining milliseconds (>= 0).
func (s *Store) TTLMillis(physKey string) int64 {
	sh := s.shardFor(physKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := s.getLiveLocked(sh, physKey, s.nowNano())
	if !ok {
		return -2
	}
	if !e.hasExpiry() {
		return -1
	}
	remain := (e.ExpiresAtUnixNano - s.nowNano()) / int64(time.Millisecond)
	if remain < 0 {
		remain = 0
	}
	return remain
}

// ExpireAtMillis sets an absolute expiration deadline (Unix millis). A
// deadline at or before now deletes the key immediately. Returns whether the
// key existed.
func (s *Store) ExpireAtMillis(physKey string, atMillis int64) bool {
	sh := s.shardFor(physKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := s.getLiveLocked(sh, physKey, s.nowNano())
	if !ok {
		return false
	}
	deadline := atMillis * int64(time.Millisecond)
	if deadline <= s.nowNano() {
		s.removeLocked(sh, physKey)
		return true
	}
	e.ExpiresAtUnixNano = deadline
	e.Version++
	return true
}

// Persist removes any TTL on physKey. Returns true if a TTL was removed.
func (s *Store) Persist(physKey string) bool {
	sh := s.shardFor(physKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := s.getLiveLocked(sh, physKey, s.nowNano())
	if !ok || !e.hasExpiry() {
		return false
	}
	e.ExpiresAtUnixNano = 0
	e.Version++
	return true
}

// Rename moves src's value to dst (overwriting dst). Returns ErrNotFound if
// src is absent.
func (s *Store) Rename(src, dst string) error {
	idxs := s.sortedShardIndexesFor([]string{src, dst})
	unlock := s.lockShards(idxs)
	defer unlock()

	now := s.nowNano()
	srcSh := s.shardFor(src)
	e, ok := s.getLiveLocked(srcSh, src, now)
	if !ok {
		return ErrNotFound
	}
	s.removeLocked(srcSh, src)

	dstSh := s.shardFor(dst)
	s.removeLocked(dstSh, dst)
	e.Version++
	s.putLocked(dstSh, dst, e, 0)
	return nil
}

// FlushAll removes every key from every shard (FLUSHALL/FLUSHDB-all-dbs).
func (s *Store) FlushAll() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.data = make(map[string]*Entry)
		sh.bytes = 0
		sh.mu.Unlock()
	}
	s.totalBytes.Store(0)
}

// FlushPrefix removes every key whose physical key carries the given
// logical-database prefix (FLUSHDB for one database).
func (s *Store) FlushPrefix(prefix string) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k := range sh.data {
			if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
				s.removeLocked(sh, k)
			}
		}
		sh.mu.Unlock()
	}
}

// DBSizePrefix counts live keys under the given logical-database prefix.
func (s *Store) DBSizePrefix(prefix string) int {
	now := s.nowNano()
	count := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.data {
			if len(k) < len(prefix) || k[:len(prefix)] != prefix {
				continue
			}
			if e.expiredAt(now) {
				continue
			}
			count++
		}
		sh.mu.Unlock()
	}
	return count
}

// KeysMatching returns all live physical keys under prefix whose suffix
// (the logical key, prefix stripped) matches the glob pattern, sorted by
// byte order (spec.md §4.C: KEYS is documented O(n) administrative).
func (s *Store) KeysMatching(prefix, pattern string) []string {
	now := s.nowNano()
	var out []string
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.data {
			if len(k) < len(prefix) || k[:len(prefix)] != prefix {
				continue
			}
			if e.expiredAt(now) {
				continue
			}
			logical := k[len(prefix):]
			if globMatch(pattern, logical) {
				out = append(out, logical)
			}
		}
		sh.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

// sortedShardIndexesFor returns the distinct shard indexes touched by keys,
// sorted ascending — the lock order every multi-key operation must use to
// guarantee global deadlock freedom (spec.md §5).
func (s *Store) sortedShardIndexesFor(keys []string) []int {
	seen := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		seen[s.shardIndex(k)] = struct{}{}
	}
	idxs := make([]int, 0, len(seen))
	for i := range seen {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

// lockShards locks the given shard indexes (already sorted ascending) for
// writing and returns a func to unlock them in reverse order.
func (s *Store) lockShards(idxs []int) func() {
	for _, i := range idxs {
		s.shards[i].mu.Lock()
	}
	return func() {
		for i := len(idxs) - 1; i >= 0; i-- {
			s.shards[idxs[i]].mu.Unlock()
		}
	}
}

// WithKeysLocked locks every shard touched by keys, in the deadlock-free
// sorted order, runs fn, then unlocks — EXEC's watched-key re-check and
// transaction body need this same ordering so a concurrent EXEC never
// interleaves on a shared shard (spec.md §5).
func (s *Store) WithKeysLocked(keys []string, fn func()) {
	idxs := s.sortedShardIndexesFor(keys)
	unlock := s.lockShards(idxs)
	defer unlock()
	fn()
}
