package store

import "sync/atomic"

// admitWrite is consulted before admitting a write that would create or grow
// a key by approximately extraBytes. If memory is unbounded (MaxMemory==0)
// it always admits. Otherwise it evicts victims per the configured policy
// until the projected usage fits, or returns ErrOOM if the policy forbids
// eviction or its victim pool is exhausted (spec.md §4.D).
//
// heldShardIdx is the shard index of the key mutate() is already holding
// sh.mu.Lock() on; evictOne must never sample or lock that shard again,
// since shard locks are not reentrant.
func (s *Store) admitWrite(extraBytes int64, heldShardIdx int) error {
	max := s.maxMemoryBytes.Load()
	if max <= 0 {
		return nil
	}
	if s.totalBytes.Load()+extraBytes <= max {
		return nil
	}

	policy := s.Policy()
	if policy == PolicyNoEviction {
		return ErrOOM
	}

	// Evict until we fit or run out of victims. Each eviction only frees one
	// key at a time (sampling is independent per attempt) but this bounds
	// total attempts to the number of live keys under the policy's pool.
	for s.totalBytes.Load()+extraBytes > max {
		if !s.evictOne(policy, heldShardIdx) {
			return ErrOOM
		}
	}
	return nil
}

// evictOne removes a single victim chosen per policy, returning false if no
// eligible victim exists (e.g. volatile-* with no TTL-bearing keys).
// heldShardIdx is skipped during sampling (see admitWrite).
func (s *Store) evictOne(policy EvictionPolicy, heldShardIdx int) bool {
	volatileOnly := policy == PolicyVolatileRandom || policy == PolicyVolatileLRU || policy == PolicyVolatileTTL

	type candidate struct {
		shardIdx int
		key      string
		tick     uint64
		ttl      int64 // remaining nanos; only meaningful for volatile-ttl
	}

	var candidates []candidate
	now := s.nowNano()

	// Sample across shards: pick a handful of shards at random, then a
	// handful of keys within each, matching the "random sample of S keys"
	// design (spec.md §4.D, §9).
	shardOrder := s.rng_Perm(len(s.shards))
	collected := 0
	for _, si := range shardOrder {
		if collected >= sampleSize {
			break
		}
		if si == heldShardIdx {
			continue
		}
		sh := s.shards[si]
		sh.mu.RLock()
		n := 0
		for k, e := range sh.data {
			if n >= sampleSize {
				break
			}
			n++
			if e.expiredAt(now) {
				continue
			}
			if volatileOnly && !e.hasExpiry() {
				continue
			}
			candidates = append(candidates, candidate{
				shardIdx: si,
				key:      k,
				tick:     e.AccessTick,
				ttl:      e.ExpiresAtUnixNano - now,
			})
			collected++
		}
		sh.mu.RUnlock()
	}

	if len(candidates) == 0 {
		return false
	}

	best := candidates[0]
	switch policy {
	case PolicyAllKeysLRU, PolicyVolatileLRU:
		for _, c := range candidates[1:] {
			if c.tick < best.tick {
				best = c
			}
		}
	case PolicyVolatileTTL:
		for _, c := range candidates[1:] {
			if c.ttl < best.ttl {
				best = c
			}
		}
	default: // allkeys-random, volatile-random
		best = candidates[s.rng_Intn(len(candidates))]
	}

	sh := s.shards[best.shardIdx]
	sh.mu.Lock()
	_, ok := sh.data[best.key]
	if ok {
		s.removeLocked(sh, best.key)
	}
	sh.mu.Unlock()
	if ok {
		atomic.AddUint64(&s.stats.EvictedKeys, 1)
	}
	return ok
}

// rng_Perm/rng_Intn wrap the store's mutex-protected RNG; math/rand's Rand
// is not safe for concurrent use without external synchronization.
func (s *Store) rng_Perm(n int) []int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Perm(n)
}

func (s *Store) rng_Intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}
