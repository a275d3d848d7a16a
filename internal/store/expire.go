package store

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	sampleInterval  = 100 * time.Millisecond
	sampleBatch     = 20   // K: keys sampled per tick
	reSampleFrac    = 0.25 // re-sample immediately if this fraction was expired
)

// RunExpireSampler runs the background TTL sampler described in spec.md
// §4.D until ctx is cancelled: each tick it samples up to sampleBatch random
// keys per shard, removing any whose deadline has passed, and keeps
// re-sampling immediately while the expired fraction stays above
// reSampleFrac so expired-but-unread keys never accumulate unbounded.
func (s *Store) RunExpireSampler(ctx context.Context) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for s.sampleExpireOnce() > reSampleFrac {
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}
}

// sampleExpireOnce samples up to sampleBatch keys per shard, removes expired
// ones, and returns the fraction of the sampled-with-TTL keys that were
// expired (used by the caller to decide whether to re-sample immediately).
func (s *Store) sampleExpireOnce() float64 {
	now := s.nowNano()
	var sampledWithTTL, expired int

	for _, sh := range s.shards {
		sh.mu.Lock()
		n := 0
		var toRemove []string
		for k, e := range sh.data {
			if n >= sampleBatch {
				break
			}
			n++
			if !e.hasExpiry() {
				continue
			}
			sampledWithTTL++
			if e.expiredAt(now) {
				expired++
				toRemove = append(toRemove, k)
			}
		}
		for _, k := range toRemove {
			s.removeLocked(sh, k)
		}
		if len(toRemove) > 0 {
			atomic.AddUint64(&s.stats.ExpiredKeys, uint64(len(toRemove)))
		}
		sh.mu.Unlock()
	}

	if sampledWithTTL == 0 {
		return 0
	}
	return float64(expired) / float64(sampledWithTTL)
}
