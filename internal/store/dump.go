package store

import "time"

// DumpEntry is one key's complete value, kind, and TTL, in the shape the
// snapshot codec (internal/snapshot) round-trips to and from its binary
// file layout (spec.md §4.I). PhysKey already carries the "<db>:" prefix
// (store.PhysicalKey) since the RDB file is one flat keyspace across all
// logical databases.
type DumpEntry struct {
	PhysKey         string
	Kind            Kind
	ExpiresAtMillis int64 // 0 means no TTL
	Str             []byte
	List            [][]byte
	Set             []string
	Hash            map[string][]byte
	ZSet            []ZMember
	HLL             []byte
}

// Dump snapshots every live (non-expired) key across all shards as of now.
// Each shard is visited under its own read lock and released before the
// next, so Save never holds more than one shard lock at a time; the
// returned slice holds every live key (spec.md §4.I: Save must not block writers longer than a
// per-shard read lock).
func (s *Store) Dump() []DumpEntry {
	now := time.Now().UnixNano()
	var out []DumpEntry
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, e := range sh.data {
			if e.expiredAt(now) {
				continue
			}
			out = append(out, dumpEntry(k, e))
		}
		sh.mu.RUnlock()
	}
	return out
}

func dumpEntry(physKey string, e *Entry) DumpEntry {
	d := DumpEntry{PhysKey: physKey, Kind: e.Kind}
	if e.hasExpiry() {
		d.ExpiresAtMillis = e.ExpiresAtUnixNano / int64(time.Millisecond)
	}
	switch e.Kind {
	case KindString:
		d.Str = append([]byte(nil), e.Str...)
	case KindList:
		for n := e.List.Front(); n != nil; n = n.Next() {
			d.List = append(d.List, append([]byte(nil), n.Value.([]byte)...))
		}
	case KindSet:
		d.Set = make([]string, 0, len(e.Set))
		for m := range e.Set {
			d.Set = append(d.Set, m)
		}
	case KindHash:
		d.Hash = make(map[string][]byte, len(e.Hash))
		for f, v := range e.Hash {
			d.Hash[f] = append([]byte(nil), v...)
		}
	case KindSortedSet:
		d.ZSet = make([]ZMember, 0, len(e.ZSet.ordered))
		for _, zm := range e.ZSet.ordered {
			d.ZSet = append(d.ZSet, ZMember{Member: zm.member, Score: zm.score})
		}
	case KindHyperLogLog:
		d.HLL = append([]byte(nil), e.HLL...)
	}
	return d
}

// Restore installs entries into the store, replacing any existing content
// at those physical keys. Called once at startup before the listener
// begins accepting connections, so no shard contention is possible; each
// key is still written under its own shard lock for consistency with the
// rest of the package's access discipline. Entries whose deadline has
// already passed are skipped (spec.md §4.I Load).
func (s *Store) Restore(entries []DumpEntry) {
	now := time.Now().UnixNano()
	for _, d := range entries {
		expiresAt := int64(0)
		if d.ExpiresAtMillis != 0 {
			expiresAt = d.ExpiresAtMillis * int64(time.Millisecond)
			if expiresAt <= now {
				continue
			}
		}
		e := newEntry(d.Kind)
		e.ExpiresAtUnixNano = expiresAt
		switch d.Kind {
		case KindString:
			e.Str = d.Str
		case KindList:
			for _, v := range d.List {
				e.List.PushBack(v)
			}
		case KindSet:
			for _, m := range d.Set {
				e.Set[m] = struct{}{}
			}
		case KindHash:
			for f, v := range d.Hash {
				e.Hash[f] = v
			}
		case KindSortedSet:
			for _, zm := range d.ZSet {
				zsetInsert(e.ZSet, zm.Member, zm.Score)
			}
		case KindHyperLogLog:
			e.HLL = d.HLL
		}
		sh := s.shardFor(d.PhysKey)
		sh.mu.Lock()
		s.putLocked(sh, d.PhysKey, e, 0)
		sh.mu.Unlock()
	}
}
