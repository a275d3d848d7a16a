package store

import "container/list"

// Kind is the tagged type of a stored entry's value. A key's Kind is
// immutable over the key's lifetime except by DEL + re-insert.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindList
	KindSet
	KindHash
	KindSortedSet
	KindHyperLogLog
)

// String names the kind the way TYPE reports it. The
// HyperLogLog kind reports as "string" — a deliberate, contract-preserving
// quirk carried over from upstream Redis (spec.md §4.E).
func (k Kind) String() string {
	switch k {
	case KindString, KindHyperLogLog:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindSortedSet:
		return "zset"
	default:
		return "none"
	}
}

// zmember is one member of a sorted set, kept in a score-then-lex-ordered
// slice alongside a member->score map for O(1) ZSCORE lookups.
type zmember struct {
	member string
	score  float64
}

// sortedSet is a sorted-set value: ordered by (score asc, member lex asc).
type sortedSet struct {
	scores  map[string]float64
	ordered []zmember
}

func newSortedSet() *sortedSet {
	return &sortedSet{scores: make(map[string]float64)}
}

// Entry is one stored key's value plus its metadata. Only the field(s)
// matching Kind are meaningful.
type Entry struct {
	Kind Kind

	Str  []byte
	List *list.List // each Value() is []byte
	Set  map[string]struct{}
	Hash map[string][]byte
	ZSet *sortedSet
	HLL  []byte // 16384 registers, one byte each

	// ExpiresAtUnixNano is the absolute deadline; zero means no TTL.
	ExpiresAtUnixNano int64

	// Version is bumped exactly once per observable mutation (never on pure
	// reads). WATCH compares this value across the gap between WATCH and EXEC.
	Version uint64

	// AccessTick is a monotone counter bumped on every read/write touching
	// this entry; it stands in for a wall-clock LRU timestamp (spec.md §9).
	AccessTick uint64
}

func newEntry(kind Kind) *Entry {
	e := &Entry{Kind: kind}
	switch kind {
	case KindList:
		e.List = list.New()
	case KindSet:
		e.Set = make(map[string]struct{})
	case KindHash:
		e.Hash = make(map[string][]byte)
	case KindSortedSet:
		e.ZSet = newSortedSet()
	case KindHyperLogLog:
		e.HLL = make([]byte, 16384)
	}
	return e
}

// hasExpiry reports whether the entry carries a TTL.
func (e *Entry) hasExpiry() bool { return e.ExpiresAtUnixNano != 0 }

// expiredAt reports whether the entry's deadline is due at nowNano.
func (e *Entry) expiredAt(nowNano int64) bool {
	return e.hasExpiry() && e.ExpiresAtUnixNano <= nowNano
}

// empty reports whether a collection-kind entry has shrunk to zero elements
// (invariant 5 of spec.md §3: such a key must not remain in the store).
func (e *Entry) empty() bool {
	switch e.Kind {
	case KindList:
		return e.List.Len() == 0
	case KindSet:
		return len(e.Set) == 0
	case KindHash:
		return len(e.Hash) == 0
	case KindSortedSet:
		return len(e.ZSet.scores) == 0
	default:
		return false
	}
}

// approxBytes is a monotone-in-obvious-growth estimate of the entry's
// resident size, consulted by the eviction engine.
func (e *Entry) approxBytes(key string) int64 {
	const (
		entryOverhead = 64
		mapEntry      = 48
		listNode      = 40
	)
	size := int64(entryOverhead + len(key))
	switch e.Kind {
	case KindString:
		size += int64(len(e.Str))
	case KindList:
		for n := e.List.Front(); n != nil; n = n.Next() {
			size += listNode + int64(len(n.Value.([]byte)))
		}
	case KindSet:
		for m := range e.Set {
			size += mapEntry + int64(len(m))
		}
	case KindHash:
		for f, v := range e.Hash {
			size += mapEntry + int64(len(f)) + int64(len(v))
		}
	case KindSortedSet:
		for _, zm := range e.ZSet.ordered {
			size += mapEntry + int64(len(zm.member)) + 8
		}
	case KindHyperLogLog:
		size += int64(len(e.HLL))
	}
	return size
}
