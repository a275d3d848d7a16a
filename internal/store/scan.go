package store

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ScanResult is one page of a SCAN-family cursor walk.
type ScanResult struct {
	Cursor string // "0" means the scan is complete
	Keys   []string
}

// Scan walks the keyspace under the given logical-database prefix,
// incrementally and resumably: the cursor format is "<shardIndex>:<lastKeyB64>"
// (opaque to callers, who must only pass back what Scan returned). Every key
// present for the whole duration of a full 0-terminated walk is guaranteed
// to be returned at least once (spec.md §4.C, §8) because within a shard
// keys are walked in sorted order and the cursor resumes strictly after the
// last key returned — later insertions/deletions only affect whether *new*
// keys appear, never whether pre-existing keys are skipped.
func (s *Store) Scan(prefix, cursor string, count int, pattern string, typeFilter Kind) ScanResult {
	if count <= 0 {
		count = 10
	}
	shardIdx, lastKey := decodeCursor(cursor)

	var out []string
	now := s.nowNano()

	for shardIdx < s.numShards {
		sh := s.shards[shardIdx]
		sh.mu.Lock()
		var names []string
		for k, e := range sh.data {
			if len(k) < len(prefix) || k[:len(prefix)] != prefix {
				continue
			}
			if e.expiredAt(now) {
				continue
			}
			names = append(names, k[len(prefix):])
		}
		sort.Strings(names)

		start := sort.SearchStrings(names, lastKey)
		for start < len(names) && names[start] == lastKey {
			start++
		}
		i := start
		for ; i < len(names) && len(out) < count; i++ {
			logical := names[i]
			if typeFilter != KindNone {
				full := prefix + logical
				if e, ok := sh.data[full]; !ok || e.Kind != typeFilter {
					continue
				}
			}
			if pattern == "" || pattern == "*" || globMatch(pattern, logical) {
				out = append(out, logical)
			}
		}
		sh.mu.Unlock()

		if i < len(names) {
			return ScanResult{Cursor: encodeCursor(shardIdx, names[i-1]), Keys: out}
		}
		// Shard exhausted; advance.
		shardIdx++
		lastKey = ""
		if len(out) >= count {
			if shardIdx >= s.numShards {
				return ScanResult{Cursor: "0", Keys: out}
			}
			return ScanResult{Cursor: encodeCursor(shardIdx, ""), Keys: out}
		}
	}
	return ScanResult{Cursor: "0", Keys: out}
}

func encodeCursor(shardIdx int, lastKey string) string {
	return fmt.Sprintf("%d:%s", shardIdx, base64.RawURLEncoding.EncodeToString([]byte(lastKey)))
}

func decodeCursor(cursor string) (shardIdx int, lastKey string) {
	if cursor == "" || cursor == "0" {
		return 0, ""
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return 0, ""
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, ""
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, ""
	}
	return idx, string(raw)
}

// CollectionScanResult is one page of an SSCAN/HSCAN/ZSCAN walk over a
// single key's members. The cursor is a plain integer offset into a
// name-sorted snapshot taken at call time.
type CollectionScanResult struct {
	Cursor string
	Items  []string // SSCAN: members. HSCAN: field,value,... ZSCAN: member,score,...
}

// ScanSet walks physKey's set members.
func (s *Store) ScanSet(physKey, cursor string, count int, pattern string) (CollectionScanResult, error) {
	res, err := s.view(physKey, KindSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return CollectionScanResult{Cursor: "0"}, nil
		}
		members := make([]string, 0, len(e.Set))
		for m := range e.Set {
			members = append(members, m)
		}
		sort.Strings(members)
		return collectionPage(members, cursor, count, pattern, func(m string) []string { return []string{m} }), nil
	})
	if err != nil {
		return CollectionScanResult{}, err
	}
	return res.(CollectionScanResult), nil
}

// ScanHash walks physKey's hash fields.
func (s *Store) ScanHash(physKey, cursor string, count int, pattern string) (CollectionScanResult, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return CollectionScanResult{Cursor: "0"}, nil
		}
		fields := make([]string, 0, len(e.Hash))
		for f := range e.Hash {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		return collectionPage(fields, cursor, count, pattern, func(f string) []string {
			return []string{f, string(e.Hash[f])}
		}), nil
	})
	if err != nil {
		return CollectionScanResult{}, err
	}
	return res.(CollectionScanResult), nil
}

// ScanZSet walks physKey's sorted-set members.
func (s *Store) ScanZSet(physKey, cursor string, count int, pattern string) (CollectionScanResult, error) {
	res, err := s.view(physKey, KindSortedSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return CollectionScanResult{Cursor: "0"}, nil
		}
		members := make([]string, 0, len(e.ZSet.scores))
		for m := range e.ZSet.scores {
			members = append(members, m)
		}
		sort.Strings(members)
		return collectionPage(members, cursor, count, pattern, func(m string) []string {
			return []string{m, formatFloat(e.ZSet.scores[m])}
		}), nil
	})
	if err != nil {
		return CollectionScanResult{}, err
	}
	return res.(CollectionScanResult), nil
}

func collectionPage(sorted []string, cursor string, count int, pattern string, expand func(string) []string) CollectionScanResult {
	if count <= 0 {
		count = 10
	}
	offset, _ := strconv.Atoi(cursor)
	if offset < 0 || offset > len(sorted) {
		offset = 0
	}
	var items []string
	i := offset
	for ; i < len(sorted) && len(items) < count*2; i++ {
		if pattern == "" || pattern == "*" || globMatch(pattern, sorted[i]) {
			items = append(items, expand(sorted[i])...)
		}
	}
	if i >= len(sorted) {
		return CollectionScanResult{Cursor: "0", Items: items}
	}
	return CollectionScanResult{Cursor: strconv.Itoa(i), Items: items}
}
