package store

import "sort"

// ZAddOpts controls ZADD's optional behavior.
type ZAddOpts struct {
	OnlyIfAbsent  bool // NX
	OnlyIfPresent bool // XX
	GreaterThan   bool // GT
	LessThan      bool // LT
	ReturnChanged bool // CH: report changed count instead of added count
	Incr          bool // INCR: single-pair mode, returns new score
}

// less reports whether (scoreA, memberA) sorts before (scoreB, memberB)
// under the (score asc, member lex asc) ordering every sorted-set operation
// relies on.
func zless(scoreA float64, memberA string, scoreB float64, memberB string) bool {
	if scoreA != scoreB {
		return scoreA < scoreB
	}
	return memberA < memberB
}

// zsetInsert inserts or repositions member at score, keeping ss.ordered sorted.
func zsetInsert(ss *sortedSet, member string, score float64) {
	if old, ok := ss.scores[member]; ok {
		zsetRemoveOrdered(ss, member, old)
	}
	ss.scores[member] = score
	i := sort.Search(len(ss.ordered), func(i int) bool {
		return !zless(ss.ordered[i].score, ss.ordered[i].member, score, member)
	})
	ss.ordered = append(ss.ordered, zmember{})
	copy(ss.ordered[i+1:], ss.ordered[i:])
	ss.ordered[i] = zmember{member: member, score: score}
}

func zsetRemoveOrdered(ss *sortedSet, member string, score float64) {
	i := sort.Search(len(ss.ordered), func(i int) bool {
		return !zless(ss.ordered[i].score, ss.ordered[i].member, score, member)
	})
	for i < len(ss.ordered) && ss.ordered[i].member != member {
		i++
	}
	if i < len(ss.ordered) {
		ss.ordered = append(ss.ordered[:i], ss.ordered[i+1:]...)
	}
}

func zsetRemove(ss *sortedSet, member string) bool {
	score, ok := ss.scores[member]
	if !ok {
		return false
	}
	delete(ss.scores, member)
	zsetRemoveOrdered(ss, member, score)
	return true
}

// ZAdd applies ZADD semantics for one or more (score, member) pairs, creating
// the key if absent (unless NX/XX forbid it). Returns the number of members
// added (or changed, under CH), and — in INCR mode — the single new score,
// with a count of 1 if the increment was applied and 0 if NX/XX/GT/LT
// skipped it.
func (s *Store) ZAdd(physKey string, pairs []ZMember, opts ZAddOpts) (int, float64, error) {
	create := !opts.OnlyIfPresent
	res, err := s.mutate(physKey, KindSortedSet, create, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			if opts.OnlyIfPresent {
				if opts.Incr {
					return false, zaddResult{}, nil
				}
				return false, zaddResult{count: 0}, nil
			}
			e.Kind = KindSortedSet
			e.ZSet = newSortedSet()
		}
		count := 0
		var lastScore float64
		var hadAny bool
		for _, p := range pairs {
			old, existedMember := e.ZSet.scores[p.Member]
			newScore := p.Score
			if opts.Incr {
				if existedMember {
					newScore = old + p.Score
				}
				if opts.OnlyIfAbsent && existedMember {
					continue
				}
				if opts.OnlyIfPresent && !existedMember {
					continue
				}
				if opts.GreaterThan && existedMember && newScore <= old {
					continue
				}
				if opts.LessThan && existedMember && newScore >= old {
					continue
				}
				zsetInsert(e.ZSet, p.Member, newScore)
				lastScore = newScore
				hadAny = true
				continue
			}
			if opts.OnlyIfAbsent && existedMember {
				continue
			}
			if opts.OnlyIfPresent && !existedMember {
				continue
			}
			if opts.GreaterThan && existedMember && newScore <= old {
				continue
			}
			if opts.LessThan && existedMember && newScore >= old {
				continue
			}
			if !existedMember {
				count++
			} else if old != newScore {
				if opts.ReturnChanged {
					count++
				}
			}
			zsetInsert(e.ZSet, p.Member, newScore)
		}
		if opts.Incr {
			applied := 0
			if hadAny {
				applied = 1
			}
			return hadAny, zaddResult{count: applied, score: lastScore, isIncr: true, ok: hadAny}, nil
		}
		return count > 0, zaddResult{count: count}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	r := res.(zaddResult)
	return r.count, r.score, nil
}

type zaddResult struct {
	count  int
	score  float64
	isIncr bool
	ok     bool
}

// ZMember is one input pair to ZAdd.
type ZMember struct {
	Member string
	Score  float64
}

// ZRem removes members from physKey's sorted set, returning how many existed.
func (s *Store) ZRem(physKey string, members []string) (int, error) {
	res, err := s.mutate(physKey, KindSortedSet, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, 0, nil
		}
		removed := 0
		for _, m := range members {
			if zsetRemove(e.ZSet, m) {
				removed++
			}
		}
		return removed > 0, removed, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// ZCard returns the cardinality of physKey's sorted set, 0 if absent.
func (s *Store) ZCard(physKey string) (int, error) {
	res, err := s.view(physKey, KindSortedSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return 0, nil
		}
		return len(e.ZSet.scores), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// ZScore returns member's score, ErrNotFound if the member or key is absent.
func (s *Store) ZScore(physKey, member string) (float64, error) {
	res, err := s.view(physKey, KindSortedSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return float64(0), ErrNotFound
		}
		sc, ok := e.ZSet.scores[member]
		if !ok {
			return float64(0), ErrNotFound
		}
		return sc, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}

// ZIncrBy adds delta to member's score (default 0), creating the key and/or
// member as needed, returning the new score.
func (s *Store) ZIncrBy(physKey, member string, delta float64) (float64, error) {
	res, err := s.mutate(physKey, KindSortedSet, true, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		cur := e.ZSet.scores[member]
		next := cur + delta
		zsetInsert(e.ZSet, member, next)
		return true, next, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}

// ZRank returns member's 0-based rank (ascending, or descending if rev),
// ErrNotFound if absent.
func (s *Store) ZRank(physKey, member string, rev bool) (int, error) {
	res, err := s.view(physKey, KindSortedSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return 0, ErrNotFound
		}
		score, ok := e.ZSet.scores[member]
		if !ok {
			return 0, ErrNotFound
		}
		i := sort.Search(len(e.ZSet.ordered), func(i int) bool {
			return !zless(e.ZSet.ordered[i].score, e.ZSet.ordered[i].member, score, member)
		})
		if rev {
			return len(e.ZSet.ordered) - 1 - i, nil
		}
		return i, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// ZRange returns the [start,end] (inclusive, negative-capable) members (and,
// if withScores, their scores interleaved) in ascending or descending order.
func (s *Store) ZRange(physKey string, start, end int, rev, withScores bool) ([][]byte, error) {
	res, err := s.view(physKey, KindSortedSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return [][]byte{}, nil
		}
		n := len(e.ZSet.ordered)
		lo, hi, ok := clampRange(start, end, n)
		if !ok {
			return [][]byte{}, nil
		}
		out := make([][]byte, 0, (hi-lo+1)*2)
		if rev {
			for i := n - 1 - lo; i >= n-1-hi; i-- {
				out = appendMember(out, e.ZSet.ordered[i], withScores)
			}
		} else {
			for i := lo; i <= hi; i++ {
				out = appendMember(out, e.ZSet.ordered[i], withScores)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

func appendMember(out [][]byte, zm zmember, withScores bool) [][]byte {
	out = append(out, []byte(zm.member))
	if withScores {
		out = append(out, []byte(formatFloat(zm.score)))
	}
	return out
}

// ScoreRange bounds a ZRANGEBYSCORE/ZCOUNT query: Min/Max may be -Inf/+Inf,
// and MinExcl/MaxExcl request open-interval exclusion.
type ScoreRange struct {
	Min, Max         float64
	MinExcl, MaxExcl bool
}

func (r ScoreRange) includes(score float64) bool {
	if r.MinExcl {
		if score <= r.Min {
			return false
		}
	} else if score < r.Min {
		return false
	}
	if r.MaxExcl {
		if score >= r.Max {
			return false
		}
	} else if score > r.Max {
		return false
	}
	return true
}

// ZRangeByScore returns members whose score falls within rng, ascending,
// optionally offset/limited (limit<0 means unbounded) and with scores.
func (s *Store) ZRangeByScore(physKey string, rng ScoreRange, rev bool, offset, limit int, withScores bool) ([][]byte, error) {
	res, err := s.view(physKey, KindSortedSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return [][]byte{}, nil
		}
		var matched []zmember
		n := len(e.ZSet.ordered)
		if rev {
			for i := n - 1; i >= 0; i-- {
				if rng.includes(e.ZSet.ordered[i].score) {
					matched = append(matched, e.ZSet.ordered[i])
				}
			}
		} else {
			for i := 0; i < n; i++ {
				if rng.includes(e.ZSet.ordered[i].score) {
					matched = append(matched, e.ZSet.ordered[i])
				}
			}
		}
		if offset > 0 {
			if offset >= len(matched) {
				matched = nil
			} else {
				matched = matched[offset:]
			}
		}
		if limit >= 0 && limit < len(matched) {
			matched = matched[:limit]
		}
		out := make([][]byte, 0, len(matched)*2)
		for _, zm := range matched {
			out = appendMember(out, zm, withScores)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

// ZCount counts members whose score falls within rng.
func (s *Store) ZCount(physKey string, rng ScoreRange) (int, error) {
	res, err := s.view(physKey, KindSortedSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return 0, nil
		}
		n := 0
		for _, zm := range e.ZSet.ordered {
			if rng.includes(zm.score) {
				n++
			}
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}
