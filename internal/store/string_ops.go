package store

import (
	"strconv"
	"time"
)

// Get returns the string value at physKey, or ErrNotFound if absent.
func (s *Store) Get(physKey string) ([]byte, error) {
	res, err := s.view(physKey, KindString, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return nil, ErrNotFound
		}
		return append([]byte(nil), e.Str...), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// SetOpts controls SET's optional behavior (NX/XX/EX/PX/EXAT/PXAT/KEEPTTL/GET).
type SetOpts struct {
	OnlyIfAbsent  bool
	OnlyIfPresent bool
	KeepTTL       bool
	ExpiresAt     int64 // absolute unix-nano deadline; 0 means "leave as computed by KeepTTL/default"
	HasExpiry     bool
	ReturnOld     bool
}

// Set implements SET, including its NX/XX/EX/PX/KEEPTTL/GET variants. It
// returns the previous value when opts.ReturnOld is set and the key existed
// with a compatible (string) kind; ErrWrongType if GET was requested against
// a non-string key (matching upstream's refusal to coerce).
func (s *Store) Set(physKey string, value []byte, opts SetOpts) ([]byte, bool, error) {
	if err := s.CheckValueSize(len(value)); err != nil {
		return nil, false, err
	}
	res, err := s.mutate(physKey, KindString, true, int64(len(physKey)+len(value)+64), func(e *Entry, existed bool) (bool, any, error) {
		var old []byte
		if existed {
			old = append([]byte(nil), e.Str...)
		}
		if opts.OnlyIfAbsent && existed {
			return false, old, nil
		}
		if opts.OnlyIfPresent && !existed {
			return false, old, ErrNotFound
		}
		e.Kind = KindString
		e.Str = append([]byte(nil), value...)
		if !opts.KeepTTL {
			if opts.HasExpiry {
				e.ExpiresAtUnixNano = opts.ExpiresAt
			} else {
				e.ExpiresAtUnixNano = 0
			}
		}
		return true, old, nil
	})
	if err != nil {
		if err == ErrNotFound && opts.OnlyIfPresent {
			return nil, false, nil
		}
		return nil, false, err
	}
	old, _ := res.([]byte)
	return old, true, nil
}

// SetNX is SET key value NX, reported as whether the key was set.
func (s *Store) SetNX(physKey string, value []byte) (bool, error) {
	_, set, err := s.Set(physKey, value, SetOpts{OnlyIfAbsent: true})
	return set, err
}

// SetEx is SET key value EX seconds, unconditionally overwriting.
func (s *Store) SetEx(physKey string, value []byte, seconds int64) error {
	_, _, err := s.Set(physKey, value, SetOpts{
		HasExpiry: true,
		ExpiresAt: s.nowNano() + seconds*int64(time.Second),
	})
	return err
}

// PSetEx is SET key value PX milliseconds, unconditionally overwriting.
func (s *Store) PSetEx(physKey string, value []byte, millis int64) error {
	_, _, err := s.Set(physKey, value, SetOpts{
		HasExpiry: true,
		ExpiresAt: s.nowNano() + millis*int64(time.Millisecond),
	})
	return err
}

// MGet returns one slot per requested key: the value, or nil if absent or of
// the wrong kind (MGET never errors on a non-string key, it just reports nil).
func (s *Store) MGet(physKeys []string) [][]byte {
	out := make([][]byte, len(physKeys))
	for i, k := range physKeys {
		if v, err := s.Get(k); err == nil {
			out[i] = v
		}
	}
	return out
}

// MSet sets every pair unconditionally, clearing any existing TTL (matching
// upstream's "SET without KEEPTTL" semantics for each key).
func (s *Store) MSet(pairs map[string][]byte) error {
	for k, v := range pairs {
		if _, _, err := s.Set(k, v, SetOpts{}); err != nil {
			return err
		}
	}
	return nil
}

// MSetNX sets every pair only if none of the keys already exist; all-or-nothing.
// Returns whether the set happened.
func (s *Store) MSetNX(pairs map[string][]byte) (bool, error) {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	idxs := s.sortedShardIndexesFor(keys)
	unlock := s.lockShards(idxs)
	now := s.nowNano()
	for _, k := range keys {
		sh := s.shardFor(k)
		if _, ok := s.getLiveLocked(sh, k, now); ok {
			unlock()
			return false, nil
		}
	}
	unlock()

	for k, v := range pairs {
		if _, _, err := s.Set(k, v, SetOpts{OnlyIfAbsent: true}); err != nil {
			return false, err
		}
	}
	return true, nil
}

// IncrBy adds delta to the integer stored at physKey (default 0), returning
// the new value. ErrNotInteger if the existing value doesn't parse, or the
// result overflows int64.
func (s *Store) IncrBy(physKey string, delta int64) (int64, error) {
	res, err := s.mutate(physKey, KindString, true, int64(len(physKey)+32), func(e *Entry, existed bool) (bool, any, error) {
		var cur int64
		if existed && len(e.Str) > 0 {
			v, perr := strconv.ParseInt(string(e.Str), 10, 64)
			if perr != nil {
				return false, int64(0), ErrNotInteger
			}
			cur = v
		}
		next, ok := addOverflows(cur, delta)
		if !ok {
			return false, int64(0), ErrNotInteger
		}
		e.Kind = KindString
		e.Str = []byte(strconv.FormatInt(next, 10))
		return true, next, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// IncrByFloat adds delta to the float stored at physKey (default 0).
func (s *Store) IncrByFloat(physKey string, delta float64) (float64, error) {
	res, err := s.mutate(physKey, KindString, true, int64(len(physKey)+32), func(e *Entry, existed bool) (bool, any, error) {
		var cur float64
		if existed && len(e.Str) > 0 {
			v, perr := parseFloat(string(e.Str))
			if perr != nil {
				return false, float64(0), ErrNotFloat
			}
			cur = v
		}
		next := cur + delta
		e.Kind = KindString
		e.Str = []byte(formatFloat(next))
		return true, next, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}

// Append appends value to the string at physKey (creating it if absent),
// returning the resulting length.
func (s *Store) Append(physKey string, value []byte) (int, error) {
	if err := s.CheckValueSize(len(value)); err != nil {
		return 0, err
	}
	res, err := s.mutate(physKey, KindString, true, int64(len(physKey)+len(value)+64), func(e *Entry, existed bool) (bool, any, error) {
		e.Kind = KindString
		e.Str = append(e.Str, value...)
		return true, len(e.Str), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// StrLen returns the byte length of the string at physKey, 0 if absent.
func (s *Store) StrLen(physKey string) (int, error) {
	res, err := s.view(physKey, KindString, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return 0, nil
		}
		return len(e.Str), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// GetRange returns the [start,end] (inclusive, Redis-style negative-index)
// substring of the string at physKey.
func (s *Store) GetRange(physKey string, start, end int) ([]byte, error) {
	res, err := s.view(physKey, KindString, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return []byte{}, nil
		}
		lo, hi, ok := clampRange(start, end, len(e.Str))
		if !ok {
			return []byte{}, nil
		}
		return append([]byte(nil), e.Str[lo:hi+1]...), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// SetRange overwrites physKey's string starting at offset with value,
// zero-padding if offset is past the current length. Returns the new length.
func (s *Store) SetRange(physKey string, offset int, value []byte) (int, error) {
	if offset < 0 {
		return 0, ErrSyntax
	}
	if err := s.CheckValueSize(offset + len(value)); err != nil {
		return 0, err
	}
	res, err := s.mutate(physKey, KindString, true, int64(offset+len(value)+64), func(e *Entry, existed bool) (bool, any, error) {
		e.Kind = KindString
		if len(value) == 0 {
			return false, len(e.Str), nil
		}
		need := offset + len(value)
		if len(e.Str) < need {
			grown := make([]byte, need)
			copy(grown, e.Str)
			e.Str = grown
		}
		copy(e.Str[offset:], value)
		return true, len(e.Str), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// addOverflows returns a+b and whether it did not overflow int64.
func addOverflows(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// clampRange converts Redis-style (possibly negative) start/end indices into
// a valid [lo,hi] inclusive byte range over a value of the given length.
// ok is false when the range is empty.
func clampRange(start, end, length int) (lo, hi int, ok bool) {
	if length == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if end >= length {
		end = length - 1
	}
	if start > end || start >= length {
		return 0, 0, false
	}
	return start, end, true
}
