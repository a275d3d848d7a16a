package store

import "strconv"

// HSet sets the given field/value pairs on physKey's hash, creating it if
// absent, returning the count of fields that were newly created.
func (s *Store) HSet(physKey string, fields map[string][]byte) (int, error) {
	for _, v := range fields {
		if err := s.CheckValueSize(len(v)); err != nil {
			return 0, err
		}
	}
	res, err := s.mutate(physKey, KindHash, true, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		created := 0
		for f, v := range fields {
			if _, ok := e.Hash[f]; !ok {
				created++
			}
			e.Hash[f] = append([]byte(nil), v...)
		}
		return true, created, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// HSetNX sets field only if it does not already exist, returning whether it did.
func (s *Store) HSetNX(physKey, field string, value []byte) (bool, error) {
	if err := s.CheckValueSize(len(value)); err != nil {
		return false, err
	}
	res, err := s.mutate(physKey, KindHash, true, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		if _, ok := e.Hash[field]; ok {
			return false, false, nil
		}
		e.Hash[field] = append([]byte(nil), value...)
		return true, true, nil
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// HGet returns field's value, ErrNotFound if the field or key is absent.
func (s *Store) HGet(physKey, field string) ([]byte, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return nil, ErrNotFound
		}
		v, ok := e.Hash[field]
		if !ok {
			return nil, ErrNotFound
		}
		return append([]byte(nil), v...), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// HMGet returns one slot per requested field: the value, or nil if absent.
func (s *Store) HMGet(physKey string, fields []string) ([][]byte, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		out := make([][]byte, len(fields))
		if !existed {
			return out, nil
		}
		for i, f := range fields {
			if v, ok := e.Hash[f]; ok {
				out[i] = append([]byte(nil), v...)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

// HDel removes the given fields from physKey's hash, returning how many existed.
func (s *Store) HDel(physKey string, fields []string) (int, error) {
	res, err := s.mutate(physKey, KindHash, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, 0, nil
		}
		removed := 0
		for _, f := range fields {
			if _, ok := e.Hash[f]; ok {
				delete(e.Hash, f)
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

// HExists reports whether field is present in physKey's hash.
func (s *Store) HExists(physKey, field string) (bool, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return false, nil
		}
		_, ok := e.Hash[field]
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// HGetAll returns physKey's hash flattened as field,value,field,value,...
func (s *Store) HGetAll(physKey string) ([][]byte, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return [][]byte{}, nil
		}
		out := make([][]byte, 0, len(e.Hash)*2)
		for f, v := range e.Hash {
			out = append(out, []byte(f), append([]byte(nil), v...))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

// HKeys returns physKey's hash field names.
func (s *Store) HKeys(physKey string) ([]string, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return []string{}, nil
		}
		out := make([]string, 0, len(e.Hash))
		for f := range e.Hash {
			out = append(out, f)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// HVals returns physKey's hash values.
func (s *Store) HVals(physKey string) ([][]byte, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return [][]byte{}, nil
		}
		out := make([][]byte, 0, len(e.Hash))
		for _, v := range e.Hash {
			out = append(out, append([]byte(nil), v...))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

// HLen returns the number of fields in physKey's hash, 0 if absent.
func (s *Store) HLen(physKey string) (int, error) {
	res, err := s.view(physKey, KindHash, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return 0, nil
		}
		return len(e.Hash), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// HIncrBy adds delta to field's integer value (default 0), creating the hash
// and/or field as needed, returning the new value.
func (s *Store) HIncrBy(physKey, field string, delta int64) (int64, error) {
	res, err := s.mutate(physKey, KindHash, true, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		var cur int64
		if v, ok := e.Hash[field]; ok {
			parsed, perr := strconv.ParseInt(string(v), 10, 64)
			if perr != nil {
				return false, int64(0), ErrNotInteger
			}
			cur = parsed
		}
		next, ok := addOverflows(cur, delta)
		if !ok {
			return false, int64(0), ErrNotInteger
		}
		e.Hash[field] = []byte(strconv.FormatInt(next, 10))
		return true, next, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// HIncrByFloat adds delta to field's float value (default 0).
func (s *Store) HIncrByFloat(physKey, field string, delta float64) (float64, error) {
	res, err := s.mutate(physKey, KindHash, true, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		var cur float64
		if v, ok := e.Hash[field]; ok {
			parsed, perr := parseFloat(string(v))
			if perr != nil {
				return false, float64(0), ErrNotFloat
			}
			cur = parsed
		}
		next := cur + delta
		e.Hash[field] = []byte(formatFloat(next))
		return true, next, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}
