package store

// SAdd adds members to physKey's set, creating it if absent, returning the
// count of members actually added (duplicates don't count).
func (s *Store) SAdd(physKey string, members [][]byte) (int, error) {
	for _, m := range members {
		if err := s.CheckValueSize(len(m)); err != nil {
			return 0, err
		}
	}
	res, err := s.mutate(physKey, KindSet, true, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		added := 0
		for _, m := range members {
			key := string(m)
			if _, ok := e.Set[key]; !ok {
				e.Set[key] = struct{}{}
				added++
			}
		}
		return added > 0, added, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// SRem removes members from physKey's set, returning the count actually removed.
func (s *Store) SRem(physKey string, members [][]byte) (int, error) {
	res, err := s.mutate(physKey, KindSet, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, 0, nil
		}
		removed := 0
		for _, m := range members {
			key := string(m)
			if _, ok := e.Set[key]; ok {
				delete(e.Set, key)
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

// SMembers returns every member of physKey's set.
func (s *Store) SMembers(physKey string) ([][]byte, error) {
	res, err := s.view(physKey, KindSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return [][]byte{}, nil
		}
		out := make([][]byte, 0, len(e.Set))
		for m := range e.Set {
			out = append(out, []byte(m))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

// SCard returns the cardinality of physKey's set, 0 if absent.
func (s *Store) SCard(physKey string) (int, error) {
	res, err := s.view(physKey, KindSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return 0, nil
		}
		return len(e.Set), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// SIsMember reports whether member is in physKey's set.
func (s *Store) SIsMember(physKey string, member []byte) (bool, error) {
	res, err := s.view(physKey, KindSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return false, nil
		}
		_, ok := e.Set[string(member)]
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// snapshotSet reads physKey's set members into a fresh map, treating absence
// or wrong-kind as an empty set the way SUNION/SINTER/SDIFF do for missing
// operands (only the destination key of a *STORE variant enforces kind).
func (s *Store) snapshotSet(physKey string) (map[string]struct{}, error) {
	res, err := s.view(physKey, KindSet, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return map[string]struct{}{}, nil
		}
		out := make(map[string]struct{}, len(e.Set))
		for m := range e.Set {
			out[m] = struct{}{}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]struct{}), nil
}

// SUnion returns the union of the given sets.
func (s *Store) SUnion(physKeys []string) ([][]byte, error) {
	out := make(map[string]struct{})
	for _, k := range physKeys {
		m, err := s.snapshotSet(k)
		if err != nil {
			return nil, err
		}
		for member := range m {
			out[member] = struct{}{}
		}
	}
	return setToBytes(out), nil
}

// SInter returns the intersection of the given sets (empty if any operand is
// missing, matching upstream).
func (s *Store) SInter(physKeys []string) ([][]byte, error) {
	if len(physKeys) == 0 {
		return [][]byte{}, nil
	}
	base, err := s.snapshotSet(physKeys[0])
	if err != nil {
		return nil, err
	}
	for _, k := range physKeys[1:] {
		m, err := s.snapshotSet(k)
		if err != nil {
			return nil, err
		}
		for member := range base {
			if _, ok := m[member]; !ok {
				delete(base, member)
			}
		}
	}
	return setToBytes(base), nil
}

// SDiff returns the members of the first set absent from every other set.
func (s *Store) SDiff(physKeys []string) ([][]byte, error) {
	if len(physKeys) == 0 {
		return [][]byte{}, nil
	}
	base, err := s.snapshotSet(physKeys[0])
	if err != nil {
		return nil, err
	}
	for _, k := range physKeys[1:] {
		m, err := s.snapshotSet(k)
		if err != nil {
			return nil, err
		}
		for member := range m {
			delete(base, member)
		}
	}
	return setToBytes(base), nil
}

// storeSetResult writes a computed set result to dest (SUNIONSTORE and kin),
// deleting dest if the result is empty, returning the resulting cardinality.
func (s *Store) storeSetResult(dest string, members [][]byte) (int, error) {
	if len(members) == 0 {
		s.Del(dest)
		return 0, nil
	}
	res, err := s.mutate(dest, KindSet, true, int64(len(dest)+64), func(e *Entry, existed bool) (bool, any, error) {
		e.Kind = KindSet
		e.Set = make(map[string]struct{}, len(members))
		for _, m := range members {
			e.Set[string(m)] = struct{}{}
		}
		return true, len(e.Set), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// SUnionStore computes SUNION over physKeys and stores it at dest,
// returning the resulting cardinality.
func (s *Store) SUnionStore(dest string, physKeys []string) (int, error) {
	members, err := s.SUnion(physKeys)
	if err != nil {
		return 0, err
	}
	return s.storeSetResult(dest, members)
}

// SInterStore computes SINTER over physKeys and stores it at dest.
func (s *Store) SInterStore(dest string, physKeys []string) (int, error) {
	members, err := s.SInter(physKeys)
	if err != nil {
		return 0, err
	}
	return s.storeSetResult(dest, members)
}

// SDiffStore computes SDIFF over physKeys and stores it at dest.
func (s *Store) SDiffStore(dest string, physKeys []string) (int, error) {
	members, err := s.SDiff(physKeys)
	if err != nil {
		return 0, err
	}
	return s.storeSetResult(dest, members)
}

func setToBytes(m map[string]struct{}) [][]byte {
	out := make([][]byte, 0, len(m))
	for k := range m {
		out = append(out, []byte(k))
	}
	return out
}
