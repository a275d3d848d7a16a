package store

import "github.com/tmfc/redust/internal/hll"

// PFAdd adds elements to physKey's HyperLogLog sketch, creating it if
// absent, returning whether the sketch's estimate may have changed.
func (s *Store) PFAdd(physKey string, elements [][]byte) (bool, error) {
	res, err := s.mutate(physKey, KindHyperLogLog, true, int64(hll.Registers+64), func(e *Entry, existed bool) (bool, any, error) {
		changed := !existed
		for _, el := range elements {
			if hll.Add(e.HLL, el) {
				changed = true
			}
		}
		return changed, changed, nil
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// PFCount estimates the union cardinality of the given HyperLogLog keys.
// A single key returns its own estimate; multiple keys are merged into a
// scratch sketch first (PFCOUNT's documented union behavior).
func (s *Store) PFCount(physKeys []string) (uint64, error) {
	if len(physKeys) == 1 {
		res, err := s.view(physKeys[0], KindHyperLogLog, func(e *Entry, existed bool) (any, error) {
			if !existed {
				return uint64(0), nil
			}
			return hll.Count(e.HLL), nil
		})
		if err != nil {
			return 0, err
		}
		return res.(uint64), nil
	}

	merged := hll.New()
	for _, k := range physKeys {
		_, err := s.view(k, KindHyperLogLog, func(e *Entry, existed bool) (any, error) {
			if existed {
				hll.Merge(merged, e.HLL)
			}
			return nil, nil
		})
		if err != nil {
			return 0, err
		}
	}
	return hll.Count(merged), nil
}

// PFMerge merges the given source keys' sketches into dest, creating dest if
// needed. When dest is also one of the sources its own registers participate.
func (s *Store) PFMerge(dest string, sources []string) error {
	merged := hll.New()
	for _, k := range sources {
		_, err := s.view(k, KindHyperLogLog, func(e *Entry, existed bool) (any, error) {
			if existed {
				hll.Merge(merged, e.HLL)
			}
			return nil, nil
		})
		if err != nil {
			return err
		}
	}
	_, err := s.mutate(dest, KindHyperLogLog, true, int64(hll.Registers+64), func(e *Entry, existed bool) (bool, any, error) {
		if existed {
			hll.Merge(merged, e.HLL)
		}
		copy(e.HLL, merged)
		return true, nil, nil
	})
	return err
}
