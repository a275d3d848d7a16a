package store

import "container/list"

// listBytes reads b.Value as the []byte every list node holds.
func listBytes(e *list.Element) []byte { return e.Value.([]byte) }

// Push appends (right=true) or prepends (right=false) values to physKey's
// list, creating it if absent, returning the resulting length.
func (s *Store) Push(physKey string, right bool, values [][]byte) (int, error) {
	for _, v := range values {
		if err := s.CheckValueSize(len(v)); err != nil {
			return 0, err
		}
	}
	res, err := s.mutate(physKey, KindList, true, int64(len(physKey)+64), func(e *Entry, existed bool) (bool, any, error) {
		for _, v := range values {
			cp := append([]byte(nil), v...)
			if right {
				e.List.PushBack(cp)
			} else {
				e.List.PushFront(cp)
			}
		}
		return true, e.List.Len(), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// PushX is Push but only if the key already exists (LPUSHX/RPUSHX).
func (s *Store) PushX(physKey string, right bool, values [][]byte) (int, error) {
	res, err := s.mutate(physKey, KindList, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, 0, nil
		}
		for _, v := range values {
			cp := append([]byte(nil), v...)
			if right {
				e.List.PushBack(cp)
			} else {
				e.List.PushFront(cp)
			}
		}
		return true, e.List.Len(), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// Pop removes up to count elements from the left (right=false) or right
// (right=true) end of physKey's list, returning them in the order popped.
func (s *Store) Pop(physKey string, right bool, count int) ([][]byte, error) {
	if count <= 0 {
		count = 1
	}
	res, err := s.mutate(physKey, KindList, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, [][]byte(nil), nil
		}
		var out [][]byte
		for i := 0; i < count && e.List.Len() > 0; i++ {
			var el *list.Element
			if right {
				el = e.List.Back()
			} else {
				el = e.List.Front()
			}
			out = append(out, listBytes(el))
			e.List.Remove(el)
		}
		return len(out) > 0, out, nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := res.([][]byte)
	return out, nil
}

// Len returns physKey's list length, 0 if absent.
func (s *Store) Len(physKey string) (int, error) {
	res, err := s.view(physKey, KindList, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return 0, nil
		}
		return e.List.Len(), nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// Range returns the [start,end] (Redis-style, inclusive, negative-capable)
// slice of physKey's list.
func (s *Store) Range(physKey string, start, end int) ([][]byte, error) {
	res, err := s.view(physKey, KindList, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return [][]byte{}, nil
		}
		n := e.List.Len()
		lo, hi, ok := clampRange(start, end, n)
		if !ok {
			return [][]byte{}, nil
		}
		out := make([][]byte, 0, hi-lo+1)
		i := 0
		for el := e.List.Front(); el != nil; el = el.Next() {
			if i >= lo && i <= hi {
				out = append(out, append([]byte(nil), listBytes(el)...))
			}
			i++
			if i > hi {
				break
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

// Index returns the element at the given (possibly negative) index.
func (s *Store) Index(physKey string, index int) ([]byte, error) {
	res, err := s.view(physKey, KindList, func(e *Entry, existed bool) (any, error) {
		if !existed {
			return nil, ErrNotFound
		}
		n := e.List.Len()
		if index < 0 {
			index += n
		}
		if index < 0 || index >= n {
			return nil, ErrNotFound
		}
		el := e.List.Front()
		for i := 0; i < index; i++ {
			el = el.Next()
		}
		return append([]byte(nil), listBytes(el)...), nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// SetIndex overwrites the element at the given index (LSET).
func (s *Store) SetIndex(physKey string, index int, value []byte) error {
	if err := s.CheckValueSize(len(value)); err != nil {
		return err
	}
	_, err := s.mutate(physKey, KindList, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, nil, ErrNotFound
		}
		n := e.List.Len()
		i := index
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return false, nil, ErrNotFound
		}
		el := e.List.Front()
		for j := 0; j < i; j++ {
			el = el.Next()
		}
		el.Value = append([]byte(nil), value...)
		return true, nil, nil
	})
	return err
}

// Rem removes occurrences of value from physKey's list: count>0 removes the
// first count from head, count<0 removes the last |count| from tail, count==0
// removes all. Returns the number removed.
func (s *Store) Rem(physKey string, count int, value []byte) (int, error) {
	res, err := s.mutate(physKey, KindList, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, 0, nil
		}
		removed := 0
		if count >= 0 {
			limit := count
			for el := e.List.Front(); el != nil; {
				next := el.Next()
				if limit > 0 && removed >= limit {
					break
				}
				if bytesEqual(listBytes(el), value) {
					e.List.Remove(el)
					removed++
				}
				el = next
			}
		} else {
			limit := -count
			for el := e.List.Back(); el != nil; {
				prev := el.Prev()
				if removed >= limit {
					break
				}
				if bytesEqual(listBytes(el), value) {
					e.List.Remove(el)
					removed++
				}
				el = prev
			}
		}
		return removed > 0, removed, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// Trim shrinks physKey's list to the [start,end] inclusive range, discarding
// everything outside it.
func (s *Store) Trim(physKey string, start, end int) error {
	_, err := s.mutate(physKey, KindList, false, 0, func(e *Entry, existed bool) (bool, any, error) {
		if !existed {
			return false, nil, nil
		}
		n := e.List.Len()
		lo, hi, ok := clampRange(start, end, n)
		if !ok {
			e.List.Init()
			return true, nil, nil
		}
		i := 0
		for el := e.List.Front(); el != nil; {
			next := el.Next()
			if i < lo || i > hi {
				e.List.Remove(el)
			}
			i++
			el = next
		}
		return true, nil, nil
	})
	return err
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
