package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCoversAllKeys(t *testing.T) {
	s := New(4)
	const n = 250
	want := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("key-%d", i)
		_, _, err := s.Set(PhysicalKey(0, k), []byte("v"), SetOpts{})
		require.NoError(t, err)
		want[k] = false
	}

	cursor := "0"
	seen := 0
	for {
		res := s.Scan(PhysicalKey(0, ""), cursor, 7, "", KindNone)
		for _, k := range res.Keys {
			if !want[k] {
				seen++
			}
			want[k] = true
		}
		cursor = res.Cursor
		if cursor == "0" {
			break
		}
	}

	for k, v := range want {
		assert.True(t, v, "key %q was never returned by scan", k)
	}
	assert.Equal(t, n, seen)
}

func TestScanMatchFilters(t *testing.T) {
	s := New(2)
	_, _, _ = s.Set(PhysicalKey(0, "foo:1"), []byte("v"), SetOpts{})
	_, _, _ = s.Set(PhysicalKey(0, "bar:1"), []byte("v"), SetOpts{})

	var matched []string
	cursor := "0"
	for {
		res := s.Scan(PhysicalKey(0, ""), cursor, 10, "foo:*", KindNone)
		matched = append(matched, res.Keys...)
		cursor = res.Cursor
		if cursor == "0" {
			break
		}
	}
	require.Len(t, matched, 1)
	assert.Equal(t, "foo:1", matched[0])
}

func TestScanSetPagination(t *testing.T) {
	s := New(2)
	key := PhysicalKey(0, "bigset")
	members := make([][]byte, 0, 50)
	for i := 0; i < 50; i++ {
		members = append(members, []byte(fmt.Sprintf("m%d", i)))
	}
	_, err := s.SAdd(key, members)
	require.NoError(t, err)

	seen := make(map[string]bool)
	cursor := "0"
	for {
		res, err := s.ScanSet(key, cursor, 10, "")
		require.NoError(t, err)
		for _, m := range res.Items {
			seen[m] = true
		}
		cursor = res.Cursor
		if cursor == "0" {
			break
		}
	}
	assert.Len(t, seen, 50)
}
