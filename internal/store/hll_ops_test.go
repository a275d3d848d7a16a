package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPFAddPFCount(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "hll")

	for i := 0; i < 1000; i++ {
		_, err := s.PFAdd(key, [][]byte{[]byte(fmt.Sprintf("elem-%d", i))})
		require.NoError(t, err)
	}

	count, err := s.PFCount([]string{key})
	require.NoError(t, err)
	assert.InDelta(t, 1000, count, 50)
}

func TestPFMerge(t *testing.T) {
	s := New(4)
	a := PhysicalKey(0, "hll-a")
	b := PhysicalKey(0, "hll-b")
	dest := PhysicalKey(0, "hll-dest")

	for i := 0; i < 100; i++ {
		_, err := s.PFAdd(a, [][]byte{[]byte(fmt.Sprintf("a-%d", i))})
		require.NoError(t, err)
	}
	for i := 0; i < 100; i++ {
		_, err := s.PFAdd(b, [][]byte{[]byte(fmt.Sprintf("b-%d", i))})
		require.NoError(t, err)
	}

	err := s.PFMerge(dest, []string{a, b})
	require.NoError(t, err)

	count, err := s.PFCount([]string{dest})
	require.NoError(t, err)
	assert.InDelta(t, 200, count, 20)
}
