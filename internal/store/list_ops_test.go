package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrdering(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "queue")

	_, err := s.Push(key, true, [][]byte{[]byte("a"), []byte("b")})
	require.NoError(t, err)
	_, err = s.Push(key, false, [][]byte{[]byte("z")})
	require.NoError(t, err)

	vals, err := s.Range(key, 0, -1)
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, "z", string(vals[0]))
	assert.Equal(t, "a", string(vals[1]))
	assert.Equal(t, "b", string(vals[2]))
}

func TestPopCount(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "queue")
	_, err := s.Push(key, true, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.NoError(t, err)

	out, err := s.Pop(key, false, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", string(out[0]))
	assert.Equal(t, "b", string(out[1]))

	n, err := s.Len(key)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListEmptiedKeyIsRemoved(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "onlyone")
	_, err := s.Push(key, true, [][]byte{[]byte("x")})
	require.NoError(t, err)

	_, err = s.Pop(key, true, 1)
	require.NoError(t, err)

	assert.Equal(t, KindNone, s.Type(key))
}

func TestLRem(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "dups")
	_, err := s.Push(key, true, [][]byte{[]byte("a"), []byte("b"), []byte("a"), []byte("a")})
	require.NoError(t, err)

	n, err := s.Rem(key, 2, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	vals, _ := s.Range(key, 0, -1)
	require.Len(t, vals, 2)
	assert.Equal(t, "b", string(vals[0]))
	assert.Equal(t, "a", string(vals[1]))
}

func TestLTrim(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "totrim")
	_, err := s.Push(key, true, [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")})
	require.NoError(t, err)

	err = s.Trim(key, 1, 2)
	require.NoError(t, err)

	vals, _ := s.Range(key, 0, -1)
	require.Len(t, vals, 2)
	assert.Equal(t, "b", string(vals[0]))
	assert.Equal(t, "c", string(vals[1]))
}
