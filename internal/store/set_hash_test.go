package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSAddSRemSCard(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "set")

	n, err := s.SAdd(key, [][]byte{[]byte("a"), []byte("b"), []byte("a")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	card, err := s.SCard(key)
	require.NoError(t, err)
	assert.Equal(t, 2, card)

	removed, err := s.SRem(key, [][]byte{[]byte("a")})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestSetOperations(t *testing.T) {
	s := New(4)
	a := PhysicalKey(0, "a")
	b := PhysicalKey(0, "b")
	_, err := s.SAdd(a, [][]byte{[]byte("1"), []byte("2"), []byte("3")})
	require.NoError(t, err)
	_, err = s.SAdd(b, [][]byte{[]byte("2"), []byte("3"), []byte("4")})
	require.NoError(t, err)

	union, err := s.SUnion([]string{a, b})
	require.NoError(t, err)
	assert.Len(t, union, 4)

	inter, err := s.SInter([]string{a, b})
	require.NoError(t, err)
	assert.Len(t, inter, 2)

	diff, err := s.SDiff([]string{a, b})
	require.NoError(t, err)
	assert.Len(t, diff, 1)
	assert.Equal(t, "1", string(diff[0]))
}

func TestHSetHGetHDel(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "hash")

	n, err := s.HSet(key, map[string][]byte{"field1": []byte("v1")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := s.HGet(key, "field1")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))

	removed, err := s.HDel(key, []string{"field1"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, KindNone, s.Type(key))
}

func TestHIncrBy(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "hash")

	n, err := s.HIncrBy(key, "counter", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	n, err = s.HIncrBy(key, "counter", -3)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}
