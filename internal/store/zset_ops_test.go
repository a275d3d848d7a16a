package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZAddAndRange(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "leaderboard")

	_, _, err := s.ZAdd(key, []ZMember{
		{Member: "alice", Score: 10},
		{Member: "bob", Score: 5},
		{Member: "carol", Score: 20},
	}, ZAddOpts{})
	require.NoError(t, err)

	vals, err := s.ZRange(key, 0, -1, false, false)
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, "bob", string(vals[0]))
	assert.Equal(t, "alice", string(vals[1]))
	assert.Equal(t, "carol", string(vals[2]))
}

func TestZAddNX(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "z")
	_, _, err := s.ZAdd(key, []ZMember{{Member: "m", Score: 1}}, ZAddOpts{})
	require.NoError(t, err)

	count, _, err := s.ZAdd(key, []ZMember{{Member: "m", Score: 99}}, ZAddOpts{OnlyIfAbsent: true})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	score, err := s.ZScore(key, "m")
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestZIncrBy(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "z")
	score, err := s.ZIncrBy(key, "m", 5)
	require.NoError(t, err)
	assert.Equal(t, float64(5), score)

	score, err = s.ZIncrBy(key, "m", 2.5)
	require.NoError(t, err)
	assert.Equal(t, 7.5, score)
}

func TestZRangeByScore(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "z")
	_, _, err := s.ZAdd(key, []ZMember{
		{Member: "a", Score: 1},
		{Member: "b", Score: 2},
		{Member: "c", Score: 3},
	}, ZAddOpts{})
	require.NoError(t, err)

	vals, err := s.ZRangeByScore(key, ScoreRange{Min: 2, Max: 3}, false, 0, -1, false)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, "b", string(vals[0]))
	assert.Equal(t, "c", string(vals[1]))
}

func TestZRank(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "z")
	_, _, err := s.ZAdd(key, []ZMember{
		{Member: "a", Score: 1},
		{Member: "b", Score: 2},
	}, ZAddOpts{})
	require.NoError(t, err)

	rank, err := s.ZRank(key, "b", false)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rank, err = s.ZRank(key, "b", true)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
}

func TestZRemEmptiesKey(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "z")
	_, _, err := s.ZAdd(key, []ZMember{{Member: "only", Score: 1}}, ZAddOpts{})
	require.NoError(t, err)

	n, err := s.ZRem(key, []string{"only"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, KindNone, s.Type(key))
}
