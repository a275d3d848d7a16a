package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyExpiryOnAccess(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "soon")
	_, _, err := s.Set(key, []byte("v"), SetOpts{HasExpiry: true, ExpiresAt: s.nowNano() + int64(time.Millisecond)})
	require.NoError(t, err)

	timeNow = func() time.Time { return time.Now().Add(time.Second) }
	defer func() { timeNow = time.Now }()

	_, err = s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireSamplerRemovesExpiredKeys(t *testing.T) {
	s := New(2)
	key := PhysicalKey(0, "ephemeral")
	_, _, err := s.Set(key, []byte("v"), SetOpts{HasExpiry: true, ExpiresAt: s.nowNano() + int64(time.Millisecond)})
	require.NoError(t, err)

	timeNow = func() time.Time { return time.Now().Add(time.Second) }
	defer func() { timeNow = time.Now }()

	frac := s.sampleExpireOnce()
	assert.Equal(t, 1.0, frac)
	assert.Equal(t, KindNone, s.Type(key))
}

func TestEvictionNoEvictionRejectsOverBudget(t *testing.T) {
	s := New(2)
	s.SetMaxMemory(1)
	s.SetPolicy(PolicyNoEviction)

	_, _, err := s.Set(PhysicalKey(0, "k"), []byte("value"), SetOpts{})
	assert.ErrorIs(t, err, ErrOOM)
}

func TestEvictionAllKeysRandomFreesSpace(t *testing.T) {
	s := New(2)
	for i := 0; i < 10; i++ {
		_, _, err := s.Set(PhysicalKey(0, string(rune('a'+i))), []byte("0123456789"), SetOpts{})
		require.NoError(t, err)
	}
	used := s.UsedMemory()

	s.SetMaxMemory(used) // next write must evict to fit
	s.SetPolicy(PolicyAllKeysRandom)

	_, _, err := s.Set(PhysicalKey(0, "newkey"), []byte("0123456789"), SetOpts{})
	require.NoError(t, err)
	assert.LessOrEqual(t, s.UsedMemory(), used+100)
}
