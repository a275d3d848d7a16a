package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "greeting")

	_, _, err := s.Set(key, []byte("hello"), SetOpts{})
	require.NoError(t, err)

	v, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v)
}

func TestSetNX(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "k")

	ok, err := s.SetNX(key, []byte("first"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(key, []byte("second"))
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ := s.Get(key)
	assert.Equal(t, []byte("first"), v)
}

func TestGetWrongType(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "alist")
	_, err := s.Push(key, true, [][]byte{[]byte("x")})
	require.NoError(t, err)

	_, err = s.Get(key)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestIncrBy(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "counter")

	n, err := s.IncrBy(key, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	n, err = s.IncrBy(key, -2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestIncrByNotInteger(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "notanumber")
	_, _, err := s.Set(key, []byte("abc"), SetOpts{})
	require.NoError(t, err)

	_, err = s.IncrBy(key, 1)
	assert.ErrorIs(t, err, ErrNotInteger)
}

func TestAppendAndStrLen(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "buf")

	n, err := s.Append(key, []byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Append(key, []byte("bar"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	l, err := s.StrLen(key)
	require.NoError(t, err)
	assert.Equal(t, 6, l)
}

func TestGetRange(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "str")
	_, _, err := s.Set(key, []byte("Hello World"), SetOpts{})
	require.NoError(t, err)

	v, err := s.GetRange(key, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(v))

	v, err = s.GetRange(key, -5, -1)
	require.NoError(t, err)
	assert.Equal(t, "World", string(v))
}

func TestSetExpiryAndTTL(t *testing.T) {
	s := New(4)
	key := PhysicalKey(0, "expiring")

	_, _, err := s.Set(key, []byte("v"), SetOpts{HasExpiry: true, ExpiresAt: s.nowNano() + int64(1000_000_000)})
	require.NoError(t, err)

	ttl := s.TTLMillis(key)
	assert.Greater(t, ttl, int64(0))
}

func TestMSetNXAllOrNothing(t *testing.T) {
	s := New(4)
	existing := PhysicalKey(0, "a")
	_, _, err := s.Set(existing, []byte("1"), SetOpts{})
	require.NoError(t, err)

	ok, err := s.MSetNX(map[string][]byte{
		existing:               []byte("2"),
		PhysicalKey(0, "fresh"): []byte("3"),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(PhysicalKey(0, "fresh"))
	assert.ErrorIs(t, err, ErrNotFound)
}
