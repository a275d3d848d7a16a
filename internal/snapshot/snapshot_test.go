package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmfc/redust/internal/store"
)

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(4)

	_, _, err := st.Set("0:str", []byte("hello"), store.SetOpts{})
	require.NoError(t, err)

	_, err = st.Push("0:list", true, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.NoError(t, err)

	_, err = st.SAdd("0:set", [][]byte{[]byte("x"), []byte("y")})
	require.NoError(t, err)

	_, err = st.HSet("0:hash", map[string][]byte{"f1": []byte("v1"), "f2": []byte("v2")})
	require.NoError(t, err)

	_, _, err = st.ZAdd("0:zset", []store.ZMember{{Member: "a", Score: 1.5}, {Member: "b", Score: 2.5}}, store.ZAddOpts{})
	require.NoError(t, err)

	_, err = st.PFAdd("0:hll", [][]byte{[]byte("elem1"), []byte("elem2")})
	require.NoError(t, err)

	require.True(t, st.ExpireAtMillis("0:str", time.Now().Add(time.Hour).UnixMilli()))
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redust.rdb")

	src := seedStore(t)
	require.NoError(t, Save(src, path))

	dst := store.New(4)
	require.NoError(t, Load(dst, path))

	v, err := dst.Get("0:str")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), v)
	assert.Greater(t, dst.TTLMillis("0:str"), int64(0))

	assert.Equal(t, store.KindList, dst.Type("0:list"))
	assert.Equal(t, store.KindSet, dst.Type("0:set"))
	assert.Equal(t, store.KindHash, dst.Type("0:hash"))
	assert.Equal(t, store.KindSortedSet, dst.Type("0:zset"))
	assert.Equal(t, store.KindHyperLogLog, dst.Type("0:hll"))
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "absent.rdb")
	dst := store.New(2)
	assert.NoError(t, Load(dst, path))
}

func TestLoadQuarantinesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redust.rdb")
	require.NoError(t, os.WriteFile(path, []byte("BAD"), 0644))

	dst := store.New(2)
	err := Load(dst, path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) != "" && e.Name() != filepath.Base(path) {
			found = true
		}
	}
	assert.True(t, found, "expected a quarantined sibling file in %s", dir)
}

func TestExpiredKeyNotRestored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redust.rdb")

	src := store.New(2)
	_, _, err := src.Set("0:gone", []byte("v"), store.SetOpts{})
	require.NoError(t, err)
	require.True(t, src.ExpireAtMillis("0:gone", time.Now().Add(-time.Second).UnixMilli()))
	// ExpireAtMillis on an already-past deadline removes the key at once;
	// the reloaded store must not contain it.
	require.NoError(t, Save(src, path))

	dst := store.New(2)
	require.NoError(t, Load(dst, path))
	_, err = dst.Get("0:gone")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
