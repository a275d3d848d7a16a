package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"1k", 1024},
		{"1K", 1024},
		{"2m", 2 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
	}
	for _, c := range cases {
		got, err := ParseByteSize(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", c.Addr)
	assert.Equal(t, 16, c.Databases)
	assert.False(t, c.AuthEnabled)
}

func TestConfigGetSetMaxMemory(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)

	err = c.Set("maxmemory", "64m")
	require.NoError(t, err)

	v, ok := c.Get("maxmemory")
	require.True(t, ok)
	assert.Equal(t, "67108864", v)
}

func TestConfigSetUnknownOption(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)
	err = c.Set("not-a-real-option", "x")
	assert.Error(t, err)
}
