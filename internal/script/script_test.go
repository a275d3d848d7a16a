package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndGet(t *testing.T) {
	e := New()
	hash := e.Load("return 1")
	assert.Equal(t, SHA1Hex("return 1"), hash)

	body, ok := e.Get(hash)
	require.True(t, ok)
	assert.Equal(t, "return 1", body)

	_, ok = e.Get("deadbeef")
	assert.False(t, ok)
}

func TestExistsAndFlush(t *testing.T) {
	e := New()
	hash := e.Load("return 1")
	assert.Equal(t, []bool{true, false}, e.Exists([]string{hash, "nope"}))

	e.Flush()
	assert.Equal(t, []bool{false}, e.Exists([]string{hash}))
}

func TestEvalReturnsInteger(t *testing.T) {
	e := New()
	reply, err := e.Eval("return 1 + 1", nil, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, ReplyInteger, reply.Kind)
	assert.Equal(t, int64(2), reply.Int)
}

func TestEvalKeysAndArgv(t *testing.T) {
	e := New()
	reply, err := e.Eval("return KEYS[1] .. ARGV[1]", []string{"foo"}, [][]byte{[]byte("bar")}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, ReplyBulk, reply.Kind)
	assert.Equal(t, "foobar", string(reply.Bulk))
}

func TestEvalRedisCall(t *testing.T) {
	e := New()
	called := false
	caller := func(db int, args [][]byte) Reply {
		called = true
		assert.Equal(t, "SET", string(args[0]))
		return Reply{Kind: ReplyStatus, Status: "OK"}
	}
	reply, err := e.Eval(`return redis.call("SET", KEYS[1], ARGV[1])`, []string{"k"}, [][]byte{[]byte("v")}, 0, caller)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, ReplyStatus, reply.Kind)
	assert.Equal(t, "OK", reply.Status)
}

func TestEvalRedisCallErrorCaughtByLuaPcall(t *testing.T) {
	e := New()
	caller := func(db int, args [][]byte) Reply {
		return Reply{Kind: ReplyError, Err: "WRONGTYPE boom"}
	}
	reply, err := e.Eval(`
		local ok, e = pcall(function() return redis.call("GET", KEYS[1]) end)
		if ok then return "no-error" end
		return "caught"
	`, []string{"k"}, nil, 0, caller)
	require.NoError(t, err)
	assert.Equal(t, ReplyBulk, reply.Kind)
	assert.Equal(t, "caught", string(reply.Bulk))
}

func TestEvalArrayReply(t *testing.T) {
	e := New()
	reply, err := e.Eval(`return {1, "two", 3}`, nil, nil, 0, nil)
	require.NoError(t, err)
	require.Equal(t, ReplyArray, reply.Kind)
	require.Len(t, reply.Array, 3)
	assert.Equal(t, int64(1), reply.Array[0].Int)
	assert.Equal(t, "two", string(reply.Array[1].Bulk))
	assert.Equal(t, int64(3), reply.Array[2].Int)
}
