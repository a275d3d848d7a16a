package server

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tmfc/redust/internal/command"
	"github.com/tmfc/redust/internal/config"
	"github.com/tmfc/redust/internal/metrics"
	"github.com/tmfc/redust/internal/pubsub"
	"github.com/tmfc/redust/internal/resp"
	"github.com/tmfc/redust/internal/script"
	"github.com/tmfc/redust/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Databases:               16,
		Shards:                  4,
		SlowlogMaxLen:           128,
		SlowlogSlowerThanMicros: 10_000_000,
	}
	return New(store.New(cfg.Shards), pubsub.New(), cfg, metrics.New(), zap.NewNop(), script.New())
}

func newTestConn(t *testing.T, srv *Server) *Conn {
	t.Helper()
	nc, other := net.Pipe()
	t.Cleanup(func() {
		nc.Close()
		other.Close()
	})
	return srv.newConn(nc)
}

func parse(t *testing.T, parts ...string) command.Command {
	t.Helper()
	toks := make([][]byte, len(parts))
	for i, p := range parts {
		toks[i] = []byte(p)
	}
	c, err := command.Parse(toks)
	require.NoError(t, err)
	require.NoError(t, command.Validate(c))
	return c
}

func one(t *testing.T, frames []resp.Frame) resp.Frame {
	t.Helper()
	require.Len(t, frames, 1)
	return frames[0]
}

func TestPing(t *testing.T) {
	c := newTestConn(t, newTestServer(t))
	f := one(t, c.dispatch(parse(t, "PING")))
	assert.Equal(t, resp.SimpleString("PONG"), f)

	f = one(t, c.dispatch(parse(t, "PING", "hello")))
	assert.Equal(t, resp.BulkString([]byte("hello")), f)
}

func TestSetGetExpireTTL(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "SET", "foo", "bar")))
	assert.Equal(t, resp.SimpleString("OK"), f)

	f = one(t, c.dispatch(parse(t, "GET", "foo")))
	assert.Equal(t, resp.BulkString([]byte("bar")), f)

	f = one(t, c.dispatch(parse(t, "GET", "missing")))
	assert.True(t, f.IsNullBulk())

	f = one(t, c.dispatch(parse(t, "EXPIRE", "foo", "100")))
	assert.Equal(t, resp.Integer(1), f)

	f = one(t, c.dispatch(parse(t, "TTL", "foo")))
	require.Equal(t, resp.TypeInteger, f.Typ)
	assert.True(t, f.Int > 0 && f.Int <= 100)

	f = one(t, c.dispatch(parse(t, "PERSIST", "foo")))
	assert.Equal(t, resp.Integer(1), f)

	f = one(t, c.dispatch(parse(t, "TTL", "foo")))
	assert.Equal(t, resp.Integer(-1), f)

	f = one(t, c.dispatch(parse(t, "TTL", "missing")))
	assert.Equal(t, resp.Integer(-2), f)
}

func TestIncrDecr(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "INCR", "counter")))
	assert.Equal(t, resp.Integer(1), f)

	f = one(t, c.dispatch(parse(t, "INCRBY", "counter", "9")))
	assert.Equal(t, resp.Integer(10), f)

	f = one(t, c.dispatch(parse(t, "DECR", "counter")))
	assert.Equal(t, resp.Integer(9), f)
}

func TestListOps(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "RPUSH", "mylist", "a", "b", "c")))
	assert.Equal(t, resp.Integer(3), f)

	f = one(t, c.dispatch(parse(t, "LRANGE", "mylist", "0", "-1")))
	require.Equal(t, resp.TypeArray, f.Typ)
	require.Len(t, f.Array, 3)
	assert.Equal(t, resp.BulkString([]byte("a")), f.Array[0])

	f = one(t, c.dispatch(parse(t, "LPOP", "mylist")))
	assert.Equal(t, resp.BulkString([]byte("a")), f)

	f = one(t, c.dispatch(parse(t, "LPOP", "nosuchlist")))
	assert.True(t, f.IsNullBulk())

	f = one(t, c.dispatch(parse(t, "LPOP", "nosuchlist", "2")))
	assert.True(t, f.IsNullArray())
}

func TestSetAndHashOps(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "SADD", "s", "x", "y", "x")))
	assert.Equal(t, resp.Integer(2), f)

	f = one(t, c.dispatch(parse(t, "SCARD", "s")))
	assert.Equal(t, resp.Integer(2), f)

	f = one(t, c.dispatch(parse(t, "HSET", "h", "f1", "v1", "f2", "v2")))
	assert.Equal(t, resp.Integer(2), f)

	f = one(t, c.dispatch(parse(t, "HGET", "h", "f1")))
	assert.Equal(t, resp.BulkString([]byte("v1")), f)

	f = one(t, c.dispatch(parse(t, "HLEN", "h")))
	assert.Equal(t, resp.Integer(2), f)
}

func TestZSetOps(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "ZADD", "z", "1", "a", "2", "b")))
	assert.Equal(t, resp.Integer(2), f)

	f = one(t, c.dispatch(parse(t, "ZSCORE", "z", "b")))
	assert.Equal(t, resp.BulkString([]byte("2")), f)

	f = one(t, c.dispatch(parse(t, "ZCARD", "z")))
	assert.Equal(t, resp.Integer(2), f)
}

func TestHyperLogLog(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "PFADD", "hll", "a", "b", "c")))
	assert.Equal(t, resp.Integer(1), f)

	f = one(t, c.dispatch(parse(t, "PFCOUNT", "hll")))
	require.Equal(t, resp.TypeInteger, f.Typ)
	assert.Equal(t, int64(3), f.Int)

	f = one(t, c.dispatch(parse(t, "TYPE", "hll")))
	assert.Equal(t, resp.SimpleString("string"), f)
}

func TestMultiExecRunsQueuedCommands(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "MULTI")))
	assert.Equal(t, resp.SimpleString("OK"), f)
	assert.Equal(t, txnQueueing, c.txn)

	frames := c.handleExec()
	require.Len(t, frames, 1)
	require.Equal(t, resp.TypeArray, frames[0].Typ)
	assert.Len(t, frames[0].Array, 0)
	assert.Equal(t, txnNone, c.txn)
}

func TestExecWithoutMultiErrors(t *testing.T) {
	c := newTestConn(t, newTestServer(t))
	frames := c.handleExec()
	require.Len(t, frames, 1)
	assert.Equal(t, resp.TypeError, frames[0].Typ)
}

func TestWatchAbortsExecOnConcurrentChange(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv)

	one(t, c.dispatch(parse(t, "SET", "k", "v1")))
	one(t, c.dispatch(parse(t, "WATCH", "k")))

	// A concurrent writer (another connection) changes k after WATCH.
	other := newTestConn(t, srv)
	one(t, other.dispatch(parse(t, "SET", "k", "v2")))

	one(t, c.dispatch(parse(t, "MULTI")))
	c.queue = append(c.queue, parse(t, "GET", "k"))

	frames := c.handleExec()
	require.Len(t, frames, 1)
	assert.True(t, frames[0].IsNullArray(), "EXEC must abort (nil) once a watched key changed")
}

func TestMultiNestingIsRejected(t *testing.T) {
	c := newTestConn(t, newTestServer(t))
	one(t, c.dispatch(parse(t, "MULTI")))
	f := one(t, c.dispatch(parse(t, "MULTI")))
	assert.Equal(t, resp.TypeError, f.Typ)
	assert.Contains(t, f.Str, "MULTI calls can not be nested")
}

func TestCommandAndConfigGetReturnEmptyNotNullArray(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "COMMAND")))
	require.Equal(t, resp.TypeArray, f.Typ)
	assert.False(t, f.IsNullArray())
	assert.Len(t, f.Array, 0)

	f = one(t, c.dispatch(parse(t, "CONFIG", "GET", "no-such-option")))
	require.Equal(t, resp.TypeArray, f.Typ)
	assert.False(t, f.IsNullArray())
	assert.Len(t, f.Array, 0)
}

func TestConfigGetSetRoundTrip(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "CONFIG", "SET", "maxmemory", "1024")))
	assert.Equal(t, resp.SimpleString("OK"), f)

	f = one(t, c.dispatch(parse(t, "CONFIG", "GET", "maxmemory")))
	require.Equal(t, resp.TypeArray, f.Typ)
	require.Len(t, f.Array, 2)
	assert.Equal(t, resp.BulkString([]byte("maxmemory")), f.Array[0])
	assert.Equal(t, resp.BulkString([]byte("1024")), f.Array[1])
}

func TestHelloHandshake(t *testing.T) {
	c := newTestConn(t, newTestServer(t))

	f := one(t, c.dispatch(parse(t, "HELLO")))
	require.Equal(t, resp.TypeArray, f.Typ)
	assert.False(t, f.IsNullArray())

	f = one(t, c.dispatch(parse(t, "HELLO", "3")))
	assert.Equal(t, resp.TypeError, f.Typ)
	assert.Contains(t, f.Str, "NOPROTO")
}

func TestAuthRequiredGatesCommandsExceptHello(t *testing.T) {
	srv := newTestServer(t)
	srv.Config.AuthEnabled = true
	srv.Config.AuthPass = "secret"
	c := newTestConn(t, srv)
	assert.False(t, c.authenticated)

	assert.True(t, isAuthExempt("HELLO"))
	assert.True(t, isAuthExempt("AUTH"))
	assert.False(t, isAuthExempt("GET"))

	f := one(t, c.dispatch(parse(t, "AUTH", "secret")))
	assert.Equal(t, resp.SimpleString("OK"), f)
}

func TestRenameAndBgsaveHaveArityEntries(t *testing.T) {
	_, err := command.Parse([][]byte{[]byte("RENAME"), []byte("a"), []byte("b")})
	require.NoError(t, err)
	c, _ := command.Parse([][]byte{[]byte("RENAME"), []byte("a"), []byte("b")})
	assert.NoError(t, command.Validate(c))

	c, _ = command.Parse([][]byte{[]byte("BGSAVE")})
	assert.NoError(t, command.Validate(c))
}

func TestSubscribeAckAndPublishCount(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv)

	frames := c.dispatch(parse(t, "SUBSCRIBE", "chan1"))
	require.Len(t, frames, 1)
	assert.Equal(t, modeSubscribed, c.mode)

	f := one(t, c.dispatch(parse(t, "PUBLISH", "chan1", "hi")))
	assert.Equal(t, resp.Integer(1), f)
}
