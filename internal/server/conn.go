package server

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tmfc/redust/internal/command"
	"github.com/tmfc/redust/internal/pubsub"
	"github.com/tmfc/redust/internal/resp"
)

type connMode int

const (
	modeNormal connMode = iota
	modeSubscribed
)

type txnState int

const (
	txnNone txnState = iota
	txnQueueing
	txnAborted
)

// watchEntry is the version WATCH observed for one physical key, or the
// absent sentinel (existed=false) — a later CREATE of that key must still
// cause EXEC to abort (spec.md §4.G WATCH).
type watchEntry struct {
	version uint64
	existed bool
}

// Conn is one connection's state machine: auth, current db, Normal vs.
// Subscribed mode, MULTI queue and WATCH set, and the identity CLIENT
// ID/GETNAME/SETNAME report.
type Conn struct {
	srv        *Server
	nc         net.Conn
	id         uint64
	remoteAddr string

	reader *resp.Reader
	writer *resp.Writer
	mu     sync.Mutex // guards writes: the read loop and the pubsub forwarder both write

	name          string
	addrID        string
	authenticated bool
	db            int
	mode          connMode

	txn     txnState
	queue   []command.Command
	watched map[string]watchEntry

	sub           *pubsub.Subscriber
	channels      map[string]struct{}
	patterns      map[string]struct{}
	shardChannels map[string]struct{}

	quit  atomic.Bool
	done  chan struct{}
	doneO sync.Once
}

func (s *Server) newConn(nc net.Conn) *Conn {
	id := s.nextClientID.Add(1)
	c := &Conn{
		srv:           s,
		nc:            nc,
		id:            id,
		addrID:        uuid.New().String(),
		remoteAddr:    nc.RemoteAddr().String(),
		reader:        resp.NewReader(nc),
		writer:        resp.NewWriter(nc),
		authenticated: !s.Config.Snapshot().AuthEnabled,
		watched:       make(map[string]watchEntry),
		channels:      make(map[string]struct{}),
		patterns:      make(map[string]struct{}),
		shardChannels: make(map[string]struct{}),
		sub:           pubsub.NewSubscriber(strconv.FormatUint(id, 10)),
		done:          make(chan struct{}),
	}
	return c
}

// serve runs the connection's read-dispatch-reply loop until the client
// disconnects, QUITs, or the context is cancelled.
func (c *Conn) serve(ctx context.Context) {
	c.srv.registerConn(c)
	go c.forwardPubsub()

	defer func() {
		c.doneO.Do(func() { close(c.done) })
		c.srv.Pubsub.UnsubscribeAll(c.sub)
		c.srv.unregisterConn(c)
		c.nc.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.nc.Close()
		case <-c.done:
		}
	}()

	for {
		if c.quit.Load() {
			return
		}
		tokens, err := c.reader.ReadCommand()
		if err != nil {
			return
		}
		if len(tokens) == 0 {
			continue
		}
		c.handleOne(tokens)
	}
}

// forwardPubsub delivers queued pub/sub messages to the connection as they
// arrive, independent of the command read loop (spec.md §5: a connection's
// read task shares its write stream with pub/sub fan-in).
func (c *Conn) forwardPubsub() {
	for {
		select {
		case msg := <-c.sub.Inbox:
			event := "message"
			var frame resp.Frame
			switch {
			case msg.Shard:
				// Shard-channel deliveries use the same "message" event type
				// as a plain PUBLISH (original_source/tests/pubsub.rs), not
				// upstream Redis's "smessage".
				frame = resp.Array(resp.BulkString([]byte(event)), resp.BulkString([]byte(msg.Channel)), resp.BulkString(msg.Payload))
			case msg.Pattern != "":
				frame = resp.Array(resp.BulkString([]byte("pmessage")), resp.BulkString([]byte(msg.Pattern)), resp.BulkString([]byte(msg.Channel)), resp.BulkString(msg.Payload))
			default:
				frame = resp.Array(resp.BulkString([]byte(event)), resp.BulkString([]byte(msg.Channel)), resp.BulkString(msg.Payload))
			}
			c.writeFrame(frame)
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeFrame(f resp.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writer.WriteFrame(f); err != nil {
		return
	}
	c.writer.Flush()
}

// handleOne runs the full gate order of spec.md §4.G for one received
// command and writes its reply (or replies, for multi-reply commands
// like SUBSCRIBE with several channel arguments).
func (c *Conn) handleOne(tokens [][]byte) {
	cmd, _ := command.Parse(tokens)
	defer func() {
		if r := recover(); r != nil {
			c.srv.Logger.Error("command handler panicked", zap.String("command", cmd.Name), zap.Any("panic", r))
			c.writeFrame(resp.Error("ERR internal error"))
		}
	}()
	vErr := command.Validate(cmd)

	// Gate 4: transaction queueing happens before dispatch, and needs to
	// see parse/validate errors without executing anything.
	if c.txn == txnQueueing && cmd.Name != "MULTI" && cmd.Name != "EXEC" && cmd.Name != "DISCARD" && cmd.Name != "WATCH" {
		if vErr != nil || forbiddenInTx(cmd.Name) {
			c.txn = txnAborted
			if vErr == nil {
				vErr = ErrSubscribeInMulti
			}
			c.writeFrame(resp.Error(vErr.Error()))
			return
		}
		c.queue = append(c.queue, cmd)
		c.writeFrame(resp.SimpleString("QUEUED"))
		return
	}

	if vErr != nil {
		c.writeFrame(resp.Error(vErr.Error()))
		return
	}

	// Gate 1: client-pause (write commands only).
	if isWriteCommand(cmd.Name) {
		c.srv.waitIfPaused()
	}

	// Gate 2: auth.
	if !c.authenticated && !isAuthExempt(cmd.Name) {
		c.writeFrame(resp.Error("NOAUTH Authentication required"))
		return
	}

	// Gate 3: subscribed mode restricts to the subscribe family + a few.
	if c.mode == modeSubscribed && !isSubscribedModeAllowed(cmd.Name) {
		c.writeFrame(resp.Error("ERR only (P|S)SUBSCRIBE / (P|S)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context"))
		return
	}

	start := time.Now()
	frames := c.dispatch(cmd)
	elapsed := time.Since(start)
	if micros := elapsed.Microseconds(); micros >= c.srv.Config.SlowlogSlowerThanMicros {
		c.srv.Slowlog.Record(tokens, start.Unix(), micros)
	}
	for _, f := range frames {
		c.writeFrame(f)
	}
}

var ErrSubscribeInMulti = &syntaxError{"ERR SUBSCRIBE is not allowed in transactions"}

type syntaxError struct{ msg string }

func (e *syntaxError) Error() string { return e.msg }

func forbiddenInTx(name string) bool {
	switch name {
	case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE", "SSUBSCRIBE", "SUNSUBSCRIBE":
		return true
	default:
		return false
	}
}

func isAuthExempt(name string) bool {
	switch name {
	case "PING", "QUIT", "AUTH", "HELLO", "RESET":
		return true
	default:
		return false
	}
}

func isSubscribedModeAllowed(name string) bool {
	switch name {
	case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE", "SSUBSCRIBE", "SUNSUBSCRIBE", "PING", "QUIT", "RESET":
		return true
	default:
		return false
	}
}

// isWriteCommand classifies commands for the client-pause gate. Read-only
// and connection/meta commands are excluded.
func isWriteCommand(name string) bool {
	switch name {
	case "SET", "SETNX", "SETEX", "PSETEX", "MSET", "MSETNX", "INCR", "DECR",
		"INCRBY", "DECRBY", "INCRBYFLOAT", "APPEND", "SETRANGE",
		"DEL", "EXPIRE", "PEXPIRE", "PERSIST", "RENAME",
		"LPUSH", "RPUSH", "LPOP", "RPOP", "LSET", "LREM", "LTRIM",
		"SADD", "SREM", "SUNIONSTORE", "SINTERSTORE", "SDIFFSTORE",
		"HSET", "HSETNX", "HDEL", "HINCRBY", "HINCRBYFLOAT",
		"ZADD", "ZREM", "ZINCRBY",
		"PFADD", "PFMERGE",
		"FLUSHDB", "FLUSHALL":
		return true
	default:
		return false
	}
}

// sortedKeys returns m's keys sorted byte-ascending, used everywhere a
// no-argument unsubscribe must remove entries "in sorted name order"
// (spec.md §4.H).
func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
