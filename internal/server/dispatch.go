package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tmfc/redust/internal/command"
	"github.com/tmfc/redust/internal/resp"
	"github.com/tmfc/redust/internal/store"
)

func (c *Conn) phys(key string) string {
	return store.PhysicalKey(c.db, key)
}

func str(b []byte) string { return string(b) }

func bulkOr(err error, value []byte) resp.Frame {
	if err != nil {
		if err == store.ErrNotFound {
			return resp.NullBulk()
		}
		return storeErrorFrame(err)
	}
	return resp.BulkString(value)
}

func intOrErr(n int, err error) resp.Frame {
	if err != nil {
		return storeErrorFrame(err)
	}
	return resp.Integer(int64(n))
}

func int64OrErr(n int64, err error) resp.Frame {
	if err != nil {
		return storeErrorFrame(err)
	}
	return resp.Integer(n)
}

func bulkArray(items [][]byte) resp.Frame {
	elems := make([]resp.Frame, len(items))
	for i, it := range items {
		elems[i] = resp.BulkString(it)
	}
	return resp.Array(elems...)
}

func okOrErr(err error) resp.Frame {
	if err != nil {
		return storeErrorFrame(err)
	}
	return resp.SimpleString("OK")
}

func checkValueSizes(c *Conn, values ...[]byte) error {
	for _, v := range values {
		if err := c.srv.Store.CheckValueSize(len(v)); err != nil {
			return err
		}
	}
	return nil
}

// dispatch executes one validated command against the server's
// collaborators and returns the reply frame(s) to write, in order. Most
// commands produce exactly one frame; SUBSCRIBE/UNSUBSCRIBE and friends
// produce one per channel/pattern.
func (c *Conn) dispatch(cmd command.Command) []resp.Frame {
	one := func(f resp.Frame) []resp.Frame { return []resp.Frame{f} }
	a := cmd.Args
	st := c.srv.Store

	switch cmd.Name {

	// --- connection ---
	case "PING":
		if c.mode == modeSubscribed {
			if len(a) == 1 {
				return one(resp.Array(resp.BulkString([]byte("pong")), resp.BulkString(a[0])))
			}
			return one(resp.Array(resp.BulkString([]byte("pong")), resp.BulkString([]byte(""))))
		}
		if len(a) == 1 {
			return one(resp.BulkString(a[0]))
		}
		return one(resp.SimpleString("PONG"))
	case "ECHO":
		return one(resp.BulkString(a[0]))
	case "QUIT":
		c.quit.Store(true)
		return one(resp.SimpleString("OK"))
	case "RESET":
		c.resetState()
		return one(resp.SimpleString("RESET"))
	case "SELECT":
		n, err := strconv.Atoi(str(a[0]))
		if err != nil {
			return one(resp.Error(command.ErrNotInteger.Error()))
		}
		if n < 0 || n >= c.srv.Config.Databases {
			return one(resp.Error("ERR DB index is out of range"))
		}
		c.db = n
		return one(resp.SimpleString("OK"))
	case "AUTH":
		return one(c.handleAuth(a))
	case "HELLO":
		return one(c.handleHello(a))
	case "CLIENT":
		return one(c.handleClient(a))
	case "COMMAND":
		return one(resp.Array(make([]resp.Frame, 0)...))

	// --- strings ---
	case "SET":
		return one(c.handleSet(a))
	case "GET":
		v, err := st.Get(c.phys(str(a[0])))
		return one(bulkOr(err, v))
	case "SETNX":
		if err := checkValueSizes(c, a[1]); err != nil {
			return one(storeErrorFrame(err))
		}
		ok, err := st.SetNX(c.phys(str(a[0])), a[1])
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.Integer(boolInt(ok)))
	case "SETEX", "PSETEX":
		return one(c.handleSetEx(cmd.Name, a))
	case "MGET":
		keys := make([]string, len(a))
		for i, k := range a {
			keys[i] = c.phys(str(k))
		}
		vals := st.MGet(keys)
		elems := make([]resp.Frame, len(vals))
		for i, v := range vals {
			if v == nil {
				elems[i] = resp.NullBulk()
			} else {
				elems[i] = resp.BulkString(v)
			}
		}
		return one(resp.Array(elems...))
	case "MSET":
		pairs := map[string][]byte{}
		for i := 0; i < len(a); i += 2 {
			if err := checkValueSizes(c, a[i+1]); err != nil {
				return one(storeErrorFrame(err))
			}
			pairs[c.phys(str(a[i]))] = a[i+1]
		}
		return one(okOrErr(st.MSet(pairs)))
	case "MSETNX":
		pairs := map[string][]byte{}
		for i := 0; i < len(a); i += 2 {
			if err := checkValueSizes(c, a[i+1]); err != nil {
				return one(storeErrorFrame(err))
			}
			pairs[c.phys(str(a[i]))] = a[i+1]
		}
		ok, err := st.MSetNX(pairs)
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.Integer(boolInt(ok)))
	case "INCR":
		return one(int64OrErr(st.IncrBy(c.phys(str(a[0])), 1)))
	case "DECR":
		return one(int64OrErr(st.IncrBy(c.phys(str(a[0])), -1)))
	case "INCRBY":
		n, _ := strconv.ParseInt(str(a[1]), 10, 64)
		return one(int64OrErr(st.IncrBy(c.phys(str(a[0])), n)))
	case "DECRBY":
		n, _ := strconv.ParseInt(str(a[1]), 10, 64)
		return one(int64OrErr(st.IncrBy(c.phys(str(a[0])), -n)))
	case "INCRBYFLOAT":
		f, err := strconv.ParseFloat(str(a[1]), 64)
		if err != nil {
			return one(resp.Error("ERR value is not a valid float"))
		}
		v, err := st.IncrByFloat(c.phys(str(a[0])), f)
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.BulkString([]byte(formatFloatReply(v))))
	case "APPEND":
		if err := checkValueSizes(c, a[1]); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(intOrErr(st.Append(c.phys(str(a[0])), a[1])))
	case "STRLEN":
		return one(intOrErr(st.StrLen(c.phys(str(a[0])))))
	case "GETRANGE":
		start, _ := strconv.Atoi(str(a[1]))
		end, _ := strconv.Atoi(str(a[2]))
		v, err := st.GetRange(c.phys(str(a[0])), start, end)
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.BulkString(v))
	case "SETRANGE":
		offset, _ := strconv.Atoi(str(a[1]))
		if err := checkValueSizes(c, a[2]); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(intOrErr(st.SetRange(c.phys(str(a[0])), offset, a[2])))

	// --- key meta ---
	case "DEL":
		return one(resp.Integer(int64(st.Del(c.physAll(a)...))))
	case "EXISTS":
		return one(resp.Integer(int64(st.Exists(c.physAll(a)...))))
	case "TYPE":
		return one(resp.SimpleString(st.Type(c.phys(str(a[0]))).String()))
	case "KEYS":
		prefix := store.PhysicalKey(c.db, "")
		keys := st.KeysMatching(prefix, str(a[0]))
		elems := make([]resp.Frame, len(keys))
		for i, k := range keys {
			elems[i] = resp.BulkString([]byte(k))
		}
		return one(resp.Array(elems...))
	case "DBSIZE":
		return one(resp.Integer(int64(st.DBSizePrefix(store.PhysicalKey(c.db, "")))))
	case "EXPIRE":
		secs, _ := strconv.ParseInt(str(a[1]), 10, 64)
		ok := st.ExpireAtMillis(c.phys(str(a[0])), time.Now().UnixMilli()+secs*1000)
		return one(resp.Integer(boolInt(ok)))
	case "PEXPIRE":
		ms, _ := strconv.ParseInt(str(a[1]), 10, 64)
		ok := st.ExpireAtMillis(c.phys(str(a[0])), time.Now().UnixMilli()+ms)
		return one(resp.Integer(boolInt(ok)))
	case "TTL":
		ms := st.TTLMillis(c.phys(str(a[0])))
		return one(resp.Integer(msToSecsReply(ms)))
	case "PTTL":
		return one(resp.Integer(st.TTLMillis(c.phys(str(a[0])))))
	case "PERSIST":
		return one(resp.Integer(boolInt(st.Persist(c.phys(str(a[0]))))))
	case "RENAME":
		if err := st.Rename(c.phys(str(a[0])), c.phys(str(a[1]))); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.SimpleString("OK"))
	case "SCAN":
		return one(c.handleScan(a))

	// --- lists ---
	case "LPUSH":
		if err := checkValueSizes(c, a[1:]...); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(intOrErr(st.Push(c.phys(str(a[0])), false, a[1:])))
	case "RPUSH":
		if err := checkValueSizes(c, a[1:]...); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(intOrErr(st.Push(c.phys(str(a[0])), true, a[1:])))
	case "LPOP":
		return one(c.handleListPop(a, false))
	case "RPOP":
		return one(c.handleListPop(a, true))
	case "LRANGE":
		start, _ := strconv.Atoi(str(a[1]))
		end, _ := strconv.Atoi(str(a[2]))
		v, err := st.Range(c.phys(str(a[0])), start, end)
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(bulkArray(v))
	case "LLEN":
		return one(intOrErr(st.Len(c.phys(str(a[0])))))
	case "LINDEX":
		idx, _ := strconv.Atoi(str(a[1]))
		v, err := st.Index(c.phys(str(a[0])), idx)
		return one(bulkOr(err, v))
	case "LSET":
		idx, _ := strconv.Atoi(str(a[1]))
		if err := checkValueSizes(c, a[2]); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(okOrErr(st.SetIndex(c.phys(str(a[0])), idx, a[2])))
	case "LREM":
		count, _ := strconv.Atoi(str(a[1]))
		return one(intOrErr(st.Rem(c.phys(str(a[0])), count, a[2])))
	case "LTRIM":
		start, _ := strconv.Atoi(str(a[1]))
		end, _ := strconv.Atoi(str(a[2]))
		return one(okOrErr(st.Trim(c.phys(str(a[0])), start, end)))

	// --- sets ---
	case "SADD":
		if err := checkValueSizes(c, a[1:]...); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(intOrErr(st.SAdd(c.phys(str(a[0])), a[1:])))
	case "SREM":
		return one(intOrErr(st.SRem(c.phys(str(a[0])), a[1:])))
	case "SMEMBERS":
		v, err := st.SMembers(c.phys(str(a[0])))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(bulkArray(v))
	case "SCARD":
		return one(intOrErr(st.SCard(c.phys(str(a[0])))))
	case "SISMEMBER":
		ok, err := st.SIsMember(c.phys(str(a[0])), a[1])
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.Integer(boolInt(ok)))
	case "SUNION", "SINTER", "SDIFF":
		return one(c.handleSetAlgebra(cmd.Name, a))
	case "SUNIONSTORE", "SINTERSTORE", "SDIFFSTORE":
		return one(c.handleSetAlgebraStore(cmd.Name, a))
	case "SSCAN":
		return one(c.handleCollectionScan(cmd.Name, a))

	// --- hashes ---
	case "HSET":
		fields := map[string][]byte{}
		for i := 1; i < len(a); i += 2 {
			if err := checkValueSizes(c, a[i+1]); err != nil {
				return one(storeErrorFrame(err))
			}
			fields[str(a[i])] = a[i+1]
		}
		return one(intOrErr(st.HSet(c.phys(str(a[0])), fields)))
	case "HSETNX":
		if err := checkValueSizes(c, a[2]); err != nil {
			return one(storeErrorFrame(err))
		}
		ok, err := st.HSetNX(c.phys(str(a[0])), str(a[1]), a[2])
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.Integer(boolInt(ok)))
	case "HGET":
		v, err := st.HGet(c.phys(str(a[0])), str(a[1]))
		return one(bulkOr(err, v))
	case "HMGET":
		vals, err := st.HMGet(c.phys(str(a[0])), strSlice(a[1:]))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		elems := make([]resp.Frame, len(vals))
		for i, v := range vals {
			if v == nil {
				elems[i] = resp.NullBulk()
			} else {
				elems[i] = resp.BulkString(v)
			}
		}
		return one(resp.Array(elems...))
	case "HDEL":
		return one(intOrErr(st.HDel(c.phys(str(a[0])), strSlice(a[1:]))))
	case "HEXISTS":
		ok, err := st.HExists(c.phys(str(a[0])), str(a[1]))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.Integer(boolInt(ok)))
	case "HGETALL":
		v, err := st.HGetAll(c.phys(str(a[0])))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(bulkArray(v))
	case "HKEYS":
		keys, err := st.HKeys(c.phys(str(a[0])))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(bulkArray(strBytes(keys)))
	case "HVALS":
		v, err := st.HVals(c.phys(str(a[0])))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(bulkArray(v))
	case "HLEN":
		return one(intOrErr(st.HLen(c.phys(str(a[0])))))
	case "HINCRBY":
		delta, _ := strconv.ParseInt(str(a[2]), 10, 64)
		return one(int64OrErr(st.HIncrBy(c.phys(str(a[0])), str(a[1]), delta)))
	case "HINCRBYFLOAT":
		delta, err := strconv.ParseFloat(str(a[2]), 64)
		if err != nil {
			return one(resp.Error("ERR value is not a valid float"))
		}
		v, err := st.HIncrByFloat(c.phys(str(a[0])), str(a[1]), delta)
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.BulkString([]byte(formatFloatReply(v))))
	case "HSCAN":
		return one(c.handleCollectionScan(cmd.Name, a))

	// --- sorted sets ---
	case "ZADD":
		return one(c.handleZAdd(a))
	case "ZREM":
		return one(intOrErr(st.ZRem(c.phys(str(a[0])), strSlice(a[1:]))))
	case "ZCARD":
		return one(intOrErr(st.ZCard(c.phys(str(a[0])))))
	case "ZSCORE":
		f, err := st.ZScore(c.phys(str(a[0])), str(a[1]))
		if err != nil {
			return one(bulkOr(err, nil))
		}
		return one(resp.BulkString([]byte(formatFloatReply(f))))
	case "ZINCRBY":
		delta, err := strconv.ParseFloat(str(a[1]), 64)
		if err != nil {
			return one(resp.Error("ERR value is not a valid float"))
		}
		f, err := st.ZIncrBy(c.phys(str(a[0])), str(a[2]), delta)
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.BulkString([]byte(formatFloatReply(f))))
	case "ZRANK":
		rank, err := st.ZRank(c.phys(str(a[0])), str(a[1]), false)
		if err != nil {
			return one(bulkOr(err, nil))
		}
		return one(resp.Integer(int64(rank)))
	case "ZREVRANK":
		rank, err := st.ZRank(c.phys(str(a[0])), str(a[1]), true)
		if err != nil {
			return one(bulkOr(err, nil))
		}
		return one(resp.Integer(int64(rank)))
	case "ZRANGE", "ZREVRANGE":
		start, _ := strconv.Atoi(str(a[1]))
		end, _ := strconv.Atoi(str(a[2]))
		withScores := len(a) == 4
		v, err := st.ZRange(c.phys(str(a[0])), start, end, cmd.Name == "ZREVRANGE", withScores)
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(bulkArray(v))
	case "ZRANGEBYSCORE":
		return one(c.handleZRangeByScore(a))
	case "ZCOUNT":
		rng, err := parseScoreRange(str(a[1]), str(a[2]))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(intOrErr(st.ZCount(c.phys(str(a[0])), rng)))
	case "ZSCAN":
		return one(c.handleCollectionScan(cmd.Name, a))

	// --- hyperloglog ---
	case "PFADD":
		changed, err := st.PFAdd(c.phys(str(a[0])), a[1:])
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.Integer(boolInt(changed)))
	case "PFCOUNT":
		count, err := st.PFCount(c.physAll(a))
		if err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.Integer(int64(count)))
	case "PFMERGE":
		dest := c.phys(str(a[0]))
		srcs := c.physAll(a[1:])
		if err := st.PFMerge(dest, srcs); err != nil {
			return one(storeErrorFrame(err))
		}
		return one(resp.SimpleString("OK"))

	// --- pub/sub ---
	case "SUBSCRIBE":
		return c.handleSubscribe(a)
	case "UNSUBSCRIBE":
		return c.handleUnsubscribe(a)
	case "PSUBSCRIBE":
		return c.handlePSubscribe(a)
	case "PUNSUBSCRIBE":
		return c.handlePUnsubscribe(a)
	case "SSUBSCRIBE":
		return c.handleSSubscribe(a)
	case "SUNSUBSCRIBE":
		return c.handleSUnsubscribe(a)
	case "PUBLISH":
		n := c.srv.Pubsub.Publish(str(a[0]), a[1])
		return one(resp.Integer(n))
	case "SPUBLISH":
		n := c.srv.Pubsub.SPublish(str(a[0]), a[1])
		return one(resp.Integer(n))
	case "PUBSUB":
		return one(c.handlePubsubIntrospect(a))

	// --- transactions ---
	case "MULTI":
		if c.txn == txnQueueing {
			return one(resp.Error("ERR MULTI calls can not be nested"))
		}
		c.txn = txnQueueing
		c.queue = nil
		return one(resp.SimpleString("OK"))
	case "DISCARD":
		if c.txn == txnNone {
			return one(resp.Error("ERR DISCARD without MULTI"))
		}
		c.txn = txnNone
		c.queue = nil
		c.watched = make(map[string]watchEntry)
		return one(resp.SimpleString("OK"))
	case "WATCH":
		if c.txn == txnQueueing {
			return one(resp.Error("ERR WATCH inside MULTI is not allowed"))
		}
		for _, k := range a {
			phys := c.phys(str(k))
			v, ok := st.Version(phys)
			c.watched[phys] = watchEntry{version: v, existed: ok}
		}
		return one(resp.SimpleString("OK"))
	case "UNWATCH":
		c.watched = make(map[string]watchEntry)
		return one(resp.SimpleString("OK"))
	case "EXEC":
		return c.handleExec()

	// --- admin ---
	case "CONFIG":
		return one(c.handleConfig(a))
	case "SLOWLOG":
		return one(c.handleSlowlog(a))
	case "SAVE", "BGSAVE":
		return one(c.handleSave())
	case "LASTSAVE":
		return one(resp.Integer(c.srv.LastSave()))
	case "INFO":
		return one(resp.BulkString([]byte(c.renderInfo())))
	case "FLUSHDB":
		st.FlushPrefix(store.PhysicalKey(c.db, ""))
		return one(resp.SimpleString("OK"))
	case "FLUSHALL":
		st.FlushAll()
		return one(resp.SimpleString("OK"))

	// --- scripting ---
	case "EVAL":
		return one(c.handleEval(a, false))
	case "EVALSHA":
		return one(c.handleEval(a, true))
	case "SCRIPT":
		return one(c.handleScript(a))

	default:
		return one(cmd.UnknownError())
	}
}

func (c *Conn) physAll(tokens [][]byte) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = c.phys(str(t))
	}
	return out
}

func strSlice(tokens [][]byte) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = str(t)
	}
	return out
}

func strBytes(strs []string) [][]byte {
	out := make([][]byte, len(strs))
	for i, s := range strs {
		out[i] = []byte(s)
	}
	return out
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// msToSecsReply converts TTLMillis' contract (-2 absent, -1 no TTL, >=0 ms
// remaining) into TTL's seconds-rounded equivalent.
func msToSecsReply(ms int64) int64 {
	if ms < 0 {
		return ms
	}
	return (ms + 999) / 1000
}

func formatFloatReply(f float64) string {
	return store.FormatFloat(f)
}

func (c *Conn) resetState() {
	c.authenticated = !c.srv.Config.Snapshot().AuthEnabled
	c.db = 0
	c.mode = modeNormal
	c.txn = txnNone
	c.queue = nil
	c.watched = make(map[string]watchEntry)
	c.srv.Pubsub.UnsubscribeAll(c.sub)
	c.channels = make(map[string]struct{})
	c.patterns = make(map[string]struct{})
	c.shardChannels = make(map[string]struct{})
}

func (c *Conn) handleAuth(a [][]byte) resp.Frame {
	snap := c.srv.Config.Snapshot()
	if !snap.AuthEnabled {
		return resp.Error("ERR AUTH not enabled")
	}
	pass := str(a[len(a)-1])
	if pass != snap.AuthPass {
		return resp.Error("WRONGPASS invalid username-password pair or user is disabled")
	}
	c.authenticated = true
	return resp.SimpleString("OK")
}

// handleHello implements the connection-handshake subset clients issue on
// connect: protocol version negotiation (RESP3 is rejected, this server only
// ever speaks RESP2) plus the optional inline AUTH/SETNAME clauses.
func (c *Conn) handleHello(a [][]byte) resp.Frame {
	i := 0
	if len(a) > 0 {
		if _, err := strconv.Atoi(str(a[0])); err == nil {
			proto := str(a[0])
			if proto != "2" {
				return resp.Error("NOPROTO unsupported protocol version")
			}
			i = 1
		}
	}
	for i < len(a) {
		switch up(a[i]) {
		case "AUTH":
			if i+2 >= len(a) {
				return resp.Error(command.ErrSyntax.Error())
			}
			snap := c.srv.Config.Snapshot()
			if snap.AuthEnabled && str(a[i+2]) != snap.AuthPass {
				return resp.Error("WRONGPASS invalid username-password pair or user is disabled")
			}
			c.authenticated = true
			i += 3
		case "SETNAME":
			if i+1 >= len(a) {
				return resp.Error(command.ErrSyntax.Error())
			}
			c.name = str(a[i+1])
			i += 2
		default:
			return resp.Error(command.ErrSyntax.Error())
		}
	}
	if !c.authenticated {
		return resp.Error("NOAUTH HELLO must be called with the client already authenticated, otherwise the HELLO <proto> AUTH <user> <pass> option can be used to authenticate the client and select the RESP protocol version at the same time")
	}
	fields := []resp.Frame{
		resp.BulkString([]byte("server")), resp.BulkString([]byte("redust")),
		resp.BulkString([]byte("version")), resp.BulkString([]byte("1.0.0")),
		resp.BulkString([]byte("proto")), resp.Integer(2),
		resp.BulkString([]byte("id")), resp.Integer(int64(c.id)),
		resp.BulkString([]byte("mode")), resp.BulkString([]byte("standalone")),
		resp.BulkString([]byte("role")), resp.BulkString([]byte("master")),
		resp.BulkString([]byte("modules")), resp.Array(make([]resp.Frame, 0)...),
	}
	return resp.Array(fields...)
}

func (c *Conn) handleSave() resp.Frame {
	if c.srv.saveSnapshot == nil {
		return resp.Error("ERR persistence not configured")
	}
	if err := c.srv.saveSnapshot(); err != nil {
		return resp.Error(fmt.Sprintf("ERR %v", err))
	}
	c.srv.markSaved()
	return resp.SimpleString("OK")
}

