package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmfc/redust/internal/command"
	"github.com/tmfc/redust/internal/resp"
	"github.com/tmfc/redust/internal/script"
	"github.com/tmfc/redust/internal/store"
)

func up(b []byte) string { return strings.ToUpper(string(b)) }

// --- SET / SETEX / PSETEX ---

func (c *Conn) handleSet(a [][]byte) resp.Frame {
	opts := store.SetOpts{}
	wantGet := false
	i := 2
	for i < len(a) {
		switch up(a[i]) {
		case "NX":
			opts.OnlyIfAbsent = true
			i++
		case "XX":
			opts.OnlyIfPresent = true
			i++
		case "KEEPTTL":
			opts.KeepTTL = true
			i++
		case "GET":
			wantGet = true
			i++
		case "EX":
			secs, _ := strconv.ParseInt(string(a[i+1]), 10, 64)
			opts.HasExpiry = true
			opts.ExpiresAt = time.Now().UnixNano() + secs*int64(time.Second)
			i += 2
		case "PX":
			ms, _ := strconv.ParseInt(string(a[i+1]), 10, 64)
			opts.HasExpiry = true
			opts.ExpiresAt = time.Now().UnixNano() + ms*int64(time.Millisecond)
			i += 2
		default:
			i++
		}
	}
	opts.ReturnOld = wantGet
	if err := c.srv.Store.CheckValueSize(len(a[1])); err != nil {
		return storeErrorFrame(err)
	}
	old, set, err := c.srv.Store.Set(c.phys(str(a[0])), a[1], opts)
	if err != nil {
		return storeErrorFrame(err)
	}
	if wantGet {
		if old == nil {
			return resp.NullBulk()
		}
		return resp.BulkString(old)
	}
	if !set {
		return resp.NullBulk()
	}
	return resp.SimpleString("OK")
}

func (c *Conn) handleSetEx(name string, a [][]byte) resp.Frame {
	if err := c.srv.Store.CheckValueSize(len(a[2])); err != nil {
		return storeErrorFrame(err)
	}
	n, err := strconv.ParseInt(string(a[1]), 10, 64)
	if err != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	phys := c.phys(str(a[0]))
	if name == "SETEX" {
		err = c.srv.Store.SetEx(phys, a[2], n)
	} else {
		err = c.srv.Store.PSetEx(phys, a[2], n)
	}
	if err != nil {
		return storeErrorFrame(err)
	}
	return resp.SimpleString("OK")
}

// --- lists ---

func (c *Conn) handleListPop(a [][]byte, right bool) resp.Frame {
	count := 1
	hadCount := len(a) == 2
	if hadCount {
		count, _ = strconv.Atoi(string(a[1]))
	}
	items, err := c.srv.Store.Pop(c.phys(str(a[0])), right, count)
	if err != nil {
		return storeErrorFrame(err)
	}
	if len(items) == 0 {
		if hadCount {
			return resp.NullArray()
		}
		return resp.NullBulk()
	}
	if !hadCount {
		return resp.BulkString(items[0])
	}
	return bulkArray(items)
}

// --- sets ---

func (c *Conn) handleSetAlgebra(name string, a [][]byte) resp.Frame {
	keys := c.physAll(a)
	var (
		out [][]byte
		err error
	)
	switch name {
	case "SUNION":
		out, err = c.srv.Store.SUnion(keys)
	case "SINTER":
		out, err = c.srv.Store.SInter(keys)
	case "SDIFF":
		out, err = c.srv.Store.SDiff(keys)
	}
	if err != nil {
		return storeErrorFrame(err)
	}
	return bulkArray(out)
}

func (c *Conn) handleSetAlgebraStore(name string, a [][]byte) resp.Frame {
	dest := c.phys(str(a[0]))
	keys := c.physAll(a[1:])
	var (
		n   int
		err error
	)
	switch name {
	case "SUNIONSTORE":
		n, err = c.srv.Store.SUnionStore(dest, keys)
	case "SINTERSTORE":
		n, err = c.srv.Store.SInterStore(dest, keys)
	case "SDIFFSTORE":
		n, err = c.srv.Store.SDiffStore(dest, keys)
	}
	if err != nil {
		return storeErrorFrame(err)
	}
	return resp.Integer(int64(n))
}

// --- scan family ---

func (c *Conn) handleScan(a [][]byte) resp.Frame {
	cursor := str(a[0])
	count := 10
	pattern := ""
	typeFilter := store.KindNone
	i := 1
	for i < len(a) {
		switch up(a[i]) {
		case "MATCH":
			pattern = str(a[i+1])
			i += 2
		case "COUNT":
			count, _ = strconv.Atoi(str(a[i+1]))
			i += 2
		case "TYPE":
			typeFilter = kindFromName(str(a[i+1]))
			i += 2
		default:
			i++
		}
	}
	prefix := store.PhysicalKey(c.db, "")
	res := c.srv.Store.Scan(prefix, cursor, count, pattern, typeFilter)
	return resp.Array(resp.BulkString([]byte(res.Cursor)), bulkArray(strBytes(res.Keys)))
}

func kindFromName(name string) store.Kind {
	switch strings.ToLower(name) {
	case "string":
		return store.KindString
	case "list":
		return store.KindList
	case "set":
		return store.KindSet
	case "hash":
		return store.KindHash
	case "zset":
		return store.KindSortedSet
	default:
		return store.KindNone
	}
}

func (c *Conn) handleCollectionScan(name string, a [][]byte) resp.Frame {
	phys := c.phys(str(a[0]))
	cursor := str(a[1])
	count := 10
	pattern := ""
	i := 2
	for i < len(a) {
		switch up(a[i]) {
		case "MATCH":
			pattern = str(a[i+1])
			i += 2
		case "COUNT":
			count, _ = strconv.Atoi(str(a[i+1]))
			i += 2
		default:
			i++
		}
	}
	var (
		res store.CollectionScanResult
		err error
	)
	switch name {
	case "SSCAN":
		res, err = c.srv.Store.ScanSet(phys, cursor, count, pattern)
	case "HSCAN":
		res, err = c.srv.Store.ScanHash(phys, cursor, count, pattern)
	case "ZSCAN":
		res, err = c.srv.Store.ScanZSet(phys, cursor, count, pattern)
	}
	if err != nil {
		return storeErrorFrame(err)
	}
	return resp.Array(resp.BulkString([]byte(res.Cursor)), bulkArray(strBytes(res.Items)))
}

// --- sorted sets ---

func (c *Conn) handleZAdd(a [][]byte) resp.Frame {
	opts := store.ZAddOpts{}
	i := 1
loop:
	for i < len(a) {
		switch up(a[i]) {
		case "NX":
			opts.OnlyIfAbsent = true
			i++
		case "XX":
			opts.OnlyIfPresent = true
			i++
		case "GT":
			opts.GreaterThan = true
			i++
		case "LT":
			opts.LessThan = true
			i++
		case "CH":
			opts.ReturnChanged = true
			i++
		case "INCR":
			opts.Incr = true
			i++
		default:
			break loop
		}
	}
	var pairs []store.ZMember
	for j := i; j+1 < len(a); j += 2 {
		score, err := store.ParseScoreToken(str(a[j]))
		if err != nil {
			return resp.Error("ERR value is not a valid float")
		}
		pairs = append(pairs, store.ZMember{Member: str(a[j+1]), Score: score})
	}
	count, score, err := c.srv.Store.ZAdd(c.phys(str(a[0])), pairs, opts)
	if err != nil {
		return storeErrorFrame(err)
	}
	if opts.Incr {
		if count == 0 {
			return resp.NullBulk()
		}
		return resp.BulkString([]byte(store.FormatFloat(score)))
	}
	return resp.Integer(int64(count))
}

func parseScoreRange(minTok, maxTok string) (store.ScoreRange, error) {
	rng := store.ScoreRange{}
	min, minExcl, err := parseScoreBound(minTok)
	if err != nil {
		return rng, err
	}
	max, maxExcl, err := parseScoreBound(maxTok)
	if err != nil {
		return rng, err
	}
	rng.Min, rng.MinExcl = min, minExcl
	rng.Max, rng.MaxExcl = max, maxExcl
	return rng, nil
}

func parseScoreBound(tok string) (float64, bool, error) {
	excl := strings.HasPrefix(tok, "(")
	if excl {
		tok = tok[1:]
	}
	f, err := store.ParseScoreToken(tok)
	if err != nil {
		return 0, false, store.ErrNotFloat
	}
	return f, excl, nil
}

func (c *Conn) handleZRangeByScore(a [][]byte) resp.Frame {
	rng, err := parseScoreRange(str(a[1]), str(a[2]))
	if err != nil {
		return storeErrorFrame(err)
	}
	withScores := false
	offset, limit := 0, -1
	i := 3
	for i < len(a) {
		switch up(a[i]) {
		case "WITHSCORES":
			withScores = true
			i++
		case "LIMIT":
			offset, _ = strconv.Atoi(str(a[i+1]))
			limit, _ = strconv.Atoi(str(a[i+2]))
			i += 3
		default:
			i++
		}
	}
	out, err := c.srv.Store.ZRangeByScore(c.phys(str(a[0])), rng, false, offset, limit, withScores)
	if err != nil {
		return storeErrorFrame(err)
	}
	return bulkArray(out)
}

// --- pub/sub ---

func (c *Conn) handleSubscribe(a [][]byte) []resp.Frame {
	c.mode = modeSubscribed
	frames := make([]resp.Frame, 0, len(a))
	for _, ch := range a {
		channel := str(ch)
		c.srv.Pubsub.Subscribe(c.sub, channel)
		c.channels[channel] = struct{}{}
		frames = append(frames, subAck("subscribe", channel, c.subCount()))
	}
	return frames
}

func (c *Conn) handleUnsubscribe(a [][]byte) []resp.Frame {
	channels := strSlice(a)
	if len(channels) == 0 {
		channels = sortedKeys(c.channels)
	}
	if len(channels) == 0 {
		c.updateSubscribedMode()
		return []resp.Frame{subAck("unsubscribe", "", c.subCount())}
	}
	frames := make([]resp.Frame, 0, len(channels))
	for _, channel := range channels {
		c.srv.Pubsub.Unsubscribe(c.sub, channel)
		delete(c.channels, channel)
		frames = append(frames, subAck("unsubscribe", channel, c.subCount()))
	}
	c.updateSubscribedMode()
	return frames
}

func (c *Conn) handlePSubscribe(a [][]byte) []resp.Frame {
	c.mode = modeSubscribed
	frames := make([]resp.Frame, 0, len(a))
	for _, pt := range a {
		pattern := str(pt)
		c.srv.Pubsub.PSubscribe(c.sub, pattern)
		c.patterns[pattern] = struct{}{}
		frames = append(frames, subAck("psubscribe", pattern, c.subCount()))
	}
	return frames
}

func (c *Conn) handlePUnsubscribe(a [][]byte) []resp.Frame {
	patterns := strSlice(a)
	if len(patterns) == 0 {
		patterns = sortedKeys(c.patterns)
	}
	if len(patterns) == 0 {
		c.updateSubscribedMode()
		return []resp.Frame{subAck("punsubscribe", "", c.subCount())}
	}
	frames := make([]resp.Frame, 0, len(patterns))
	for _, pattern := range patterns {
		c.srv.Pubsub.PUnsubscribe(c.sub, pattern)
		delete(c.patterns, pattern)
		frames = append(frames, subAck("punsubscribe", pattern, c.subCount()))
	}
	c.updateSubscribedMode()
	return frames
}

func (c *Conn) handleSSubscribe(a [][]byte) []resp.Frame {
	c.mode = modeSubscribed
	frames := make([]resp.Frame, 0, len(a))
	for _, ch := range a {
		channel := str(ch)
		c.srv.Pubsub.SSubscribe(c.sub, channel)
		c.shardChannels[channel] = struct{}{}
		frames = append(frames, subAck("ssubscribe", channel, c.subCount()))
	}
	return frames
}

func (c *Conn) handleSUnsubscribe(a [][]byte) []resp.Frame {
	channels := strSlice(a)
	if len(channels) == 0 {
		channels = sortedKeys(c.shardChannels)
	}
	if len(channels) == 0 {
		c.updateSubscribedMode()
		return []resp.Frame{subAck("sunsubscribe", "", c.subCount())}
	}
	frames := make([]resp.Frame, 0, len(channels))
	for _, channel := range channels {
		c.srv.Pubsub.SUnsubscribe(c.sub, channel)
		delete(c.shardChannels, channel)
		frames = append(frames, subAck("sunsubscribe", channel, c.subCount()))
	}
	c.updateSubscribedMode()
	return frames
}

func (c *Conn) subCount() int64 {
	return int64(len(c.channels) + len(c.patterns) + len(c.shardChannels))
}

func (c *Conn) updateSubscribedMode() {
	if c.subCount() == 0 {
		c.mode = modeNormal
	}
}

func subAck(kind, name string, count int64) resp.Frame {
	var nameFrame resp.Frame
	if name == "" {
		nameFrame = resp.NullBulk()
	} else {
		nameFrame = resp.BulkString([]byte(name))
	}
	return resp.Array(resp.BulkString([]byte(kind)), nameFrame, resp.Integer(count))
}

func (c *Conn) handlePubsubIntrospect(a [][]byte) resp.Frame {
	switch up(a[0]) {
	case "CHANNELS":
		pattern := ""
		if len(a) > 1 {
			pattern = str(a[1])
		}
		chans := c.srv.Pubsub.Channels(pattern)
		return bulkArray(strBytes(chans))
	case "NUMSUB":
		names := strSlice(a[1:])
		counts := c.srv.Pubsub.NumSub(names)
		elems := make([]resp.Frame, 0, len(names)*2)
		for i, n := range names {
			elems = append(elems, resp.BulkString([]byte(n)), resp.Integer(int64(counts[i])))
		}
		return resp.Array(elems...)
	case "NUMPAT":
		return resp.Integer(int64(c.srv.Pubsub.NumPat()))
	case "SHARDCHANNELS":
		pattern := ""
		if len(a) > 1 {
			pattern = str(a[1])
		}
		chans := c.srv.Pubsub.ShardChannels(pattern)
		return bulkArray(strBytes(chans))
	case "SHARDNUMSUB":
		names := strSlice(a[1:])
		counts := c.srv.Pubsub.ShardNumSub(names)
		elems := make([]resp.Frame, 0, len(names)*2)
		for i, n := range names {
			elems = append(elems, resp.BulkString([]byte(n)), resp.Integer(int64(counts[i])))
		}
		return resp.Array(elems...)
	default:
		return resp.Error("ERR syntax error")
	}
}

// --- transactions ---

func (c *Conn) handleExec() []resp.Frame {
	if c.txn == txnNone {
		return []resp.Frame{resp.Error("ERR EXEC without MULTI")}
	}
	if c.txn == txnAborted {
		c.txn = txnNone
		c.queue = nil
		c.watched = make(map[string]watchEntry)
		return []resp.Frame{resp.Error("EXECABORT Transaction discarded because of previous errors.")}
	}

	keys := make([]string, 0, len(c.watched))
	for k := range c.watched {
		keys = append(keys, k)
	}
	aborted := false
	c.srv.Store.WithKeysLocked(keys, func() {
		for phys, w := range c.watched {
			v, existed := c.srv.Store.VersionLocked(phys)
			if existed != w.existed || v != w.version {
				aborted = true
				return
			}
		}
	})
	if aborted {
		c.txn = txnNone
		c.queue = nil
		c.watched = make(map[string]watchEntry)
		return []resp.Frame{resp.NullArray()}
	}

	queued := c.queue
	c.txn = txnNone
	c.queue = nil
	c.watched = make(map[string]watchEntry)

	replies := make([]resp.Frame, 0, len(queued))
	for _, cmd := range queued {
		fs := c.dispatch(cmd)
		if len(fs) == 1 {
			replies = append(replies, fs[0])
		} else {
			replies = append(replies, resp.Array(fs...))
		}
	}
	return []resp.Frame{resp.Array(replies...)}
}

// --- admin ---

func (c *Conn) handleClient(a [][]byte) resp.Frame {
	switch up(a[0]) {
	case "ID":
		return resp.Integer(int64(c.id))
	case "GETNAME":
		if c.name == "" {
			return resp.NullBulk()
		}
		return resp.BulkString([]byte(c.name))
	case "SETNAME":
		c.name = str(a[1])
		return resp.SimpleString("OK")
	case "LIST":
		infos := c.srv.ClientList()
		lines := make([]string, 0, len(infos))
		for _, info := range infos {
			lines = append(lines, fmt.Sprintf("id=%d addr=%s addr-id=%s name=%s db=%d", info.ID, info.Addr, info.AddrID, info.Name, info.DB))
		}
		return resp.BulkString([]byte(strings.Join(lines, "\n")))
	case "PAUSE":
		ms, _ := strconv.ParseInt(str(a[1]), 10, 64)
		c.srv.Pause(time.Duration(ms) * time.Millisecond)
		return resp.SimpleString("OK")
	case "UNPAUSE":
		c.srv.Unpause()
		return resp.SimpleString("OK")
	default:
		return resp.Error("ERR syntax error")
	}
}

func (c *Conn) handleConfig(a [][]byte) resp.Frame {
	switch up(a[0]) {
	case "GET":
		if len(a) < 2 {
			return resp.Error("ERR wrong number of arguments for 'config|get' command")
		}
		v, ok := c.srv.Config.Get(str(a[1]))
		if !ok {
			return resp.Array(make([]resp.Frame, 0)...)
		}
		return resp.Array(resp.BulkString(a[1]), resp.BulkString([]byte(v)))
	case "SET":
		if len(a) != 3 {
			return resp.Error("ERR wrong number of arguments for 'config|set' command")
		}
		if err := c.srv.Config.Set(str(a[1]), str(a[2])); err != nil {
			return storeErrorFrame(err)
		}
		snap := c.srv.Config.Snapshot()
		c.srv.Store.SetMaxMemory(snap.MaxMemoryBytes)
		c.srv.Store.SetPolicy(snap.MaxMemoryPolicy)
		c.srv.Store.SetMaxValueBytes(snap.MaxValueBytes)
		return resp.SimpleString("OK")
	default:
		return resp.Error("ERR syntax error")
	}
}

func (c *Conn) handleSlowlog(a [][]byte) resp.Frame {
	switch up(a[0]) {
	case "GET":
		entries := c.srv.Slowlog.Entries()
		if len(a) > 1 {
			if n, err := strconv.Atoi(str(a[1])); err == nil && n >= 0 && n < len(entries) {
				entries = entries[:n]
			}
		}
		elems := make([]resp.Frame, 0, len(entries))
		for _, e := range entries {
			argFrames := make([]resp.Frame, len(e.Args))
			for i, arg := range e.Args {
				argFrames[i] = resp.BulkString(arg)
			}
			elems = append(elems, resp.Array(
				resp.Integer(e.ID),
				resp.Integer(e.Timestamp),
				resp.Integer(e.DurationMicros),
				resp.Array(argFrames...),
			))
		}
		return resp.Array(elems...)
	case "LEN":
		return resp.Integer(int64(c.srv.Slowlog.Len()))
	case "RESET":
		c.srv.Slowlog.Reset()
		return resp.SimpleString("OK")
	default:
		return resp.Error("ERR syntax error")
	}
}

func (c *Conn) renderInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Server\r\nredis_version:7.4.0-redust\r\nuptime_in_seconds:%d\r\n", c.srv.Uptime())
	fmt.Fprintf(&b, "# Clients\r\nconnected_clients:%d\r\n", len(c.srv.ClientList()))
	stats := c.srv.Store.Stats()
	fmt.Fprintf(&b, "# Stats\r\nexpired_keys:%d\r\nevicted_keys:%d\r\n", stats.ExpiredKeys, stats.EvictedKeys)
	fmt.Fprintf(&b, "# Memory\r\nused_memory:%d\r\nmaxmemory:%d\r\nmaxmemory_policy:%s\r\n",
		c.srv.Store.UsedMemory(), c.srv.Config.Snapshot().MaxMemoryBytes, c.srv.Config.Snapshot().MaxMemoryPolicy.String())
	if total, err := store.SystemMemoryBytes(); err == nil {
		fmt.Fprintf(&b, "total_system_memory:%d\r\n", total)
	}
	fmt.Fprintf(&b, "# Persistence\r\nlast_save_time:%d\r\n", c.srv.LastSave())
	fmt.Fprintf(&b, "# Keyspace\r\n")
	for i := 0; i < c.srv.Config.Databases; i++ {
		n := c.srv.Store.DBSizePrefix(store.PhysicalKey(i, ""))
		if n > 0 {
			fmt.Fprintf(&b, "db%d:keys=%d\r\n", i, n)
		}
	}
	return b.String()
}

// --- scripting ---

func (c *Conn) handleEval(a [][]byte, byHash bool) resp.Frame {
	numKeys, err := strconv.Atoi(str(a[1]))
	if err != nil || numKeys < 0 || 2+numKeys > len(a) {
		return resp.Error("ERR Number of keys can't be negative")
	}
	keys := strSlice(a[2 : 2+numKeys])
	argv := a[2+numKeys:]

	var body string
	if byHash {
		hash := strings.ToLower(str(a[0]))
		b, ok := c.srv.Scripts.Get(hash)
		if !ok {
			return resp.Error("NOSCRIPT No matching script. Please use EVAL.")
		}
		body = b
	} else {
		body = str(a[0])
		c.srv.Scripts.Load(body)
	}

	physKeys := make([]string, len(keys))
	for i, k := range keys {
		physKeys[i] = c.phys(k)
	}

	caller := func(db int, args [][]byte) script.Reply {
		cmd, perr := command.Parse(args)
		if perr != nil {
			return script.Reply{Kind: script.ReplyError, Err: perr.Error()}
		}
		if vErr := command.Validate(cmd); vErr != nil {
			return script.Reply{Kind: script.ReplyError, Err: vErr.Error()}
		}
		saved := c.db
		c.db = db
		frames := c.dispatch(cmd)
		c.db = saved
		if len(frames) != 1 {
			return script.Reply{Kind: script.ReplyArray}
		}
		return frameToReply(frames[0])
	}

	reply, err := c.srv.Scripts.Eval(body, physKeys, argv, c.db, caller)
	if err != nil {
		return resp.Error(fmt.Sprintf("ERR %v", err))
	}
	return replyToFrame(reply)
}

func (c *Conn) handleScript(a [][]byte) resp.Frame {
	switch up(a[0]) {
	case "LOAD":
		hash := c.srv.Scripts.Load(str(a[1]))
		return resp.BulkString([]byte(hash))
	case "EXISTS":
		hashes := strSlice(a[1:])
		exists := c.srv.Scripts.Exists(hashes)
		elems := make([]resp.Frame, len(exists))
		for i, ok := range exists {
			elems[i] = resp.Integer(boolInt(ok))
		}
		return resp.Array(elems...)
	case "FLUSH":
		c.srv.Scripts.Flush()
		return resp.SimpleString("OK")
	default:
		return resp.Error("ERR syntax error")
	}
}

// frameToReply converts a dispatcher reply into the shape redis.call hands
// back to a running script, the inverse of replyToFrame.
func frameToReply(f resp.Frame) script.Reply {
	switch {
	case f.Typ == resp.TypeBulk && f.Bulk == nil:
		return script.Reply{Kind: script.ReplyNil}
	case f.Typ == resp.TypeArray && f.Array == nil:
		return script.Reply{Kind: script.ReplyNil}
	case f.Typ == resp.TypeBulk:
		return script.Reply{Kind: script.ReplyBulk, Bulk: f.Bulk}
	case f.Typ == resp.TypeInteger:
		return script.Reply{Kind: script.ReplyInteger, Int: f.Int}
	case f.Typ == resp.TypeSimpleString:
		return script.Reply{Kind: script.ReplyStatus, Status: f.Str}
	case f.Typ == resp.TypeError:
		return script.Reply{Kind: script.ReplyError, Err: f.Str}
	case f.Typ == resp.TypeArray:
		elems := make([]script.Reply, len(f.Array))
		for i, e := range f.Array {
			elems[i] = frameToReply(e)
		}
		return script.Reply{Kind: script.ReplyArray, Array: elems}
	default:
		return script.Reply{Kind: script.ReplyNil}
	}
}

// replyToFrame converts a script's final Reply into the RESP frame EVAL
// sends back to the client, the inverse of frameToReply.
func replyToFrame(r script.Reply) resp.Frame {
	switch r.Kind {
	case script.ReplyNil:
		return resp.NullBulk()
	case script.ReplyInteger:
		return resp.Integer(r.Int)
	case script.ReplyBulk:
		return resp.BulkString(r.Bulk)
	case script.ReplyStatus:
		return resp.SimpleString(r.Status)
	case script.ReplyError:
		return resp.Error(r.Err)
	case script.ReplyArray:
		elems := make([]resp.Frame, len(r.Array))
		for i, e := range r.Array {
			elems[i] = replyToFrame(e)
		}
		return resp.Array(elems...)
	default:
		return resp.NullBulk()
	}
}
