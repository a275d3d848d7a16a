// Package script implements EVAL/EVALSHA against a real Lua runtime,
// re-entering the command dispatcher via redis.call/redis.pcall.
//
// Grounded on original_source/scripting.rs's execute(script, keys, args,
// storage, db) -> ScriptResult contract (spec.md §6); the original binds
// against mlua, this binds against github.com/yuin/gopher-lua, chosen per
// DESIGN.md's Open Question decision over a JS engine since the spec's
// own prototype is Lua-shaped end to end (global KEYS/ARGV tables, a
// redis.call/pcall surface, 1:1 reply-shape mapping).
package script

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ReplyKind tags a Reply's active field, mirroring the closed set of RESP
// reply shapes a script can produce or receive from redis.call.
type ReplyKind int

const (
	ReplyNil ReplyKind = iota
	ReplyInteger
	ReplyBulk
	ReplyArray
	ReplyStatus
	ReplyError
)

// Reply is the scripting engine's ScriptResult: each variant maps 1:1 to a
// RESP reply shape, per spec.md §6.
type Reply struct {
	Kind   ReplyKind
	Int    int64
	Bulk   []byte
	Array  []Reply
	Status string
	Err    string
}

// Caller re-enters the command dispatcher for one redis.call/pcall
// invocation: args[0] is the command name, the rest its arguments. The
// server supplies this as a closure over its own dispatch so this package
// never imports the dispatcher (no import cycle).
type Caller func(db int, args [][]byte) Reply

// Engine caches loaded scripts by their SHA-1 hex digest (EVALSHA /
// SCRIPT LOAD|EXISTS|FLUSH) and evaluates them against gopher-lua.
type Engine struct {
	mu    sync.Mutex
	cache map[string]string
}

// New builds an empty script cache.
func New() *Engine {
	return &Engine{cache: make(map[string]string)}
}

// SHA1Hex returns the lowercase hex SHA-1 digest EVALSHA/SCRIPT use as the
// cache key.
func SHA1Hex(body string) string {
	sum := sha1.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Load caches body under its SHA-1 digest (SCRIPT LOAD / implicit EVAL
// caching), returning the digest.
func (e *Engine) Load(body string) string {
	hash := SHA1Hex(body)
	e.mu.Lock()
	e.cache[hash] = body
	e.mu.Unlock()
	return hash
}

// Get returns the cached script body for a digest (EVALSHA lookup).
func (e *Engine) Get(hash string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	body, ok := e.cache[hash]
	return body, ok
}

// Exists reports whether each of the given digests is cached (SCRIPT EXISTS).
func (e *Engine) Exists(hashes []string) []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]bool, len(hashes))
	for i, h := range hashes {
		_, out[i] = e.cache[h]
	}
	return out
}

// Flush empties the script cache (SCRIPT FLUSH).
func (e *Engine) Flush() {
	e.mu.Lock()
	e.cache = make(map[string]string)
	e.mu.Unlock()
}

// Eval runs body in a fresh Lua state with KEYS/ARGV bound and a
// redis.call/redis.pcall surface wired to call, returning the script's
// final value converted to a Reply.
func (e *Engine) Eval(body string, keys []string, argv [][]byte, db int, call Caller) (reply Reply, err error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	defer L.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script: panic: %v", r)
		}
	}()

	keysTable := L.NewTable()
	for i, k := range keys {
		L.RawSetInt(keysTable, i+1, lua.LString(k))
	}
	L.SetGlobal("KEYS", keysTable)

	argvTable := L.NewTable()
	for i, a := range argv {
		L.RawSetInt(argvTable, i+1, lua.LString(string(a)))
	}
	L.SetGlobal("ARGV", argvTable)

	redisTable := L.NewTable()
	L.SetField(redisTable, "call", L.NewFunction(e.callFn(db, call, false)))
	L.SetField(redisTable, "pcall", L.NewFunction(e.callFn(db, call, true)))
	L.SetField(redisTable, "sha1hex", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(SHA1Hex(L.ToString(1))))
		return 1
	}))
	L.SetGlobal("redis", redisTable)

	if doErr := L.DoString(body); doErr != nil {
		return Reply{}, doErr
	}
	ret := L.Get(-1)
	L.Pop(1)
	return luaToReply(ret), nil
}

func (e *Engine) callFn(db int, call Caller, pcall bool) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		if n == 0 {
			return raiseOrReturn(L, pcall, "Please specify at least one argument for this redis lib call")
		}
		args := make([][]byte, n)
		for i := 1; i <= n; i++ {
			args[i-1] = []byte(L.ToString(i))
		}
		result := call(db, args)
		if result.Kind == ReplyError {
			return raiseOrReturn(L, pcall, result.Err)
		}
		L.Push(replyToLua(L, result))
		return 1
	}
}

func raiseOrReturn(L *lua.LState, pcall bool, msg string) int {
	if pcall {
		t := L.NewTable()
		L.SetField(t, "err", lua.LString(msg))
		L.Push(t)
		return 1
	}
	L.RaiseError(msg)
	return 0
}

// replyToLua converts a dispatcher Reply (the result of redis.call) into
// the Lua value a script sees, following upstream's documented conversion:
// integers and bulk strings pass through natively, status replies become
// {ok = "STATUS"} tables, arrays become 1-indexed tables, nil becomes
// Lua false.
func replyToLua(L *lua.LState, r Reply) lua.LValue {
	switch r.Kind {
	case ReplyNil:
		return lua.LFalse
	case ReplyInteger:
		return lua.LNumber(r.Int)
	case ReplyBulk:
		return lua.LString(string(r.Bulk))
	case ReplyStatus:
		t := L.NewTable()
		L.SetField(t, "ok", lua.LString(r.Status))
		return t
	case ReplyArray:
		t := L.NewTable()
		for i, elem := range r.Array {
			L.RawSetInt(t, i+1, replyToLua(L, elem))
		}
		return t
	default:
		return lua.LFalse
	}
}

// luaToReply converts a script's final return value into a Reply,
// following the inverse of replyToLua: strings become bulk replies,
// numbers become integers (truncated), true becomes integer 1, false/nil
// become a nil reply, a table with an "err" field becomes an error
// reply, one with an "ok" field becomes a status reply, otherwise the
// table is read as a 1-indexed array until the first nil hole.
func luaToReply(v lua.LValue) Reply {
	switch val := v.(type) {
	case lua.LString:
		return Reply{Kind: ReplyBulk, Bulk: []byte(string(val))}
	case lua.LNumber:
		return Reply{Kind: ReplyInteger, Int: int64(val)}
	case lua.LBool:
		if bool(val) {
			return Reply{Kind: ReplyInteger, Int: 1}
		}
		return Reply{Kind: ReplyNil}
	case *lua.LTable:
		if errVal := val.RawGetString("err"); errVal != lua.LNil {
			return Reply{Kind: ReplyError, Err: errVal.String()}
		}
		if okVal := val.RawGetString("ok"); okVal != lua.LNil {
			return Reply{Kind: ReplyStatus, Status: okVal.String()}
		}
		var arr []Reply
		for i := 1; ; i++ {
			elem := val.RawGetInt(i)
			if elem == lua.LNil {
				break
			}
			arr = append(arr, luaToReply(elem))
		}
		return Reply{Kind: ReplyArray, Array: arr}
	default:
		return Reply{Kind: ReplyNil}
	}
}
