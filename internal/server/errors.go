package server

import (
	"errors"
	"fmt"

	"github.com/tmfc/redust/internal/resp"
	"github.com/tmfc/redust/internal/store"
)

// storeErrorFrame renders one of the store's closed sentinel errors into
// its documented RESP error text (spec.md §7); the store itself never
// speaks RESP, so this boundary lives here in the dispatcher.
func storeErrorFrame(err error) resp.Frame {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return resp.NullBulk()
	case errors.Is(err, store.ErrWrongType):
		return resp.Error("WRONGTYPE Operation against a key holding the wrong kind of value")
	case errors.Is(err, store.ErrNotInteger):
		return resp.Error("ERR value is not an integer or out of range")
	case errors.Is(err, store.ErrNotFloat):
		return resp.Error("ERR value is not a valid float")
	case errors.Is(err, store.ErrSyntax):
		return resp.Error("ERR syntax error")
	case errors.Is(err, store.ErrOOM):
		return resp.Error("OOM command not allowed when used memory > 'maxmemory'")
	case errors.Is(err, store.ErrMaxValue):
		return resp.Error(fmt.Sprintf("ERR value exceeds %s", "REDUST_MAXVALUE_BYTES"))
	default:
		return resp.Error("ERR " + err.Error())
	}
}
