package vm

import (
	"fmt"
	"sync"

	"github.com/govm-net/counter/core"
)

// Handler dispatches one contract function. params is the JSON object of
// the function's arguments; the result is JSON-encoded into the receipt.
type Handler = func(ctx core.Context, params []byte) (any, error)

// Native is a contract compiled into the host binary
type Native struct {
	Hash     core.Hash
	Handlers map[string]Handler
}

var (
	nativeMu sync.RWMutex
	natives  = make(map[core.Hash]*Native)
)

// RegisterNative makes code deployable. A deployment is served by the native
// implementation whose source hashes the same as the deployed code. It
// panics when the same code is registered twice.
func RegisterNative(code []byte, handlers map[string]Handler) core.Hash {
	hash := core.GetHash(code)

	nativeMu.Lock()
	defer nativeMu.Unlock()
	if _, dup := natives[hash]; dup {
		panic(fmt.Sprintf("vm: native contract %s registered twice", hash))
	}
	natives[hash] = &Native{Hash: hash, Handlers: handlers}
	return hash
}

func lookupNative(code []byte) (*Native, bool) {
	nativeMu.RLock()
	defer nativeMu.RUnlock()
	n, ok := natives[core.GetHash(code)]
	return n, ok
}
