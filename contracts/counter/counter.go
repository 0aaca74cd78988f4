// Package counter is a single-value counter contract. The value never drops
// below zero and every change emits CountChanged with the new value.
package counter

import (
	"github.com/govm-net/counter/core"
)

// state key of the counter value in the default object
const countKey = "count"

// Initialize stores the starting value. The engine calls it once, while the
// contract is being deployed.
func Initialize(ctx core.Context, startValue uint64) {
	obj, err := ctx.GetObject(core.ObjectID{})
	core.Assert(err)
	core.Require(!obj.Has(countKey), "Counter: already initialized")
	core.Assert(obj.Set(countKey, startValue))
}

// GetCount returns the current value
func GetCount(ctx core.Context) uint64 {
	obj, err := ctx.GetObject(core.ObjectID{})
	core.Assert(err)

	var value uint64
	core.Assert(obj.Get(countKey, &value))
	return value
}

// Increment adds one. At the largest representable value it reverts instead
// of wrapping to zero.
func Increment(ctx core.Context) uint64 {
	obj, err := ctx.GetObject(core.ObjectID{})
	core.Assert(err)

	var value uint64
	core.Assert(obj.Get(countKey, &value))
	core.Require(value != ^uint64(0), "Counter: cannot increment above maximum")

	value++
	core.Assert(obj.Set(countKey, value))
	ctx.Log("CountChanged", "newValue", value)
	return value
}

// Decrement subtracts one and reverts when the value is already zero
func Decrement(ctx core.Context) uint64 {
	obj, err := ctx.GetObject(core.ObjectID{})
	core.Assert(err)

	var value uint64
	core.Assert(obj.Get(countKey, &value))
	core.Require(value > 0, "Counter: cannot decrement below zero")

	value--
	core.Assert(obj.Set(countKey, value))
	ctx.Log("CountChanged", "newValue", value)
	return value
}
