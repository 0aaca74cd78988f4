package counter

import (
	_ "embed"

	"github.com/govm-net/counter/vm"
)

// Source is the deployable code of the contract
//
//go:embed counter.go
var Source []byte

// CodeHash identifies Source among the registered native contracts
var CodeHash = vm.RegisterNative(Source, handlers)
