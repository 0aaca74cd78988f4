package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"github.com/govm-net/counter/vm"
)

// Local is a Backend that drives an in-process engine
type Local struct {
	engine *vm.Engine
}

func NewLocal(engine *vm.Engine) *Local {
	return &Local{engine: engine}
}

func (l *Local) CallContract(ctx context.Context, msg types.CallMsg) (json.RawMessage, error) {
	return l.engine.Call(ctx, msg)
}

func (l *Local) PendingNonce(ctx context.Context, addr core.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.engine.Nonce(addr), nil
}

// SendTransaction applies tx immediately; its receipt is available as soon
// as the call returns.
func (l *Local) SendTransaction(ctx context.Context, tx *types.Transaction) (core.Hash, error) {
	receipt, err := l.engine.ApplyTransaction(ctx, tx)
	if err != nil {
		return core.ZeroHash, err
	}
	return receipt.TxHash, nil
}

func (l *Local) TransactionReceipt(ctx context.Context, hash core.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	receipt, err := l.engine.Receipt(hash)
	if errors.Is(err, types.ErrReceiptNotFound) {
		return nil, ErrReceiptNotFound
	}
	return receipt, err
}

// Descriptor returns the interface descriptor of the contract at addr
func (l *Local) Descriptor(ctx context.Context, addr core.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.engine.Descriptor(addr)
}
