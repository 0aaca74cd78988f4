// Package bind binds a deployed contract to Go calls through a provider
package bind

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/govm-net/counter/abi"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/provider"
	"github.com/govm-net/counter/types"
)

var (
	ErrMethodNotFound = errors.New("method not found in descriptor")
	ErrNoSigner       = errors.New("contract is bound without a signer")
)

// DefaultPollInterval is how often PendingTx.Wait asks for the receipt
const DefaultPollInterval = 100 * time.Millisecond

// BoundContract calls one contract at a fixed address
type BoundContract struct {
	address core.Address
	abi     *abi.ABI
	backend provider.Backend
	signer  provider.Signer

	PollInterval time.Duration
}

// NewBoundContract parses descriptor and binds it to address. signer may be
// nil for a read-only binding.
func NewBoundContract(address core.Address, descriptor []byte, backend provider.Backend, signer provider.Signer) (*BoundContract, error) {
	if address == core.ZeroAddress {
		return nil, fmt.Errorf("%w: zero contract address", core.ErrInvalidArgument)
	}
	parsed, err := abi.Parse(descriptor)
	if err != nil {
		return nil, err
	}
	return &BoundContract{
		address:      address,
		abi:          parsed,
		backend:      backend,
		signer:       signer,
		PollInterval: DefaultPollInterval,
	}, nil
}

func (c *BoundContract) Address() core.Address { return c.address }

func (c *BoundContract) ABI() *abi.ABI { return c.abi }

func (c *BoundContract) encode(method string, args []any) (json.RawMessage, error) {
	fn, ok := c.abi.Function(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	return fn.EncodeArgs(args...)
}

// Call runs method read-only and decodes its result into out. out may be
// nil when the result is not needed.
func (c *BoundContract) Call(ctx context.Context, out any, method string, args ...any) error {
	data, err := c.encode(method, args)
	if err != nil {
		return err
	}
	msg := types.CallMsg{To: c.address, Function: method, Args: data}
	if c.signer != nil {
		msg.From = c.signer.Address()
	}
	raw, err := c.backend.CallContract(ctx, msg)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// Transact signs and submits a transaction calling method
func (c *BoundContract) Transact(ctx context.Context, method string, args ...any) (*PendingTx, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	data, err := c.encode(method, args)
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{To: c.address, Function: method, Args: data}
	return submit(ctx, c.backend, c.signer, tx, c.PollInterval)
}

// DeployContract signs and submits a deployment of code. The address of the
// new contract is on the receipt returned by Wait.
func DeployContract(ctx context.Context, backend provider.Backend, signer provider.Signer, code []byte, args json.RawMessage) (*PendingTx, error) {
	tx := &types.Transaction{Code: code, Args: args}
	return submit(ctx, backend, signer, tx, DefaultPollInterval)
}

func submit(ctx context.Context, backend provider.Backend, signer provider.Signer, tx *types.Transaction, interval time.Duration) (*PendingTx, error) {
	tx.From = signer.Address()
	nonce, err := backend.PendingNonce(ctx, tx.From)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	tx.Nonce = nonce
	if err := signer.SignTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	hash, err := backend.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &PendingTx{Hash: hash, backend: backend, interval: interval}, nil
}

// PendingTx is a submitted transaction awaiting its receipt
type PendingTx struct {
	Hash     core.Hash
	backend  provider.Backend
	interval time.Duration
}

// Wait blocks until the receipt is available or ctx is done. A reverted
// transaction returns its receipt together with receipt.Err().
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	interval := p.interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := p.backend.TransactionReceipt(ctx, p.Hash)
		switch {
		case err == nil:
			return receipt, receipt.Err()
		case !errors.Is(err, provider.ErrReceiptNotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
