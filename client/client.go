// Package client is the counter front end: it connects through an injected
// provider, binds to the counter contract and turns user actions into
// transactions.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/govm-net/counter/bind"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/provider"
)

const MissingProviderMessage = "Please install MetaMask!"

// ViewState is everything the rendered surface shows
type ViewState struct {
	DisplayedCount uint64 `json:"displayed_count"`
	Bound          bool   `json:"bound"`
	LastError      string `json:"last_error,omitempty"`
}

// Options tunes behaviour the default surface leaves off
type Options struct {
	// SurfaceReadErrors records a failed read as "Error getting count: ..."
	// instead of only logging it
	SurfaceReadErrors bool
	// RefreshAfterMutation re-reads the count after a confirmed mutation
	RefreshAfterMutation bool
	Logger               *slog.Logger
}

// Client owns one session's view state. It is safe for concurrent use;
// a mutation triggered while another is in flight is dropped.
type Client struct {
	provider   provider.Provider
	address    core.Address
	descriptor []byte
	opts       Options
	logger     *slog.Logger

	mu       sync.Mutex
	state    ViewState
	contract *bind.BoundContract

	inFlight atomic.Bool
}

// New creates a client for the contract at address. p may be nil, which
// Start reports as a missing wallet.
func New(p provider.Provider, address core.Address, descriptor []byte, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider:   p,
		address:    address,
		descriptor: descriptor,
		opts:       opts,
		logger:     logger.With("component", "client", "contract", address.Hex()),
	}
}

// State returns a snapshot of the view state
func (c *Client) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setError(msg string) {
	c.mu.Lock()
	c.state.LastError = msg
	c.mu.Unlock()
}

func (c *Client) bound() *bind.BoundContract {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contract
}

// Start connects to the wallet, binds the contract and reads the count
func (c *Client) Start(ctx context.Context) {
	if c.provider == nil {
		c.logger.Warn("No wallet provider")
		c.setError(MissingProviderMessage)
		return
	}

	contract, err := c.connect(ctx)
	if err != nil {
		c.logger.Error("Error connecting to contract", "error", err)
		c.setError(fmt.Sprintf("Error connecting to contract: %v", err))
		return
	}

	c.mu.Lock()
	c.contract = contract
	c.state.Bound = true
	c.mu.Unlock()
	c.logger.Info("Contract bound")

	c.refresh(ctx, contract)
}

func (c *Client) connect(ctx context.Context) (*bind.BoundContract, error) {
	if _, err := c.provider.RequestAccounts(ctx); err != nil {
		return nil, err
	}
	signer, err := c.provider.Signer(ctx)
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(c.address, c.descriptor, c.provider, signer)
}

// Refresh re-reads the count. It does nothing before Start has bound the
// contract.
func (c *Client) Refresh(ctx context.Context) {
	contract := c.bound()
	if contract == nil {
		return
	}
	c.refresh(ctx, contract)
}

func (c *Client) refresh(ctx context.Context, contract *bind.BoundContract) {
	var count uint64
	if err := contract.Call(ctx, &count, "GetCount"); err != nil {
		c.logger.Error("Error getting count", "error", err)
		if c.opts.SurfaceReadErrors {
			c.setError(fmt.Sprintf("Error getting count: %v", err))
		}
		return
	}
	c.mu.Lock()
	c.state.DisplayedCount = count
	c.mu.Unlock()
}

func (c *Client) Increment(ctx context.Context) {
	c.mutate(ctx, "Increment", "incrementing")
}

func (c *Client) Decrement(ctx context.Context) {
	c.mutate(ctx, "Decrement", "decrementing")
}

func (c *Client) mutate(ctx context.Context, method, verb string) {
	contract := c.bound()
	if contract == nil {
		return
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Warn("Mutation dropped, another is in flight", "method", method)
		return
	}
	defer c.inFlight.Store(false)

	pending, err := contract.Transact(ctx, method)
	if err == nil {
		_, err = pending.Wait(ctx)
	}
	if err != nil {
		c.logger.Error("Error "+verb, "error", err)
		c.setError(fmt.Sprintf("Error %s: %v", verb, err))
		return
	}
	c.logger.Info("Transaction confirmed", "method", method, "tx", pending.Hash.Hex())

	if c.opts.RefreshAfterMutation {
		c.refresh(ctx, contract)
	}
}
