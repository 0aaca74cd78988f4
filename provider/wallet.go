package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/govm-net/counter/core"
)

// Approver decides whether a request for accounts is granted. It stands in
// for the confirmation dialog of a browser wallet.
type Approver func(ctx context.Context, accounts []core.Address) error

// AutoApprove grants every request
func AutoApprove(context.Context, []core.Address) error { return nil }

// Wallet is a Provider backed by local signers
type Wallet struct {
	Backend
	signers  []Signer
	approver Approver
	logger   *slog.Logger

	mu      sync.Mutex
	granted bool
}

// WalletOption configures a Wallet
type WalletOption func(*Wallet)

// WithApprover sets the function consulted by RequestAccounts
func WithApprover(a Approver) WalletOption {
	return func(w *Wallet) { w.approver = a }
}

// NewWallet returns a provider that signs with signers and forwards
// everything else to backend. Requests are auto-approved unless an
// approver is given.
func NewWallet(backend Backend, signers []Signer, opts ...WalletOption) *Wallet {
	w := &Wallet{
		Backend:  backend,
		signers:  signers,
		approver: AutoApprove,
		logger:   slog.Default().With("component", "wallet-provider"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wallet) RequestAccounts(ctx context.Context) ([]core.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(w.signers) == 0 {
		return nil, ErrNoAccounts
	}
	accounts := make([]core.Address, len(w.signers))
	for i, s := range w.signers {
		accounts[i] = s.Address()
	}
	if err := w.approver(ctx, accounts); err != nil {
		w.logger.Info("Account request denied", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
	}

	w.mu.Lock()
	w.granted = true
	w.mu.Unlock()
	w.logger.Debug("Accounts granted", "count", len(accounts))
	return accounts, nil
}

func (w *Wallet) Signer(ctx context.Context) (Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.granted {
		return nil, ErrNotConnected
	}
	return w.signers[0], nil
}
