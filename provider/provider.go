// Package provider is the boundary between a client and the ledger: it
// hands out accounts and signers and carries calls, transactions and
// receipts to a backend.
package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
)

//go:generate mockgen -source=provider.go -destination=mock_provider.go -package=provider

var (
	ErrUserRejected    = errors.New("user rejected the request")
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrNoAccounts      = errors.New("no accounts available")
	ErrNotConnected    = errors.New("accounts have not been requested")
)

// Backend reaches a ledger
type Backend interface {
	// CallContract executes a read-only call and returns its JSON result
	CallContract(ctx context.Context, msg types.CallMsg) (json.RawMessage, error)
	// PendingNonce returns the nonce the next transaction from addr must carry
	PendingNonce(ctx context.Context, addr core.Address) (uint64, error)
	// SendTransaction submits a signed transaction and returns its hash
	SendTransaction(ctx context.Context, tx *types.Transaction) (core.Hash, error)
	// TransactionReceipt returns ErrReceiptNotFound until tx is sealed
	TransactionReceipt(ctx context.Context, hash core.Hash) (*types.Receipt, error)
}

// Signer authorises transactions on behalf of one address
type Signer interface {
	Address() core.Address
	SignTx(ctx context.Context, tx *types.Transaction) error
}

// Provider is what a wallet injects into a client
type Provider interface {
	Backend
	// RequestAccounts asks the user for access and returns the granted
	// addresses. It may block until the user answers.
	RequestAccounts(ctx context.Context) ([]core.Address, error)
	// Signer returns the signer of the first granted account
	Signer(ctx context.Context) (Signer, error)
}
