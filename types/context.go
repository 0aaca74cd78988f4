// Package types contains the host-side definitions shared by the execution
// engine, the state contexts and the ledger transport
package types

import (
	"errors"

	"github.com/govm-net/counter/core"
)

var (
	ErrFieldNotFound   = errors.New("field does not exist")
	ErrReceiptNotFound = errors.New("receipt not found")
)

// BlockchainContext is the state a contract executes against. Implementations
// are registered in the context package and selected by name.
type BlockchainContext interface {
	// set block info and transaction info
	SetBlockInfo(height uint64, time int64, hash core.Hash) error
	SetTransactionInfo(hash core.Hash, from core.Address, to core.Address) error

	// Blockchain information related
	BlockHeight() uint64           // Get current block height
	BlockTime() int64              // Get current block timestamp
	ContractAddress() core.Address // Get current contract address
	TransactionHash() core.Hash    // Get current transaction hash
	Sender() core.Address          // Get transaction sender

	// Object storage related
	CreateObjectWithID(contract core.Address, id core.ObjectID) (VMObject, error) // Create new object
	GetObject(contract core.Address, id core.ObjectID) (VMObject, error)          // Get specified object

	// Logs and events
	Log(contract core.Address, eventName string, keyValues ...any)

	// Transactions and receipts
	Nonce(addr core.Address) uint64                       // Number of transactions accepted from addr
	SaveReceipt(tx *Transaction, receipt *Receipt) error // Persist an executed transaction
	Receipt(hash core.Hash) (*Receipt, error)            // ErrReceiptNotFound when unknown

	Close() error
}

// VMObject is the host-side view of a state object
type VMObject interface {
	ID() core.ObjectID      // Get object ID
	Owner() core.Address    // Get object owner
	Contract() core.Address // Get object's contract

	// Field operations; Get returns ErrFieldNotFound for a missing field
	Get(contract core.Address, field string) ([]byte, error)
	Set(contract, sender core.Address, field string, value []byte) error
}
