package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/govm-net/counter/context"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
)

// defaultBlockchainContext keeps all ledger state in maps
type defaultBlockchainContext struct {
	// Block information
	blockHeight uint64
	blockTime   int64
	blockHash   core.Hash

	// Virtual machine object storage
	objects        map[core.ObjectID]map[string][]byte
	objectOwner    map[core.ObjectID]core.Address
	objectContract map[core.ObjectID]core.Address

	// Accepted transactions
	nonces   map[core.Address]uint64
	receipts map[core.Hash]*types.Receipt
	txs      map[core.Hash]*types.Transaction

	// Current execution context
	contractAddr core.Address
	sender       core.Address
	txHash       core.Hash
	mu           sync.Mutex
}

func init() {
	context.Register(context.MemoryContextType, func(params map[string]any) (types.BlockchainContext, error) {
		return NewBlockchainContext(params), nil
	})
}

// NewBlockchainContext creates an empty in-memory context; params are ignored
func NewBlockchainContext(params map[string]any) types.BlockchainContext {
	return &defaultBlockchainContext{
		objects:        make(map[core.ObjectID]map[string][]byte),
		objectOwner:    make(map[core.ObjectID]core.Address),
		objectContract: make(map[core.ObjectID]core.Address),
		nonces:         make(map[core.Address]uint64),
		receipts:       make(map[core.Hash]*types.Receipt),
		txs:            make(map[core.Hash]*types.Transaction),
	}
}

func (ctx *defaultBlockchainContext) SetBlockInfo(height uint64, time int64, hash core.Hash) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.blockHeight = height
	ctx.blockTime = time
	ctx.blockHash = hash
	return nil
}

func (ctx *defaultBlockchainContext) SetTransactionInfo(hash core.Hash, from core.Address, to core.Address) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.txHash = hash
	ctx.sender = from
	ctx.contractAddr = to
	return nil
}

// BlockHeight gets the current block height
func (ctx *defaultBlockchainContext) BlockHeight() uint64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.blockHeight
}

// BlockTime gets the current block timestamp
func (ctx *defaultBlockchainContext) BlockTime() int64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.blockTime
}

// ContractAddress gets the current contract address
func (ctx *defaultBlockchainContext) ContractAddress() core.Address {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.contractAddr
}

// TransactionHash gets the current transaction hash
func (ctx *defaultBlockchainContext) TransactionHash() core.Hash {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.txHash
}

// Sender gets the transaction sender
func (ctx *defaultBlockchainContext) Sender() core.Address {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.sender
}

// CreateObjectWithID creates an object owned by contract
func (ctx *defaultBlockchainContext) CreateObjectWithID(contract core.Address, id core.ObjectID) (types.VMObject, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if _, exists := ctx.objects[id]; exists {
		return nil, fmt.Errorf("object %s already exists", id)
	}
	ctx.objects[id] = make(map[string][]byte)
	ctx.objectOwner[id] = contract
	ctx.objectContract[id] = contract

	return &vmObject{
		ctx:         ctx,
		objOwner:    contract,
		objContract: contract,
		id:          id,
	}, nil
}

// GetObject gets a specified object
func (ctx *defaultBlockchainContext) GetObject(contract core.Address, id core.ObjectID) (types.VMObject, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	_, exists := ctx.objects[id]
	if !exists || ctx.objectContract[id] != contract {
		return nil, core.ErrObjectNotFound
	}

	return &vmObject{
		ctx:         ctx,
		objOwner:    ctx.objectOwner[id],
		objContract: ctx.objectContract[id],
		id:          id,
	}, nil
}

// Log records events
func (ctx *defaultBlockchainContext) Log(contract core.Address, eventName string, keyValues ...any) {
	params := []any{
		"contract", contract,
		"event", eventName,
	}
	params = append(params, keyValues...)
	slog.Info("Contract log", params...)
}

// Nonce returns how many transactions addr has sent
func (ctx *defaultBlockchainContext) Nonce(addr core.Address) uint64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.nonces[addr]
}

// SaveReceipt stores the transaction and its receipt and advances the
// sender's nonce
func (ctx *defaultBlockchainContext) SaveReceipt(tx *types.Transaction, receipt *types.Receipt) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if _, exists := ctx.receipts[receipt.TxHash]; exists {
		return fmt.Errorf("receipt %s already stored", receipt.TxHash.Hex())
	}
	ctx.txs[receipt.TxHash] = tx
	ctx.receipts[receipt.TxHash] = receipt
	ctx.nonces[tx.From]++
	return nil
}

// Receipt returns a stored receipt
func (ctx *defaultBlockchainContext) Receipt(hash core.Hash) (*types.Receipt, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	r, ok := ctx.receipts[hash]
	if !ok {
		return nil, types.ErrReceiptNotFound
	}
	return r, nil
}

func (ctx *defaultBlockchainContext) Close() error {
	return nil
}

func (ctx *defaultBlockchainContext) setObjectField(id core.ObjectID, field string, value []byte) {
	obj, exists := ctx.objects[id]
	if !exists {
		obj = make(map[string][]byte)
	}
	obj[field] = append([]byte(nil), value...)
	ctx.objects[id] = obj
}

func (ctx *defaultBlockchainContext) getObjectField(id core.ObjectID, field string) ([]byte, bool) {
	obj, exists := ctx.objects[id]
	if !exists {
		return nil, false
	}
	v, ok := obj[field]
	return v, ok
}

// vmObject implements the object interface
type vmObject struct {
	ctx         *defaultBlockchainContext
	objOwner    core.Address
	objContract core.Address
	id          core.ObjectID
}

// ID gets the object ID
func (o *vmObject) ID() core.ObjectID {
	return o.id
}

// Owner gets the object owner
func (o *vmObject) Owner() core.Address {
	return o.objOwner
}

// Contract gets the object's contract
func (o *vmObject) Contract() core.Address {
	return o.objContract
}

// Get gets the field value
func (o *vmObject) Get(contract core.Address, field string) ([]byte, error) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	if contract != o.objContract {
		return nil, fmt.Errorf("invalid contract")
	}
	fieldValue, ok := o.ctx.getObjectField(o.id, field)
	if !ok {
		return nil, types.ErrFieldNotFound
	}

	return append([]byte(nil), fieldValue...), nil
}

// Set sets the field value
func (o *vmObject) Set(contract core.Address, sender core.Address, field string, value []byte) error {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	if contract != o.objContract {
		return fmt.Errorf("invalid contract")
	}
	if sender != o.objOwner && contract != o.objOwner {
		return errors.New("not owner")
	}
	o.ctx.setObjectField(o.id, field, value)
	return nil
}
