// Package vm executes Go contracts against a pluggable state context
package vm

import (
	stdcontext "context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/govm-net/counter/abi"
	"github.com/govm-net/counter/api"
	"github.com/govm-net/counter/context"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/repository"
	"github.com/govm-net/counter/types"
)

var (
	ErrNonceMismatch    = errors.New("nonce mismatch")
	ErrKnownTransaction = errors.New("transaction already known")
	ErrUnknownCode      = errors.New("no native implementation for contract code")
	ErrClosed           = errors.New("engine closed")
)

// Engine is responsible for contract deployment and execution. Transactions
// are applied one at a time; each is sealed into its own block.
type Engine struct {
	config         *Config
	contractConfig api.ContractConfig
	codeManager    *repository.Manager
	ctx            types.BlockchainContext // Blockchain context
	feed           *eventFeed
	logger         *slog.Logger

	mu        sync.Mutex
	contracts map[core.Address]*loadedContract
	height    uint64
	closed    bool
}

// Config represents engine configuration
type Config struct {
	MaxContractSize int            // Maximum contract size
	CodeManagerDir  string         // Code manager storage directory
	ContextType     string         // Blockchain context type
	ContextParams   map[string]any // Blockchain context parameters
	GasLimit        int64          // Upper bound for a single execution
	Clock           func() time.Time
}

type loadedContract struct {
	abi        *abi.ABI
	descriptor []byte
	native     *Native
}

// NewEngine creates a new contract engine
func NewEngine(config *Config) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	codeManager, err := repository.NewManager(config.CodeManagerDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create code manager: %w", err)
	}
	ctx, err := context.Get(context.ContextType(config.ContextType), config.ContextParams)
	if err != nil {
		return nil, fmt.Errorf("failed to get context: %w", err)
	}

	contractConfig := api.DefaultContractConfig()
	if config.MaxContractSize > 0 {
		contractConfig.MaxCodeSize = config.MaxContractSize
	}

	logger := slog.Default().With("component", "engine")
	e := &Engine{
		config:         config,
		contractConfig: contractConfig,
		codeManager:    codeManager,
		ctx:            ctx,
		feed:           newEventFeed(logger),
		logger:         logger,
		contracts:      make(map[core.Address]*loadedContract),
		height:         ctx.BlockHeight(),
	}
	logger.Info("Engine started", "context", context.ContextType(config.ContextType), "height", e.height)
	return e, nil
}

// validateConfig validates the configuration and fills in defaults
func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.MaxContractSize < 0 {
		return fmt.Errorf("invalid max contract size: %d", config.MaxContractSize)
	}
	if config.CodeManagerDir == "" {
		return fmt.Errorf("code manager directory is empty")
	}
	if config.GasLimit <= 0 {
		config.GasLimit = types.DefaultGasLimit
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return nil
}

// GetContext returns the state context the engine executes against
func (e *Engine) GetContext() types.BlockchainContext {
	return e.ctx
}

// BlockHeight returns the height of the last sealed block
func (e *Engine) BlockHeight() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.height
}

// Deploy deploys code on behalf of from without a signature. It is meant
// for trusted callers such as genesis setup and tests; remote callers go
// through ApplyTransaction. args is the JSON object passed to Initialize.
func (e *Engine) Deploy(ctx stdcontext.Context, from core.Address, code []byte, args json.RawMessage) (core.Address, error) {
	if err := ctx.Err(); err != nil {
		return core.ZeroAddress, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &types.Transaction{
		From:  from,
		Nonce: e.ctx.Nonce(from),
		Args:  args,
		Code:  code,
	}
	receipt, err := e.apply(tx)
	if err != nil {
		return core.ZeroAddress, err
	}
	if err := receipt.Err(); err != nil {
		return core.ZeroAddress, err
	}
	return receipt.ContractAddress, nil
}

// ApplyTransaction verifies a signed transaction, executes it and seals it
// into a new block. A transaction that executes but reverts still yields a
// receipt, with a failed status; an error means the transaction was not
// accepted at all.
func (e *Engine) ApplyTransaction(ctx stdcontext.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tx.Verify(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(tx)
}

func (e *Engine) apply(tx *types.Transaction) (*types.Receipt, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if expected := e.ctx.Nonce(tx.From); tx.Nonce != expected {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, expected, tx.Nonce)
	}
	hash := tx.Hash()
	if _, err := e.ctx.Receipt(hash); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKnownTransaction, hash.Hex())
	}

	gasLimit := tx.GasLimit
	if gasLimit <= 0 || gasLimit > e.config.GasLimit {
		gasLimit = e.config.GasLimit
	}

	height := e.height + 1
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], height)
	if err := e.ctx.SetBlockInfo(height, e.config.Clock().Unix(), core.Keccak256(h[:], hash[:])); err != nil {
		return nil, fmt.Errorf("failed to set block info: %w", err)
	}

	receipt := &types.Receipt{
		TxHash:      hash,
		BlockHeight: height,
		From:        tx.From,
		To:          tx.To,
	}
	meter := NewGasMeter(gasLimit)

	var (
		result any
		events []types.Event
		err    error
	)
	if tx.IsDeployment() {
		addr := core.ContractAddress(tx.From, tx.Nonce)
		receipt.ContractAddress = addr
		if err := e.ctx.SetTransactionInfo(hash, tx.From, addr); err != nil {
			return nil, fmt.Errorf("failed to set transaction info: %w", err)
		}
		events, err = e.deploy(addr, tx.From, tx.Code, tx.Args, meter)
	} else {
		if err := e.ctx.SetTransactionInfo(hash, tx.From, tx.To); err != nil {
			return nil, fmt.Errorf("failed to set transaction info: %w", err)
		}
		result, events, err = e.execute(tx.To, tx.From, tx.Function, tx.Args, meter, true)
	}
	receipt.GasUsed = meter.Used()

	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.ContractAddress = core.ZeroAddress
		if reason, ok := core.ReasonOf(err); ok {
			receipt.RevertReason = reason
		} else {
			receipt.Error = err.Error()
		}
		e.logger.Info("Transaction failed", "tx", hash.Hex(), "function", tx.Function, "error", err)
	} else {
		receipt.Status = types.ReceiptStatusSuccessful
		if result != nil {
			if receipt.Result, err = json.Marshal(result); err != nil {
				return nil, fmt.Errorf("failed to encode result: %w", err)
			}
		}
		for i := range events {
			events[i].BlockHeight = height
			events[i].TxHash = hash
		}
		receipt.Events = events
	}

	if err := e.ctx.SaveReceipt(tx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}
	e.height = height
	e.feed.publish(receipt.Events)

	e.logger.Debug("Block sealed", "height", height, "tx", hash.Hex(), "status", receipt.Status, "gas", receipt.GasUsed)
	return receipt, nil
}

// deploy validates code, runs its Initialize function and registers it at
// addr. Nothing is written when Initialize fails.
func (e *Engine) deploy(addr, from core.Address, code []byte, args json.RawMessage, meter *GasMeter) ([]types.Event, error) {
	if err := meter.Consume(GasDeploy + int64(len(code))*GasPerByte); err != nil {
		return nil, err
	}
	if e.codeManager.Exists(addr) {
		return nil, fmt.Errorf("contract already exists: %s", addr.Hex())
	}
	if err := api.ValidateContract(code, e.contractConfig); err != nil {
		return nil, fmt.Errorf("contract validation failed: %w", err)
	}
	contractABI, err := abi.ExtractABI(code)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	native, ok := lookupNative(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCode, core.GetHash(code))
	}
	descriptor, err := contractABI.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ABI: %w", err)
	}

	ov := newOverlay(e.ctx, addr, from, meter)
	if _, ok := contractABI.Function("Initialize"); ok {
		handler, ok := native.Handlers["Initialize"]
		if !ok {
			return nil, fmt.Errorf("%w: Initialize", core.ErrFunctionNotFound)
		}
		if _, err := ov.run(handler, args); err != nil {
			return nil, err
		}
	}

	if err := e.codeManager.RegisterCode(addr, from, code, descriptor); err != nil {
		return nil, fmt.Errorf("failed to save contract code: %w", err)
	}
	if err := ov.commit(); err != nil {
		return nil, err
	}
	e.contracts[addr] = &loadedContract{abi: contractABI, descriptor: descriptor, native: native}

	e.logger.Info("Contract deployed", "address", addr.Hex(), "package", contractABI.PackageName, "deployer", from.Hex())
	return ov.events, nil
}

func (e *Engine) execute(addr, sender core.Address, function string, args json.RawMessage, meter *GasMeter, commit bool) (any, []types.Event, error) {
	c, err := e.loadContract(addr)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := c.abi.Function(function); !ok {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrFunctionNotFound, function)
	}
	handler, ok := c.native.Handlers[function]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrFunctionNotFound, function)
	}

	ov := newOverlay(e.ctx, addr, sender, meter)
	result, err := ov.run(handler, args)
	if err != nil {
		return nil, nil, err
	}
	if commit {
		if err := ov.commit(); err != nil {
			return nil, nil, err
		}
	}
	return result, ov.events, nil
}

func (e *Engine) loadContract(addr core.Address) (*loadedContract, error) {
	if c, ok := e.contracts[addr]; ok {
		return c, nil
	}
	code, err := e.codeManager.GetCode(addr)
	if err != nil {
		return nil, err
	}
	contractABI, err := abi.Parse(code.Descriptor)
	if err != nil {
		return nil, err
	}
	native, ok := lookupNative(code.Code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCode, code.Hash)
	}
	c := &loadedContract{abi: contractABI, descriptor: code.Descriptor, native: native}
	e.contracts[addr] = c
	return c, nil
}

// Call executes a read-only call and discards every write it makes
func (e *Engine) Call(ctx stdcontext.Context, msg types.CallMsg) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	if err := e.ctx.SetTransactionInfo(core.ZeroHash, msg.From, msg.To); err != nil {
		return nil, fmt.Errorf("failed to set transaction info: %w", err)
	}
	result, _, err := e.execute(msg.To, msg.From, msg.Function, msg.Args, NewGasMeter(e.config.GasLimit), false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// Receipt returns the receipt of an accepted transaction
func (e *Engine) Receipt(hash core.Hash) (*types.Receipt, error) {
	return e.ctx.Receipt(hash)
}

// Nonce returns the nonce the next transaction from addr must carry
func (e *Engine) Nonce(addr core.Address) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Nonce(addr)
}

// Descriptor returns the interface descriptor of the contract at addr
func (e *Engine) Descriptor(addr core.Address) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.loadContract(addr)
	if err != nil {
		return nil, err
	}
	return c.descriptor, nil
}

// Subscribe returns a channel receiving every event committed from now on.
// The returned function unsubscribes and closes the channel.
func (e *Engine) Subscribe(buffer int) (<-chan types.Event, func()) {
	return e.feed.subscribe(buffer)
}

// Close shuts the event feed and releases the state context
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.feed.close()
	return e.ctx.Close()
}
