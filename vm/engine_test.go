package vm_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/govm-net/counter/contracts/counter"
	_ "github.com/govm-net/counter/context/db"
	_ "github.com/govm-net/counter/context/memory"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"github.com/govm-net/counter/vm"
	"github.com/govm-net/counter/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, config *vm.Config) *vm.Engine {
	t.Helper()
	if config == nil {
		config = &vm.Config{ContextType: "memory"}
	}
	if config.CodeManagerDir == "" {
		config.CodeManagerDir = t.TempDir()
	}
	engine, err := vm.NewEngine(config)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func deployCounter(t *testing.T, engine *vm.Engine, from core.Address, start uint64) core.Address {
	t.Helper()
	args, err := json.Marshal(map[string]uint64{"startValue": start})
	require.NoError(t, err)
	addr, err := engine.Deploy(context.Background(), from, counter.Source, args)
	require.NoError(t, err)
	return addr
}

func signedCall(t *testing.T, engine *vm.Engine, acc *wallet.Account, to core.Address, function string) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		To:       to,
		Nonce:    engine.Nonce(acc.Address()),
		Function: function,
	}
	require.NoError(t, acc.SignTx(context.Background(), tx))
	return tx
}

func getCount(t *testing.T, engine *vm.Engine, addr core.Address) uint64 {
	t.Helper()
	raw, err := engine.Call(context.Background(), types.CallMsg{To: addr, Function: "GetCount"})
	require.NoError(t, err)
	var v uint64
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestNewEngineConfig(t *testing.T) {
	_, err := vm.NewEngine(nil)
	assert.Error(t, err)

	_, err = vm.NewEngine(&vm.Config{ContextType: "memory"})
	assert.Error(t, err, "code manager directory is required")

	_, err = vm.NewEngine(&vm.Config{ContextType: "nosuch", CodeManagerDir: t.TempDir()})
	assert.Error(t, err)
}

func TestSignedDeployment(t *testing.T) {
	engine := newEngine(t, nil)
	acc, err := wallet.GenerateAccount()
	require.NoError(t, err)

	tx := &types.Transaction{Code: counter.Source, Args: json.RawMessage(`{"startValue": 9}`)}
	require.NoError(t, acc.SignTx(context.Background(), tx))

	receipt, err := engine.ApplyTransaction(context.Background(), tx)
	require.NoError(t, err)
	require.NoError(t, receipt.Err())
	assert.Equal(t, core.ContractAddress(acc.Address(), 0), receipt.ContractAddress)
	assert.Equal(t, uint64(1), receipt.BlockHeight)
	assert.Positive(t, receipt.GasUsed)

	assert.Equal(t, uint64(9), getCount(t, engine, receipt.ContractAddress))
	assert.Equal(t, uint64(1), engine.Nonce(acc.Address()))

	stored, err := engine.Receipt(receipt.TxHash)
	require.NoError(t, err)
	assert.Equal(t, receipt.ContractAddress, stored.ContractAddress)
}

func TestApplyTransactionRejects(t *testing.T) {
	engine := newEngine(t, nil)
	acc, err := wallet.GenerateAccount()
	require.NoError(t, err)
	addr := deployCounter(t, engine, acc.Address(), 0)

	t.Run("unsigned", func(t *testing.T) {
		_, err := engine.ApplyTransaction(context.Background(), &types.Transaction{From: acc.Address(), To: addr, Function: "Increment"})
		assert.ErrorIs(t, err, types.ErrUnsigned)
	})

	t.Run("tampered", func(t *testing.T) {
		tx := signedCall(t, engine, acc, addr, "Increment")
		tx.Function = "Decrement"
		_, err := engine.ApplyTransaction(context.Background(), tx)
		assert.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("replay", func(t *testing.T) {
		tx := signedCall(t, engine, acc, addr, "Increment")
		_, err := engine.ApplyTransaction(context.Background(), tx)
		require.NoError(t, err)
		_, err = engine.ApplyTransaction(context.Background(), tx)
		assert.ErrorIs(t, err, vm.ErrNonceMismatch)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := engine.ApplyTransaction(ctx, signedCall(t, engine, acc, addr, "Increment"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExecutionFailures(t *testing.T) {
	engine := newEngine(t, nil)
	acc, err := wallet.GenerateAccount()
	require.NoError(t, err)
	addr := deployCounter(t, engine, acc.Address(), 0)

	_, err = engine.Call(context.Background(), types.CallMsg{To: addr, Function: "Reset"})
	assert.ErrorIs(t, err, core.ErrFunctionNotFound)

	_, err = engine.Call(context.Background(), types.CallMsg{To: core.AddressFromString("0x01"), Function: "GetCount"})
	assert.ErrorIs(t, err, core.ErrContractNotFound)

	// a failing transaction is still sealed and consumes its nonce
	receipt, err := engine.ApplyTransaction(context.Background(), signedCall(t, engine, acc, addr, "Reset"))
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Contains(t, receipt.Error, "function not found")
	assert.Equal(t, uint64(2), engine.Nonce(acc.Address()), "deployment plus the failed call")
}

func TestDeployUnknownCode(t *testing.T) {
	engine := newEngine(t, nil)
	code := []byte("package other\n\nfunc GetCount() uint64 { return 0 }\n")

	_, err := engine.Deploy(context.Background(), core.AddressFromString("0x01"), code, nil)
	assert.ErrorContains(t, err, "no native implementation")
}

func TestDeployInvalidCode(t *testing.T) {
	engine := newEngine(t, nil)
	code := []byte("package other\n\nimport \"os\"\n\nfunc Exit() { os.Exit(1) }\n")

	_, err := engine.Deploy(context.Background(), core.AddressFromString("0x01"), code, nil)
	assert.ErrorContains(t, err, "contract validation failed")
}

func TestOutOfGas(t *testing.T) {
	engine := newEngine(t, &vm.Config{ContextType: "memory", GasLimit: 10_000})
	acc, err := wallet.GenerateAccount()
	require.NoError(t, err)
	addr := deployCounter(t, engine, acc.Address(), 0)

	tx := &types.Transaction{
		To:       addr,
		Nonce:    engine.Nonce(acc.Address()),
		Function: "Increment",
		GasLimit: 200,
	}
	require.NoError(t, acc.SignTx(context.Background(), tx))
	receipt, err := engine.ApplyTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Contains(t, receipt.Error, core.ErrOutOfGas.Error())
	assert.Equal(t, int64(200), receipt.GasUsed)
	assert.Equal(t, uint64(0), getCount(t, engine, addr))
}

func TestSubscribe(t *testing.T) {
	engine := newEngine(t, nil)
	acc, err := wallet.GenerateAccount()
	require.NoError(t, err)
	addr := deployCounter(t, engine, acc.Address(), 0)

	events, cancel := engine.Subscribe(4)
	defer cancel()

	receipt, err := engine.ApplyTransaction(context.Background(), signedCall(t, engine, acc, addr, "Increment"))
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "CountChanged", ev.Name)
		assert.Equal(t, addr, ev.Contract)
		assert.Equal(t, receipt.TxHash, ev.TxHash)
		assert.Equal(t, receipt.BlockHeight, ev.BlockHeight)
		var v uint64
		require.NoError(t, ev.Decode("newValue", &v))
		assert.Equal(t, uint64(1), v)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	// reverted transactions publish nothing
	_, err = engine.ApplyTransaction(context.Background(), signedCall(t, engine, acc, addr, "Decrement"))
	require.NoError(t, err)
	_, err = engine.ApplyTransaction(context.Background(), signedCall(t, engine, acc, addr, "Decrement"))
	require.NoError(t, err)
	ev := <-events
	var v uint64
	require.NoError(t, ev.Decode("newValue", &v))
	assert.Equal(t, uint64(0), v)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v", ev)
	default:
	}

	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestConcurrentMutations(t *testing.T) {
	engine := newEngine(t, nil)
	deployer, err := wallet.GenerateAccount()
	require.NoError(t, err)
	addr := deployCounter(t, engine, deployer.Address(), 0)

	const workers, perWorker = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		acc, err := wallet.GenerateAccount()
		require.NoError(t, err)
		wg.Add(1)
		go func(acc *wallet.Account) {
			defer wg.Done()
			for n := uint64(0); n < perWorker; n++ {
				tx := &types.Transaction{To: addr, Nonce: n, Function: "Increment"}
				if err := acc.SignTx(context.Background(), tx); err != nil {
					t.Error(err)
					return
				}
				receipt, err := engine.ApplyTransaction(context.Background(), tx)
				if err != nil {
					t.Error(err)
					return
				}
				if err := receipt.Err(); err != nil {
					t.Error(err)
				}
			}
		}(acc)
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*perWorker), getCount(t, engine, addr))
	assert.Equal(t, uint64(1+workers*perWorker), engine.BlockHeight())
}

func TestPersistentEngine(t *testing.T) {
	dir := t.TempDir()
	config := func() *vm.Config {
		return &vm.Config{
			ContextType:    "db",
			ContextParams:  map[string]any{"db_path": filepath.Join(dir, "ledger.db")},
			CodeManagerDir: filepath.Join(dir, "code"),
		}
	}
	acc, err := wallet.GenerateAccount()
	require.NoError(t, err)

	first, err := vm.NewEngine(config())
	require.NoError(t, err)
	addr := deployCounter(t, first, acc.Address(), 0)
	receipt, err := first.ApplyTransaction(context.Background(), signedCall(t, first, acc, addr, "Increment"))
	require.NoError(t, err)
	require.NoError(t, receipt.Err())
	require.NoError(t, first.Close())

	second := newEngine(t, config())
	assert.Equal(t, uint64(1), getCount(t, second, addr))
	assert.Equal(t, uint64(2), second.Nonce(acc.Address()))
	assert.Equal(t, uint64(2), second.BlockHeight())

	stored, err := second.Receipt(receipt.TxHash)
	require.NoError(t, err)
	require.Len(t, stored.Events, 1)

	descriptor, err := second.Descriptor(addr)
	require.NoError(t, err)
	assert.Contains(t, string(descriptor), "CountChanged")
}
