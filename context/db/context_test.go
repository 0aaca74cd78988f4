package db

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Context {
	path := filepath.Join(t.TempDir(), "ledger.db")
	bc, err := NewContext(map[string]any{"db_path": path})
	require.NoError(t, err)
	t.Cleanup(func() { bc.Close() })
	return bc.(*Context)
}

func TestBlockContext(t *testing.T) {
	ctx := setupTestDB(t)

	assert.Equal(t, uint64(0), ctx.BlockHeight())

	require.NoError(t, ctx.SetBlockInfo(100, 1234567890, core.HashFromString("0x1234567890")))
	assert.Equal(t, uint64(100), ctx.BlockHeight())
	assert.Equal(t, int64(1234567890), ctx.BlockTime())
}

func TestTransactionContext(t *testing.T) {
	ctx := setupTestDB(t)

	hash := core.HashFromString("0xabcdef")
	from := core.AddressFromString("0x1234")
	to := core.AddressFromString("0x5678")
	require.NoError(t, ctx.SetTransactionInfo(hash, from, to))

	assert.Equal(t, hash, ctx.TransactionHash())
	assert.Equal(t, from, ctx.Sender())
	assert.Equal(t, to, ctx.ContractAddress())
}

func TestObjectOperations(t *testing.T) {
	ctx := setupTestDB(t)

	contract := core.AddressFromString("0x5678")
	sender := core.AddressFromString("0x1234")

	obj, err := ctx.CreateObjectWithID(contract, core.ZeroObjectID)
	require.NoError(t, err)
	assert.Equal(t, contract, obj.Owner())

	_, err = obj.Get(contract, "count")
	assert.ErrorIs(t, err, types.ErrFieldNotFound)

	require.NoError(t, obj.Set(contract, sender, "count", []byte("1")))
	require.NoError(t, obj.Set(contract, sender, "count", []byte("2")))

	loaded, err := ctx.GetObject(contract, core.ZeroObjectID)
	require.NoError(t, err)
	value, err := loaded.Get(contract, "count")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)

	_, err = ctx.GetObject(sender, core.ZeroObjectID)
	assert.ErrorIs(t, err, core.ErrObjectNotFound)
}

func TestSaveReceipt(t *testing.T) {
	ctx := setupTestDB(t)

	from := core.AddressFromString("0x1234")
	contract := core.AddressFromString("0x5678")
	ev, err := types.NewEvent(contract, "CountChanged", "newValue", uint64(1))
	require.NoError(t, err)

	require.NoError(t, ctx.SetBlockInfo(1, 1700000000, core.HashFromString("0x01")))
	tx := &types.Transaction{From: from, To: contract, Function: "Increment", Args: json.RawMessage(`{}`)}
	receipt := &types.Receipt{
		TxHash:      core.HashFromString("0xfeed"),
		Status:      types.ReceiptStatusSuccessful,
		BlockHeight: 1,
		From:        from,
		To:          contract,
		Result:      json.RawMessage(`1`),
		Events:      []types.Event{ev},
	}
	require.NoError(t, ctx.SaveReceipt(tx, receipt))
	assert.Equal(t, uint64(1), ctx.Nonce(from))

	got, err := ctx.Receipt(receipt.TxHash)
	require.NoError(t, err)
	assert.Equal(t, receipt.Status, got.Status)
	require.Len(t, got.Events, 1)
	var v uint64
	require.NoError(t, got.Events[0].Decode("newValue", &v))
	assert.Equal(t, uint64(1), v)

	events, err := ctx.Events(contract, "CountChanged")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, receipt.TxHash, events[0].TxHash)

	_, err = ctx.Receipt(core.HashFromString("0xdead"))
	assert.ErrorIs(t, err, types.ErrReceiptNotFound)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	contract := core.AddressFromString("0x5678")

	first, err := NewContext(map[string]any{"db_path": path})
	require.NoError(t, err)
	obj, err := first.CreateObjectWithID(contract, core.ZeroObjectID)
	require.NoError(t, err)
	require.NoError(t, obj.Set(contract, contract, "count", []byte("42")))
	require.NoError(t, first.Close())

	second, err := NewContext(map[string]any{"db_path": path})
	require.NoError(t, err)
	defer second.Close()
	obj, err = second.GetObject(contract, core.ZeroObjectID)
	require.NoError(t, err)
	value, err := obj.Get(contract, "count")
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), value)
}
