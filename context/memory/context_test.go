package memory

import (
	"testing"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestContext() *defaultBlockchainContext {
	return NewBlockchainContext(nil).(*defaultBlockchainContext)
}

func TestBlockContext(t *testing.T) {
	ctx := setupTestContext()

	assert.Equal(t, uint64(0), ctx.BlockHeight())
	assert.Equal(t, int64(0), ctx.BlockTime())

	require.NoError(t, ctx.SetBlockInfo(100, 1234567890, core.HashFromString("0xb10c")))
	assert.Equal(t, uint64(100), ctx.BlockHeight())
	assert.Equal(t, int64(1234567890), ctx.BlockTime())
}

func TestTransactionContext(t *testing.T) {
	ctx := setupTestContext()

	sender := core.AddressFromString("0x1111")
	contract := core.AddressFromString("0x2222")
	txHash := core.HashFromString("0x3333")

	require.NoError(t, ctx.SetTransactionInfo(txHash, sender, contract))

	assert.Equal(t, sender, ctx.Sender())
	assert.Equal(t, contract, ctx.ContractAddress())
	assert.Equal(t, txHash, ctx.TransactionHash())
}

func TestObjectOperations(t *testing.T) {
	ctx := setupTestContext()

	contract := core.AddressFromString("0xc0de")
	other := core.AddressFromString("0xbeef")

	obj, err := ctx.CreateObjectWithID(contract, core.ZeroObjectID)
	require.NoError(t, err)
	assert.Equal(t, contract, obj.Owner())
	assert.Equal(t, contract, obj.Contract())

	_, err = ctx.CreateObjectWithID(contract, core.ZeroObjectID)
	assert.Error(t, err, "creating an object twice must fail")

	_, err = obj.Get(contract, "count")
	assert.ErrorIs(t, err, types.ErrFieldNotFound)

	require.NoError(t, obj.Set(contract, other, "count", []byte("7")))
	value, err := obj.Get(contract, "count")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), value)

	// returned bytes are a copy
	value[0] = '9'
	again, err := obj.Get(contract, "count")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), again)

	// another contract cannot touch the object
	assert.Error(t, obj.Set(other, other, "count", []byte("1")))
	_, err = obj.Get(other, "count")
	assert.Error(t, err)

	got, err := ctx.GetObject(contract, core.ZeroObjectID)
	require.NoError(t, err)
	assert.Equal(t, core.ZeroObjectID, got.ID())

	_, err = ctx.GetObject(other, core.ZeroObjectID)
	assert.ErrorIs(t, err, core.ErrObjectNotFound)
}

func TestReceiptsAndNonces(t *testing.T) {
	ctx := setupTestContext()

	from := core.AddressFromString("0xaaaa")
	tx := &types.Transaction{From: from, To: core.AddressFromString("0xbbbb"), Function: "Increment"}
	receipt := &types.Receipt{TxHash: core.HashFromString("0x01"), Status: types.ReceiptStatusSuccessful}

	assert.Equal(t, uint64(0), ctx.Nonce(from))

	_, err := ctx.Receipt(receipt.TxHash)
	assert.ErrorIs(t, err, types.ErrReceiptNotFound)

	require.NoError(t, ctx.SaveReceipt(tx, receipt))
	assert.Equal(t, uint64(1), ctx.Nonce(from))

	got, err := ctx.Receipt(receipt.TxHash)
	require.NoError(t, err)
	assert.Equal(t, receipt, got)

	assert.Error(t, ctx.SaveReceipt(tx, receipt), "a receipt is stored once")
	assert.Equal(t, uint64(1), ctx.Nonce(from))
}
