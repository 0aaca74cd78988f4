package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 12)

	_, err = FromMnemonic(mnemonic, "")
	assert.NoError(t, err)
}

func TestFromMnemonicInvalid(t *testing.T) {
	_, err := FromMnemonic("zoo zoo zoo", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestAccountDerivation(t *testing.T) {
	w, err := FromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	acc, err := w.Account(0)
	require.NoError(t, err)
	// well-known first account of the test mnemonic
	assert.Equal(t, "0x9858effd232b4033e47d90003d41ec34ecaeda94", acc.Address().Hex())
	assert.Equal(t, "m/44'/60'/0'/0/0", acc.Path())

	again, err := w.Account(0)
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), again.Address(), "derivation is deterministic")

	next, err := w.Account(1)
	require.NoError(t, err)
	assert.NotEqual(t, acc.Address(), next.Address())

	// whitespace in the mnemonic does not matter
	spaced, err := FromMnemonic("  "+strings.ReplaceAll(testMnemonic, " ", "   ")+"\n", "")
	require.NoError(t, err)
	same, err := spaced.Account(0)
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), same.Address())
}

func TestAccountFromHex(t *testing.T) {
	acc, err := GenerateAccount()
	require.NoError(t, err)

	imported, err := AccountFromHex("0x" + acc.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), imported.Address())
	assert.Empty(t, imported.Path())

	_, err = AccountFromHex("nothex")
	assert.Error(t, err)
	_, err = AccountFromHex("abcd")
	assert.Error(t, err)
}

func TestSignTx(t *testing.T) {
	acc, err := GenerateAccount()
	require.NoError(t, err)

	tx := &types.Transaction{
		To:       core.AddressFromString("0x1111111111111111111111111111111111111111"),
		Function: "Increment",
	}
	require.NoError(t, acc.SignTx(context.Background(), tx))
	assert.Equal(t, acc.Address(), tx.From)
	require.NoError(t, tx.Verify())

	// tampering invalidates the signature
	tx.Function = "Decrement"
	assert.ErrorIs(t, tx.Verify(), types.ErrInvalidSignature)
}

func TestSignTxWrongSender(t *testing.T) {
	acc, err := GenerateAccount()
	require.NoError(t, err)
	other, err := GenerateAccount()
	require.NoError(t, err)

	tx := &types.Transaction{From: other.Address(), Function: "Increment"}
	assert.ErrorIs(t, acc.SignTx(context.Background(), tx), ErrWrongSender)

	assert.ErrorIs(t, (&types.Transaction{}).Verify(), types.ErrUnsigned)
}

func TestSignTxCancelled(t *testing.T) {
	acc, err := GenerateAccount()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, acc.SignTx(ctx, &types.Transaction{}), context.Canceled)
}
