package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/counter/abi"
	"github.com/govm-net/counter/config"
)

func TestLoadAccount(t *testing.T) {
	_, err := loadAccount(&config.Config{})
	assert.ErrorIs(t, err, errNoAccount)

	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	account, err := loadAccount(&config.Config{Mnemonic: mnemonic})
	require.NoError(t, err)
	assert.Equal(t, "0x9858effd232b4033e47d90003d41ec34ecaeda94", account.Address().Hex())

	other, err := loadAccount(&config.Config{Mnemonic: mnemonic, AccountIndex: 1})
	require.NoError(t, err)
	assert.NotEqual(t, account.Address(), other.Address())

	fromKey, err := loadAccount(&config.Config{PrivateKey: account.PrivateKeyHex()})
	require.NoError(t, err)
	assert.Equal(t, account.Address(), fromKey.Address())
}

func TestCounterDescriptor(t *testing.T) {
	data, err := counterDescriptor()
	require.NoError(t, err)
	descriptor, err := abi.Parse(data)
	require.NoError(t, err)
	for _, name := range []string{"Initialize", "GetCount", "Increment", "Decrement"} {
		_, ok := descriptor.Function(name)
		assert.True(t, ok, name)
	}
	_, ok := descriptor.Event("CountChanged")
	assert.True(t, ok)
}
