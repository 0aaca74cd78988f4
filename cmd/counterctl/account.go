package main

import (
	"errors"
	"fmt"

	"github.com/govm-net/counter/abi"
	"github.com/govm-net/counter/config"
	"github.com/govm-net/counter/contracts/counter"
	"github.com/govm-net/counter/wallet"
)

var errNoAccount = errors.New("no signing key: set COUNTER_MNEMONIC or COUNTER_PRIVATE_KEY")

// loadAccount returns the signing account configured in the environment
func loadAccount(cfg *config.Config) (*wallet.Account, error) {
	switch {
	case cfg.PrivateKey != "":
		return wallet.AccountFromHex(cfg.PrivateKey)
	case cfg.Mnemonic != "":
		w, err := wallet.FromMnemonic(cfg.Mnemonic, "")
		if err != nil {
			return nil, err
		}
		return w.Account(cfg.AccountIndex)
	}
	return nil, errNoAccount
}

// counterDescriptor is the interface descriptor of the bundled contract
func counterDescriptor() ([]byte, error) {
	descriptor, err := abi.ExtractABI(counter.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to extract counter descriptor: %w", err)
	}
	return descriptor.Marshal()
}
