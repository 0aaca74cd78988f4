// Package wallet derives signing accounts from a BIP-39 mnemonic and signs
// ledger transactions with them.
package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// DerivationPath is the BIP-44 path of account index i
const DerivationPath = "m/44'/60'/0'/0/%d"

var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrWrongSender     = errors.New("transaction sender does not match the signing account")
)

// Wallet is an HD wallet rooted at a BIP-39 seed
type Wallet struct {
	seed []byte
}

// NewMnemonic returns a fresh 12-word mnemonic
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", fmt.Errorf("entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("mnemonic: %w", err)
	}
	return mnemonic, nil
}

// FromMnemonic opens the wallet of mnemonic protected by passphrase
func FromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return &Wallet{seed: bip39.NewSeed(mnemonic, passphrase)}, nil
}

// Account derives the account at m/44'/60'/0'/0/{index}
func (w *Wallet) Account(index uint32) (*Account, error) {
	key, err := deriveKey(w.seed, index)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	acc, err := NewAccount(key)
	if err != nil {
		return nil, err
	}
	acc.path = fmt.Sprintf(DerivationPath, index)
	return acc, nil
}

// deriveKey walks m/44'/60'/0'/0/{index}
func deriveKey(seed []byte, index uint32) ([]byte, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for _, child := range []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild + 0,
		0,
		index,
	} {
		if key, err = key.NewChildKey(child); err != nil {
			return nil, fmt.Errorf("derive child %d: %w", child, err)
		}
	}
	// big.Int arithmetic in bip32 drops leading zero bytes
	k := key.Key
	if len(k) > 32 {
		k = k[len(k)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(k):], k)
	return out, nil
}

// Account is a secp256k1 key able to sign transactions
type Account struct {
	priv    *btcec.PrivateKey
	address core.Address
	path    string
}

// NewAccount wraps a raw 32-byte private key
func NewAccount(privateKey []byte) (*Account, error) {
	if len(privateKey) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(privateKey))
	}
	priv, pub := btcec.PrivKeyFromBytes(privateKey)
	return &Account{
		priv:    priv,
		address: core.AddressFromPublicKey(pub.SerializeUncompressed()),
	}, nil
}

// AccountFromHex parses a hex private key, with or without 0x
func AccountFromHex(s string) (*Account, error) {
	key, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return NewAccount(key)
}

// GenerateAccount creates an account with a random key
func GenerateAccount() (*Account, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewAccount(priv.Serialize())
}

// Address returns the account's ledger address
func (a *Account) Address() core.Address {
	return a.address
}

// Path returns the derivation path, empty for imported keys
func (a *Account) Path() string {
	return a.path
}

// PublicKey returns the compressed public key
func (a *Account) PublicKey() []byte {
	return a.priv.PubKey().SerializeCompressed()
}

// PrivateKeyHex exports the private key
func (a *Account) PrivateKeyHex() string {
	return hex.EncodeToString(a.priv.Serialize())
}

// SignTx signs tx in place. A zero From is filled with the account address;
// any other sender is rejected.
func (a *Account) SignTx(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx.From == core.ZeroAddress {
		tx.From = a.address
	}
	if tx.From != a.address {
		return fmt.Errorf("%w: %s", ErrWrongSender, tx.From.Hex())
	}
	hash := tx.SigningHash()
	tx.PublicKey = a.PublicKey()
	tx.Signature = ecdsa.Sign(a.priv, hash[:]).Serialize()
	return nil
}
