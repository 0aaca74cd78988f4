package types

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/govm-net/counter/core"
)

var (
	ErrUnsigned         = errors.New("transaction is not signed")
	ErrInvalidSignature = errors.New("invalid transaction signature")
)

// DefaultGasLimit applies when a transaction does not set one
const DefaultGasLimit int64 = 1_000_000

// Transaction is a signed request to change ledger state. A transaction
// with a zero To address deploys Code; otherwise it calls Function on To.
type Transaction struct {
	From      core.Address    `json:"from"`
	To        core.Address    `json:"to"`
	Nonce     uint64          `json:"nonce"`
	Function  string          `json:"function,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Code      []byte          `json:"code,omitempty"`
	GasLimit  int64           `json:"gas_limit,omitempty"`
	PublicKey []byte          `json:"public_key,omitempty"`
	Signature []byte          `json:"signature,omitempty"`
}

// CallMsg is a read-only call; it is executed and discarded
type CallMsg struct {
	From     core.Address    `json:"from"`
	To       core.Address    `json:"to"`
	Function string          `json:"function"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// IsDeployment reports whether the transaction creates a contract
func (tx *Transaction) IsDeployment() bool {
	return tx.To == core.ZeroAddress
}

// SigningHash is the Keccak hash of the length-prefixed unsigned fields
func (tx *Transaction) SigningHash() core.Hash {
	var nonce, gas [8]byte
	binary.BigEndian.PutUint64(nonce[:], tx.Nonce)
	binary.BigEndian.PutUint64(gas[:], uint64(tx.GasLimit))
	return core.Keccak256(
		tx.From[:],
		tx.To[:],
		nonce[:],
		lengthPrefixed([]byte(tx.Function)),
		lengthPrefixed(compactJSON(tx.Args)),
		lengthPrefixed(tx.Code),
		gas[:],
	)
}

// Hash identifies a signed transaction
func (tx *Transaction) Hash() core.Hash {
	signing := tx.SigningHash()
	return core.Keccak256(signing[:], tx.Signature)
}

// Verify checks that the transaction is signed by the key behind From
func (tx *Transaction) Verify() error {
	if len(tx.Signature) == 0 || len(tx.PublicKey) == 0 {
		return ErrUnsigned
	}
	pub, err := btcec.ParsePubKey(tx.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: public key: %v", ErrInvalidSignature, err)
	}
	if core.AddressFromPublicKey(pub.SerializeUncompressed()) != tx.From {
		return fmt.Errorf("%w: key does not belong to %s", ErrInvalidSignature, tx.From.Hex())
	}
	sig, err := ecdsa.ParseDERSignature(tx.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	hash := tx.SigningHash()
	if !sig.Verify(hash[:], pub) {
		return ErrInvalidSignature
	}
	return nil
}

func lengthPrefixed(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}

// compactJSON removes insignificant whitespace so that arguments hash the
// same after a round trip through the transport
func compactJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(raw))
	inString, escaped := false, false
	for _, c := range raw {
		if inString {
			buf = append(buf, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '"':
			inString = true
		}
		buf = append(buf, c)
	}
	return buf
}
