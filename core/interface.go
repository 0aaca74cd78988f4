// Package core defines the interfaces a smart contract uses to interact with
// the ledger. Contract authors only need this package to write a contract.
package core

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies an account or a contract on the ledger
type Address [20]byte

// ObjectID identifies a state object
type ObjectID [32]byte

// Hash identifies a block or a transaction
type Hash [32]byte

var ZeroAddress = Address{}
var ZeroObjectID = ObjectID{}
var ZeroHash = Hash{}

func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

func IDFromString(str string) ObjectID {
	id, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return ZeroObjectID
	}
	var out ObjectID
	copy(out[:], id)
	return out
}

func (addr Address) String() string {
	return hex.EncodeToString(addr[:])
}

// Hex returns the 0x-prefixed form used on the wire
func (addr Address) Hex() string {
	return "0x" + addr.String()
}

// MarshalText encodes the address as 0x-prefixed hex
func (addr Address) MarshalText() ([]byte, error) {
	return []byte(addr.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed or bare hex address
func (addr *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*addr = parsed
	return nil
}

// AddressFromString decodes a hex address, returning ZeroAddress when the
// input is not valid hex
func AddressFromString(str string) Address {
	addr, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return ZeroAddress
	}
	var out Address
	copy(out[:], addr)
	return out
}

// ParseAddress is the strict form of AddressFromString: the input must be
// exactly 20 bytes of hex, with or without the 0x prefix
func ParseAddress(str string) (Address, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(str, "0x"), "0X")
	if len(s) != 40 {
		return ZeroAddress, fmt.Errorf("%w: address %q must be 40 hex characters", ErrInvalidArgument, str)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("%w: address %q: %v", ErrInvalidArgument, str, err)
	}
	return Address(b), nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Hex returns the 0x-prefixed form used on the wire
func (h Hash) Hex() string {
	return "0x" + h.String()
}

// MarshalText encodes the hash as 0x-prefixed hex
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed or bare hex hash
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return fmt.Errorf("%w: hash: %v", ErrInvalidArgument, err)
	}
	if len(b) != len(h) {
		return fmt.Errorf("%w: hash must be %d bytes", ErrInvalidArgument, len(h))
	}
	copy(h[:], b)
	return nil
}

func HashFromString(str string) Hash {
	h, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return ZeroHash
	}
	var out Hash
	copy(out[:], h)
	return out
}

// Context is the contract's view of the ledger during one call
type Context interface {
	// Blockchain information
	BlockHeight() uint64      // current block height
	BlockTime() int64         // current block timestamp
	ContractAddress() Address // address of the running contract

	// Sender returns the account that signed the transaction
	Sender() Address

	// GetObject returns a state object of the running contract. The zero
	// ObjectID selects the contract's default object.
	GetObject(id ObjectID) (Object, error)

	// Log emits an event; keyValues alternate between a string key and a value
	Log(eventName string, keyValues ...any)
}

// Object is a state object owned by a contract
type Object interface {
	ID() ObjectID      // object ID
	Owner() Address    // object owner
	Contract() Address // contract the object belongs to

	// Field operations
	Get(field string, value any) error // decode field into value
	Set(field string, value any) error // encode and store value
	Has(field string) bool             // report whether field was ever set
}
