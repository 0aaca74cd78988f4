package core

import (
	"crypto/sha256"

	"golang.org/x/crypto/sha3"
)

// GetHash calculates the SHA-256 hash of data
func GetHash(data []byte) Hash {
	return sha256.Sum256(data)
}

// Keccak256 calculates the legacy Keccak-256 hash used for addresses and
// transaction hashes
func Keccak256(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPublicKey derives an address from an uncompressed secp256k1
// public key (65 bytes, 0x04 prefix): the last 20 bytes of its Keccak hash
func AddressFromPublicKey(uncompressed []byte) Address {
	if len(uncompressed) == 65 {
		uncompressed = uncompressed[1:]
	}
	hash := Keccak256(uncompressed)
	var addr Address
	copy(addr[:], hash[12:])
	return addr
}

// ContractAddress derives the address of a contract deployed by sender with
// the given nonce
func ContractAddress(sender Address, nonce uint64) Address {
	var n [8]byte
	for i := 0; i < 8; i++ {
		n[7-i] = byte(nonce >> (8 * i))
	}
	hash := Keccak256(sender[:], n[:])
	var addr Address
	copy(addr[:], hash[12:])
	return addr
}
