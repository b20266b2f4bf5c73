package block

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
)

// Hash is a 32-byte digest, defined over go-ethereum's common.Hash array
// width -- the same byte layout the ardanlabs teacher's own signature and
// account-address plumbing already assumes -- rather than a fresh
// [32]byte declared from scratch.
type Hash common.Hash

// String returns the hex encoding of h, matching the ardanlabs/blockchain
// convention of bare hex-string hashes rather than common.Hash's own
// 0x-prefixed String, since consensus hashing here never touches
// go-ethereum's hexutil layer.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the underlying 32 bytes.
func (h Hash) Bytes() []byte {
	return common.Hash(h).Bytes()
}

// HashFromBytes builds a Hash from an exactly-32-byte slice.
func HashFromBytes(b []byte) (Hash, bool) {
	if len(b) != common.HashLength {
		return Hash{}, false
	}
	return Hash(common.BytesToHash(b)), true
}

// Address is a 20-byte account identifier, defined over go-ethereum's
// common.Address array width for the same reason Hash is.
type Address common.Address

// String returns the hex encoding of a.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the underlying 20 bytes.
func (a Address) Bytes() []byte {
	return common.Address(a).Bytes()
}

// AddressFromBytes builds an Address from an exactly-20-byte slice.
func AddressFromBytes(b []byte) (Address, bool) {
	if len(b) != common.AddressLength {
		return Address{}, false
	}
	return Address(common.BytesToAddress(b)), true
}
