// Package signature wraps the ECDSA primitives block/blocktest's fixture
// transactions use to sign and recover a real account address, instead of
// storing a fabricated one directly.
package signature

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// chainStampID is an arbitrary recovery-id offset, so a signature made
// under this stamp can't be confused with one made under a different
// chain's stamp. Ethereum and Bitcoin do the same with the value 27.
const chainStampID = 29

// CanonicalEncoder is implemented by values that know how to encode
// themselves deterministically for signing. Sign/VerifySignature/
// FromAddress use it when present instead of encoding/json, so a value
// already carrying the block package's own canonical dict encoding (as
// block/blocktest's payload does) is stamped over that encoding rather
// than a second, independent JSON serialization of the same fields.
type CanonicalEncoder interface {
	CanonicalBytes() ([]byte, error)
}

// Sign uses privateKey to sign value, returning the [V|R|S] parts of the
// resulting signature.
func Sign(value any, privateKey *ecdsa.PrivateKey) (v, r, s *big.Int, err error) {
	data, err := stamp(value)
	if err != nil {
		return nil, nil, nil, err
	}

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, nil, nil, err
	}

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, nil, nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, nil, nil, errors.New("invalid signature")
	}

	v, r, s = toSignatureValues(sig)
	return v, r, s, nil
}

// VerifySignature checks that v, r, s are a well-formed signature under
// this package's chainStampID convention. It does not itself confirm the
// signature was produced over value; FromAddress does that by recovering
// the signer and comparing it against the caller's expectation.
func VerifySignature(value any, v, r, s *big.Int) error {
	uintV := v.Uint64() - chainStampID
	if uintV != 0 && uintV != 1 {
		return errors.New("invalid recovery id")
	}

	if !crypto.ValidateSignatureValues(byte(uintV), r, s, false) {
		return errors.New("invalid signature values")
	}

	return nil
}

// FromAddress recovers the address of the account that produced v, r, s
// over value.
//
// NOTE: if the exact value signed is not provided here, the recovered
// address will be wrong; there is no way to detect this independently,
// since the public key is derived from value and the signature alone.
func FromAddress(value any, v, r, s *big.Int) (string, error) {
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	sig := ToSignatureBytes(v, r, s)

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// stamp returns the 32-byte digest that gets signed: value's own
// canonical encoding when it implements CanonicalEncoder, else its JSON
// encoding, folded together with a chain-specific tag so a signature
// produced here can never be replayed as one from a different chain.
func stamp(value any) ([]byte, error) {
	var v []byte
	if ce, ok := value.(CanonicalEncoder); ok {
		b, err := ce.CanonicalBytes()
		if err != nil {
			return nil, err
		}
		v = b
	} else {
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		v = b
	}

	txHash := crypto.Keccak256(v)

	tag := []byte("\x19Blockweave Signed Message:\n32")
	return crypto.Keccak256(tag, txHash), nil
}

// toSignatureValues splits a 65-byte [R|S|V] signature into its parts,
// offsetting V by chainStampID.
func toSignatureValues(sig []byte) (v, r, s *big.Int) {
	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64] + chainStampID})

	return v, r, s
}

// ToSignatureBytes reassembles v, r, s into a 65-byte [R|S|V] signature
// with chainStampID removed from V.
func ToSignatureBytes(v, r, s *big.Int) []byte {
	sig := make([]byte, crypto.SignatureLength)

	rBytes := r.Bytes()
	if len(rBytes) == 31 {
		copy(sig[1:], rBytes)
	} else {
		copy(sig, rBytes)
	}

	sBytes := s.Bytes()
	if len(sBytes) == 31 {
		copy(sig[33:], sBytes)
	} else {
		copy(sig[32:], sBytes)
	}

	sig[64] = byte(v.Uint64() - chainStampID)

	return sig
}
