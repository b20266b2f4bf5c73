// Package blocktest provides a minimal Transaction implementation for
// exercising the block package's own tests, grounded on the shape of the
// ardanlabs/blockchain teacher's database.SignedTx/BlockTx (a nonce, a
// signer/recipient pair, and a value) but reduced to the block core's
// capability-set contract. Unlike the teacher's fixtures it signs for
// real, through this module's own signature package, rather than storing
// a signer address directly.
package blocktest

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/blockweave/blockcore/foundation/blockchain/block"
	"github.com/blockweave/blockcore/foundation/blockchain/codec"
	"github.com/blockweave/blockcore/foundation/blockchain/signature"
)

// Currency is the sole unit of account this package's fake transactions
// move value in.
const Currency block.Currency = "TEST"

// Tx is a fake transaction: it credits Value units of Currency from its
// signer to To. The signer is never stored directly; it is recovered from
// the ECDSA signature the same way Validate later re-derives it, so a
// tampered v/r/s or payload is caught the way a real signed transaction's
// would be.
type Tx struct {
	signer  block.Address
	to      block.Address
	nonce   int64
	value   int64
	v, r, s *big.Int
	invalid bool

	// extraTouch, when set, is reported by EvaluateActionsGradually's
	// OutputStates as touched without being declared in UpdatedAddresses,
	// for exercising Evaluate's excess-address check.
	extraTouch *block.Address
}

// payload is what gets signed: the transfer's terms, minus the signer,
// which Validate recovers from the signature rather than trusting a
// stored field.
type payload struct {
	Nonce int64
	To    string
	Value int64
}

func (t Tx) payload() payload {
	return payload{Nonce: t.nonce, To: t.to.String(), Value: t.value}
}

// CanonicalBytes implements signature.CanonicalEncoder: the payload signs
// over the same dict encoding the rest of this package uses for hashing,
// rather than a second, independent JSON serialization of the same
// fields.
func (p payload) CanonicalBytes() ([]byte, error) {
	v := codec.NewDict(
		codec.KV{Key: "nonce", Value: codec.NewIntegerFromInt64(p.Nonce)},
		codec.KV{Key: "to", Value: codec.ByteString(p.To)},
		codec.KV{Key: "value", Value: codec.NewIntegerFromInt64(p.Value)},
	)
	return codec.Encode(v), nil
}

// New builds a Tx paying value to to, nonce nonce, signed by privateKey.
// The signer address is recovered from the produced signature via
// signature.FromAddress, exactly as Validate will later re-derive it.
func New(privateKey *ecdsa.PrivateKey, to block.Address, nonce, value int64) (Tx, error) {
	tx := Tx{to: to, nonce: nonce, value: value}

	v, r, s, err := signature.Sign(tx.payload(), privateKey)
	if err != nil {
		return Tx{}, fmt.Errorf("blocktest: signing: %w", err)
	}
	tx.v, tx.r, tx.s = v, r, s

	signer, err := recoverSigner(tx.payload(), v, r, s)
	if err != nil {
		return Tx{}, err
	}
	tx.signer = signer

	return tx, nil
}

// NewInvalid builds a genuinely signed Tx whose Validate nonetheless
// always fails, for exercising Block.Validate's per-transaction check.
func NewInvalid(privateKey *ecdsa.PrivateKey, to block.Address, nonce, value int64) (Tx, error) {
	tx, err := New(privateKey, to, nonce, value)
	if err != nil {
		return Tx{}, err
	}
	tx.invalid = true
	return tx, nil
}

// NewUndeclaredTouch builds a Tx that, when evaluated, produces a delta
// touching extra in addition to its signer and recipient, while
// UpdatedAddresses continues to declare only {signer, to}. It exercises
// spec.md's seed scenario for a transaction whose declared updated
// addresses don't cover what its own evaluation actually touched:
// Evaluate must reject the block with ErrInvalidTxUpdatedAddresses.
func NewUndeclaredTouch(privateKey *ecdsa.PrivateKey, to, extra block.Address, nonce, value int64) (Tx, error) {
	tx, err := New(privateKey, to, nonce, value)
	if err != nil {
		return Tx{}, err
	}
	tx.extraTouch = &extra
	return tx, nil
}

func recoverSigner(p payload, v, r, s *big.Int) (block.Address, error) {
	addrHex, err := signature.FromAddress(p, v, r, s)
	if err != nil {
		return block.Address{}, fmt.Errorf("blocktest: recovering signer: %w", err)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(addrHex, "0x"))
	if err != nil {
		return block.Address{}, fmt.Errorf("blocktest: decoding recovered address: %w", err)
	}
	addr, ok := block.AddressFromBytes(b)
	if !ok {
		return block.Address{}, fmt.Errorf("blocktest: recovered address has the wrong length")
	}
	return addr, nil
}

// ID returns a deterministic hash derived from the transaction's signed
// fields.
func (t Tx) ID() block.Hash {
	v, err := t.ToCanonicalValue(true)
	if err != nil {
		return block.Hash{}
	}
	return block.Hash(sha256.Sum256(codec.Encode(v)))
}

// Signer implements block.Transaction.
func (t Tx) Signer() block.Address { return t.signer }

// Nonce implements block.Transaction.
func (t Tx) Nonce() int64 { return t.nonce }

// UpdatedAddresses implements block.Transaction: this fake transaction
// only ever declares its signer and its recipient, regardless of what its
// evaluation actually touches.
func (t Tx) UpdatedAddresses() map[block.Address]struct{} {
	return map[block.Address]struct{}{
		t.signer: {},
		t.to:     {},
	}
}

// ToCanonicalValue implements block.Transaction. The signature fields are
// only present in the signed encoding, matching the distinction real wire
// formats draw between a payload to sign and the full signed record.
func (t Tx) ToCanonicalValue(signed bool) (codec.Value, error) {
	kvs := []codec.KV{
		{Key: "nonce", Value: codec.NewIntegerFromInt64(t.nonce)},
		{Key: "to", Value: codec.ByteString(t.to.Bytes())},
		{Key: "value", Value: codec.NewIntegerFromInt64(t.value)},
	}
	if signed {
		kvs = append(kvs,
			codec.KV{Key: "v", Value: codec.ByteString(t.v.Bytes())},
			codec.KV{Key: "r", Value: codec.ByteString(t.r.Bytes())},
			codec.KV{Key: "s", Value: codec.ByteString(t.s.Bytes())},
		)
	}
	return codec.NewDict(kvs...), nil
}

// Serialize implements block.Transaction as the canonical encoding of
// ToCanonicalValue.
func (t Tx) Serialize(signed bool) ([]byte, error) {
	v, err := t.ToCanonicalValue(signed)
	if err != nil {
		return nil, err
	}
	return codec.Encode(v), nil
}

// Deserialize reverses Serialize(true), for use as a block.TransactionDecoder.
// The signer is not part of the encoding; it is recovered from the
// decoded signature, the same way New computes it.
func Deserialize(data []byte) (block.Transaction, error) {
	v, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("blocktest: %w", err)
	}
	d, ok := v.(codec.Dict)
	if !ok {
		return nil, fmt.Errorf("blocktest: not a dict")
	}

	nonce, ok := d.Get("nonce")
	if !ok {
		return nil, fmt.Errorf("blocktest: missing nonce")
	}
	value, ok := d.Get("value")
	if !ok {
		return nil, fmt.Errorf("blocktest: missing value")
	}
	toB, ok := d.Get("to")
	if !ok {
		return nil, fmt.Errorf("blocktest: missing to")
	}
	vB, ok := d.Get("v")
	if !ok {
		return nil, fmt.Errorf("blocktest: missing v")
	}
	rB, ok := d.Get("r")
	if !ok {
		return nil, fmt.Errorf("blocktest: missing r")
	}
	sB, ok := d.Get("s")
	if !ok {
		return nil, fmt.Errorf("blocktest: missing s")
	}

	to, ok := block.AddressFromBytes(toB.(codec.ByteString).Bytes())
	if !ok {
		return nil, fmt.Errorf("blocktest: malformed to")
	}

	tx := Tx{
		to:    to,
		nonce: nonce.(codec.Integer).Int64(),
		value: value.(codec.Integer).Int64(),
		v:     new(big.Int).SetBytes(vB.(codec.ByteString).Bytes()),
		r:     new(big.Int).SetBytes(rB.(codec.ByteString).Bytes()),
		s:     new(big.Int).SetBytes(sB.(codec.ByteString).Bytes()),
	}

	signer, err := recoverSigner(tx.payload(), tx.v, tx.r, tx.s)
	if err != nil {
		return nil, err
	}
	tx.signer = signer

	return tx, nil
}

// Validate implements block.Transaction: it checks the signature against
// the standards signature.VerifySignature enforces, then confirms the
// address it recovers still matches the declared signer.
func (t Tx) Validate() error {
	if t.invalid {
		return fmt.Errorf("blocktest: transaction marked invalid")
	}

	if err := signature.VerifySignature(t.payload(), t.v, t.r, t.s); err != nil {
		return fmt.Errorf("blocktest: %w", err)
	}

	signer, err := recoverSigner(t.payload(), t.v, t.r, t.s)
	if err != nil {
		return err
	}
	if signer != t.signer {
		return fmt.Errorf("blocktest: recovered signer does not match declared signer")
	}

	return nil
}

// EvaluateActionsGradually implements block.Transaction by producing a
// single ActionEvaluation that moves Value from Signer to To, mirroring
// the ardanlabs teacher's applyTransaction balance-transfer logic
// (foundation/blockchain/database/worker application, generalized to the
// StateGetter/BalanceGetter contract this module's block core expects).
func (t Tx) EvaluateActionsGradually(preEvaluationHash block.Hash, blockIndex int64, initial block.Delta, miner block.Address, previousStatesTrie block.StatesTrie) block.ActionEvaluationIterator {
	fromBalance := initial.GetBalance(t.signer, Currency)
	toBalance := initial.GetBalance(t.to, Currency)

	newFrom := new(big.Int).Sub(fromBalance, big.NewInt(t.value))
	newTo := new(big.Int).Add(toBalance, big.NewInt(t.value))

	touched := map[block.Address]struct{}{t.signer: {}, t.to: {}}
	if t.extraTouch != nil {
		touched[*t.extraTouch] = struct{}{}
	}

	delta := &transferDelta{
		base:    initial,
		signer:  t.signer,
		touched: touched,
		balances: map[block.Address]*big.Int{
			t.signer: newFrom,
			t.to:     newTo,
		},
	}

	eval := block.ActionEvaluation{
		Action:       t,
		OutputStates: delta,
	}
	if newFrom.Sign() < 0 {
		eval.Exception = fmt.Errorf("blocktest: %s: insufficient balance", t.signer)
	}

	return block.NewSliceActionEvaluationIterator([]block.ActionEvaluation{eval})
}

// transferDelta is the Delta produced by evaluating one Tx's single
// action: base's view of the world, overridden for the addresses the
// transfer touched.
type transferDelta struct {
	base     block.Delta
	signer   block.Address
	touched  map[block.Address]struct{}
	balances map[block.Address]*big.Int
}

func (d *transferDelta) GetState(a block.Address) (block.State, bool) {
	return d.base.GetState(a)
}

func (d *transferDelta) GetBalance(a block.Address, c block.Currency) *big.Int {
	if c == Currency {
		if bal, ok := d.balances[a]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return d.base.GetBalance(a, c)
}

func (d *transferDelta) Signer() block.Address { return d.signer }

func (d *transferDelta) UpdatedAddresses() map[block.Address]struct{} {
	out := make(map[block.Address]struct{}, len(d.touched))
	for a := range d.touched {
		out[a] = struct{}{}
	}
	for a := range d.base.UpdatedAddresses() {
		out[a] = struct{}{}
	}
	return out
}

// Sorted returns txs ordered by ID ascending, matching the order New's
// caller must not rely on: block.New re-derives its own order regardless
// of the slice passed in.
func Sorted(txs []Tx) []Tx {
	out := make([]Tx, len(txs))
	copy(out, txs)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID(), out[j].ID()
		return string(a[:]) < string(b[:])
	})
	return out
}

// AsTransactions upcasts a []Tx to a []block.Transaction.
func AsTransactions(txs []Tx) []block.Transaction {
	out := make([]block.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = tx
	}
	return out
}
