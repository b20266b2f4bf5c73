// Package block implements the consensus-critical core of a block: its
// canonical encoding, the two-stage pre/post-evaluation hash scheme, the
// proof-of-work mining search, the deterministic transaction reordering
// rule, structural validation, and the per-transaction action evaluation
// driver. It is grounded on the ardanlabs/blockchain teacher's
// foundation/blockchain/database Block/BlockHeader/performPOW machinery,
// generalized from a single merkle-rooted hash to the two-stage scheme
// spec.md requires.
package block

import (
	"math/big"
	"sync"
	"time"
)

// Block is a group of transactions batched together, immutable once
// constructed. All fields are read through accessor methods rather than
// exported directly, since the interior transaction slice must be exposed
// as a read-only view (spec.md §9).
type Block struct {
	header Header

	// idSorted is the id-ascending order used for txHash and RawBlock
	// (spec.md §9 "Open question — TxHash pre-ordering"). transactions is
	// the §4.4 signer/XOR order used for evaluation.
	idSorted     []Transaction
	transactions []Transaction

	mu             sync.Mutex
	bytesLength    int32
	bytesLengthSet bool
}

// NewBlockArgs are the inputs to New. PreEvaluationHash and StateRootHash
// are both optional: when PreEvaluationHash is nil it is derived from the
// other fields, exactly as spec.md §4.4 steps 2-3 describe; the mining
// path in mine.go supplies it directly, since it has already computed the
// value as a side effect of the proof-of-work search.
type NewBlockArgs struct {
	Index             int64
	Difficulty        int64
	TotalDifficulty   *big.Int
	Nonce             []byte
	Miner             *Address
	PreviousHash      *Hash
	Timestamp         time.Time
	Transactions      []Transaction
	PreEvaluationHash *Hash
	StateRootHash     *Hash
}

// New builds a Block from args, deriving TxHash, PreEvaluationHash (if not
// supplied), the canonical transaction order, and Hash. This is the single
// choke point every construction path (mining, deserialization,
// re-wrapping with a state root) funnels through, which is what makes
// spec.md invariant 6 ("two blocks with identical scalar fields... produce
// identical hash") hold regardless of caller-supplied transaction order.
func New(args NewBlockArgs) (*Block, error) {
	idSorted := sortByID(args.Transactions)

	txHash, err := computeTxHash(idSorted)
	if err != nil {
		return nil, err
	}

	fields := hashFields{
		Index:      args.Index,
		Difficulty: args.Difficulty,
		Nonce:      args.Nonce,
		Miner:      args.Miner,
		Previous:   args.PreviousHash,
		Timestamp:  args.Timestamp,
		TxHash:     txHash,
	}

	preEvalHash := args.PreEvaluationHash
	if preEvalHash == nil {
		h := hashForSerialization(fields, nil)
		preEvalHash = &h
	}

	ordered := reorderTransactions(idSorted, *preEvalHash)

	totalDifficulty := args.TotalDifficulty
	if totalDifficulty == nil {
		totalDifficulty = new(big.Int)
	}

	header := Header{
		Index:             args.Index,
		Difficulty:        args.Difficulty,
		TotalDifficulty:   totalDifficulty,
		Nonce:             args.Nonce,
		Miner:             args.Miner,
		PreviousHash:      args.PreviousHash,
		Timestamp:         args.Timestamp,
		TxHash:            txHash,
		PreEvaluationHash: *preEvalHash,
		StateRootHash:     args.StateRootHash,
		Hash:              hashForSerialization(fields, args.StateRootHash),
	}

	return &Block{header: header, idSorted: idSorted, transactions: ordered}, nil
}

// Rewrap constructs a new Block identical to b except for its
// StateRootHash, per spec.md §8 scenario S4: PreEvaluationHash is
// preserved (it was computed before any state root was known) while Hash
// is recomputed to commit to the new state root.
func Rewrap(b *Block, stateRootHash *Hash) (*Block, error) {
	preEval := b.header.PreEvaluationHash
	return New(NewBlockArgs{
		Index:             b.header.Index,
		Difficulty:        b.header.Difficulty,
		TotalDifficulty:   b.header.TotalDifficulty,
		Nonce:             b.header.Nonce,
		Miner:             b.header.Miner,
		PreviousHash:      b.header.PreviousHash,
		Timestamp:         b.header.Timestamp,
		Transactions:      b.transactions,
		PreEvaluationHash: &preEval,
		StateRootHash:     stateRootHash,
	})
}

// =============================================================================
// Accessors

// Index returns the block's height.
func (b *Block) Index() int64 { return b.header.Index }

// Difficulty returns the difficulty this block had to beat.
func (b *Block) Difficulty() int64 { return b.header.Difficulty }

// TotalDifficulty returns the cumulative difficulty including this block.
func (b *Block) TotalDifficulty() *big.Int { return new(big.Int).Set(b.header.TotalDifficulty) }

// Nonce returns the mined nonce.
func (b *Block) Nonce() []byte {
	out := make([]byte, len(b.header.Nonce))
	copy(out, b.header.Nonce)
	return out
}

// Miner returns the beneficiary address, or nil if absent.
func (b *Block) Miner() *Address {
	if b.header.Miner == nil {
		return nil
	}
	m := *b.header.Miner
	return &m
}

// PreviousHash returns the previous block's hash, or nil at genesis.
func (b *Block) PreviousHash() *Hash {
	if b.header.PreviousHash == nil {
		return nil
	}
	p := *b.header.PreviousHash
	return &p
}

// Timestamp returns the block's UTC timestamp.
func (b *Block) Timestamp() time.Time { return b.header.Timestamp }

// TxHash returns the transaction fingerprint, or nil if the block has no
// transactions.
func (b *Block) TxHash() *Hash {
	if b.header.TxHash == nil {
		return nil
	}
	t := *b.header.TxHash
	return &t
}

// PreEvaluationHash returns the hash the miner committed to before any
// action evaluation ran.
func (b *Block) PreEvaluationHash() Hash { return b.header.PreEvaluationHash }

// StateRootHash returns the post-execution state commitment, or nil if
// this Block has not been evaluated.
func (b *Block) StateRootHash() *Hash {
	if b.header.StateRootHash == nil {
		return nil
	}
	s := *b.header.StateRootHash
	return &s
}

// Hash returns SHA256(SerializeForHash(StateRootHash)).
func (b *Block) Hash() Hash { return b.header.Hash }

// Header returns a copy of the block's header: every pointer/slice field
// is cloned, so mutating the result (or what its pointer fields point
// to) cannot reach back into b.
func (b *Block) Header() Header { return b.header.clone() }

// Transactions returns the block's transactions in the canonical §4.4
// order (signer/XOR grouped), as a read-only copy of the interior slice.
func (b *Block) Transactions() []Transaction {
	out := make([]Transaction, len(b.transactions))
	copy(out, b.transactions)
	return out
}

// BytesLength returns the length of Serialize()'s output, computed and
// memoized on first access.
func (b *Block) BytesLength() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.bytesLengthSet {
		data, err := b.serializeLocked()
		if err == nil {
			b.bytesLength = int32(len(data))
		}
		b.bytesLengthSet = true
	}
	return b.bytesLength
}

// seedBytesLength pre-seeds the cached length to n, used by Deserialize
// since it already knows the input's length without re-encoding.
func (b *Block) seedBytesLength(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bytesLength = int32(n)
	b.bytesLengthSet = true
}

func (b *Block) serializeLocked() ([]byte, error) {
	raw, err := b.toRawBlockLocked()
	if err != nil {
		return nil, err
	}
	value, err := raw.toValue()
	if err != nil {
		return nil, err
	}
	return encodeValue(value), nil
}

// Serialize returns the canonical encoding of ToRawBlock().
func (b *Block) Serialize() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := b.serializeLocked()
	if err != nil {
		return nil, err
	}
	if !b.bytesLengthSet {
		b.bytesLength = int32(len(data))
		b.bytesLengthSet = true
	}
	return data, nil
}

// =============================================================================

func hashPtrEqual(a, b *Hash) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

