package block

import (
	"fmt"
	"time"

	"github.com/blockweave/blockcore/foundation/blockchain/codec"
	"github.com/blockweave/blockcore/foundation/blockchain/hashcash"
)

// timestampLayout is the mandatory wire format: microsecond precision,
// literal 'Z', UTC. Any other precision is rejected on parse since it
// would silently change the hash.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// formatTimestamp renders t in the canonical block timestamp format.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp parses the canonical block timestamp format, rejecting
// any other fractional-second precision.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed timestamp %q", ErrDecoding, s)
	}
	return t.UTC(), nil
}

// hashFields is the minimal scalar projection of a header SerializeForHash
// needs; it exists so mine.go can build one without a fully-formed Header
// (whose Hash/PreEvaluationHash fields haven't been computed yet).
type hashFields struct {
	Index      int64
	Difficulty int64
	Nonce      []byte
	Miner      *Address
	Previous   *Hash
	Timestamp  time.Time
	TxHash     *Hash
}

// serializeForHash produces the canonical encoding used as both the
// proof-of-work stamp and the hash preimage, per spec.md §4.4. stateRoot
// is nil for the pre-evaluation hash and set for the post-evaluation hash;
// every other input is identical between the two calls.
func serializeForHash(f hashFields, stateRoot *Hash) []byte {
	kvs := []codec.KV{
		{Key: "difficulty", Value: codec.NewIntegerFromInt64(f.Difficulty)},
		{Key: "index", Value: codec.NewIntegerFromInt64(f.Index)},
		{Key: "nonce", Value: codec.ByteString(f.Nonce)},
		{Key: "timestamp", Value: codec.ByteString(formatTimestamp(f.Timestamp))},
	}
	if f.Previous != nil {
		kvs = append(kvs, codec.KV{Key: "previous_hash", Value: codec.ByteString(f.Previous.Bytes())})
	}
	if f.Miner != nil {
		kvs = append(kvs, codec.KV{Key: "reward_beneficiary", Value: codec.ByteString(f.Miner.Bytes())})
	}
	if stateRoot != nil {
		kvs = append(kvs, codec.KV{Key: "state_root_hash", Value: codec.ByteString(stateRoot.Bytes())})
	}
	if f.TxHash != nil {
		kvs = append(kvs, codec.KV{Key: "transaction_fingerprint", Value: codec.ByteString(f.TxHash.Bytes())})
	}

	return codec.Encode(codec.NewDict(kvs...))
}

// hashForSerialization is serializeForHash followed by SHA-256, the
// operation both header.Validate and Block reuse to derive
// PreEvaluationHash and Hash.
func hashForSerialization(f hashFields, stateRoot *Hash) Hash {
	return Hash(hashcash.Hash(serializeForHash(f, stateRoot)))
}

// computeTxHash returns the SHA-256 of the canonical encoding of the list
// of signed canonical transaction values, in the order given (which must
// be the id-sorted order per spec.md §4.4 step 2), or nil if txs is empty.
func computeTxHash(txs []Transaction) (*Hash, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	values := make(codec.List, len(txs))
	for i, tx := range txs {
		v, err := tx.ToCanonicalValue(true)
		if err != nil {
			return nil, fmt.Errorf("block: canonical value for tx %s: %w", tx.ID(), err)
		}
		values[i] = v
	}

	h := hashcash.Hash(codec.Encode(values))
	hh := Hash(h)
	return &hh, nil
}
