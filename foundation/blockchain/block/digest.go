package block

import (
	"fmt"
	"math/big"

	"github.com/blockweave/blockcore/foundation/blockchain/codec"
)

// RawBlock is the header-plus-full-transactions projection used as the
// wire/disk round-trip format, grounded on the ardanlabs/blockchain
// BlockFS shape (database/block.go: Hash + BlockHeader + []BlockTx) but
// carrying the two-stage hash fields spec.md §6 requires instead of a
// single merkle-rooted hash. Transactions are ordered by id (not the §4.4
// signer order) per spec.md §9's "TxHash pre-ordering" note.
type RawBlock struct {
	Index             int64
	Difficulty        int64
	Nonce             []byte
	Miner             *Address
	PreviousHash      *Hash
	Timestamp         string
	TxHash            *Hash
	PreEvaluationHash Hash
	StateRootHash     *Hash
	Hash              Hash
	Transactions      [][]byte
}

// ToRawBlock projects b into its round-trip wire format: header fields
// plus each transaction's signed serialization, ordered by id.
func (b *Block) ToRawBlock() (RawBlock, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.toRawBlockLocked()
}

func (b *Block) toRawBlockLocked() (RawBlock, error) {
	txs := make([][]byte, len(b.idSorted))
	for i, tx := range b.idSorted {
		data, err := tx.Serialize(true)
		if err != nil {
			return RawBlock{}, fmt.Errorf("block: serialize tx %s: %w", tx.ID(), err)
		}
		txs[i] = data
	}

	return RawBlock{
		Index:             b.header.Index,
		Difficulty:        b.header.Difficulty,
		Nonce:             b.header.Nonce,
		Miner:             b.header.Miner,
		PreviousHash:      b.header.PreviousHash,
		Timestamp:         formatTimestamp(b.header.Timestamp),
		TxHash:            b.header.TxHash,
		PreEvaluationHash: b.header.PreEvaluationHash,
		StateRootHash:     b.header.StateRootHash,
		Hash:              b.header.Hash,
		Transactions:      txs,
	}, nil
}

// toValue builds the canonical top-level dict spec.md §6 describes:
// {"header": {...}, "transactions": [...]}.
func (r RawBlock) toValue() (codec.Value, error) {
	headerKVs := []codec.KV{
		{Key: "difficulty", Value: codec.NewIntegerFromInt64(r.Difficulty)},
		{Key: "hash", Value: codec.ByteString(r.Hash.Bytes())},
		{Key: "index", Value: codec.NewIntegerFromInt64(r.Index)},
		{Key: "nonce", Value: codec.ByteString(r.Nonce)},
		{Key: "pre_evaluation_hash", Value: codec.ByteString(r.PreEvaluationHash.Bytes())},
		{Key: "timestamp", Value: codec.ByteString(r.Timestamp)},
	}
	if r.PreviousHash != nil {
		headerKVs = append(headerKVs, codec.KV{Key: "previous_hash", Value: codec.ByteString(r.PreviousHash.Bytes())})
	}
	if r.Miner != nil {
		headerKVs = append(headerKVs, codec.KV{Key: "reward_beneficiary", Value: codec.ByteString(r.Miner.Bytes())})
	}
	if r.StateRootHash != nil {
		headerKVs = append(headerKVs, codec.KV{Key: "state_root_hash", Value: codec.ByteString(r.StateRootHash.Bytes())})
	}
	if r.TxHash != nil {
		headerKVs = append(headerKVs, codec.KV{Key: "tx_hash", Value: codec.ByteString(r.TxHash.Bytes())})
	}

	txList := make(codec.List, len(r.Transactions))
	for i, tx := range r.Transactions {
		txList[i] = codec.ByteString(tx)
	}

	return codec.NewDict(
		codec.KV{Key: "header", Value: codec.NewDict(headerKVs...)},
		codec.KV{Key: "transactions", Value: txList},
	), nil
}

func encodeValue(v codec.Value) []byte {
	return codec.Encode(v)
}

// TransactionDecoder reconstructs a Transaction from its signed
// serialization. Transaction deserialization is out of scope for the
// block core (spec.md §1), so Deserialize takes one as a parameter rather
// than assuming a concrete transaction type.
type TransactionDecoder func([]byte) (Transaction, error)

// Deserialize decodes data as a canonical block encoding and rebuilds a
// Block via New, which re-derives every hash and the §4.4 transaction
// order from scratch rather than trusting the encoded values. The encoded
// hash, pre_evaluation_hash and tx_hash entries are not read at all, so
// Validate on the result checks the decoded fields (proof of work,
// transactions, timestamp and the other header rules), not those stored
// hashes.
func Deserialize(data []byte, decodeTx TransactionDecoder) (*Block, error) {
	value, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecoding, err)
	}

	top, ok := value.(codec.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is not a dict", ErrDecoding)
	}

	headerVal, ok := top.Get("header")
	if !ok {
		return nil, fmt.Errorf("%w: missing \"header\"", ErrDecoding)
	}
	header, ok := headerVal.(codec.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: \"header\" is not a dict", ErrDecoding)
	}

	txsVal, ok := top.Get("transactions")
	if !ok {
		return nil, fmt.Errorf("%w: missing \"transactions\"", ErrDecoding)
	}
	txList, ok := txsVal.(codec.List)
	if !ok {
		return nil, fmt.Errorf("%w: \"transactions\" is not a list", ErrDecoding)
	}

	index, err := getInt(header, "index")
	if err != nil {
		return nil, err
	}
	difficulty, err := getInt(header, "difficulty")
	if err != nil {
		return nil, err
	}
	nonce, err := getBytes(header, "nonce", false)
	if err != nil {
		return nil, err
	}
	timestampStr, err := getBytes(header, "timestamp", false)
	if err != nil {
		return nil, err
	}
	timestamp, err := parseTimestamp(string(timestampStr))
	if err != nil {
		return nil, err
	}

	var previousHash *Hash
	if b, ok := getOptionalBytes(header, "previous_hash"); ok {
		h, ok := HashFromBytes(b)
		if !ok {
			return nil, fmt.Errorf("%w: previous_hash is not 32 bytes", ErrDecoding)
		}
		previousHash = &h
	}

	var miner *Address
	if b, ok := getOptionalBytes(header, "reward_beneficiary"); ok {
		a, ok := AddressFromBytes(b)
		if !ok {
			return nil, fmt.Errorf("%w: reward_beneficiary is not 20 bytes", ErrDecoding)
		}
		miner = &a
	}

	var stateRootHash *Hash
	if b, ok := getOptionalBytes(header, "state_root_hash"); ok {
		h, ok := HashFromBytes(b)
		if !ok {
			return nil, fmt.Errorf("%w: state_root_hash is not 32 bytes", ErrDecoding)
		}
		stateRootHash = &h
	}

	txs := make([]Transaction, len(txList))
	for i, v := range txList {
		bs, ok := v.(codec.ByteString)
		if !ok {
			return nil, fmt.Errorf("%w: transaction %d is not a byte string", ErrDecoding, i)
		}
		tx, err := decodeTx(bs.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %s", ErrDecoding, i, err)
		}
		txs[i] = tx
	}

	blk, err := New(NewBlockArgs{
		Index:           index,
		Difficulty:      difficulty,
		TotalDifficulty: new(big.Int),
		Nonce:           nonce,
		Miner:           miner,
		PreviousHash:    previousHash,
		Timestamp:       timestamp,
		Transactions:    txs,
		StateRootHash:   stateRootHash,
	})
	if err != nil {
		return nil, err
	}

	blk.seedBytesLength(len(data))
	return blk, nil
}

func getInt(d codec.Dict, key string) (int64, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrDecoding, key)
	}
	i, ok := v.(codec.Integer)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrDecoding, key)
	}
	return i.Int64(), nil
}

func getBytes(d codec.Dict, key string, optional bool) ([]byte, error) {
	v, ok := d.Get(key)
	if !ok {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: missing %q", ErrDecoding, key)
	}
	bs, ok := v.(codec.ByteString)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a byte string", ErrDecoding, key)
	}
	return bs.Bytes(), nil
}

// getOptionalBytes reads an optional byte-string field, treating a
// present-but-empty byte string the same as a missing key: spec.md §6
// distinguishes the two only at the decoder level, and requires the
// Block constructor to treat them equivalently.
func getOptionalBytes(d codec.Dict, key string) ([]byte, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	bs, ok := v.(codec.ByteString)
	if !ok || len(bs.Bytes()) == 0 {
		return nil, false
	}
	return bs.Bytes(), true
}

// BlockDigest is the propagation-sized projection of a block: header plus
// transaction ids only, grounded on the ardanlabs/blockchain PeerStatus
// pattern of sending a status/summary payload distinct from the full
// block (worker_pow.go queryPeerStatus/sendBlockToPeers).
type BlockDigest struct {
	Header         Header
	TransactionIDs []Hash
}

// ToBlockDigest projects b into its digest form. Header is cloned, not
// aliased, for the same reason Block.Header is.
func (b *Block) ToBlockDigest() BlockDigest {
	ids := make([]Hash, len(b.transactions))
	for i, tx := range b.transactions {
		ids[i] = tx.ID()
	}
	return BlockDigest{Header: b.header.clone(), TransactionIDs: ids}
}
