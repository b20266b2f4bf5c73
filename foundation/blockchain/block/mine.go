package block

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/blockweave/blockcore/foundation/blockchain/hashcash"
	"github.com/google/uuid"
)

// EventHandler receives mining progress messages, mirroring the
// ardanlabs/blockchain evHandler func(v string, args ...any) signature
// threaded through performPOW/ValidateBlock/runMiningOperation.
type EventHandler func(v string, args ...any)

func noopEventHandler(string, ...any) {}

// MineOptions configures a Mine call beyond its required parameters.
type MineOptions struct {
	// EventHandler receives progress events; defaults to a no-op.
	EventHandler EventHandler

	// RequestID tags every event this mining run logs, the way a wallet
	// or node request would be correlated across an HTTP call in the
	// ardanlabs teacher's handlers. It has no effect on the mined
	// block's bytes.
	RequestID uuid.UUID
}

// MineParams are the required inputs to Mine, corresponding to spec.md
// §4.5's (index, difficulty, previousTotalDifficulty, miner, previousHash,
// timestamp, txs).
type MineParams struct {
	Index                   int64
	Difficulty              int64
	PreviousTotalDifficulty *big.Int
	Miner                   *Address
	PreviousHash            *Hash
	Timestamp               time.Time
	Transactions            []Transaction
}

// Mine searches for a nonce satisfying Difficulty and returns the finished
// Block. It implements spec.md §4.5's nonce-stamping optimisation: rather
// than re-serializing the whole candidate dict per attempt, it serializes
// twice up front (an empty nonce and a one-byte nonce) to find the byte
// range the nonce occupies, then hands Hashcash a stamp function that
// only concatenates that range per attempt.
func Mine(ctx context.Context, params MineParams, opts ...MineOptions) (*Block, error) {
	var opt MineOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	ev := opt.EventHandler
	if ev == nil {
		ev = noopEventHandler
	}

	ev("block: Mine: request[%s]: started: index[%d] difficulty[%d]", opt.RequestID, params.Index, params.Difficulty)
	defer ev("block: Mine: request[%s]: completed", opt.RequestID)

	idSorted := sortByID(params.Transactions)

	txHash, err := computeTxHash(idSorted)
	if err != nil {
		return nil, err
	}

	baseFields := hashFields{
		Index:      params.Index,
		Difficulty: params.Difficulty,
		Miner:      params.Miner,
		Previous:   params.PreviousHash,
		Timestamp:  params.Timestamp,
		TxHash:     txHash,
	}

	emptyFields := baseFields
	emptyFields.Nonce = []byte{}
	emptyStamp := serializeForHash(emptyFields, nil)

	oneByteFields := baseFields
	oneByteFields.Nonce = []byte{0x00}
	oneByteStamp := serializeForHash(oneByteFields, nil)

	offset := commonPrefixLen(emptyStamp, oneByteStamp)

	// The two bytes at emptyStamp[offset:offset+2] are the encoding of the
	// empty byte string, "0:"; everything from offset+2 onward in
	// emptyStamp is the suffix that follows the nonce field regardless of
	// its length.
	if offset+2 > len(emptyStamp) {
		return nil, fmt.Errorf("block: mine: could not locate nonce field in serialized stamp")
	}
	stampPrefix := emptyStamp[:offset]
	stampSuffix := emptyStamp[offset+2:]

	stampFn := func(nonce []byte) []byte {
		var buf bytes.Buffer
		buf.Write(stampPrefix)
		buf.WriteString(strconv.Itoa(len(nonce)))
		buf.WriteByte(':')
		buf.Write(nonce)
		buf.Write(stampSuffix)
		return buf.Bytes()
	}

	ev("block: Mine: request[%s]: MINING: started", opt.RequestID)
	nonce, err := hashcash.Answer(stampFn, params.Difficulty, ctx.Done())
	if err != nil {
		if err == hashcash.ErrCancelled {
			ev("block: Mine: request[%s]: MINING: CANCELLED", opt.RequestID)
			return nil, ErrCancelled
		}
		return nil, err
	}
	ev("block: Mine: request[%s]: MINING: SOLVED: nonce-length[%d]", opt.RequestID, len(nonce))

	preEvalHash := Hash(hashcash.Hash(stampFn(nonce)))

	totalDifficulty := new(big.Int)
	if params.PreviousTotalDifficulty != nil {
		totalDifficulty.Set(params.PreviousTotalDifficulty)
	}
	totalDifficulty.Add(totalDifficulty, big.NewInt(params.Difficulty))

	return New(NewBlockArgs{
		Index:             params.Index,
		Difficulty:        params.Difficulty,
		TotalDifficulty:   totalDifficulty,
		Nonce:             nonce,
		Miner:             params.Miner,
		PreviousHash:      params.PreviousHash,
		Timestamp:         params.Timestamp,
		Transactions:      params.Transactions,
		PreEvaluationHash: &preEvalHash,
	})
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
