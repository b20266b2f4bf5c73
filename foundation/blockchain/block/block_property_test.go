package block_test

import (
	"context"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/blockweave/blockcore/foundation/blockchain/block"
	"github.com/blockweave/blockcore/foundation/blockchain/block/blocktest"
)

// Test_PreEvaluationHashDependsOnEveryHashedField is the property test for
// §8's "hash dependency" invariant: flipping any bit of any field
// serializeForHash covers must change the resulting PreEvaluationHash. It
// runs many randomly generated base blocks and, for each, perturbs one
// hashed field at a time.
func Test_PreEvaluationHashDependsOnEveryHashedField(t *testing.T) {
	t.Log("Given the need for every hashed header field to affect the pre-evaluation hash.")
	{
		rng := rand.New(rand.NewSource(3))

		hashOf := func(args block.NewBlockArgs) block.Hash {
			t.Helper()
			blk, err := block.New(args)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to build a block: %v", failed, err)
			}
			return blk.PreEvaluationHash()
		}

		const trials = 20
		for trial := 0; trial < trials; trial++ {
			var miner block.Address
			rng.Read(miner[:])
			var prev block.Hash
			rng.Read(prev[:])
			nonce := make([]byte, 1+rng.Intn(4))
			rng.Read(nonce)

			base := block.NewBlockArgs{
				Index:        1,
				Difficulty:   int64(1 + rng.Intn(1000)),
				Nonce:        nonce,
				Miner:        &miner,
				PreviousHash: &prev,
				Timestamp:    time.Unix(int64(rng.Intn(2_000_000_000)), 0).UTC(),
			}
			want := hashOf(base)

			difficulty := base
			difficulty.Difficulty ^= int64(1) << uint(rng.Intn(16))
			if got := hashOf(difficulty); got == want {
				t.Fatalf("\t%s\tTrial %d: flipping a difficulty bit should change the hash.", failed, trial)
			}

			flippedNonce := append([]byte(nil), base.Nonce...)
			flippedNonce[rng.Intn(len(flippedNonce))] ^= 1 << uint(rng.Intn(8))
			nonceArgs := base
			nonceArgs.Nonce = flippedNonce
			if got := hashOf(nonceArgs); got == want {
				t.Fatalf("\t%s\tTrial %d: flipping a nonce bit should change the hash.", failed, trial)
			}

			flippedMiner := miner
			flippedMiner[rng.Intn(len(flippedMiner))] ^= 1
			minerArgs := base
			minerArgs.Miner = &flippedMiner
			if got := hashOf(minerArgs); got == want {
				t.Fatalf("\t%s\tTrial %d: flipping a miner-address bit should change the hash.", failed, trial)
			}

			flippedPrev := prev
			flippedPrev[rng.Intn(len(flippedPrev))] ^= 1
			prevArgs := base
			prevArgs.PreviousHash = &flippedPrev
			if got := hashOf(prevArgs); got == want {
				t.Fatalf("\t%s\tTrial %d: flipping a previous-hash bit should change the hash.", failed, trial)
			}

			timeArgs := base
			timeArgs.Timestamp = base.Timestamp.Add(time.Microsecond)
			if got := hashOf(timeArgs); got == want {
				t.Fatalf("\t%s\tTrial %d: shifting the timestamp by a microsecond should change the hash.", failed, trial)
			}

			signer := mustKey(t, signPavel)
			tx := mustTx(t, signer, addr(2), int64(trial), 1)
			txArgs := base
			txArgs.Transactions = blocktest.AsTransactions([]blocktest.Tx{tx})
			if got := hashOf(txArgs); got == want {
				t.Fatalf("\t%s\tTrial %d: adding a transaction should change the hash via TxHash.", failed, trial)
			}
		}
		t.Logf("\t%s\tEvery hashed field changed the pre-evaluation hash across %d random trials.", success, trials)
	}
}

// Test_EvaluateIsIdempotent is the property test for §8's "evaluate
// idempotence" invariant: two Evaluate calls against the same block with
// the same getters must produce identical ActionEvaluation sequences.
func Test_EvaluateIsIdempotent(t *testing.T) {
	t.Log("Given the need for repeated evaluation of the same block to agree.")
	{
		rng := rand.New(rand.NewSource(7))

		miner := addr(9)
		signer := mustKey(t, signPavel)

		recipients := []block.Address{addr(2), addr(3), addr(4)}
		var txs []blocktest.Tx
		for i := 0; i < 6; i++ {
			to := recipients[rng.Intn(len(recipients))]
			value := int64(1 + rng.Intn(15))
			txs = append(txs, mustTx(t, signer, to, int64(i), value))
		}

		prevHash := block.Hash{0x01}
		blk, err := block.Mine(context.Background(), block.MineParams{
			Index:        1,
			Difficulty:   1,
			Miner:        &miner,
			PreviousHash: &prevHash,
			Timestamp:    time.Now().UTC(),
			Transactions: blocktest.AsTransactions(txs),
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		signerAddr := txs[0].Signer()
		balances := map[block.Address]*big.Int{
			signerAddr: big.NewInt(1000),
		}
		balanceGetter := func(a block.Address, c block.Currency) *big.Int {
			if v, ok := balances[a]; ok {
				return new(big.Int).Set(v)
			}
			return new(big.Int)
		}

		evals1, err := blk.Evaluate(time.Now().UTC(), nil, balanceGetter, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to evaluate the block the first time: %v", failed, err)
		}
		evals2, err := blk.Evaluate(time.Now().UTC(), nil, balanceGetter, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to evaluate the block the second time: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to evaluate the block twice.", success)

		if len(evals1) != len(evals2) {
			t.Fatalf("\t%s\tShould produce the same number of evaluations: got %d and %d.", failed, len(evals1), len(evals2))
		}

		watched := append([]block.Address{signerAddr}, recipients...)
		for i := range evals1 {
			if evals1[i].Tx.ID() != evals2[i].Tx.ID() {
				t.Fatalf("\t%s\tEvaluation %d should be for the same transaction both times.", failed, i)
			}
			if (evals1[i].Eval.Exception == nil) != (evals2[i].Eval.Exception == nil) {
				t.Fatalf("\t%s\tEvaluation %d should agree on whether it raised an exception.", failed, i)
			}
			if evals1[i].Eval.OutputStates == nil || evals2[i].Eval.OutputStates == nil {
				continue
			}
			for _, a := range watched {
				b1 := evals1[i].Eval.OutputStates.GetBalance(a, blocktest.Currency)
				b2 := evals2[i].Eval.OutputStates.GetBalance(a, blocktest.Currency)
				if b1.Cmp(b2) != 0 {
					t.Fatalf("\t%s\tEvaluation %d should report the same balance for %s both times: got %s and %s.", failed, i, a, b1, b2)
				}
			}
		}
		t.Logf("\t%s\tBoth evaluations produced identical results across %d transactions.", success, len(txs))
	}
}
