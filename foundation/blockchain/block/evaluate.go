package block

import (
	"math/big"
	"time"
)

// TxActionEvaluation pairs one ActionEvaluation with the transaction that
// produced it, and marks whether it is the last evaluation that
// transaction will produce in this block. IsLast is what Evaluate uses to
// pick the single OutputStates the §4.7 updated-addresses check applies
// to, without needing Transaction values to be comparable map keys.
type TxActionEvaluation struct {
	Tx     Transaction
	Eval   ActionEvaluation
	IsLast bool
}

func defaultStateGetter(Address) (State, bool) { return nil, false }

func defaultBalanceGetter(Address, Currency) *big.Int { return new(big.Int) }

// EvaluateActionsPerTx runs every transaction's actions in block order,
// threading each transaction's resulting state/balance getters into the
// next transaction the way spec.md §4.7 describes: within a transaction,
// each action's OutputStates becomes the getter for the next action; once
// a transaction completes, its final OutputStates replace the outer
// getters for the next transaction. Miner must be present or the
// operation fails immediately, since a produced ActionEvaluation has
// nobody to credit execution to otherwise.
//
// stateGetter and balanceGetter default to "everything absent / zero"
// when nil, per spec.md §4.7.
func (b *Block) EvaluateActionsPerTx(stateGetter StateGetter, balanceGetter BalanceGetter, previousStatesTrie StatesTrie) ([]TxActionEvaluation, error) {
	if b.header.Miner == nil {
		return nil, ErrMissingMiner
	}
	if stateGetter == nil {
		stateGetter = defaultStateGetter
	}
	if balanceGetter == nil {
		balanceGetter = defaultBalanceGetter
	}

	var out []TxActionEvaluation
	for _, tx := range b.transactions {
		delta := NewAccountStateDelta(stateGetter, balanceGetter, tx.Signer())
		it := tx.EvaluateActionsGradually(b.header.PreEvaluationHash, b.header.Index, delta, *b.header.Miner, previousStatesTrie)

		var last Delta = delta
		firstIndex := len(out)
		for eval, err := it.Next(); !it.Done(); eval, err = it.Next() {
			if err != nil {
				return nil, err
			}
			out = append(out, TxActionEvaluation{Tx: tx, Eval: eval})
			if eval.OutputStates != nil {
				last = eval.OutputStates
			}
		}
		if len(out) > firstIndex {
			out[len(out)-1].IsLast = true
		}

		stateGetter = last.GetState
		balanceGetter = last.GetBalance
	}

	return out, nil
}

// Evaluate validates the block, then runs EvaluateActionsPerTx and checks
// spec.md §4.7 step 3: each transaction's final OutputStates.
// UpdatedAddresses must be a subset of the transaction's own declared
// UpdatedAddresses.
func (b *Block) Evaluate(currentTime time.Time, stateGetter StateGetter, balanceGetter BalanceGetter, previousStatesTrie StatesTrie) ([]TxActionEvaluation, error) {
	if err := b.Validate(currentTime); err != nil {
		return nil, err
	}

	evals, err := b.EvaluateActionsPerTx(stateGetter, balanceGetter, previousStatesTrie)
	if err != nil {
		return nil, err
	}

	for _, te := range evals {
		if !te.IsLast || te.Eval.OutputStates == nil {
			continue
		}

		allowed := te.Tx.UpdatedAddresses()
		var excess []Address
		for a := range te.Eval.OutputStates.UpdatedAddresses() {
			if _, ok := allowed[a]; !ok {
				excess = append(excess, a)
			}
		}
		if len(excess) > 0 {
			return nil, invalidf(ErrInvalidTxUpdatedAddresses, "tx %s touched undeclared addresses %v", te.Tx.ID(), excess)
		}
	}

	return evals, nil
}
