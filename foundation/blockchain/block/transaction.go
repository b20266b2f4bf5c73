package block

import (
	"math/big"

	"github.com/blockweave/blockcore/foundation/blockchain/codec"
)

// Transaction is the capability set the block core requires from a
// transaction; everything else about a transaction (its actions, its wire
// format beyond Serialize, its signature scheme) is an external concern
// per spec.md §1. This models the "capability set {serialize,
// execute(context) -> delta}" design note rather than a generic action
// type parameter, which is not how Go expresses this kind of variability.
type Transaction interface {
	ID() Hash
	Signer() Address
	Nonce() int64
	UpdatedAddresses() map[Address]struct{}
	Serialize(signed bool) ([]byte, error)
	ToCanonicalValue(signed bool) (codec.Value, error)
	Validate() error
	EvaluateActionsGradually(preEvaluationHash Hash, blockIndex int64, initial Delta, miner Address, previousStatesTrie StatesTrie) ActionEvaluationIterator
}

// State is an opaque account-state value. The block core never inspects
// it; it only threads it between a StateGetter and a Delta.
type State any

// Currency identifies a unit of account balance is denominated in.
type Currency string

// StateGetter looks up the current state committed for an address. The
// zero-value default (used when the caller supplies none) reports every
// address absent.
type StateGetter func(Address) (State, bool)

// BalanceGetter looks up the current balance of an address in a currency.
// The zero-value default (used when the caller supplies none) reports a
// zero balance for every address and currency.
type BalanceGetter func(Address, Currency) *big.Int

// StatesTrie is the account-state trie collaborator, referenced only
// through this abstract contract per spec.md §1; the block core never
// calls into it directly, only passes it through to a Transaction.
type StatesTrie interface{}

// Delta is the account-state delta produced (and consumed) while
// evaluating a transaction's actions: a view of state and balances after
// some prefix of the actions has run, plus the set of addresses that
// prefix has touched.
type Delta interface {
	GetState(Address) (State, bool)
	GetBalance(Address, Currency) *big.Int
	Signer() Address
	UpdatedAddresses() map[Address]struct{}
}

// AccountStateDelta is the initial Delta seeded from a StateGetter and
// BalanceGetter for one transaction's signer, with no addresses yet
// touched. It is what EvaluateActionsPerTx hands to
// Transaction.EvaluateActionsGradually as the starting point for that
// transaction's first action.
type AccountStateDelta struct {
	stateGetter   StateGetter
	balanceGetter BalanceGetter
	signer        Address
}

// NewAccountStateDelta constructs the initial delta for a transaction
// signed by signer.
func NewAccountStateDelta(stateGetter StateGetter, balanceGetter BalanceGetter, signer Address) *AccountStateDelta {
	return &AccountStateDelta{stateGetter: stateGetter, balanceGetter: balanceGetter, signer: signer}
}

// GetState implements Delta by deferring to the seed getter.
func (d *AccountStateDelta) GetState(a Address) (State, bool) {
	return d.stateGetter(a)
}

// GetBalance implements Delta by deferring to the seed getter.
func (d *AccountStateDelta) GetBalance(a Address, c Currency) *big.Int {
	return d.balanceGetter(a, c)
}

// Signer implements Delta.
func (d *AccountStateDelta) Signer() Address {
	return d.signer
}

// UpdatedAddresses implements Delta. The seed delta has not run any
// action yet, so nothing has been touched.
func (d *AccountStateDelta) UpdatedAddresses() map[Address]struct{} {
	return nil
}

// ActionEvaluation is the record produced by executing a single action:
// the resulting delta, and an error if the action failed. Action is left
// opaque (any) since the action's own type is out of scope for the block
// core; callers that need to inspect it type-assert against their own
// action type.
type ActionEvaluation struct {
	Action       any
	OutputStates Delta
	Exception    error
}

// ActionEvaluationIterator streams the ActionEvaluations produced by
// evaluating one transaction's actions. It mirrors the
// database.Iterator{Next() (T, error); Done() bool} shape the ardanlabs
// teacher uses for its own block-reading iterator, generalized to actions.
type ActionEvaluationIterator interface {
	Next() (ActionEvaluation, error)
	Done() bool
}

// =============================================================================

// SliceActionEvaluationIterator adapts a pre-computed slice of
// ActionEvaluation to the ActionEvaluationIterator contract. Real
// transaction implementations may stream lazily instead; this adapter is
// what this module's own tests and the blocktest fake transaction use.
//
// Done only flips to true as a side effect of the Next call that finds no
// more evaluations left, matching the database.Iterator it is grounded on:
// a caller loops "for v, err := it.Next(); !it.Done(); v, err = it.Next()"
// and the exhausting call's zero-value return is never used.
type SliceActionEvaluationIterator struct {
	evals []ActionEvaluation
	pos   int
	done  bool
}

// NewSliceActionEvaluationIterator wraps evals for iteration.
func NewSliceActionEvaluationIterator(evals []ActionEvaluation) *SliceActionEvaluationIterator {
	return &SliceActionEvaluationIterator{evals: evals}
}

// Next returns the next evaluation, advancing the cursor.
func (it *SliceActionEvaluationIterator) Next() (ActionEvaluation, error) {
	if it.done {
		return ActionEvaluation{}, nil
	}
	if it.pos >= len(it.evals) {
		it.done = true
		return ActionEvaluation{}, nil
	}
	eval := it.evals[it.pos]
	it.pos++
	return eval, eval.Exception
}

// Done reports whether Next has been called once past the last evaluation.
func (it *SliceActionEvaluationIterator) Done() bool {
	return it.done
}
