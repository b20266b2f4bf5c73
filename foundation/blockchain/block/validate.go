package block

import (
	"time"
)

// Validate implements spec.md §4.6: header structural validation, each
// transaction's own Validate, the recomputed transaction hash, the
// recomputed pre-evaluation and post-evaluation hashes, and the
// canonical transaction order. It reports the first failing rule and
// stops, mirroring the ardanlabs/blockchain ValidateBlock step ordering
// (database/block.go).
func (b *Block) Validate(currentTime time.Time) error {
	if err := b.header.Validate(currentTime); err != nil {
		return err
	}

	for _, tx := range b.transactions {
		if err := tx.Validate(); err != nil {
			return err
		}
	}

	recomputedTxHash, err := computeTxHash(b.idSorted)
	if err != nil {
		return err
	}
	if !hashPtrEqual(recomputedTxHash, b.header.TxHash) {
		return invalidf(ErrInvalidBlockTxHash, "recomputed transaction hash disagrees with stored one")
	}

	recomputedHash := hashForSerialization(b.header.hashFields(), b.header.StateRootHash)
	if recomputedHash != b.header.Hash {
		return invalidf(ErrInvalidBlockNonce, "recomputed hash disagrees with stored one")
	}

	expectedOrder := reorderTransactions(b.idSorted, b.header.PreEvaluationHash)
	if !sameOrder(expectedOrder, b.transactions) {
		return invalidf(ErrInvalidBlockOrder, "transactions are not in canonical order for this pre-evaluation hash")
	}

	return nil
}
