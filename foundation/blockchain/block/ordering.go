package block

import (
	"bytes"
	"math/big"
	"sort"
)

// sortByID returns a copy of txs sorted by big-endian id comparison, the
// stable canonical pre-order spec.md §4.4 step 1 requires before txHash
// and the signer reshuffle can be computed.
func sortByID(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ID(), out[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})
	return out
}

// flattenTxIDs XORs a signer's transaction ids together. The result does
// not depend on the order ids are folded in, satisfying the XOR ordering
// law of spec.md §8 property 6.
func flattenTxIDs(txs []Transaction) *big.Int {
	acc := new(big.Int)
	for _, tx := range txs {
		id := tx.ID()
		acc.Xor(acc, new(big.Int).SetBytes(id[:]))
	}
	return acc
}

// reorderTransactions implements the "unpredictable-until-mined" ordering
// of spec.md §4.4 step 4: group by signer, rank each signer's group by
// flattened-id XOR preEvaluationHash, then sort within a group by
// ascending nonce. idSorted must already be in id order (sortByID's
// output); its relative order within a signer group is irrelevant since
// step 4 re-sorts by nonce, but keeping it id-sorted keeps the grouping
// pass itself deterministic regardless of caller input order.
func reorderTransactions(idSorted []Transaction, preEvaluationHash Hash) []Transaction {
	if len(idSorted) == 0 {
		return nil
	}

	groups := make(map[Address][]Transaction)
	var signers []Address
	for _, tx := range idSorted {
		signer := tx.Signer()
		if _, ok := groups[signer]; !ok {
			signers = append(signers, signer)
		}
		groups[signer] = append(groups[signer], tx)
	}

	h := new(big.Int).SetBytes(preEvaluationHash[:])

	sort.SliceStable(signers, func(i, j int) bool {
		ki := new(big.Int).Xor(flattenTxIDs(groups[signers[i]]), h)
		kj := new(big.Int).Xor(flattenTxIDs(groups[signers[j]]), h)
		return ki.Cmp(kj) < 0
	})

	ordered := make([]Transaction, 0, len(idSorted))
	for _, signer := range signers {
		group := groups[signer]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Nonce() < group[j].Nonce()
		})
		ordered = append(ordered, group...)
	}
	return ordered
}

// sameOrder reports whether a and b contain the same transactions (by id)
// in the same order.
func sameOrder(a, b []Transaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID() != b[i].ID() {
			return false
		}
	}
	return true
}
