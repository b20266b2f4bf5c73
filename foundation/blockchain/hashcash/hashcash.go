// Package hashcash implements the proof-of-work search used to mine a
// block: find the lexicographically-smallest-length nonce whose SHA-256
// digest, read as an unsigned integer, falls below a difficulty-derived
// target. It mirrors the polling-for-cancellation shape the ardanlabs
// blockchain uses in its own mining loop, generalized from a fixed-width
// uint64 nonce to an arbitrary-length byte nonce.
package hashcash

import (
	"crypto/sha256"
	"errors"
	"math/big"
)

// ErrCancelled is returned by Answer when the cancel channel is closed or
// signalled before a solution is found.
var ErrCancelled = errors.New("hashcash: mining cancelled")

// pollInterval is how many attempts pass between checks of the cancel
// signal. The teacher's performPOW logs every 1,000,000 attempts; we poll
// cancellation far more often since a missed signal directly extends how
// long a caller waits for Mine to return.
const pollInterval = 2048

// maxTarget is 2^256, the ceiling every SHA-256 digest is measured against.
var maxTarget = new(big.Int).Lsh(big.NewInt(1), 256)

// Hash returns the SHA-256 digest of b.
func Hash(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Answer searches for the shortest-length nonce such that
// Hash(stamp(nonce)), read as a big-endian unsigned integer, is strictly
// less than 2^256/difficulty. Nonce lengths are tried in order starting
// from zero; within a length, candidate nonces are tried in ascending
// big-endian order starting from all-zero bytes. difficulty <= 0 is
// treated as "any nonce satisfies" and returns immediately with an empty
// nonce. cancel is polled every pollInterval attempts; if it fires before
// a solution is found, Answer returns ErrCancelled and no nonce.
func Answer(stamp func(nonce []byte) []byte, difficulty int64, cancel <-chan struct{}) ([]byte, error) {
	if difficulty <= 0 {
		return []byte{}, nil
	}

	target := new(big.Int).Div(maxTarget, big.NewInt(difficulty))

	attempts := 0
	for length := 0; ; length++ {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(length*8))

		for i := new(big.Int); i.Cmp(limit) < 0; i.Add(i, big.NewInt(1)) {
			attempts++
			if attempts%pollInterval == 0 {
				select {
				case <-cancel:
					return nil, ErrCancelled
				default:
				}
			}

			nonce := i.FillBytes(make([]byte, length))
			digest := Hash(stamp(nonce))
			if new(big.Int).SetBytes(digest[:]).Cmp(target) < 0 {
				return nonce, nil
			}
		}
	}
}

// Satisfies reports whether digest, read as a big-endian unsigned integer,
// is strictly less than 2^256/difficulty. difficulty <= 0 always satisfies.
func Satisfies(digest [32]byte, difficulty int64) bool {
	if difficulty <= 0 {
		return true
	}
	target := new(big.Int).Div(maxTarget, big.NewInt(difficulty))
	return new(big.Int).SetBytes(digest[:]).Cmp(target) < 0
}
