package hashcash_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/blockweave/blockcore/foundation/blockchain/hashcash"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_AnswerZeroDifficulty(t *testing.T) {
	stamp := func(nonce []byte) []byte { return nonce }

	nonce, err := hashcash.Answer(stamp, 0, nil)
	if err != nil {
		t.Fatalf("\t%s\tshould answer immediately: %s", failed, err)
	}
	if len(nonce) != 0 {
		t.Fatalf("\t%s\tgot[%d] exp[0] byte nonce", failed, len(nonce))
	}
}

func Test_AnswerSatisfiesDifficulty(t *testing.T) {
	stamp := func(nonce []byte) []byte { return append([]byte("block-stamp:"), nonce...) }

	const difficulty = 1 << 8

	nonce, err := hashcash.Answer(stamp, difficulty, nil)
	if err != nil {
		t.Fatalf("\t%s\tshould find a solution: %s", failed, err)
	}

	digest := hashcash.Hash(stamp(nonce))
	if !hashcash.Satisfies(digest, difficulty) {
		t.Fatalf("\t%s\tsolution does not satisfy difficulty", failed)
	}
}

func Test_AnswerPrefersShorterNonce(t *testing.T) {
	// Difficulty 1 sets the target to 2^256, which every digest is below,
	// so the very first zero-length candidate always satisfies it; getting
	// a zero-length nonce back shows the search checks length 0 before
	// ever trying length 1.
	stamp := func(nonce []byte) []byte { return nonce }

	nonce, err := hashcash.Answer(stamp, 1, nil)
	if err != nil {
		t.Fatalf("\t%s\tshould find a solution: %s", failed, err)
	}
	if len(nonce) != 0 {
		t.Fatalf("\t%s\tgot[%d] exp[0] byte nonce", failed, len(nonce))
	}
}

func Test_AnswerCancelled(t *testing.T) {
	stamp := func(nonce []byte) []byte { return append([]byte("unsolvable:"), nonce...) }

	cancel := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(cancel)
	}()

	// A difficulty this high has no realistic solution within the test's
	// lifetime, so the only way Answer returns is via cancellation.
	const difficulty = int64(1) << 62

	_, err := hashcash.Answer(stamp, difficulty, cancel)
	if err != hashcash.ErrCancelled {
		t.Fatalf("\t%s\tgot[%v] exp[%v]", failed, err, hashcash.ErrCancelled)
	}
}

// Test_AnswerAttemptsScaleWithDifficulty exercises the statistical
// property that a harder difficulty target costs more search on average.
// It's not a strict inequality per attempt (a lucky low-difficulty search
// can occasionally beat an unlucky high-difficulty one), so it runs many
// randomly-salted trials at each difficulty and compares the means.
func Test_AnswerAttemptsScaleWithDifficulty(t *testing.T) {
	const trials = 25

	easy := meanAttempts(t, 1<<2, trials)
	hard := meanAttempts(t, 1<<10, trials)

	if hard <= easy {
		t.Fatalf("\t%s\tgot mean attempts easy=%.1f hard=%.1f, want hard > easy", failed, easy, hard)
	}
	t.Logf("\t%s\tmean attempts easy=%.1f hard=%.1f over %d trials each", success, easy, hard, trials)
}

// meanAttempts runs Answer trials times at difficulty, each against a
// distinct random salt from a seed fixed to difficulty (so the test is
// deterministic across runs), and returns the average number of stamp
// evaluations Answer performed before finding a solution.
func meanAttempts(t *testing.T, difficulty int64, trials int) float64 {
	t.Helper()

	rng := rand.New(rand.NewSource(difficulty))
	total := 0
	for i := 0; i < trials; i++ {
		salt := make([]byte, 8)
		rng.Read(salt)

		attempts := 0
		stamp := func(nonce []byte) []byte {
			attempts++
			return append(append([]byte(nil), salt...), nonce...)
		}

		if _, err := hashcash.Answer(stamp, difficulty, nil); err != nil {
			t.Fatalf("\t%s\tshould find a solution: %s", failed, err)
		}
		total += attempts
	}
	return float64(total) / float64(trials)
}
