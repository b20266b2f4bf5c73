package block

import (
	"math/big"
	"time"

	"github.com/blockweave/blockcore/foundation/blockchain/hashcash"
	entranslations "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslator "github.com/go-playground/validator/v10/translations/en"
)

// validate is a package-level validator instance, matching the
// once-per-package construction the go-playground/validator docs and the
// ardanlabs web-service template both use rather than allocating one per
// call. translator renders its field errors as English sentences instead
// of the library's default tag-name dump.
var (
	validate   = validator.New()
	translator ut.Translator
)

func init() {
	enLocale := entranslations.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	if err := entranslator.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// headerScalars is the struct-tag-checked subset of Header's fields:
// the ones with a context-free validity rule. The genesis/non-genesis
// conditional rules (difficulty zero iff index zero, previous hash
// presence) aren't expressible as independent field tags and stay in
// Validate below.
type headerScalars struct {
	Index      int64 `validate:"gte=0"`
	Difficulty int64 `validate:"gte=0"`
}

// maxClockSkew is how far into the future a block's timestamp may sit
// relative to the validating caller's clock before it's rejected.
const maxClockSkew = 15 * time.Second

// Header is the flat record of a block's scalar fields, mirroring the
// ardanlabs/blockchain BlockHeader shape (database/block.go) generalized
// with the fields spec.md §3 requires: a big-integer running difficulty
// total, the two-stage pre/post evaluation hashes, and an optional state
// root commitment.
type Header struct {
	Index             int64
	Difficulty        int64
	TotalDifficulty   *big.Int
	Nonce             []byte
	Miner             *Address
	PreviousHash      *Hash
	Timestamp         time.Time
	TxHash            *Hash
	PreEvaluationHash Hash
	StateRootHash     *Hash
	Hash              Hash
}

// clone returns a deep copy of h: TotalDifficulty, Nonce, and every
// pointer field are copied rather than aliased, so a caller holding a
// Header returned from the package cannot reach back into the Block
// that produced it by mutating what it points to.
func (h Header) clone() Header {
	out := h
	if h.TotalDifficulty != nil {
		out.TotalDifficulty = new(big.Int).Set(h.TotalDifficulty)
	}
	if h.Nonce != nil {
		out.Nonce = append([]byte(nil), h.Nonce...)
	}
	if h.Miner != nil {
		m := *h.Miner
		out.Miner = &m
	}
	if h.PreviousHash != nil {
		p := *h.PreviousHash
		out.PreviousHash = &p
	}
	if h.TxHash != nil {
		t := *h.TxHash
		out.TxHash = &t
	}
	if h.StateRootHash != nil {
		s := *h.StateRootHash
		out.StateRootHash = &s
	}
	return out
}

func (h Header) hashFields() hashFields {
	return hashFields{
		Index:      h.Index,
		Difficulty: h.Difficulty,
		Nonce:      h.Nonce,
		Miner:      h.Miner,
		Previous:   h.PreviousHash,
		Timestamp:  h.Timestamp,
		TxHash:     h.TxHash,
	}
}

// Validate enforces spec.md §4.3: non-negative index, the difficulty/index
// zero-iff-genesis rule, timestamp not more than 15s ahead of currentTime,
// previous-hash presence matching index, and the proof-of-work check that
// PreEvaluationHash is both the correct recomputation and satisfies
// Difficulty.
func (h Header) Validate(currentTime time.Time) error {
	scalars := headerScalars{Index: h.Index, Difficulty: h.Difficulty}
	if err := validate.Struct(scalars); err != nil {
		fieldErrs := err.(validator.ValidationErrors)
		msg := fieldErrs[0].Translate(translator)
		switch fieldErrs[0].Field() {
		case "Index":
			return invalidf(ErrInvalidBlockIndex, "%s", msg)
		default:
			return invalidf(ErrInvalidBlockDifficulty, "%s", msg)
		}
	}

	if h.Index == 0 && h.Difficulty != 0 {
		return invalidf(ErrInvalidBlockDifficulty, "genesis block must have zero difficulty, got %d", h.Difficulty)
	}
	if h.Index != 0 && h.Difficulty == 0 {
		return invalidf(ErrInvalidBlockDifficulty, "non-genesis block %d must have nonzero difficulty", h.Index)
	}

	if h.Timestamp.After(currentTime.Add(maxClockSkew)) {
		return invalidf(ErrInvalidBlockTimestamp, "timestamp %s is more than %s ahead of %s", formatTimestamp(h.Timestamp), maxClockSkew, formatTimestamp(currentTime))
	}

	if h.Index > 0 && h.PreviousHash == nil {
		return invalidf(ErrInvalidBlockPreviousHash, "block %d is missing a previous hash", h.Index)
	}
	if h.Index == 0 && h.PreviousHash != nil {
		return invalidf(ErrInvalidBlockPreviousHash, "genesis block must not have a previous hash")
	}

	digest := hashForSerialization(h.hashFields(), nil)
	if digest != h.PreEvaluationHash {
		return invalidf(ErrInvalidBlockNonce, "pre-evaluation hash does not match its own fields")
	}
	if !hashcash.Satisfies([32]byte(digest), h.Difficulty) {
		return invalidf(ErrInvalidBlockNonce, "nonce does not satisfy difficulty %d", h.Difficulty)
	}

	return nil
}
