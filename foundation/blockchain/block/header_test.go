package block_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blockweave/blockcore/foundation/blockchain/block"
)

func Test_HeaderValidateRejectsNegativeScalars(t *testing.T) {
	t.Log("Given the need to reject header scalars outside their valid range.")
	{
		tests := []struct {
			name       string
			index      int64
			difficulty int64
			wantErr    error
		}{
			{"negative index", -1, 0, block.ErrInvalidBlockIndex},
			{"negative difficulty", 0, -1, block.ErrInvalidBlockDifficulty},
		}

		for _, tt := range tests {
			f := func(t *testing.T) {
				blk, err := block.New(block.NewBlockArgs{
					Index:      tt.index,
					Difficulty: tt.difficulty,
					Timestamp:  time.Now().UTC(),
				})
				if err != nil {
					t.Fatalf("\t%s\tShould be able to build the block: %v", failed, err)
				}
				t.Logf("\t%s\tShould be able to build the block.", success)

				err = blk.Header().Validate(time.Now().UTC())
				if err == nil {
					t.Fatalf("\t%s\tShould reject %s.", failed, tt.name)
				}
				t.Logf("\t%s\tShould reject %s.", success, tt.name)

				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("\t%s\tShould wrap %v, got %v.", failed, tt.wantErr, err)
				}
				t.Logf("\t%s\tShould wrap %v.", success, tt.wantErr)

				if err.Error() == "" {
					t.Fatalf("\t%s\tShould carry a translated, non-empty message.", failed)
				}
				t.Logf("\t%s\tShould carry a translated, non-empty message: %v", success, err)
			}
			t.Run(tt.name, f)
		}
	}
}
