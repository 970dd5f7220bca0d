package pow_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func guessHash(previousProof uint64, proof uint64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d%d", previousProof, proof)))
	return hex.EncodeToString(sum[:])
}

func Test_IsValid(t *testing.T) {
	t.Log("Given the need to verify proofs against the previous proof.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen checking the first proofs after 100.", testID)
		{
			for proof := uint64(0); proof < 200_000; proof++ {
				hash := guessHash(100, proof)
				exp := hash[:4] == "0000"

				if got := pow.IsValid(pow.DefaultDifficulty, 100, proof); got != exp {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
					t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, exp)
					t.Fatalf("\t%s\tTest %d:\tShould agree with the hash prefix for proof %d.", failed, testID, proof)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould agree with the hash prefix for every proof.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen using a difficulty of zero.", testID)
		{
			if !pow.IsValid(0, 100, 12345) {
				t.Fatalf("\t%s\tTest %d:\tShould accept any proof.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould accept any proof.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen using a difficulty larger than the hash.", testID)
		{
			if pow.IsValid(65, 100, 0) {
				t.Fatalf("\t%s\tTest %d:\tShould reject every proof.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject every proof.", success, testID)
		}
	}
}

func Test_Search(t *testing.T) {
	type table struct {
		name          string
		previousProof uint64
		difficulty    uint
		workers       int
	}

	tt := []table{
		{name: "genesis", previousProof: 100, difficulty: pow.DefaultDifficulty, workers: 1},
		{name: "genesis-parallel", previousProof: 100, difficulty: pow.DefaultDifficulty, workers: 4},
		{name: "easy", previousProof: 35293, difficulty: 2, workers: 1},
		{name: "easy-parallel", previousProof: 35293, difficulty: 2, workers: 3},
	}

	t.Log("Given the need to find the smallest valid proof.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen searching with %d workers.", testID, tst.workers)
			{
				f := func(t *testing.T) {
					cfg := pow.Config{Difficulty: tst.difficulty, Workers: tst.workers}

					proof, err := pow.Search(context.Background(), cfg, tst.previousProof)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to find a proof: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to find a proof: %d", success, testID, proof)

					if !pow.IsValid(tst.difficulty, tst.previousProof, proof) {
						t.Fatalf("\t%s\tTest %d:\tShould get a valid proof.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get a valid proof.", success, testID)

					for p := uint64(0); p < proof; p++ {
						if pow.IsValid(tst.difficulty, tst.previousProof, p) {
							t.Fatalf("\t%s\tTest %d:\tShould get the smallest proof, %d is smaller.", failed, testID, p)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get the smallest proof.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_SearchCancel(t *testing.T) {
	t.Log("Given the need to abort a runaway search.")
	{
		for testID, workers := range []int{1, 4} {
			t.Logf("\tTest %d:\tWhen the difficulty can't be solved and %d workers run.", testID, workers)
			{
				ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
				defer cancel()

				cfg := pow.Config{Difficulty: 65, Workers: workers}

				_, err := pow.Search(ctx, cfg, 100)
				if !errors.Is(err, context.DeadlineExceeded) {
					t.Fatalf("\t%s\tTest %d:\tShould get a deadline error, got %v.", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get a deadline error.", success, testID)
			}
		}
	}
}
