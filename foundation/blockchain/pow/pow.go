// Package pow implements the proof of work puzzle that binds each block to
// the proof of its parent.
package pow

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// DefaultDifficulty is the number of leading hex zeros a guess hash needs.
const DefaultDifficulty = 4

// batchSize is the number of consecutive proofs a single worker checks
// before the batch results are compared.
const batchSize = 1 << 14

// cancelCheck is how many guesses are made between checks of the context.
const cancelCheck = 1 << 10

// =============================================================================

// Config represents the settings for a proof search.
type Config struct {
	Difficulty uint
	Workers    int
	EvHandler  func(v string, args ...any)
}

func (cfg Config) ev(v string, args ...any) {
	if cfg.EvHandler != nil {
		cfg.EvHandler(v, args...)
	}
}

// IsValid reports whether the proof solves the puzzle for the previous
// proof. The guess is the decimal previous proof immediately followed by the
// decimal proof, and its hash must start with difficulty zeros.
func IsValid(difficulty uint, previousProof uint64, proof uint64) bool {
	guess := strconv.FormatUint(previousProof, 10) + strconv.FormatUint(proof, 10)
	return isHashSolved(difficulty, digest.Sum([]byte(guess)))
}

// Search returns the smallest proof that solves the puzzle for the previous
// proof. The search has no upper bound and only stops early when the context
// is cancelled or times out.
func Search(ctx context.Context, cfg Config, previousProof uint64) (uint64, error) {
	cfg.ev("pow: Search: MINING: started: prevProof[%d]: difficulty[%d]: workers[%d]", previousProof, cfg.Difficulty, cfg.Workers)

	t := time.Now()

	var proof uint64
	var err error
	switch {
	case cfg.Workers > 1:
		proof, err = searchParallel(ctx, cfg, previousProof)
	default:
		proof, err = searchSerial(ctx, cfg, previousProof)
	}

	if err != nil {
		cfg.ev("pow: Search: MINING: CANCELLED: duration[%v]", time.Since(t))
		return 0, err
	}

	cfg.ev("pow: Search: MINING: SOLVED: proof[%d]: duration[%v]", proof, time.Since(t))

	return proof, nil
}

// =============================================================================

// searchSerial walks the proofs one at a time starting at zero.
func searchSerial(ctx context.Context, cfg Config, previousProof uint64) (uint64, error) {
	for proof := uint64(0); ; proof++ {
		if proof%cancelCheck == 0 {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}

			if proof > 0 && proof%1_000_000 == 0 {
				cfg.ev("pow: Search: MINING: attempts[%d]", proof)
			}
		}

		if IsValid(cfg.Difficulty, previousProof, proof) {
			return proof, nil
		}
	}
}

// searchParallel splits the proofs into ascending batches, one range per
// worker. Every range below a solution has been fully searched once the
// batch completes, so the lowest worker with a solution holds the minimum.
func searchParallel(ctx context.Context, cfg Config, previousProof uint64) (uint64, error) {
	workers := uint64(cfg.Workers)

	for base := uint64(0); ; base += workers * batchSize {
		found := make([]uint64, workers)
		solved := make([]bool, workers)

		g, gctx := errgroup.WithContext(ctx)
		for w := range workers {
			start := base + w*batchSize

			g.Go(func() error {
				for proof := start; proof < start+batchSize; proof++ {
					if proof%cancelCheck == 0 && gctx.Err() != nil {
						return gctx.Err()
					}

					if IsValid(cfg.Difficulty, previousProof, proof) {
						found[w] = proof
						solved[w] = true
						return nil
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return 0, err
		}

		for w := range workers {
			if solved[w] {
				return found[w], nil
			}
		}

		next := base + workers*batchSize
		if next/1_000_000 != base/1_000_000 {
			cfg.ev("pow: Search: MINING: attempts[%d]", next)
		}
	}
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	const match = "0000000000000000000000000000000000000000000000000000000000000000"

	if len(hash) != 64 || difficulty > 64 {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
