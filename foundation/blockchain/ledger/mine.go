package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// ErrChainChanged is returned when a block was added while a proof was
// being searched for, so the proof no longer applies to the latest block.
var ErrChainChanged = errors.New("chain changed during proof search")

// =============================================================================

// FindProof searches for the smallest proof that solves the puzzle against
// the latest block's proof. The ledger is not locked during the search, so
// this can run on its own goroutine and be cancelled through the context.
func (l *Ledger) FindProof(ctx context.Context) (uint64, error) {
	return l.search(ctx, l.LatestBlock().Proof)
}

// MineBlock finds a proof for the latest block and then creates the next
// block with it. If another block is added during the search the mined
// proof is discarded and ErrChainChanged is returned.
func (l *Ledger) MineBlock(ctx context.Context) (database.Block, error) {
	l.evHandler("ledger: MineBlock: MINING: started")
	defer l.evHandler("ledger: MineBlock: MINING: completed")

	head := l.LatestBlock()

	proof, err := l.search(ctx, head.Proof)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.chain) != int(head.Index) {
		return database.Block{}, ErrChainChanged
	}

	prevHash, err := l.headHash()
	if err != nil {
		return database.Block{}, err
	}

	return l.createBlock(proof, prevHash)
}

// =============================================================================

// search runs the proof search and records how long it took.
func (l *Ledger) search(ctx context.Context, previousProof uint64) (uint64, error) {
	cfg := pow.Config{
		Difficulty: l.difficulty,
		Workers:    l.workers,
		EvHandler:  l.evHandler,
	}

	t := time.Now()
	defer func() {
		l.metrics.powSeconds.Observe(time.Since(t).Seconds())
	}()

	return pow.Search(ctx, cfg, previousProof)
}
