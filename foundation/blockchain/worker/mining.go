package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/ledger"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation searches for a proof against the latest block and
// commits the pending transactions in a new block.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Set by the mining G once a block is appended. Read only after both
	// G's are done.
	var mined bool

	// With auto mining on, check if a new operation should be signaled
	// again once this one is done. A failed operation is not retried here,
	// the next staged transaction signals again.
	defer func() {
		if !w.auto || !mined || w.isShutdown() {
			return
		}
		if length := w.ledger.PendingCount(); length > 0 {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: txs[%d]", length)
			w.SignalStartMining()
		}
	}()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if w.timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, w.timeout)
		defer timeoutCancel()
	}

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.ledger.MineBlock(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

		if err != nil {
			switch {
			case errors.Is(err, ledger.ErrChainChanged):
				w.evHandler("worker: runMiningOperation: MINING: WARNING: chain changed, proof discarded")
			case errors.Is(err, context.DeadlineExceeded):
				w.evHandler("worker: runMiningOperation: MINING: TIMEOUT: after %v", w.timeout)
			case ctx.Err() != nil:
				w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
			default:
				w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			}
			return
		}

		mined = true
		w.evHandler("worker: runMiningOperation: MINING: blk[%d]: txs[%d]: proof[%d]", block.Index, len(block.Transactions), block.Proof)
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}
