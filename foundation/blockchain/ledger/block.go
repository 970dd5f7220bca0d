package ledger

import (
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// CreateBlock builds the next block from the pending transactions and the
// specified proof, stores it, and appends it to the chain. The previous hash
// defaults to the hash of the latest block when not provided. A supplied
// previous hash is used as is, even when it is empty.
//
// If the block can't be stored the chain and the pending transactions are
// left exactly as they were.
func (l *Ledger) CreateBlock(proof uint64, previousHash ...string) (database.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(previousHash) > 0 {
		return l.createBlock(proof, previousHash[0])
	}

	prevHash, err := l.headHash()
	if err != nil {
		return database.Block{}, err
	}

	return l.createBlock(proof, prevHash)
}

// =============================================================================

// headHash returns the hash of the latest block. The caller must hold the
// ledger lock.
func (l *Ledger) headHash() (string, error) {
	if len(l.chain) == 0 {
		return "", nil
	}

	hash, err := l.chain[len(l.chain)-1].Hash()
	if err != nil {
		return "", fmt.Errorf("hashing latest block: %w", err)
	}

	return hash, nil
}

// createBlock performs the work for CreateBlock. The caller must hold the
// ledger lock.
func (l *Ledger) createBlock(proof uint64, prevHash string) (database.Block, error) {
	block := database.NewBlock(uint64(len(l.chain)+1), time.Now(), l.mempool.Copy(), proof, prevHash)

	l.evHandler("ledger: createBlock: blk[%d]: txs[%d]: proof[%d]: prevHash[%s]", block.Index, len(block.Transactions), block.Proof, block.PreviousHash)

	// A block that can't be hashed could never be validated.
	if _, err := block.Hash(); err != nil {
		return database.Block{}, err
	}

	// Storage is the last step that can fail, so it happens before the
	// pool or the chain is touched.
	wrote, err := l.db.Persist(block)
	if err != nil {
		return database.Block{}, fmt.Errorf("persisting block %d: %w", block.Index, err)
	}

	if wrote {
		l.metrics.writes.Inc()
		l.evHandler("ledger: createBlock: blk[%d]: snapshot written", block.Index)
	} else {
		l.evHandler("ledger: createBlock: blk[%d]: snapshot unchanged, write skipped", block.Index)
	}

	l.mempool.Truncate()
	l.chain = append(l.chain, block)

	l.metrics.blocks.Inc()
	l.metrics.chainLength.Set(float64(len(l.chain)))
	l.metrics.pending.Set(0)

	return block.Clone(), nil
}
