package ledger

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// LatestBlock returns a copy of the last block in the chain.
func (l *Ledger) LatestBlock() database.Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.chain) == 0 {
		return database.Block{}
	}

	return l.chain[len(l.chain)-1].Clone()
}

// Length returns the number of blocks in the chain.
func (l *Ledger) Length() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.chain)
}

// Blocks returns a copy of every block in the chain.
func (l *Ledger) Blocks() []database.Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]database.Block, len(l.chain))
	for i, block := range l.chain {
		out[i] = block.Clone()
	}

	return out
}

// Block returns a copy of the block with the specified 1 based index.
func (l *Ledger) Block(index uint64) (database.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index == 0 || index > uint64(len(l.chain)) {
		return database.Block{}, fmt.Errorf("block %d: %w", index, database.ErrNotFound)
	}

	return l.chain[index-1].Clone(), nil
}

// Pending returns a copy of the transactions waiting for the next block.
func (l *Ledger) Pending() []database.Tx {
	return l.mempool.Copy()
}

// PendingCount returns the number of transactions waiting for the next block.
func (l *Ledger) PendingCount() int {
	return l.mempool.Count()
}
