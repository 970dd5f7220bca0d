package ledger

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Tamper lets the caller change a block of the in memory chain directly,
// bypassing every rule. It exists to rehearse tamper detection: the next
// call to Validate is expected to fail.
func (l *Ledger) Tamper(index uint64, fn func(block *database.Block)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index == 0 || index > uint64(len(l.chain)) {
		return fmt.Errorf("block %d: %w", index, database.ErrNotFound)
	}

	l.evHandler("ledger: Tamper: blk[%d]: WARNING: in memory block changed", index)

	block := l.chain[index-1].Clone()
	fn(&block)
	l.chain[index-1] = block

	return nil
}
