package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ErrInvalidAmount is returned when a transaction amount is NaN or infinite.
// Such an amount has no canonical encoding, so the block holding it could
// never be hashed.
var ErrInvalidAmount = errors.New("amount must be a finite number")

// StageTransaction adds a transaction to the pending pool and returns the
// index of the block that will commit it. Beyond requiring a finite amount
// the transaction is not validated.
func (l *Ledger) StageTransaction(sender string, recipient string, amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("staging %v: %w", amount, ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := database.NewTx(sender, recipient, amount)
	n := l.mempool.Add(tx)

	l.evHandler("ledger: StageTransaction: tx[%s]: pending[%d]", tx, n)
	l.metrics.pending.Set(float64(n))

	return uint64(len(l.chain) + 1), nil
}
