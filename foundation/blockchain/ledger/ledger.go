// Package ledger is the core API for the blockchain. It owns the chain and
// the pending transactions and implements the rules for creating, storing
// and validating blocks.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/prometheus/client_golang/prometheus"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Storage    database.Storage
	Difficulty uint
	Workers    int
	Resume     bool
	Reset      bool
	Registerer prometheus.Registerer
	EvHandler  EventHandler
}

// Ledger manages a single chain of blocks and the transactions waiting to
// be committed. A Ledger is safe for concurrent use, but every change to the
// chain or the pool happens one at a time.
type Ledger struct {
	mu         sync.Mutex
	difficulty uint
	workers    int
	evHandler  EventHandler
	chain      []database.Block

	mempool *mempool.Mempool
	db      *database.Database
	metrics *metrics
}

// New constructs a ledger. The chain starts with the genesis block, which
// goes through the same write policy as every other block. When Resume is
// set and blocks are already in storage, the chain is loaded from storage
// instead and checked as it is read.
func New(cfg Config) (*Ledger, error) {
	if cfg.Storage == nil {
		return nil, errors.New("ledger requires storage")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	difficulty := cfg.Difficulty
	if difficulty == 0 {
		difficulty = pow.DefaultDifficulty
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	l := Ledger{
		difficulty: difficulty,
		workers:    cfg.Workers,
		evHandler:  ev,
		mempool:    mempool.New(),
		db:         database.New(cfg.Storage),
		metrics:    m,
	}

	if cfg.Reset {
		ev("ledger: New: reset storage")
		if err := l.db.Reset(); err != nil {
			return nil, fmt.Errorf("resetting storage: %w", err)
		}
	}

	if cfg.Resume {
		loaded, err := l.loadChain()
		if err != nil {
			return nil, fmt.Errorf("loading chain: %w", err)
		}

		if loaded {
			ev("ledger: New: resumed: blocks[%d]", len(l.chain))
			l.metrics.chainLength.Set(float64(len(l.chain)))
			return &l, nil
		}
	}

	ev("ledger: New: create genesis block")

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.createBlock(database.GenesisProof, database.GenesisPreviousHash); err != nil {
		return nil, fmt.Errorf("creating genesis block: %w", err)
	}

	return &l, nil
}

// Close releases the storage used by the ledger.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Difficulty returns the number of leading zeros a proof hash needs.
func (l *Ledger) Difficulty() uint {
	return l.difficulty
}

// =============================================================================

// loadChain reads every stored block starting at index 1 and checks each
// one against its parent. It reports whether any blocks were found.
func (l *Ledger) loadChain() (bool, error) {
	iter := l.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return false, err
		}

		l.evHandler("ledger: loadChain: blk[%d]", block.Index)

		if len(l.chain) == 0 {
			if err := checkGenesis(block); err != nil {
				return false, err
			}
			l.chain = append(l.chain, block)
			continue
		}

		if err := l.checkLink(l.chain[len(l.chain)-1], block); err != nil {
			return false, err
		}

		l.chain = append(l.chain, block)
	}

	return len(l.chain) > 0, nil
}
