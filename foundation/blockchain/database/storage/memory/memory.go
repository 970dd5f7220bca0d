// Package memory implements the ability to read and write block snapshots
// to memory using a map.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory. This implements the database.Storage interface.
type Memory struct {
	mu     sync.RWMutex
	blocks map[uint64]database.Block
	writes int
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		blocks: make(map[uint64]database.Block),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Exists reports whether a snapshot is held for the block index.
func (m *Memory) Exists(index uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.blocks[index]
	return exists, nil
}

// Write takes the specified block and stores a copy of it in memory,
// replacing any snapshot held for the same index.
func (m *Memory) Write(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[block.Index] = block.Clone()
	m.writes++

	return nil
}

// GetBlock returns a copy of the snapshot held for the block index.
func (m *Memory) GetBlock(index uint64) (database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	block, exists := m.blocks[index]
	if !exists {
		return database.Block{}, fmt.Errorf("block %d: %w", index, database.ErrNotFound)
	}

	return block.Clone(), nil
}

// Writes returns the number of writes performed since construction.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}

// ForEach returns an iterator to walk through all the blocks
// starting with block index 1.
func (m *Memory) ForEach() database.Iterator {
	return &memoryIterator{storage: m}
}

// Reset will clear out every snapshot.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make(map[uint64]database.Block)
	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through and reading blocks in memory. This implements the database
// Iterator interface.
type memoryIterator struct {
	storage *Memory // Access to the storage API.
	current uint64  // Current block index being iterated over.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from memory.
func (mi *memoryIterator) Next() (database.Block, error) {
	if mi.eoc {
		return database.Block{}, errors.New("end of chain")
	}

	mi.current++
	block, err := mi.storage.GetBlock(mi.current)
	if errors.Is(err, database.ErrNotFound) {
		mi.eoc = true
	}

	return block, err
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
