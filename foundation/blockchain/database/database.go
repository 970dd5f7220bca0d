// Package database handles all the lower level support for persisting block
// snapshots and detecting when a block no longer matches what was written.
package database

import (
	"errors"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading block snapshots. There is
// at most one snapshot per block index.
type Storage interface {
	Exists(index uint64) (bool, error)
	Write(block Block) error
	GetBlock(index uint64) (Block, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}

// =============================================================================

// Database manages the block snapshots held by the configured storage.
type Database struct {
	storage Storage
}

// New constructs a database over the specified storage.
func New(storage Storage) *Database {
	return &Database{
		storage: storage,
	}
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Reset removes every snapshot from the underlying storage.
func (db *Database) Reset() error {
	return db.storage.Reset()
}

// Exists reports whether a snapshot has been written for the index.
func (db *Database) Exists(index uint64) (bool, error) {
	return db.storage.Exists(index)
}

// Load reads back the snapshot written for the index. ErrNotFound is
// returned when there is none.
func (db *Database) Load(index uint64) (Block, error) {
	return db.storage.GetBlock(index)
}

// Save writes the block as the snapshot for its index, replacing any
// snapshot already there.
func (db *Database) Save(block Block) error {
	return db.storage.Write(block)
}

// HasDiverged reports whether a snapshot exists for the block's index and
// hashes differently than the block. A missing snapshot has nothing to
// diverge from. A snapshot that can't be read is an error, not a match.
func (db *Database) HasDiverged(block Block) (bool, error) {
	snapshot, err := db.storage.GetBlock(block.Index)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	snapshotHash, err := snapshot.Hash()
	if err != nil {
		return false, err
	}

	blockHash, err := block.Hash()
	if err != nil {
		return false, err
	}

	return snapshotHash != blockHash, nil
}

// Persist applies the write policy for a block. The block is written when
// there is no snapshot for its index or the snapshot has diverged, and is
// skipped when an identical snapshot is already stored. The return value
// reports whether a write took place.
func (db *Database) Persist(block Block) (bool, error) {
	exists, err := db.storage.Exists(block.Index)
	if err != nil {
		return false, err
	}

	if exists {
		diverged, err := db.HasDiverged(block)
		if err != nil {
			return false, err
		}

		if !diverged {
			return false, nil
		}
	}

	if err := db.storage.Write(block); err != nil {
		return false, err
	}

	return true, nil
}

// ForEach returns an iterator to walk through all the snapshots
// starting with block index 1.
func (db *Database) ForEach() Iterator {
	return db.storage.ForEach()
}
