// Package disk implements the ability to read and write block snapshots to
// disk, one human readable file per block.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use. The directory is created on the
// first write, not here.
func New(dbPath string) (*Disk, error) {
	if dbPath == "" {
		return nil, errors.New("disk storage requires a path")
	}

	return &Disk{dbPath: dbPath}, nil
}

// Path returns the root directory holding the block files.
func (d *Disk) Path() string {
	return d.dbPath
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Exists reports whether a file for the block index is on disk.
func (d *Disk) Exists(index uint64) (bool, error) {
	_, err := os.Stat(d.getPath(index))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &database.StorageError{Op: "stat", Index: index, Err: err}
	}
}

// Write takes the specified block and stores it on disk in a file labeled
// with the block index, replacing any file already there.
func (d *Disk) Write(block database.Block) (err error) {

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return &database.StorageError{Op: "marshal", Index: block.Index, Err: err}
	}

	// Make sure the folder exists before the file is created.
	if err := os.MkdirAll(d.dbPath, 0755); err != nil {
		return &database.StorageError{Op: "mkdir", Index: block.Index, Err: err}
	}

	// Create or truncate the file for this block.
	f, err := os.OpenFile(d.getPath(block.Index), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return &database.StorageError{Op: "open", Index: block.Index, Err: err}
	}

	// The file must be closed on every path and a failed close is a
	// failed write.
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &database.StorageError{Op: "close", Index: block.Index, Err: cerr}
		}
	}()

	// Write the block to disk.
	if _, err := f.Write(data); err != nil {
		return &database.StorageError{Op: "write", Index: block.Index, Err: err}
	}

	if err := f.Sync(); err != nil {
		return &database.StorageError{Op: "sync", Index: block.Index, Err: err}
	}

	return nil
}

// GetBlock reads the file for the specified block index and decodes the
// snapshot stored there.
func (d *Disk) GetBlock(index uint64) (database.Block, error) {

	// Open the block file for the specified index.
	f, err := os.Open(d.getPath(index))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return database.Block{}, fmt.Errorf("block %d: %w", index, database.ErrNotFound)
		}
		return database.Block{}, &database.StorageError{Op: "open", Index: index, Err: err}
	}
	defer f.Close()

	// Decode the contents of the block. Anything beyond the block fields
	// means the file was not written by us.
	var block database.Block
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&block); err != nil {
		return database.Block{}, &database.SerializationError{Index: index, Err: err}
	}

	if dec.More() {
		return database.Block{}, &database.SerializationError{Index: index, Err: errors.New("trailing data after block")}
	}

	if block.Index != index {
		return database.Block{}, &database.SerializationError{Index: index, Err: fmt.Errorf("file holds block %d", block.Index)}
	}

	return block, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block index 1.
func (d *Disk) ForEach() database.Iterator {
	return &Iterator{disk: d}
}

// Reset will remove every block file on disk.
func (d *Disk) Reset() error {
	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &database.StorageError{Op: "reset", Err: err}
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		if _, err := strconv.ParseUint(strings.TrimSuffix(name, ".json"), 10, 64); err != nil {
			continue
		}

		if err := os.Remove(filepath.Join(d.dbPath, name)); err != nil {
			return &database.StorageError{Op: "reset", Err: err}
		}
	}

	return nil
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(index uint64) string {
	name := strconv.FormatUint(index, 10)
	return filepath.Join(d.dbPath, fmt.Sprintf("%s.json", name))
}

// =============================================================================

// Iterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface.
type Iterator struct {
	disk    *Disk  // Access to the disk storage API.
	current uint64 // Current block index being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (it *Iterator) Next() (database.Block, error) {
	if it.eoc {
		return database.Block{}, errors.New("end of chain")
	}

	it.current++
	block, err := it.disk.GetBlock(it.current)
	if errors.Is(err, database.ErrNotFound) {
		it.eoc = true
	}

	return block, err
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.eoc
}
