package database

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no snapshot has been written for an index.
var ErrNotFound = errors.New("block not found")

// =============================================================================

// StorageError is returned when the storage location for a block can't be
// created, read or written.
type StorageError struct {
	Op    string
	Index uint64
	Err   error
}

// Error implements the error interface.
func (se *StorageError) Error() string {
	return fmt.Sprintf("storage %s block %d: %s", se.Op, se.Index, se.Err)
}

// Unwrap provides access to the underlying error.
func (se *StorageError) Unwrap() error {
	return se.Err
}

// IsStorageError checks if an error of type StorageError exists.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// =============================================================================

// SerializationError is returned when a snapshot exists but can't be decoded.
// It is never treated as a missing or unchanged snapshot.
type SerializationError struct {
	Index uint64
	Err   error
}

// Error implements the error interface.
func (se *SerializationError) Error() string {
	return fmt.Sprintf("corrupt snapshot for block %d: %s", se.Index, se.Err)
}

// Unwrap provides access to the underlying error.
func (se *SerializationError) Unwrap() error {
	return se.Err
}

// IsSerializationError checks if an error of type SerializationError exists.
func IsSerializationError(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}
