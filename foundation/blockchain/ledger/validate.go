package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// Check names the integrity rule a block failed.
type Check string

// Set of integrity checks performed on a block.
const (
	CheckGenesis    Check = "genesis"
	CheckIndex      Check = "index"
	CheckHashLink   Check = "hash_link"
	CheckDivergence Check = "divergence"
	CheckProof      Check = "proof"
)

// IntegrityError is returned when a block breaks one of the chain rules.
type IntegrityError struct {
	Index    uint64
	Check    Check
	Expected string
	Got      string
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("block %d failed %s check: expected %s, got %s", ie.Index, ie.Check, ie.Expected, ie.Got)
}

// IsIntegrityError checks if an error of type IntegrityError exists.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// GetIntegrityError returns a copy of the IntegrityError pointer.
func GetIntegrityError(err error) *IntegrityError {
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		return nil
	}
	return ie
}

// =============================================================================

// Validate walks the chain from the second block on and checks each block
// against its parent and its stored snapshot. It stops at the first problem.
// An IntegrityError names the block and the check that failed. Any other
// error means the storage could not be consulted or a block could not be
// hashed.
func (l *Ledger) Validate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 1; i < len(l.chain); i++ {
		if err := l.validateBlock(l.chain[i-1], l.chain[i]); err != nil {
			l.recordFailure(err)
			return err
		}
	}

	return nil
}

// ValidateAll performs the same checks as Validate but keeps going past
// failures and returns one error per failing block.
func (l *Ledger) ValidateAll() []error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for i := 1; i < len(l.chain); i++ {
		if err := l.validateBlock(l.chain[i-1], l.chain[i]); err != nil {
			l.recordFailure(err)
			errs = append(errs, err)
		}
	}

	return errs
}

// IsValid reports whether Validate finds no problems.
func (l *Ledger) IsValid() bool {
	return l.Validate() == nil
}

// =============================================================================

// validateBlock runs the three checks for a block in order: the link to the
// parent hash, the match with the stored snapshot, and the proof.
func (l *Ledger) validateBlock(prev database.Block, block database.Block) error {
	l.evHandler("ledger: validate: blk[%d]: check: previous hash matches parent", block.Index)

	if err := checkHashLink(prev, block); err != nil {
		return err
	}

	l.evHandler("ledger: validate: blk[%d]: check: block matches stored snapshot", block.Index)

	diverged, err := l.db.HasDiverged(block)
	if err != nil {
		return fmt.Errorf("checking snapshot for block %d: %w", block.Index, err)
	}

	if diverged {
		expected, err := block.Hash()
		if err != nil {
			return err
		}

		got := "unreadable"
		if snapshot, err := l.db.Load(block.Index); err == nil {
			if hash, err := snapshot.Hash(); err == nil {
				got = hash
			}
		}
		return &IntegrityError{Index: block.Index, Check: CheckDivergence, Expected: expected, Got: got}
	}

	l.evHandler("ledger: validate: blk[%d]: check: proof solves parent proof", block.Index)

	return l.checkProof(prev, block)
}

// checkLink runs the checks that don't need storage. It is used when the
// chain is loaded from storage, where the snapshot is the block.
func (l *Ledger) checkLink(prev database.Block, block database.Block) error {
	if block.Index != prev.Index+1 {
		return &IntegrityError{Index: block.Index, Check: CheckIndex, Expected: strconv.FormatUint(prev.Index+1, 10), Got: strconv.FormatUint(block.Index, 10)}
	}

	if err := checkHashLink(prev, block); err != nil {
		return err
	}

	return l.checkProof(prev, block)
}

// checkHashLink recomputes the parent hash and compares it to the one
// recorded in the block.
func checkHashLink(prev database.Block, block database.Block) error {
	hash, err := prev.Hash()
	if err != nil {
		return fmt.Errorf("checking link of block %d: %w", block.Index, err)
	}

	if block.PreviousHash != hash {
		return &IntegrityError{Index: block.Index, Check: CheckHashLink, Expected: hash, Got: block.PreviousHash}
	}

	return nil
}

// checkProof verifies the block's proof solves the puzzle for the parent's.
func (l *Ledger) checkProof(prev database.Block, block database.Block) error {
	if !pow.IsValid(l.difficulty, prev.Proof, block.Proof) {
		rule := fmt.Sprintf("hash of %d+proof starting with %q", prev.Proof, strings.Repeat("0", int(l.difficulty)))
		return &IntegrityError{Index: block.Index, Check: CheckProof, Expected: rule, Got: strconv.FormatUint(block.Proof, 10)}
	}

	return nil
}

// checkGenesis verifies the fixed values of the first block.
func checkGenesis(block database.Block) error {
	switch {
	case block.Index != database.GenesisIndex:
		return &IntegrityError{Index: block.Index, Check: CheckGenesis, Expected: "index 1", Got: "index " + strconv.FormatUint(block.Index, 10)}
	case block.PreviousHash != database.GenesisPreviousHash:
		return &IntegrityError{Index: block.Index, Check: CheckGenesis, Expected: "previous hash " + database.GenesisPreviousHash, Got: "previous hash " + block.PreviousHash}
	case block.Proof != database.GenesisProof:
		return &IntegrityError{Index: block.Index, Check: CheckGenesis, Expected: "proof " + strconv.FormatUint(database.GenesisProof, 10), Got: "proof " + strconv.FormatUint(block.Proof, 10)}
	}

	return nil
}

// recordFailure counts integrity failures by check.
func (l *Ledger) recordFailure(err error) {
	if ie := GetIntegrityError(err); ie != nil {
		l.metrics.integrity.WithLabelValues(string(ie.Check)).Inc()
	}
}
