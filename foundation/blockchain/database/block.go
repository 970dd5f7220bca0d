package database

import (
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// Genesis block values. The genesis block has no parent, so its previous
// hash is a fixed sentinel that is never checked against anything.
const (
	GenesisIndex        uint64 = 1
	GenesisPreviousHash string = "1"
	GenesisProof        uint64 = 100
)

// =============================================================================

// Tx is the transactional information between two parties. The ledger
// treats it as opaque data.
type Tx struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

// NewTx constructs a new transaction.
func NewTx(sender string, recipient string, amount float64) Tx {
	return Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%v", tx.Sender, tx.Recipient, tx.Amount)
}

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64  `json:"index"`         // 1 based position in the chain.
	Timestamp    float64 `json:"timestamp"`     // Seconds since epoch when the block was created.
	Transactions []Tx    `json:"transactions"`  // Transactions committed by this block.
	Proof        uint64  `json:"proof"`         // Solution to the puzzle against the parent's proof.
	PreviousHash string  `json:"previous_hash"` // Hash of the parent block, or the genesis sentinel.
}

// NewBlock constructs a block. The transactions are copied so the block
// owns its own list.
func NewBlock(index uint64, now time.Time, trans []Tx, proof uint64, previousHash string) Block {
	txs := make([]Tx, len(trans))
	copy(txs, trans)

	return Block{
		Index:        index,
		Timestamp:    Timestamp(now),
		Transactions: txs,
		Proof:        proof,
		PreviousHash: previousHash,
	}
}

// Hash returns the unique hash for the Block. This is the only definition of
// what a block hashes to and is used both for linking and for validation.
// A block that can't be encoded, such as one holding a NaN or infinite
// amount, has no hash and an error is returned.
func (b Block) Hash() (string, error) {

	// A nil list and an empty list are the same block. Without this a block
	// read back from disk would not hash the same as the one written.
	if b.Transactions == nil {
		b.Transactions = []Tx{}
	}

	hash, err := digest.Hash(b)
	if err != nil {
		return "", fmt.Errorf("hashing block %d: %w", b.Index, err)
	}

	return hash, nil
}

// IsGenesis reports whether this is the first block in the chain.
func (b Block) IsGenesis() bool {
	return b.Index == GenesisIndex
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	if b.Transactions != nil {
		txs := make([]Tx, len(b.Transactions))
		copy(txs, b.Transactions)
		b.Transactions = txs
	}

	return b
}

// Time converts the block timestamp back into a time value.
func (b Block) Time() time.Time {
	sec := int64(b.Timestamp)
	nsec := int64((b.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// Timestamp converts the time into real valued seconds since epoch.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
