package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/ledger"
)

type tx struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

type block struct {
	Hash         string  `json:"hash"`
	Index        uint64  `json:"index"`
	Timestamp    float64 `json:"timestamp"`
	Transactions []tx    `json:"transactions"`
	Proof        uint64  `json:"proof"`
	PreviousHash string  `json:"previous_hash"`
}

type chain struct {
	Chain  []block `json:"chain"`
	Length int     `json:"length"`
}

type proof struct {
	Index         uint64 `json:"index"`
	PreviousProof uint64 `json:"previous_proof"`
	Proof         uint64 `json:"proof"`
}

type violation struct {
	Index    uint64 `json:"index"`
	Check    string `json:"check"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

type validation struct {
	Valid      bool        `json:"valid"`
	Length     int         `json:"length"`
	Violations []violation `json:"violations,omitempty"`
}

// =============================================================================

// newTx is what we require from clients when staging a transaction.
type newTx struct {
	Sender    string   `json:"sender" validate:"required"`
	Recipient string   `json:"recipient" validate:"required"`
	Amount    *float64 `json:"amount" validate:"required"`
}

// nextBlock is what we require from clients that found a proof on their own.
type nextBlock struct {
	Proof        *uint64 `json:"proof" validate:"required"`
	PreviousHash string  `json:"previous_hash"`
}

// =============================================================================

func toTxs(dbTxs []database.Tx) []tx {
	txs := make([]tx, len(dbTxs))
	for i, dbTx := range dbTxs {
		txs[i] = tx{
			Sender:    dbTx.Sender,
			Recipient: dbTx.Recipient,
			Amount:    dbTx.Amount,
		}
	}
	return txs
}

func toBlock(dbBlock database.Block) (block, error) {
	hash, err := dbBlock.Hash()
	if err != nil {
		return block{}, err
	}

	return block{
		Hash:         hash,
		Index:        dbBlock.Index,
		Timestamp:    dbBlock.Timestamp,
		Transactions: toTxs(dbBlock.Transactions),
		Proof:        dbBlock.Proof,
		PreviousHash: dbBlock.PreviousHash,
	}, nil
}

func toViolation(ie *ledger.IntegrityError) violation {
	return violation{
		Index:    ie.Index,
		Check:    string(ie.Check),
		Expected: ie.Expected,
		Got:      ie.Got,
	}
}
