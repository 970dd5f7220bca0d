// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/validate"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log          *zap.SugaredLogger
	Ledger       *ledger.Ledger
	Worker       *worker.Worker
	Evts         *events.Events
	WS           websocket.Upgrader
	ProofTimeout time.Duration
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Acquire()
	defer h.Evts.Release(id)

	h.Log.Infow("events", "traceid", web.GetTraceID(ctx), "status", "subscribed", "subscriber", id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// AddTransaction stages a new transaction for the next block.
func (h Handlers) AddTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nt newTx
	if err := decode(r, &nt); err != nil {
		return err
	}

	index, err := h.Ledger.StageTransaction(nt.Sender, nt.Recipient, *nt.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add tran", "traceid", web.GetTraceID(ctx), "sender", nt.Sender, "recipient", nt.Recipient, "amount", *nt.Amount, "block", index)

	if h.Worker.AutoMining() {
		h.Worker.SignalStartMining()
	}

	resp := struct {
		Message string `json:"message"`
		Index   uint64 `json:"index"`
	}{
		Message: fmt.Sprintf("Transaction will be added to Block %d", index),
		Index:   index,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Pending returns the set of transactions waiting for the next block.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toTxs(h.Ledger.Pending()), http.StatusOK)
}

// SignalMining asks the worker to mine the next block.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Worker.SignalStartMining()

	resp := struct {
		Status  string `json:"status"`
		Pending int    `json:"pending"`
	}{
		Status:  "mining signaled",
		Pending: h.Ledger.PendingCount(),
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// FindProof searches for a proof against the latest block and returns it
// without creating a block.
func (h Handlers) FindProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.ProofTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ProofTimeout)
		defer cancel()
	}

	head := h.Ledger.LatestBlock()

	p, err := h.Ledger.FindProof(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errs.NewTrusted(fmt.Errorf("no proof found within %v", h.ProofTimeout), http.StatusServiceUnavailable)
		}
		return err
	}

	resp := proof{
		Index:         head.Index + 1,
		PreviousProof: head.Proof,
		Proof:         p,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// NextBlock creates the next block with a proof supplied by the client.
// The proof is not checked here, validation reports a bad proof.
func (h Handlers) NextBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nb nextBlock
	if err := decode(r, &nb); err != nil {
		return err
	}

	var previousHash []string
	if nb.PreviousHash != "" {
		previousHash = append(previousHash, nb.PreviousHash)
	}

	blk, err := h.Ledger.CreateBlock(*nb.Proof, previousHash...)
	if err != nil {
		return err
	}

	h.Log.Infow("next block", "traceid", web.GetTraceID(ctx), "index", blk.Index, "txs", len(blk.Transactions), "proof", blk.Proof)

	resp, err := toBlock(blk)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Blocks returns the full chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	dbBlocks := h.Ledger.Blocks()

	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blk, err := toBlock(dbBlock)
		if err != nil {
			return err
		}
		blocks[i] = blk
	}

	resp := chain{
		Chain:  blocks,
		Length: len(blocks),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlockByIndex returns the block with the specified index.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block index %q", web.Param(r, "index")), http.StatusBadRequest)
	}

	blk, err := h.Ledger.Block(index)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	resp, err := toBlock(blk)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Validate checks the chain and reports any integrity violations. With
// all=true every failing block is reported instead of just the first.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var failures []error
	switch r.URL.Query().Get("all") {
	case "true":
		failures = h.Ledger.ValidateAll()
	default:
		if err := h.Ledger.Validate(); err != nil {
			failures = append(failures, err)
		}
	}

	resp := validation{
		Valid:  true,
		Length: h.Ledger.Length(),
	}

	for _, err := range failures {
		ie := ledger.GetIntegrityError(err)
		if ie == nil {
			return fmt.Errorf("validating chain: %w", err)
		}

		resp.Valid = false
		resp.Violations = append(resp.Violations, toViolation(ie))
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// decode reads the request body into val. Field errors are returned as is
// so the error middleware can report them, anything else is a bad request.
func decode(r *http.Request, val any) error {
	if err := web.Decode(r, val); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return nil
}
