package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// hash returns the block hash, failing the test when there is none.
func hash(t *testing.T, block database.Block) string {
	t.Helper()

	h, err := block.Hash()
	if err != nil {
		t.Fatalf("hashing block %d: %v", block.Index, err)
	}

	return h
}

type block struct {
	Hash         string `json:"hash"`
	Index        uint64 `json:"index"`
	Proof        uint64 `json:"proof"`
	PreviousHash string `json:"previous_hash"`
	Transactions []struct {
		Sender    string  `json:"sender"`
		Recipient string  `json:"recipient"`
		Amount    float64 `json:"amount"`
	} `json:"transactions"`
}

type validation struct {
	Valid      bool `json:"valid"`
	Length     int  `json:"length"`
	Violations []struct {
		Index uint64 `json:"index"`
		Check string `json:"check"`
	} `json:"violations"`
}

// NodeTests holds the app and ledger shared by the tests.
type NodeTests struct {
	app    http.Handler
	debug  http.Handler
	ledger *ledger.Ledger
}

func newNodeTests(t *testing.T) *NodeTests {
	l, err := ledger.New(ledger.Config{Storage: memory.New()})
	if err != nil {
		t.Fatalf("constructing ledger: %v", err)
	}

	log := zap.NewNop().Sugar()

	w := worker.Run(worker.Config{Ledger: l, Timeout: time.Minute})
	t.Cleanup(w.Shutdown)

	app := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:     make(chan os.Signal, 1),
		Log:          log,
		Ledger:       l,
		Worker:       w,
		Evts:         events.New(),
		ProofTimeout: time.Minute,
	})

	return &NodeTests{
		app:    app,
		debug:  handlers.DebugMux("test", log, l, prometheus.NewRegistry()),
		ledger: l,
	}
}

func (nt *NodeTests) do(method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	nt.app.ServeHTTP(w, r)
	return w
}

// =============================================================================

func Test_Node(t *testing.T) {
	nt := newNodeTests(t)

	t.Run("addTransaction", nt.addTransaction)
	t.Run("addTransactionInvalid", nt.addTransactionInvalid)
	t.Run("mineWithProof", nt.mineWithProof)
	t.Run("blockByIndex", nt.blockByIndex)
	t.Run("badProof", nt.badProof)
	t.Run("cors", nt.cors)
	t.Run("debug", nt.debugChecks)
}

func (nt *NodeTests) addTransaction(t *testing.T) {
	t.Log("Given the need to stage a transaction.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen posting Alice sending Bob 2.", testID)
		{
			w := nt.do(http.MethodPost, "/v1/tx/add", `{"sender":"Alice","recipient":"Bob","amount":2}`)
			if w.Code != http.StatusCreated {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 201, got %d: %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 201.", success, testID)

			var resp struct {
				Message string `json:"message"`
				Index   uint64 `json:"index"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response: %v", failed, testID, err)
			}

			if resp.Index != 2 || resp.Message != "Transaction will be added to Block 2" {
				t.Fatalf("\t%s\tTest %d:\tShould target block 2, got %+v.", failed, testID, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould target block 2.", success, testID)

			w = nt.do(http.MethodGet, "/v1/tx/pending", "")

			var pending []map[string]any
			if err := json.NewDecoder(w.Body).Decode(&pending); err != nil || len(pending) != 1 || pending[0]["sender"] != "Alice" {
				t.Fatalf("\t%s\tTest %d:\tShould list the pending transaction: %s", failed, testID, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould list the pending transaction.", success, testID)
		}
	}
}

func (nt *NodeTests) addTransactionInvalid(t *testing.T) {
	t.Log("Given the need to reject incomplete transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen posting a transaction with missing fields.", testID)
		{
			w := nt.do(http.MethodPost, "/v1/tx/add", `{"sender":"Alice"}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400.", success, testID)

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response: %v", failed, testID, err)
			}

			if _, exists := resp.Fields["recipient"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould report the recipient field: %+v", failed, testID, resp)
			}
			if _, exists := resp.Fields["amount"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould report the amount field: %+v", failed, testID, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould report the missing fields.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen posting a body that isn't JSON.", testID)
		{
			w := nt.do(http.MethodPost, "/v1/tx/add", `not json`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400.", success, testID)
		}
	}
}

func (nt *NodeTests) mineWithProof(t *testing.T) {
	t.Log("Given the need to create a block with a proof found by the node.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen asking for a proof and posting it back.", testID)
		{
			genesis, err := nt.ledger.Block(1)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould have a genesis block: %v", failed, testID, err)
			}

			w := nt.do(http.MethodGet, "/v1/proof", "")
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200, got %d.", failed, testID, w.Code)
			}

			var p struct {
				PreviousProof uint64 `json:"previous_proof"`
				Proof         uint64 `json:"proof"`
			}
			if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response: %v", failed, testID, err)
			}

			if p.PreviousProof != 100 || !pow.IsValid(pow.DefaultDifficulty, 100, p.Proof) {
				t.Fatalf("\t%s\tTest %d:\tShould get a valid proof against the genesis proof: %+v", failed, testID, p)
			}
			t.Logf("\t%s\tTest %d:\tShould get a valid proof against the genesis proof.", success, testID)

			w = nt.do(http.MethodPost, "/v1/blocks/next", `{"proof":`+strconv.FormatUint(p.Proof, 10)+`}`)
			if w.Code != http.StatusCreated {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 201, got %d: %s", failed, testID, w.Code, w.Body.String())
			}

			var blk block
			if err := json.NewDecoder(w.Body).Decode(&blk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response: %v", failed, testID, err)
			}

			if blk.Index != 2 || blk.PreviousHash != hash(t, genesis) || len(blk.Transactions) != 1 || blk.Transactions[0].Amount != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould commit the pending transaction in block 2: %+v", failed, testID, blk)
			}
			t.Logf("\t%s\tTest %d:\tShould commit the pending transaction in block 2.", success, testID)

			w = nt.do(http.MethodGet, "/v1/validate", "")

			var v validation
			if err := json.NewDecoder(w.Body).Decode(&v); err != nil || !v.Valid || v.Length != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould report a valid chain of 2: %s", failed, testID, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould report a valid chain of 2.", success, testID)
		}
	}
}

func (nt *NodeTests) blockByIndex(t *testing.T) {
	tt := []struct {
		name   string
		path   string
		status int
	}{
		{name: "genesis", path: "/v1/blocks/list/1", status: http.StatusOK},
		{name: "missing", path: "/v1/blocks/list/99", status: http.StatusNotFound},
		{name: "zero", path: "/v1/blocks/list/0", status: http.StatusNotFound},
		{name: "notnumber", path: "/v1/blocks/list/abc", status: http.StatusBadRequest},
		{name: "all", path: "/v1/blocks/list", status: http.StatusOK},
	}

	t.Log("Given the need to query blocks.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen requesting %s.", testID, tst.path)
				{
					w := nt.do(http.MethodGet, tst.path, "")
					if w.Code != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d, got %d.", failed, testID, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould receive a status code of %d.", success, testID, tst.status)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func (nt *NodeTests) badProof(t *testing.T) {
	t.Log("Given the need to report a block with a bad proof.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen posting a proof that doesn't solve the puzzle.", testID)
		{
			head := nt.ledger.LatestBlock()

			var bad uint64
			for pow.IsValid(pow.DefaultDifficulty, head.Proof, bad) {
				bad++
			}

			w := nt.do(http.MethodPost, "/v1/blocks/next", `{"proof":`+strconv.FormatUint(bad, 10)+`}`)
			if w.Code != http.StatusCreated {
				t.Fatalf("\t%s\tTest %d:\tShould still create the block, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould still create the block.", success, testID)

			w = nt.do(http.MethodGet, "/v1/validate?all=true", "")

			var v validation
			if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response: %v", failed, testID, err)
			}

			if v.Valid || len(v.Violations) != 1 || v.Violations[0].Check != string(ledger.CheckProof) || v.Violations[0].Index != head.Index+1 {
				t.Fatalf("\t%s\tTest %d:\tShould report the proof violation: %s", failed, testID, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould report the proof violation.", success, testID)
		}
	}
}

func (nt *NodeTests) cors(t *testing.T) {
	t.Log("Given the need to allow cross origin requests.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen sending a request.", testID)
		{
			w := nt.do(http.MethodGet, "/v1/tx/pending", "")
			if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200 with CORS headers, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 200 with CORS headers.", success, testID)
		}
	}
}

func (nt *NodeTests) debugChecks(t *testing.T) {
	t.Log("Given the need to check the health of the node.")
	{
		for testID, path := range []string{"/debug/readiness", "/debug/liveness", "/metrics"} {
			t.Logf("\tTest %d:\tWhen requesting %s.", testID, path)
			{
				r := httptest.NewRequest(http.MethodGet, path, nil)
				w := httptest.NewRecorder()
				nt.debug.ServeHTTP(w, r)

				if w.Code != http.StatusOK {
					t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200, got %d.", failed, testID, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould receive a status code of 200.", success, testID)
			}
		}
	}
}
