package worker_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// waitFor polls fn until it reports true or the deadline passes.
func waitFor(d time.Duration, fn func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fn()
}

// failingStorage fails every write once fail is set.
type failingStorage struct {
	*memory.Memory
	fail atomic.Bool
}

func (fs *failingStorage) Write(block database.Block) error {
	if fs.fail.Load() {
		return &database.StorageError{Op: "write", Index: block.Index, Err: errors.New("disk full")}
	}
	return fs.Memory.Write(block)
}

func Test_Mining(t *testing.T) {
	t.Log("Given the need to mine blocks in the background.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen mining is signaled with a pending transaction.", testID)
		{
			l, err := ledger.New(ledger.Config{Storage: memory.New()})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the ledger: %v", failed, testID, err)
			}

			w := worker.Run(worker.Config{Ledger: l, Timeout: time.Minute})
			defer w.Shutdown()

			if _, err := l.StageTransaction("Alice", "Bob", 2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to stage a transaction: %v", failed, testID, err)
			}
			w.SignalStartMining()

			if !waitFor(30*time.Second, func() bool { return l.Length() == 2 }) {
				t.Fatalf("\t%s\tTest %d:\tShould mine a block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould mine a block.", success, testID)

			if l.PendingCount() != 0 || !l.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould commit the transaction to a valid chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould commit the transaction to a valid chain.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mining can't finish before the timeout.", testID)
		{
			l, err := ledger.New(ledger.Config{Storage: memory.New(), Difficulty: 64})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the ledger: %v", failed, testID, err)
			}

			var once sync.Once
			done := make(chan struct{})
			ev := func(v string, args ...any) {
				if v == "worker: runMiningOperation: MINING: completed" {
					once.Do(func() { close(done) })
				}
			}

			w := worker.Run(worker.Config{Ledger: l, Timeout: 50 * time.Millisecond, EvHandler: ev})
			defer w.Shutdown()

			if _, err := l.StageTransaction("Alice", "Bob", 2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to stage a transaction: %v", failed, testID, err)
			}
			w.SignalStartMining()

			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould stop mining at the timeout.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould stop mining at the timeout.", success, testID)

			if l.Length() != 1 || l.PendingCount() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain and the pool alone.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the chain and the pool alone.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the worker is shut down during mining.", testID)
		{
			l, err := ledger.New(ledger.Config{Storage: memory.New(), Difficulty: 64})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the ledger: %v", failed, testID, err)
			}

			w := worker.Run(worker.Config{Ledger: l})
			w.SignalStartMining()
			time.Sleep(50 * time.Millisecond)

			shut := make(chan struct{})
			go func() {
				w.Shutdown()
				close(shut)
			}()

			select {
			case <-shut:
			case <-time.After(10 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould cancel mining and shut down.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould cancel mining and shut down.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen auto mining and the block can't be stored.", testID)
		{
			strg := failingStorage{Memory: memory.New()}

			l, err := ledger.New(ledger.Config{Storage: &strg, Difficulty: 1})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the ledger: %v", failed, testID, err)
			}
			strg.fail.Store(true)

			var runs atomic.Int32
			var once sync.Once
			done := make(chan struct{})
			ev := func(v string, args ...any) {
				switch v {
				case "worker: runMiningOperation: MINING: started":
					runs.Add(1)
				case "worker: runMiningOperation: MINING: completed":
					once.Do(func() { close(done) })
				}
			}

			w := worker.Run(worker.Config{Ledger: l, Timeout: time.Minute, Auto: true, EvHandler: ev})
			defer w.Shutdown()

			if _, err := l.StageTransaction("Alice", "Bob", 2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to stage a transaction: %v", failed, testID, err)
			}
			w.SignalStartMining()

			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould finish the mining run.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould finish the mining run.", success, testID)

			time.Sleep(500 * time.Millisecond)

			if n := runs.Load(); n != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould not mine again after a failed run, got %d runs.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould not mine again after a failed run.", success, testID)

			if l.Length() != 1 || l.PendingCount() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain and the pool alone.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the chain and the pool alone.", success, testID)
		}
	}
}
