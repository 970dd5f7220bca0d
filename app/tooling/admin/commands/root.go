// Package commands contains the admin commands for inspecting and
// exercising a ledger stored on disk.
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/spf13/cobra"
)

// ErrInvalidChain is returned by the validate command when the stored
// chain breaks one of the rules.
var ErrInvalidChain = errors.New("chain is invalid")

var (
	dbPath     string
	difficulty uint
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administer a ledger stored on disk.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "zblock/blocks", "Path to the directory with the block files.")
	rootCmd.PersistentFlags().UintVarP(&difficulty, "difficulty", "D", pow.DefaultDifficulty, "Number of leading zeros a proof hash needs.")
}

// Run executes the command line in args and writes the output to out.
func Run(args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	return rootCmd.Execute()
}

// =============================================================================

// openStorage opens the block files and reports whether any are present.
func openStorage() (*disk.Disk, bool, error) {
	strg, err := disk.New(dbPath)
	if err != nil {
		return nil, false, err
	}

	exists, err := strg.Exists(database.GenesisIndex)
	if err != nil {
		return nil, false, err
	}

	return strg, exists, nil
}

// openLedger loads the ledger from the block files, starting a new chain
// when there are none.
func openLedger(cmd *cobra.Command, strg *disk.Disk) (*ledger.Ledger, error) {
	l, err := ledger.New(ledger.Config{
		Storage:    strg,
		Difficulty: difficulty,
		Resume:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("loading ledger from %s: %w", strg.Path(), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d blocks from %s\n", l.Length(), strg.Path())

	return l, nil
}
