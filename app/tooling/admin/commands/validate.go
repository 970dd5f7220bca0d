package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/ledger"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the chain from disk and check every block.",
	RunE:  validateRun,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	strg, exists, err := openStorage()
	if err != nil {
		return err
	}
	defer strg.Close()

	if !exists {
		return fmt.Errorf("no blocks found in %s", strg.Path())
	}

	l, err := openLedger(cmd, strg)
	if err != nil {
		if ie := ledger.GetIntegrityError(err); ie != nil {
			fmt.Fprintf(out, "INVALID: %s\n", ie)
			return ErrInvalidChain
		}
		return err
	}

	failures := l.ValidateAll()
	for _, err := range failures {
		ie := ledger.GetIntegrityError(err)
		if ie == nil {
			return err
		}
		fmt.Fprintf(out, "INVALID: %s\n", ie)
	}

	if len(failures) > 0 {
		return ErrInvalidChain
	}

	fmt.Fprintf(out, "VALID: %d blocks\n", l.Length())

	return nil
}
