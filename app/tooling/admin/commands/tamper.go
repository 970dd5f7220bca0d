package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tamperIndex  uint64
	tamperAmount float64
)

var tamperCmd = &cobra.Command{
	Use:   "tamper",
	Short: "Change the amount of the first transaction in a block file, bypassing the ledger.",
	RunE:  tamperRun,
}

func init() {
	rootCmd.AddCommand(tamperCmd)
	tamperCmd.Flags().Uint64VarP(&tamperIndex, "index", "i", 2, "Index of the block to change.")
	tamperCmd.Flags().Float64VarP(&tamperAmount, "amount", "a", 10, "Amount to write into the block.")
}

func tamperRun(cmd *cobra.Command, args []string) error {
	strg, _, err := openStorage()
	if err != nil {
		return err
	}
	defer strg.Close()

	block, err := strg.GetBlock(tamperIndex)
	if err != nil {
		return err
	}

	if len(block.Transactions) == 0 {
		return fmt.Errorf("block %d has no transactions", tamperIndex)
	}

	before := block.Transactions[0].Amount
	block.Transactions[0].Amount = tamperAmount

	if err := strg.Write(block); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "blk[%d] amount changed from %v to %v\n", tamperIndex, before, tamperAmount)

	return nil
}
