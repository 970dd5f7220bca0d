package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var (
	sender    string
	recipient string
	amount    float64
	timeout   time.Duration
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Stage a transaction and mine the next block into the files on disk.",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVarP(&sender, "sender", "s", "", "Sender of the transaction, no transaction when empty.")
	mineCmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Recipient of the transaction.")
	mineCmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Amount of the transaction.")
	mineCmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Minute, "Time allowed for the proof search.")
}

func mineRun(cmd *cobra.Command, args []string) error {
	strg, _, err := openStorage()
	if err != nil {
		return err
	}
	defer strg.Close()

	l, err := openLedger(cmd, strg)
	if err != nil {
		return err
	}

	if sender != "" {
		if _, err := l.StageTransaction(sender, recipient, amount); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	block, err := l.MineBlock(ctx)
	if err != nil {
		return err
	}

	return printBlock(cmd, block)
}
