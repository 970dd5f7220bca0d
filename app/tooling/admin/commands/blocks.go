package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/spf13/cobra"
)

var blockIndex uint64

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Print the blocks stored on disk.",
	RunE:  blocksRun,
}

func init() {
	rootCmd.AddCommand(blocksCmd)
	blocksCmd.Flags().Uint64VarP(&blockIndex, "index", "i", 0, "Print the full block with this index.")
}

func blocksRun(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	strg, _, err := openStorage()
	if err != nil {
		return err
	}
	defer strg.Close()

	if blockIndex != 0 {
		block, err := strg.GetBlock(blockIndex)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(block, "", "  ")
		if err != nil {
			return err
		}

		hash, err := block.Hash()
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "hash: %s\n%s\n", digest.Display(hash), data)
		return nil
	}

	iter := strg.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return err
		}
		if err := printBlock(cmd, block); err != nil {
			return err
		}
	}

	return nil
}

func printBlock(cmd *cobra.Command, block database.Block) error {
	hash, err := block.Hash()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "blk[%d] time[%s] hash[%s] prev[%s] proof[%d] txs[%d]\n",
		block.Index,
		block.Time().UTC().Format(time.RFC3339),
		digest.Display(hash),
		digest.Display(block.PreviousHash),
		block.Proof,
		len(block.Transactions),
	)

	for _, tx := range block.Transactions {
		fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", tx)
	}

	return nil
}
