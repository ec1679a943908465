package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// formatEth renders a wei amount as ether for display.
func formatEth(wei decimal.Decimal) string {
	return wei.Div(decimal.New(1, 18)).String() + " ETH"
}

// statusCmd reports where a submitted operation stands.
var statusCmd = &cobra.Command{
	Use:   "status <opHash>",
	Short: "Display the status of a user operation",
	Long: `Look up a user operation by hash: the locally stored audit record
plus what the bundler currently reports about inclusion and outcome.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opHash := common.HexToHash(args[0])

		a, err := newApp(true)
		if err != nil {
			fmt.Printf("failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		if record, err := a.repo.GetOperation(opHash); err == nil {
			fmt.Printf("local record: %s (id %s, updated %s)\n",
				record.Status, record.ID, record.UpdatedAt.Format("2006-01-02 15:04:05"))
			if record.Reason != "" {
				fmt.Printf("reason: %s\n", record.Reason)
			}
		} else {
			fmt.Printf("no local record for %s\n", opHash.Hex())
		}

		ctx := cmd.Context()
		lookup, err := a.bundler.GetUserOperationByHash(ctx, opHash)
		if err != nil {
			fmt.Printf("bundler lookup failed: %v\n", err)
			os.Exit(1)
		}
		if lookup == nil {
			fmt.Printf("bundler has not seen this operation\n")
			return
		}
		if !lookup.Included() {
			fmt.Printf("operation is bundled but not yet on chain\n")
			return
		}

		fmt.Printf("included in tx %s (block %s)\n",
			lookup.TransactionHash.Hex(), lookup.BlockNumber.ToInt().String())

		receipt, err := a.bundler.GetUserOperationReceipt(ctx, opHash)
		if err != nil || receipt == nil {
			fmt.Printf("receipt not available yet\n")
			return
		}

		if receipt.Success {
			fmt.Printf("outcome: confirmed\n")
		} else {
			fmt.Printf("outcome: reverted (%s)\n", receipt.Reason)
		}
		if receipt.ActualGasCost != nil {
			cost := decimal.NewFromBigInt(receipt.ActualGasCost.ToInt(), 0)
			fmt.Printf("gas cost: %s\n", formatEth(cost))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
