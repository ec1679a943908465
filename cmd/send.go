package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/avocetlabs/walletcore/pkg/byte4"
	"github.com/avocetlabs/walletcore/pkg/erc4337/preset"
	"github.com/avocetlabs/walletcore/pkg/erc4337/tracker"
)

var (
	sendTo        string
	sendValue     string
	sendData      string
	sendSalt      int64
	sendPaymaster bool
	sendWait      bool
)

// parseEthValue converts a decimal ether amount like "0.05" to wei.
func parseEthValue(value string) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid ether amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("ether amount %q is negative", value)
	}

	wei := d.Mul(decimal.New(1, 18))
	if !wei.IsInteger() {
		return nil, fmt.Errorf("ether amount %q has sub-wei precision", value)
	}
	return wei.BigInt(), nil
}

// sendCmd builds, signs and submits one user operation.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Build and submit a user operation",
	Long: `Build a user operation calling the target with the given value and
calldata, sign it with the controller key and hand it to the bundler.
The wallet is deployed on first use automatically.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !common.IsHexAddress(sendTo) {
			fmt.Printf("--to %q is not a valid address\n", sendTo)
			os.Exit(1)
		}

		value, err := parseEthValue(sendValue)
		if err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}

		a, err := newApp(true)
		if err != nil {
			fmt.Printf("failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		call := preset.Call{
			Target: common.HexToAddress(sendTo),
			Value:  value,
			Data:   common.FromHex(sendData),
		}
		if sig := byte4.KnownMethodSignature(call.Data); sig != "" {
			fmt.Printf("calling %s\n", sig)
		}

		ctx := cmd.Context()
		op, opHash, err := a.builder.SendUserOp(ctx, a.cfg.ControllerAddress, []preset.Call{call}, preset.BuildOptions{
			Salt:         big.NewInt(sendSalt),
			UsePaymaster: sendPaymaster,
		})
		if err != nil {
			fmt.Printf("failed to send operation: %v\n", err)
			os.Exit(1)
		}

		if _, err := a.repo.RecordOperation(opHash, op.Sender, tracker.StatusSubmitted.String()); err != nil {
			fmt.Printf("warning: cannot store operation record: %v\n", err)
		}

		fmt.Printf("sender: %s\n", op.Sender.Hex())
		fmt.Printf("nonce:  %s\n", op.Nonce.String())
		fmt.Printf("opHash: %s\n", opHash.Hex())

		if sendWait {
			waitForOutcome(ctx, a, opHash)
		}
	},
}

// waitForOutcome runs the tracker's polling loop on the configured cadence
// until the operation reaches a terminal state, then stores the outcome.
func waitForOutcome(ctx context.Context, a *app, opHash common.Hash) {
	if err := a.tracker.StartPolling(ctx, a.cfg.PollInterval); err != nil {
		fmt.Printf("cannot start polling: %v\n", err)
		return
	}
	defer a.tracker.Stop()

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	last := tracker.StatusSubmitted
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("wait aborted: %v\n", ctx.Err())
			return
		case <-ticker.C:
			rec, ok := a.tracker.Get(opHash)
			if !ok {
				continue
			}
			if rec.Status != last {
				fmt.Printf("status: %s\n", rec.Status)
				last = rec.Status
			}
			if !rec.Status.IsTerminal() {
				continue
			}
			if rec.Reason != "" {
				fmt.Printf("reason: %s\n", rec.Reason)
			}
			if _, err := a.repo.UpdateOperation(opHash, rec.Status.String(), rec.Reason); err != nil {
				fmt.Printf("warning: cannot update operation record: %v\n", err)
			}
			return
		}
	}
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "target address")
	sendCmd.Flags().StringVar(&sendValue, "value", "0", "ether amount to send")
	sendCmd.Flags().StringVar(&sendData, "data", "", "hex calldata for the target")
	sendCmd.Flags().Int64Var(&sendSalt, "salt", 0, "wallet salt")
	sendCmd.Flags().BoolVar(&sendPaymaster, "paymaster", false, "request paymaster sponsorship")
	sendCmd.Flags().BoolVar(&sendWait, "wait", false, "poll the bundler until the operation is terminal")
	sendCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(sendCmd)
}
