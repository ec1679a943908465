package cmd

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/avocetlabs/walletcore/core/chainio/aa"
	"github.com/avocetlabs/walletcore/core/config"
)

var walletSalt int64

// walletCmd derives and lists the controller's smart wallets.
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Derive and list smart wallets",
	Long: `Derive the counterfactual wallet address for the controller key and
the given salt, store it, and list every known wallet of the controller.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(true)
		if err != nil {
			fmt.Printf("failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		ctx := cmd.Context()
		owner := a.cfg.ControllerAddress
		salt := big.NewInt(walletSalt)

		chainID, err := a.eth.ChainID(ctx)
		if err != nil {
			fmt.Printf("cannot read chain id: %v\n", err)
			os.Exit(1)
		}

		wallet, err := a.repo.GetOrCreate(chainID, owner, salt, func() (common.Address, error) {
			return aa.ComputeSmartWalletAddress(a.cfg.FactoryAddress, owner, salt, a.cfg.InitCodeHash)
		})
		if err != nil {
			fmt.Printf("cannot derive wallet: %v\n", err)
			os.Exit(1)
		}

		code, err := a.eth.CodeAt(ctx, wallet.Address, nil)
		if err == nil && len(code) > 0 && !wallet.IsDeployed {
			if wallet, err = a.repo.MarkDeployed(chainID, owner, salt); err != nil {
				fmt.Printf("cannot update deployment flag: %v\n", err)
				os.Exit(1)
			}
		}

		env := config.ChainEnvFromID(chainID)
		fmt.Printf("owner:    %s\n", owner.Hex())
		fmt.Printf("wallet:   %s (salt %d, deployed=%v)\n", wallet.Address.Hex(), walletSalt, wallet.IsDeployed)
		fmt.Printf("explorer: %s/address/%s\n\n", env.ExplorerURL(), wallet.Address.Hex())

		all, err := a.repo.ListByOwner(chainID, owner)
		if err != nil {
			fmt.Printf("cannot list wallets: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("known wallets on chain %s:\n", chainID.String())
		for _, w := range all {
			if w.IsHidden {
				continue
			}
			fmt.Printf("  salt %-6s %s deployed=%v\n", w.Salt.String(), w.Address.Hex(), w.IsDeployed)
		}
	},
}

func init() {
	walletCmd.Flags().Int64Var(&walletSalt, "salt", 0, "wallet salt")
	rootCmd.AddCommand(walletCmd)
}
