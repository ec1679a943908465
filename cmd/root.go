package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var (
	configPath = "./config/walletcore.yaml"
	rootCmd    = &cobra.Command{
		Use:   "walletcore",
		Short: "ERC-4337 smart wallet client",
		Long: `walletcore derives counterfactual smart wallets, builds and signs
user operations and submits them to a bundler.

Such as "walletcore wallet" to inspect wallets or "walletcore send" to
submit an operation.
`,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/walletcore.yaml", "Path to config file")
}
