// Package cmd wires the zaisim subcommands onto a single cobra root.
package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	logVerbose bool
	log        *zap.Logger
)

// NewRootCmd builds the zaisim root command and attaches every subcommand.
// Called once from main.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "zaisim",
		Short: "Oracle-free CDP stablecoin simulator for a ZEC-backed flatcoin",
		Long: `zaisim simulates ZAI, an oracle-free CDP stablecoin backed by ZEC, with
a constant-product AMM supplying the only valuation reference (its own TWAP)
used anywhere in the protocol logic.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if logVerbose {
				cfg = zap.NewDevelopmentConfig()
			}
			l, err := cfg.Build()
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&logVerbose, "verbose", "v", false, "enable development-mode (human-readable) logging")

	root.AddCommand(
		newFetchCmd(),
		newRunCmd(),
		newSweepCmd(),
		newStressCmd(),
		newFullSweepCmd(),
	)
	return root
}
