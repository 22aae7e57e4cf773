package main

import (
	"github.com/spf13/cobra"

	"github.com/dmehra2102/marketplace-checkout/pkg/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "checkoutctl",
		Short:        "Operator tools for the marketplace checkout",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv()
		},
	}
	root.AddCommand(newQuoteCmd(), newNotifyCmd())
	return root
}
