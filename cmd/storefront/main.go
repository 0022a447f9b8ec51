package main

import (
	"os"

	"github.com/spf13/cobra"
)

var defaultBrands = []string{"Acme", "Globex", "Initech", "Umbrella"}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront product panel and store registration",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	serve := newServeCmd()
	root.AddCommand(serve, newSeedCmd())
	// Running without a subcommand serves.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
