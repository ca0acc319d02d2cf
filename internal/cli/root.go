package cli

import (
	"github.com/spf13/cobra"
)

var flagConfig string

// NewRootCmd creates the root cobra command for the gaitd CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gaitd",
		Short:        "gaitd executes legged-robot step sequences",
		Long:         "gaitd completes step sequences against a simulated robot and runs them on a fixed-rate control loop.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML/JSON config (built-in defaults when empty)")

	root.AddCommand(
		newRunCmd(),
		newCheckCmd(),
		newHistoryCmd(),
	)
	return root
}
