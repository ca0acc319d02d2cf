package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"freegait/internal/app"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <steps-file>",
		Short: "Complete and plan a step file without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp(flagConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			sums, err := a.Check(args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-4s  %-20s  %-10s  %-10s  %s\n", "#", "LABEL", "DURATION", "BASE", "LEGS")
			for i, s := range sums {
				fmt.Fprintf(out, "%-4d  %-20s  %-10s  %-10s  %s\n", i, s.Label, s.Duration, dash(s.Base), strings.Join(s.Legs, ","))
			}
			if err != nil {
				return fmt.Errorf("check %s: %w", args[0], err)
			}
			fmt.Fprintf(out, "\n%d steps ok\n", len(sums))
			return nil
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
