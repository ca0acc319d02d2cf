package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"freegait/internal/app"
	"freegait/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp(flagConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.History(cmd.Context(), limit)
			if errors.Is(err, storage.ErrDisabled) {
				return errors.New("step history is disabled; set storage.driver in the config")
			}
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No steps recorded.")
				return nil
			}
			fmt.Fprintf(out, "%-25s  %-20s  %-10s  %-8s  %s\n", "FINISHED", "LABEL", "DURATION", "TICK", "ID")
			for _, r := range recs {
				fmt.Fprintf(out, "%-25s  %-20s  %-10s  %-8d  %s\n", r.FinishedAt.Format(time.RFC3339), dash(r.Label), r.Duration, r.Tick, r.StepID)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of steps to show")
	return cmd
}
