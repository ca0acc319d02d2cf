package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"freegait/internal/app"
)

const stopTimeout = 10 * time.Second

func newRunCmd() *cobra.Command {
	var steps []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the control loop and execute step files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := app.NewApp(flagConfig)
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				_ = a.Stop(context.Background(), app.StopFatalError)
				return err
			}
			for _, p := range steps {
				if _, err := a.LoadSteps(ctx, p); err != nil {
					_ = a.Stop(context.Background(), app.StopFatalError)
					return err
				}
			}

			reason := app.StopUnknown
			select {
			case <-ctx.Done():
				reason = app.StopSignal
			case <-a.Idle():
				reason = app.StopIdle
			case <-a.Done():
				reason = app.StopFatalError
			}

			stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
			defer stopCancel()
			stopErr := a.Stop(stopCtx, reason)
			if err := a.Err(); err != nil {
				return err
			}
			if reason == app.StopFatalError {
				return errors.New("app stopped unexpectedly")
			}
			return stopErr
		},
	}
	cmd.Flags().StringArrayVarP(&steps, "steps", "s", nil, "step file to queue (repeatable)")
	return cmd
}
