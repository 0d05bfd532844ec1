package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsedash/scenariodb/internal/jobs"
)

func newRunCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run the optimization model for a scenario",
		Long:  "Run the configured model command for a scenario and wait for it. The command gets SCENARIO_NAME and SCENARIODB_DSN in its environment.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			e, err := openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				_ = e.Close()
			}()

			id, err := e.uc.RunModel(ctx, args[0])
			if err != nil {
				if errors.Is(err, jobs.ErrNoCommand) {
					return fmt.Errorf("%w: set model_command in the config file", err)
				}
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Started job %s\n", id)

			job, err := e.uc.WaitJob(ctx, id)
			if err != nil {
				_ = e.uc.CancelJob(id)
				return err
			}

			if !quiet {
				content, verified, err := e.uc.JobLog(id)
				if err == nil {
					fmt.Fprint(cmd.OutOrStdout(), content)
					if !verified {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: run log of job %s does not match its hash\n", id)
					}
				}
			}

			if job.Status != jobs.StatusSucceeded {
				return fmt.Errorf("job %s %s: %s", id, job.Status, job.Message)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Job %s succeeded in %s\n", id, job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print the model output")
	return cmd
}
