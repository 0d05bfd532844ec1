package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Environment variables passed to model commands.
const (
	EnvScenario = "SCENARIO_NAME"
	EnvDSN      = "SCENARIODB_DSN"
)

// ErrNoCommand is returned when no model command is configured.
var ErrNoCommand = errors.New("jobs: no model command configured")

// LogOpener creates the writer that receives a job's combined output.
type LogOpener func(jobID string) (io.WriteCloser, error)

// CommandFunc returns a Func that runs argv for scenario against the store at
// dsn. The command reads both from its environment; its stdout and stderr go
// to the writer returned by open.
func CommandFunc(argv []string, scenario, dsn string, open LogOpener) (Func, error) {
	if len(argv) == 0 {
		return nil, ErrNoCommand
	}
	args := append([]string(nil), argv...)

	return func(ctx context.Context, jobID string) (err error) {
		out, err := open(jobID)
		if err != nil {
			return fmt.Errorf("failed to open run log: %w", err)
		}
		defer func() {
			if closeErr := out.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close run log: %w", closeErr)
			}
		}()

		//nolint:gosec // G204: the command comes from the operator's config
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Env = append(os.Environ(), EnvScenario+"="+scenario, EnvDSN+"="+dsn)
		cmd.Stdout = out
		cmd.Stderr = out

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("model command failed: %w", err)
		}
		return nil
	}, nil
}
