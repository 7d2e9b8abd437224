package esptool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner executes an external command and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, name string, args []string) error
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, name string, args []string) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args []string) error {
	return f(ctx, name, args)
}

// ExecRunner starts real processes via os/exec.
// Nil writers default to the process stdout and stderr.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts the command and waits for it. There is no timeout; only ctx
// cancellation (SIGINT/SIGTERM from the CLI) stops a hanging tool.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}

	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}

	return nil
}
