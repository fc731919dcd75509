package bash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Default interpreter for scripts run on the host.
const defaultShell = "bash"

// Runs scripts on the host.
type Local struct {
	Shell string // Interpreter, defaults to "bash".
	Dir   string // Working directory, defaults to the current one.
}

// Starts the script with the given variables and returns its output stream.
//
// Standard output and standard error are merged. A non-zero exit surfaces as
// a [*ScriptError] from [Logs.Err].
func (r Local) Run(ctx context.Context, script string, vars Variables) (*Logs, error) {
	shell := r.Shell
	if shell == "" {
		shell = defaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "--noprofile", "--norc", "-c", Script(vars, script))
	cmd.Dir = r.Dir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- exitError(err)
	}()

	return NewLogs(pr, func() error { return <-done }), nil
}

// Converts a process exit into a [*ScriptError].
func exitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ScriptError{ExitCode: exitErr.ExitCode()}
	}
	return err
}
