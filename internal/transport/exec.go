package transport

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// capture runs argv, collects both output streams, and converts a
// failure into a RunError tagged with the originating target.
func capture(ctx context.Context, target, command string, argv ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	result := RunResult{
		Stdout: outBuf.String(),
		Stderr: errBuf.String(),
	}
	if err == nil {
		return result, nil
	}

	runErr := &RunError{
		Command: command,
		Target:  target,
		Stdout:  result.Stdout,
		Stderr:  result.Stderr,
		Err:     err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		runErr.ExitCode = exitErr.ExitCode()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		runErr.Timeout = true
	}
	return result, runErr
}
