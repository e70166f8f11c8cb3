package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Runner executes a shell command somewhere (locally or over ssh) and
// captures its output. Implementations must honor ctx cancellation.
type Runner interface {
	Run(ctx context.Context, command string) (RunResult, error)
	Describe() string
}

type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunError carries everything needed to decide whether a failed
// command is worth retrying and to show the operator what happened.
type RunError struct {
	Command  string
	Target   string
	Stdout   string
	Stderr   string
	ExitCode int
	Timeout  bool
	Err      error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("command failed on %s", e.Target)
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" [exit=%d]", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err looks like a transient connectivity
// failure rather than a broken command. ssh exits 255 for transport
// errors, so that code counts as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}

	var runErr *RunError
	if !errors.As(err, &runErr) {
		return false
	}
	if runErr.Timeout || runErr.ExitCode == 255 {
		return true
	}

	stderr := strings.ToLower(runErr.Stderr)
	for _, signal := range []string{
		"connection reset",
		"connection refused",
		"connection closed",
		"connection timed out",
		"operation timed out",
		"timed out",
		"broken pipe",
		"network is unreachable",
		"no route to host",
		"temporary failure",
	} {
		if strings.Contains(stderr, signal) {
			return true
		}
	}
	return false
}
