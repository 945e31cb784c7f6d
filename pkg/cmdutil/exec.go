package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// ExecOptions configures command execution.
type ExecOptions struct {
	// Dir is the working directory for the command.
	Dir string

	// Timeout is the maximum execution time.
	// If zero, no timeout is applied.
	Timeout time.Duration

	// Env contains environment variables for the command.
	// Each entry should be in the form "KEY=value". Nil inherits the
	// current environment.
	Env []string
}

// Result contains the result of a command execution.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Run executes a command with the given options.
// The command is provided as a slice of arguments (command and its arguments).
// The result is returned even when the command fails so callers can show stderr.
func Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	if len(cmdParts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("command timed out after %v: %s", opts.Timeout, FormatCommand(cmdParts))
		}
		return result, fmt.Errorf("command failed: %s: %w", FormatCommand(cmdParts), err)
	}

	return result, nil
}

// Output runs a command and returns its trimmed stdout.
func Output(ctx context.Context, workDir string, timeout time.Duration, cmdParts []string) (string, error) {
	result, err := Run(ctx, ExecOptions{Dir: workDir, Timeout: timeout}, cmdParts)
	if err != nil {
		if result != nil && len(result.Stderr) > 0 {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(result.Stderr)))
		}
		return "", err
	}
	return strings.TrimSpace(string(result.Stdout)), nil
}

// FormatCommand formats command parts into a readable string for logging.
// Arguments that need it are shell-quoted so the line can be pasted into a shell.
func FormatCommand(cmdParts []string) string {
	if len(cmdParts) == 0 {
		return "<empty command>"
	}

	quoted := make([]string, len(cmdParts))
	for i, part := range cmdParts {
		if part == "" || strings.ContainsAny(part, " \t\n\"'$`\\|&;<>()*?[]{}^~") {
			quoted[i] = shellquote.Join(part)
		} else {
			quoted[i] = part
		}
	}

	return strings.Join(quoted, " ")
}
