package osascript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// DefaultInterpreter is the macOS scripting interpreter.
const DefaultInterpreter = "osascript"

// ErrInvalidOutput is returned when the script exits cleanly but its stdout is not valid UTF-8.
var ErrInvalidOutput = errors.New("osascript: output is not valid UTF-8")

// ExitError carries the diagnostics of a script that exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("osascript: exit status %d", e.Code)
	}
	return fmt.Sprintf("osascript: exit status %d: %s", e.Code, e.Stderr)
}

// Runner executes a literal script body and returns its trimmed stdout.
type Runner interface {
	Run(ctx context.Context, script string) (string, error)
}

// ExecRunner spawns the interpreter as a subprocess, passing the script via -e.
type ExecRunner struct {
	Interpreter string
}

// NewRunner returns an ExecRunner. An empty interpreter means DefaultInterpreter.
func NewRunner(interpreter string) *ExecRunner {
	if strings.TrimSpace(interpreter) == "" {
		interpreter = DefaultInterpreter
	}
	return &ExecRunner{Interpreter: interpreter}
}

func (r *ExecRunner) Run(ctx context.Context, script string) (string, error) {
	interpreter := r.Interpreter
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	cmd := exec.CommandContext(ctx, interpreter, "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(strings.ToValidUTF8(stderr.String(), "?")),
			}
		}
		return "", fmt.Errorf("osascript: failed to run %s: %w", interpreter, err)
	}

	out := stdout.Bytes()
	if !utf8.Valid(out) {
		return "", ErrInvalidOutput
	}
	return strings.TrimSpace(string(out)), nil
}
