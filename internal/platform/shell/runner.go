package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
	RunWithInput(ctx context.Context, stdin []byte, name string, args ...string) (*Result, error)
}

// Result is the captured outcome of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError is returned when a command exits non-zero.
type ExitError struct {
	Command string
	Result  *Result
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Result.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Result.Stdout)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Result.ExitCode, msg)
}

// Stderr returns the captured standard error of a failed command, or the
// error text for any other error.
func Stderr(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Result.Stderr
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	log logr.Logger
	env []string
	// Output, when set, receives a live copy of stdout and stderr.
	Output io.Writer
}

// NewExecRunner creates a runner that logs every command to log.
func NewExecRunner(log logr.Logger) *ExecRunner {
	return &ExecRunner{log: log}
}

// WithEnv returns a copy of the runner that adds env to the process
// environment of every command.
func (r *ExecRunner) WithEnv(env ...string) *ExecRunner {
	c := *r
	c.env = append(append([]string{}, r.env...), env...)
	return &c
}

// Run executes name with args.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	return r.RunWithInput(ctx, nil, name, args...)
}

// RunWithInput executes name with args, feeding stdin to the process.
func (r *ExecRunner) RunWithInput(ctx context.Context, stdin []byte, name string, args ...string) (*Result, error) {
	line := CommandLine(name, args...)
	start := time.Now()

	// #nosec G204 -- commands and arguments are built by the installer
	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	if r.Output != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.Output)
		cmd.Stderr = io.MultiWriter(&stderr, r.Output)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		r.log.Error(err, "command could not be started", "cmd", line)
		return res, fmt.Errorf("failed to run %s: %w", name, err)
	}

	r.log.Info("command finished", "cmd", line, "exitCode", res.ExitCode, "duration", time.Since(start).Round(time.Millisecond).String())
	if res.ExitCode != 0 {
		r.log.V(1).Info("command stderr", "cmd", line, "stderr", strings.TrimSpace(res.Stderr))
		return res, &ExitError{Command: line, Result: res}
	}
	return res, nil
}

// RunJSON runs a command and decodes its stdout into v. Empty output
// leaves v untouched.
func RunJSON(ctx context.Context, r Runner, v any, name string, args ...string) error {
	res, err := r.Run(ctx, name, args...)
	if err != nil {
		return err
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		return fmt.Errorf("failed to decode output of %s: %w", CommandLine(name, args...), err)
	}
	return nil
}

// Output runs a command and returns its trimmed stdout.
func Output(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	res, err := r.Run(ctx, name, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// CommandLine renders a command for logs. Arguments containing spaces are
// quoted.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
