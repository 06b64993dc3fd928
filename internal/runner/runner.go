// Package runner starts the external prover and proof checker and reports
// how they exited.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command describes one process to start.
type Command struct {
	Binary string
	Args   []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stdin is fed to the process when non-empty.
	Stdin string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}

// Result is what a finished process left behind. A non-zero ExitCode is
// a normal result, not an error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner starts commands and waits for them to finish.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Exec runs commands on the host with os/exec.
type Exec struct {
	Logger *zap.Logger
}

var _ Runner = (*Exec)(nil)

// Run starts cmd and blocks until it exits. An error is returned only if
// the process could not be started or ctx ended before it finished.
func (e *Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.Debug("starting process", zap.Stringer("command", cmd), zap.String("dir", cmd.Dir))
	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Binary, ctxErr)
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("failed to run %s: %w", cmd.Binary, err)
	}

	logger.Debug("process exited",
		zap.String("binary", cmd.Binary),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration))
	return res, nil
}
