// Package command runs external tools and captures their output.
package command

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"codeberg.org/mutker/bard/internal/errors"
)

// Runner runs an external program and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Exec is the os/exec backed Runner.
type Exec struct{}

// NewExec returns the production Runner.
func NewExec() *Exec {
	return &Exec{}
}

// Run executes name with args. Output is trimmed of surrounding whitespace.
// A non-zero exit status, or a program that cannot be started, yields
// ErrCommandFailed carrying whatever the program wrote to stderr.
func (*Exec) Run(ctx context.Context, name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errFactory := errors.New()
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errFactory.Wrap(errors.ErrCommandFailed, err).
				WithMessage(name + ": " + msg)
		}
		return "", errFactory.Wrap(errors.ErrCommandFailed, err).
			WithMessage("failed to run " + name)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// RunnerFunc adapts an ordinary function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) (string, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (string, error) {
	return f(ctx, name, args...)
}
