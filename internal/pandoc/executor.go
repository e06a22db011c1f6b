// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// execResult is the outcome of a finished external process.
type execResult struct {
	exitCode int
	stderr   string
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)

	// Run executes the command and waits for it. A non-nil error means the
	// process could not run to completion (not found, context expired);
	// a completed process that exited non-zero is reported through
	// execResult, not the error.
	Run(ctx context.Context, name string, args ...string) (execResult, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args ...string) (execResult, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := execResult{stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	// Context expiry dominates: the kill shows up as an exit error too.
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

var defaultExec executor = osExecutor{}
