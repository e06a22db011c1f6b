// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pandoc adapts external document converters. The pipeline never
// trusts an external tool: a non-zero exit, a missing output file, or an
// empty output file all fail the stage with captured diagnostics.
// Implements: prd102-conversion; docs/ARCHITECTURE § Conversion.
package pandoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdiddy/docforge/pkg/types"
)

const (
	binPandoc = "pandoc"

	defaultTimeout = 2 * time.Minute
)

// Converter reformats a body document against a reference template,
// writing the result to outputPath. Backends: pandoc, libreoffice.
type Converter interface {
	// Name returns the backend name for diagnostics.
	Name() string

	// Convert runs the external tool. The input file is never modified.
	Convert(ctx context.Context, inputPath, outputPath, referenceDoc string) error
}

// PandocConverter shells out to pandoc with --reference-doc, which imposes
// the template's paragraph and character styles on the converted body.
type PandocConverter struct {
	bin     string
	timeout time.Duration
	exec    executor
}

// NewPandocConverter locates the pandoc binary (cfg.PandocPath overrides
// PATH lookup) and returns the adapter. A missing binary is a
// ConversionFailure so the pipeline reports it like any other boundary
// fault.
func NewPandocConverter(cfg types.ConversionConfig) (*PandocConverter, error) {
	return newPandocConverter(cfg, defaultExec)
}

func newPandocConverter(cfg types.ConversionConfig, exec executor) (*PandocConverter, error) {
	bin := cfg.PandocPath
	if bin == "" {
		bin = binPandoc
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, &types.ConversionFailure{
			Tool:   binPandoc,
			Reason: fmt.Sprintf("executable %q not found: %v", bin, err),
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &PandocConverter{bin: resolved, timeout: timeout, exec: exec}, nil
}

func (c *PandocConverter) Name() string { return binPandoc }

// Convert runs pandoc against the input, verifying that a non-empty output
// file actually exists before reporting success.
func (c *PandocConverter) Convert(ctx context.Context, inputPath, outputPath, referenceDoc string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{inputPath, "-o", outputPath}
	if referenceDoc != "" {
		args = append(args, "--reference-doc", referenceDoc)
	}

	res, err := c.exec.Run(ctx, c.bin, args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.TimeoutError{Tool: binPandoc, Timeout: c.timeout}
	}
	if err != nil {
		return &types.ConversionFailure{Tool: binPandoc, Reason: err.Error()}
	}
	if res.exitCode != 0 {
		return &types.ConversionFailure{Tool: binPandoc, ExitCode: res.exitCode, Stderr: res.stderr}
	}

	return verifyOutput(binPandoc, outputPath)
}

// verifyOutput rejects a conversion whose output file is missing or empty.
func verifyOutput(tool, outputPath string) error {
	info, err := os.Stat(outputPath)
	if err != nil {
		return &types.ConversionFailure{Tool: tool, Reason: "produced no output file"}
	}
	if info.Size() == 0 {
		return &types.ConversionFailure{Tool: tool, Reason: "produced an empty output file"}
	}
	return nil
}

// retrying wraps a Converter with bounded local retries. Retries exist only
// at this boundary call; the orchestrator never retries across stages.
// Timeouts are not retried; a tool that hit the deadline once will again.
type retrying struct {
	inner    Converter
	attempts int
	w        io.Writer
}

// WithRetries returns a Converter that retries the inner converter up to
// attempts additional times on ConversionFailure.
func WithRetries(c Converter, attempts int, w io.Writer) Converter {
	if attempts <= 0 {
		return c
	}
	return &retrying{inner: c, attempts: attempts, w: w}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) Convert(ctx context.Context, inputPath, outputPath, referenceDoc string) error {
	var lastErr error
	for attempt := 0; attempt <= r.attempts; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(r.w, "retrying %s conversion (attempt %d/%d)\n",
				r.inner.Name(), attempt, r.attempts)
		}
		lastErr = r.inner.Convert(ctx, inputPath, outputPath, referenceDoc)
		if lastErr == nil {
			return nil
		}

		var failure *types.ConversionFailure
		if !errors.As(lastErr, &failure) {
			return lastErr
		}
	}
	return lastErr
}
