// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// InvalidInputError reports a missing or malformed input artifact (source
// document, template, or settings file).
type InvalidInputError struct {
	Path   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Path, e.Reason)
}

// StructuralAssumptionError reports that an expected structural marker was
// not found in a document (no cover boundary, no section to scope).
type StructuralAssumptionError struct {
	Marker string
	Path   string
}

func (e *StructuralAssumptionError) Error() string {
	return fmt.Sprintf("structural assumption failed for %s: no %s found", e.Path, e.Marker)
}

// NotFoundError reports that a mandatory match target (the TOC heading) was
// absent. Distinct from StructuralAssumptionError so callers can tell a
// missing edit target from a malformed document shape.
type NotFoundError struct {
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Target)
}

// ConversionFailure reports an external converter that exited non-zero or
// produced no usable output. Stderr carries the tool's diagnostic output.
type ConversionFailure struct {
	Tool     string
	ExitCode int
	Stderr   string
	Reason   string
}

func (e *ConversionFailure) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s conversion failed: %s", e.Tool, e.Reason)
	}
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// TimeoutError reports an external call that exceeded its configured bound.
type TimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %v", e.Tool, e.Timeout)
}

// ValidationFailure reports that the final artifact failed one or more
// post-condition checks. Details lists the failed checks.
type ValidationFailure struct {
	Path    string
	Details []string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation of %s failed: %d check(s) did not pass", e.Path, len(e.Details))
}

// StageError wraps a failure with the pipeline stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
