// Package pipeline sequences the evidence pipeline end to end: external
// collaborator stages, in-process consolidation and scoring, progress
// tracking and failure reporting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks caller-correctable run preconditions: a selected
// preset without a deployed bundle, or missing upstream artifacts.
var ErrValidation = errors.New("pipeline: validation failed")

// Stage is one ordered pipeline step. External collaborator stages name
// a script under Dir executed through a Runner; in-process stages carry
// a Fn instead and run as direct method calls.
type Stage struct {
	Dir    string
	Script string
	Label  string
	Fn     func(ctx context.Context) error
}

// ID identifies the stage in status and timing documents.
func (s Stage) ID() string { return s.Dir }

// StageFailure is the reportable outcome of a stage exiting non-zero.
// It halts the run but is not an infrastructure error.
type StageFailure struct {
	Stage  Stage
	Output string
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed", e.Stage.ID())
}

// TimeoutError reports a stage exceeding its individual time budget.
type TimeoutError struct {
	Stage   Stage
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pipeline: stage %s timed out after %s", e.Stage.ID(), e.Timeout)
}
