// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage names a pipeline step. Stages run strictly in order; each consumes
// the artifact produced by the previous one.
type Stage string

const (
	StageSplit        Stage = "split"
	StageConvert      Stage = "convert"
	StageTables       Stage = "tables"
	StageCover        Stage = "cover"
	StageMerge        Stage = "merge"
	StageTocTitle     Stage = "toc-title"
	StagePictures     Stage = "pictures"
	StageSupplement   Stage = "supplement"
	StageSectionBreak Stage = "section-break"
	StagePageNumbers  Stage = "page-numbers"
	StageHighlights   Stage = "highlights"
	StageValidate     Stage = "validate"
)

// RunState is the orchestrator state after a run finishes.
type RunState string

const (
	RunStateDone   RunState = "done"
	RunStateFailed RunState = "failed"
)

// StageResult records one stage's outcome within a run.
type StageResult struct {
	Stage    Stage
	Duration time.Duration
	Err      error
}

// RunReport summarizes a pipeline run: which stages ran, where it stopped,
// and where intermediate artifacts live if they were retained.
type RunReport struct {
	Source      string
	Output      string
	State       RunState
	Stages      []StageResult
	FailedStage Stage
	WorkDir     string // non-empty when intermediates were retained
	Started     time.Time
	Finished    time.Time
}

// Failed reports whether the run ended in the failed state.
func (r *RunReport) Failed() bool { return r.State == RunStateFailed }
