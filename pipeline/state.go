package pipeline

import (
	"time"

	"github.com/rs/xid"

	"github.com/mara-ai/mara/components"
	"github.com/mara-ai/mara/schema"
)

// Stage identifies one of the four fixed pipeline stages.
type Stage int

const (
	StagePromptDesign Stage = iota + 1
	StageFrameworkBuild
	StageAnalysis
	StageSynthesis
)

func (s Stage) String() string {
	switch s {
	case StagePromptDesign:
		return "prompt_design"
	case StageFrameworkBuild:
		return "framework_build"
	case StageAnalysis:
		return "analysis"
	case StageSynthesis:
		return "synthesis"
	}
	return "unknown"
}

// Status is the orchestrator's run state.
type Status int

const (
	StatusIdle Status = iota
	StatusPromptDesign
	StatusFrameworkBuild
	StatusAnalyzing
	StatusSynthesizing
	StatusPaused
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPromptDesign:
		return "prompt_design"
	case StatusFrameworkBuild:
		return "framework_build"
	case StatusAnalyzing:
		return "analyzing"
	case StatusSynthesizing:
		return "synthesizing"
	case StatusPaused:
		return "paused"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// StageOutput is the result of one stage run. Exactly one payload field is
// set, matching Stage.
type StageOutput struct {
	Stage      Stage
	FocusAreas []schema.FocusArea
	Framework  string
	Iteration  *schema.IterationResult
	Report     *schema.Report
}

// State is the pipeline context: the accumulator threaded through every
// stage of one run. It is owned exclusively by a single Orchestrator run
// and grows monotonically; recorded results are never rewound.
type State struct {
	RunID           string
	Topic           string
	TotalIterations int

	// FocusAreas is the full generated set; Selected is the subset the
	// caller kept (equal to FocusAreas when no selection was made).
	FocusAreas []schema.FocusArea
	Selected   []schema.FocusArea

	Framework string
	Results   []schema.IterationResult
	Ledger    *components.CitationLedger
	Report    *schema.Report

	Status           Status
	CurrentIteration int
	StartedAt        time.Time
}

// NewState seeds the context for one run.
func NewState(topic string, iterations int) *State {
	return &State{
		RunID:           xid.New().String(),
		Topic:           topic,
		TotalIterations: iterations,
		Ledger:          components.NewCitationLedger(),
		Status:          StatusIdle,
		StartedAt:       time.Now(),
	}
}

// LastResult returns the most recent iteration result, or nil.
func (s *State) LastResult() *schema.IterationResult {
	if len(s.Results) == 0 {
		return nil
	}
	return &s.Results[len(s.Results)-1]
}
