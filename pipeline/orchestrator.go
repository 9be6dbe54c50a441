package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/mara-ai/mara/components"
	"github.com/mara-ai/mara/schema"
)

// StageRunner is one unit of the fixed pipeline: it builds its prompt from
// the accumulated State and parses the model response into a StageOutput.
type StageRunner interface {
	Stage() Stage
	Run(ctx context.Context, st *State) (*StageOutput, error)
}

// Stages wires the closed set of stage agents into the orchestrator.
type Stages struct {
	Designer   StageRunner
	Engineer   StageRunner
	Analyst    StageRunner
	Synthesist StageRunner
}

// Hooks surface per-stage progress to the caller. All fields are optional.
// Iteration is 1-based for analysis stages and 0 otherwise.
type Hooks struct {
	OnStageStart    func(stage Stage, iteration int)
	OnStageComplete func(stage Stage, iteration int, out *StageOutput)
	OnPaused        func(stage Stage, remaining time.Duration)
	OnFailed        func(stage Stage, err error)
}

const defaultPauseInterval = 30 * time.Second

// DefaultFocusArea is the fallback used when focus-area generation yields
// fewer than the minimum parseable areas.
var DefaultFocusArea = schema.FocusArea{
	Label:     "General Analysis",
	Rationale: "Broad coverage of the topic when no specific focus areas are available.",
}

// Orchestrator drives the fixed stage sequence, threading the accumulated
// State from stage to stage. It runs stages strictly sequentially; the only
// suspension points are quota pauses and the model round trips themselves.
type Orchestrator struct {
	stages        Stages
	hooks         Hooks
	logger        *zap.Logger
	sleep         components.SleepFunc
	pauseInterval time.Duration
	aborted       *atomic.Bool
}

// New assembles an orchestrator over the four stage agents.
func New(stages Stages, options ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:        stages,
		logger:        zap.NewNop(),
		sleep:         sleepContext,
		pauseInterval: defaultPauseInterval,
		aborted:       atomic.NewBool(false),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Abort requests a cooperative stop. The orchestrator checks the flag
// before starting the next stage; a call already in flight is never
// interrupted.
func (o *Orchestrator) Abort() {
	o.aborted.Store(true)
}

// Run executes the pipeline: PromptDesign, FrameworkBuild, Analyzing x N,
// Synthesizing. The returned State carries whatever partial progress was
// made even when err is non-nil.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*State, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if o.stages.Designer == nil || o.stages.Engineer == nil || o.stages.Analyst == nil || o.stages.Synthesist == nil {
		return nil, errors.New("orchestrator: all four stage agents must be configured")
	}
	o.aborted.Store(false)

	st := NewState(req.Topic, req.Iterations)
	log := o.logger.With(zap.String("run_id", st.RunID), zap.String("topic", st.Topic))
	log.Info("pipeline started", zap.Int("iterations", st.TotalIterations))

	// Stage 1: prompt design. A parse failure falls back to the default
	// focus area instead of aborting.
	out, err := o.runStage(ctx, st, o.stages.Designer, 0)
	switch {
	case err == nil:
		st.FocusAreas = out.FocusAreas
	case isParseError(err):
		log.Warn("focus-area generation unparseable, using default focus area", zap.Error(err))
		st.FocusAreas = []schema.FocusArea{DefaultFocusArea}
	default:
		return o.fail(st, StagePromptDesign, err)
	}
	st.Selected = selectFocusAreas(st.FocusAreas, req.SelectedFocusAreas)

	// Stage 2: framework build. An empty framework would corrupt every
	// downstream stage, so it escalates.
	out, err = o.runStage(ctx, st, o.stages.Engineer, 0)
	if err != nil {
		return o.fail(st, StageFrameworkBuild, err)
	}
	if strings.TrimSpace(out.Framework) == "" {
		return o.fail(st, StageFrameworkBuild, &ParseError{Stage: StageFrameworkBuild, Reason: "empty framework"})
	}
	st.Framework = out.Framework

	// Stage 3: N analysis iterations, each conditioned on all prior
	// results and the running citation set.
	for i := 1; i <= st.TotalIterations; i++ {
		st.CurrentIteration = i
		out, err = o.runStage(ctx, st, o.stages.Analyst, i)
		if err != nil {
			return o.fail(st, StageAnalysis, err)
		}
		if out.Iteration == nil {
			return o.fail(st, StageAnalysis, fmt.Errorf("analysis iteration %d produced no result", i))
		}
		st.Results = append(st.Results, *out.Iteration)
		st.Ledger.Merge(out.Iteration.Citations...)
		log.Info("analysis iteration complete",
			zap.Int("iteration", i),
			zap.Int("citations", st.Ledger.Len()))
	}

	// Stage 4: synthesis over the full accumulated context.
	out, err = o.runStage(ctx, st, o.stages.Synthesist, 0)
	if err != nil {
		return o.fail(st, StageSynthesis, err)
	}
	st.Report = out.Report
	st.Status = StatusDone
	log.Info("pipeline done", zap.Int("works_cited", len(st.Report.WorksCited)))
	return st, nil
}

// runStage executes one stage, pausing and resuming the same stage on
// quota/rate-limit failures.
func (o *Orchestrator) runStage(ctx context.Context, st *State, runner StageRunner, iteration int) (*StageOutput, error) {
	stage := runner.Stage()
	if err := o.checkAbort(ctx); err != nil {
		return nil, err
	}
	st.Status = statusFor(stage)
	if fn := o.hooks.OnStageStart; fn != nil {
		fn(stage, iteration)
	}
	for {
		out, err := runner.Run(ctx, st)
		if err == nil {
			st.Status = statusFor(stage)
			if fn := o.hooks.OnStageComplete; fn != nil {
				fn(stage, iteration, out)
			}
			return out, nil
		}
		if !components.IsRecoverable(err) {
			return nil, err
		}
		remaining := o.pauseInterval
		if ce, ok := components.AsCallError(err); ok && ce.RetryAfter > 0 {
			remaining = ce.RetryAfter
		}
		st.Status = StatusPaused
		o.logger.Warn("pipeline paused",
			zap.Stringer("stage", stage),
			zap.Int("iteration", iteration),
			zap.Duration("remaining", remaining))
		if fn := o.hooks.OnPaused; fn != nil {
			fn(stage, remaining)
		}
		if err := o.sleep(ctx, remaining); err != nil {
			return nil, err
		}
		if err := o.checkAbort(ctx); err != nil {
			return nil, err
		}
		st.Status = statusFor(stage)
	}
}

func (o *Orchestrator) fail(st *State, stage Stage, err error) (*State, error) {
	st.Status = StatusFailed
	o.logger.Error("pipeline failed", zap.Stringer("stage", stage), zap.Error(err))
	if fn := o.hooks.OnFailed; fn != nil {
		fn(stage, err)
	}
	return st, err
}

func (o *Orchestrator) checkAbort(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.aborted.Load() {
		return ErrAborted
	}
	return nil
}

func statusFor(stage Stage) Status {
	switch stage {
	case StagePromptDesign:
		return StatusPromptDesign
	case StageFrameworkBuild:
		return StatusFrameworkBuild
	case StageAnalysis:
		return StatusAnalyzing
	case StageSynthesis:
		return StatusSynthesizing
	}
	return StatusIdle
}

// selectFocusAreas filters generated areas down to the caller's selection.
// Labels match case-insensitively; an empty or fully unmatched selection
// keeps the whole generated set.
func selectFocusAreas(generated []schema.FocusArea, selected []string) []schema.FocusArea {
	if len(selected) == 0 {
		return generated
	}
	want := make(map[string]struct{}, len(selected))
	for _, label := range selected {
		want[strings.ToLower(strings.TrimSpace(label))] = struct{}{}
	}
	var out []schema.FocusArea
	for _, area := range generated {
		if _, ok := want[strings.ToLower(area.Label)]; ok {
			out = append(out, area)
		}
	}
	if len(out) == 0 {
		return generated
	}
	return out
}

func isParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
