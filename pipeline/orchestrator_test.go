package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mara-ai/mara/components"
	"github.com/mara-ai/mara/schema"
)

// fakeStage replays scripted run funcs; the last one repeats once the
// script is exhausted.
type fakeStage struct {
	stage Stage
	runs  []func(st *State) (*StageOutput, error)
	calls int
}

func (f *fakeStage) Stage() Stage { return f.stage }

func (f *fakeStage) Run(_ context.Context, st *State) (*StageOutput, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.runs) {
		idx = len(f.runs) - 1
	}
	return f.runs[idx](st)
}

func focusAreasOutput(labels ...string) func(*State) (*StageOutput, error) {
	return func(*State) (*StageOutput, error) {
		out := &StageOutput{Stage: StagePromptDesign}
		for _, label := range labels {
			out.FocusAreas = append(out.FocusAreas, schema.FocusArea{Label: label})
		}
		return out, nil
	}
}

func frameworkOutput(text string) func(*State) (*StageOutput, error) {
	return func(*State) (*StageOutput, error) {
		return &StageOutput{Stage: StageFrameworkBuild, Framework: text}, nil
	}
}

func iterationOutput() func(*State) (*StageOutput, error) {
	return func(st *State) (*StageOutput, error) {
		idx := len(st.Results) + 1
		return &StageOutput{Stage: StageAnalysis, Iteration: &schema.IterationResult{
			Index:   idx,
			Title:   fmt.Sprintf("Iteration %d", idx),
			Content: fmt.Sprintf("analysis %d", idx),
			Citations: []schema.Citation{
				{Key: fmt.Sprintf("source-%d", idx), Text: fmt.Sprintf("Source %d (2020).", idx)},
				{Key: "shared-2020", Text: "Shared, S. (2020)."},
			},
		}}, nil
	}
}

func reportOutput() func(*State) (*StageOutput, error) {
	return func(st *State) (*StageOutput, error) {
		return &StageOutput{Stage: StageSynthesis, Report: &schema.Report{
			Title:      "Final Report",
			WorksCited: st.Ledger.Entries(),
		}}, nil
	}
}

func failWith(err error) func(*State) (*StageOutput, error) {
	return func(*State) (*StageOutput, error) { return nil, err }
}

func workingStages() Stages {
	return Stages{
		Designer:   &fakeStage{stage: StagePromptDesign, runs: []func(*State) (*StageOutput, error){focusAreasOutput("Hardware", "Noise", "Benchmarks")}},
		Engineer:   &fakeStage{stage: StageFrameworkBuild, runs: []func(*State) (*StageOutput, error){frameworkOutput("A. Research Objectives")}},
		Analyst:    &fakeStage{stage: StageAnalysis, runs: []func(*State) (*StageOutput, error){iterationOutput()}},
		Synthesist: &fakeStage{stage: StageSynthesis, runs: []func(*State) (*StageOutput, error){reportOutput()}},
	}
}

// eventRecorder turns hooks into a flat, ordered event log.
type eventRecorder struct {
	events []string
}

func (r *eventRecorder) hooks() Hooks {
	return Hooks{
		OnStageStart: func(stage Stage, iteration int) {
			r.events = append(r.events, fmt.Sprintf("start:%s:%d", stage, iteration))
		},
		OnStageComplete: func(stage Stage, iteration int, _ *StageOutput) {
			r.events = append(r.events, fmt.Sprintf("complete:%s:%d", stage, iteration))
		},
		OnPaused: func(stage Stage, remaining time.Duration) {
			r.events = append(r.events, fmt.Sprintf("paused:%s:%s", stage, remaining))
		},
		OnFailed: func(stage Stage, err error) {
			r.events = append(r.events, fmt.Sprintf("failed:%s", stage))
		},
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestOrchestratorRunsFullPipeline(t *testing.T) {
	rec := new(eventRecorder)
	o := New(workingStages(), WithHooks(rec.hooks()), WithSleep(noSleep))

	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 2})
	require.NoError(t, err)
	require.NotNil(t, st)

	assert.Equal(t, StatusDone, st.Status)
	assert.NotEmpty(t, st.RunID)
	assert.Len(t, st.FocusAreas, 3)
	assert.Equal(t, st.FocusAreas, st.Selected)
	assert.Equal(t, "A. Research Objectives", st.Framework)
	require.Len(t, st.Results, 2)
	assert.Equal(t, 1, st.Results[0].Index)
	assert.Equal(t, 2, st.Results[1].Index)

	// three distinct keys: shared-2020 deduplicates across iterations
	assert.Equal(t, 3, st.Ledger.Len())
	require.NotNil(t, st.Report)
	assert.Len(t, st.Report.WorksCited, 3)

	assert.Equal(t, []string{
		"start:prompt_design:0",
		"complete:prompt_design:0",
		"start:framework_build:0",
		"complete:framework_build:0",
		"start:analysis:1",
		"complete:analysis:1",
		"start:analysis:2",
		"complete:analysis:2",
		"start:synthesis:0",
		"complete:synthesis:0",
	}, rec.events)
}

func TestOrchestratorSelectsRequestedFocusAreas(t *testing.T) {
	o := New(workingStages(), WithSleep(noSleep))
	st, err := o.Run(context.Background(), Request{
		Topic:              "quantum annealing",
		Iterations:         1,
		SelectedFocusAreas: []string{"noise", " Benchmarks "},
	})
	require.NoError(t, err)
	require.Len(t, st.Selected, 2)
	assert.Equal(t, "Noise", st.Selected[0].Label)
	assert.Equal(t, "Benchmarks", st.Selected[1].Label)
}

func TestOrchestratorUnmatchedSelectionKeepsAll(t *testing.T) {
	o := New(workingStages(), WithSleep(noSleep))
	st, err := o.Run(context.Background(), Request{
		Topic:              "quantum annealing",
		Iterations:         1,
		SelectedFocusAreas: []string{"no such area"},
	})
	require.NoError(t, err)
	assert.Len(t, st.Selected, 3)
}

func TestOrchestratorDesignerFallback(t *testing.T) {
	stages := workingStages()
	stages.Designer = &fakeStage{stage: StagePromptDesign, runs: []func(*State) (*StageOutput, error){
		failWith(&ParseError{Stage: StagePromptDesign, Reason: "recovered 1 focus areas, need at least 3"}),
	}}
	o := New(stages, WithSleep(noSleep))

	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, st.Status)
	require.Len(t, st.FocusAreas, 1)
	assert.Equal(t, DefaultFocusArea, st.FocusAreas[0])
	assert.Equal(t, st.FocusAreas, st.Selected)
}

func TestOrchestratorEmptyFrameworkFails(t *testing.T) {
	stages := workingStages()
	stages.Engineer = &fakeStage{stage: StageFrameworkBuild, runs: []func(*State) (*StageOutput, error){frameworkOutput("  \n")}}
	rec := new(eventRecorder)
	o := New(stages, WithHooks(rec.hooks()), WithSleep(noSleep))

	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 1})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageFrameworkBuild, perr.Stage)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Contains(t, rec.events, "failed:framework_build")
}

func TestOrchestratorPausesAndResumesSameStage(t *testing.T) {
	quotaErr := &components.CallError{
		Kind:       components.KindRateLimited,
		RetryAfter: 5 * time.Minute,
		Err:        errors.New("resource exhausted"),
	}
	stages := workingStages()
	stages.Analyst = &fakeStage{stage: StageAnalysis, runs: []func(*State) (*StageOutput, error){
		failWith(quotaErr),
		failWith(quotaErr),
		iterationOutput(),
	}}

	var sleeps []time.Duration
	rec := new(eventRecorder)
	o := New(stages, WithHooks(rec.hooks()), WithSleep(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}))

	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, st.Status)
	require.Len(t, st.Results, 1)

	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute}, sleeps)
	assert.Equal(t, []string{
		"start:prompt_design:0",
		"complete:prompt_design:0",
		"start:framework_build:0",
		"complete:framework_build:0",
		"start:analysis:1",
		"paused:analysis:5m0s",
		"paused:analysis:5m0s",
		"complete:analysis:1",
		"start:synthesis:0",
		"complete:synthesis:0",
	}, rec.events)
}

func TestOrchestratorPauseWithoutHintUsesInterval(t *testing.T) {
	rateErr := &components.CallError{Kind: components.KindRateLimited, Err: errors.New("throttled")}
	stages := workingStages()
	stages.Synthesist = &fakeStage{stage: StageSynthesis, runs: []func(*State) (*StageOutput, error){
		failWith(rateErr),
		reportOutput(),
	}}

	var sleeps []time.Duration
	o := New(stages, WithPauseInterval(10*time.Second), WithSleep(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}))

	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, st.Status)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeps)
}

func TestOrchestratorFatalErrorReturnsPartialState(t *testing.T) {
	fatal := &components.CallError{Kind: components.KindFatal, Err: errors.New("invalid api key")}
	stages := workingStages()
	stages.Synthesist = &fakeStage{stage: StageSynthesis, runs: []func(*State) (*StageOutput, error){failWith(fatal)}}
	o := New(stages, WithSleep(noSleep))

	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 2})
	require.Error(t, err)
	require.NotNil(t, st)
	assert.Equal(t, StatusFailed, st.Status)
	// completed iterations survive the failure
	assert.Len(t, st.Results, 2)
	assert.Nil(t, st.Report)
}

func TestOrchestratorAbortDuringPause(t *testing.T) {
	quotaErr := &components.CallError{Kind: components.KindQuotaExceeded, RetryAfter: time.Minute, Err: errors.New("quota")}
	stages := workingStages()
	stages.Analyst = &fakeStage{stage: StageAnalysis, runs: []func(*State) (*StageOutput, error){failWith(quotaErr)}}

	var o *Orchestrator
	o = New(stages, WithSleep(func(context.Context, time.Duration) error {
		o.Abort()
		return nil
	}))

	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 1})
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Empty(t, st.Results)
}

func TestOrchestratorAbortBeforeRunIsReset(t *testing.T) {
	o := New(workingStages(), WithSleep(noSleep))
	o.Abort()

	// Run clears a stale abort flag from a previous run
	st, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, st.Status)
}

func TestOrchestratorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(workingStages(), WithSleep(noSleep))

	_, err := o.Run(ctx, Request{Topic: "quantum annealing", Iterations: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOrchestratorValidatesRequest(t *testing.T) {
	o := New(workingStages(), WithSleep(noSleep))

	cases := []Request{
		{Topic: "", Iterations: 1},
		{Topic: "ab", Iterations: 1},
		{Topic: "quantum annealing", Iterations: 0},
		{Topic: "quantum annealing", Iterations: 6},
	}
	for _, req := range cases {
		_, err := o.Run(context.Background(), req)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "request %+v", req)
	}
}

func TestOrchestratorRequiresAllStages(t *testing.T) {
	stages := workingStages()
	stages.Analyst = nil
	o := New(stages)

	_, err := o.Run(context.Background(), Request{Topic: "quantum annealing", Iterations: 1})
	require.Error(t, err)
}
