package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mara-ai/mara/components"
	"github.com/mara-ai/mara/pipeline"
	"github.com/mara-ai/mara/schema"
)

// scriptProvider replays canned responses and records every prompt it saw.
type scriptProvider struct {
	responses []string
	prompts   []string
}

func (p *scriptProvider) Name() string { return "script" }

func (p *scriptProvider) Generate(_ context.Context, req *components.GenerateRequest) (*components.LLMResponse, error) {
	p.prompts = append(p.prompts, req.Prompt)
	text := ""
	if len(p.responses) > 0 {
		text = p.responses[0]
		p.responses = p.responses[1:]
	}
	return &components.LLMResponse{Text: text, Model: "script"}, nil
}

func newTestClient(p components.Provider) *components.ModelClient {
	return components.NewModelClient(p, components.NewQuotaGuard())
}

func TestPromptDesignerRun(t *testing.T) {
	provider := &scriptProvider{responses: []string{`1. Hardware Architectures: qubit substrates
2. Error Mitigation: coping with noise
3. Optimization Applications: combinatorial problems
4. Benchmarking Protocols: fair comparisons`}}
	designer := NewPromptDesigner(WithClient(newTestClient(provider)))

	st := pipeline.NewState("quantum annealing", 2)
	out, err := designer.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StagePromptDesign, out.Stage)
	require.Len(t, out.FocusAreas, 4)
	assert.Equal(t, "Hardware Architectures", out.FocusAreas[0].Label)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "quantum annealing")
	assert.Contains(t, provider.prompts[0], "8-12 potential focus areas")
	assert.Contains(t, provider.prompts[0], "# IDENTITY and PURPOSE")
}

func TestPromptDesignerUnparseableOutput(t *testing.T) {
	provider := &scriptProvider{responses: []string{"I could not come up with a list."}}
	designer := NewPromptDesigner(WithClient(newTestClient(provider)))

	_, err := designer.Run(context.Background(), pipeline.NewState("quantum annealing", 1))
	var perr *pipeline.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestFrameworkEngineerPromptIncludesSelection(t *testing.T) {
	provider := &scriptProvider{responses: []string{"A. Research Objectives:\n   1. Primary Research Questions"}}
	engineer := NewFrameworkEngineer(WithClient(newTestClient(provider)), WithTemperature(0.7))

	st := pipeline.NewState("quantum annealing", 2)
	st.Selected = []schema.FocusArea{
		{Label: "Error Mitigation", Rationale: "coping with noise"},
		{Label: "Benchmarking Protocols"},
	}
	out, err := engineer.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageFrameworkBuild, out.Stage)
	assert.Contains(t, out.Framework, "Research Objectives")

	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "- Error Mitigation: coping with noise")
	assert.Contains(t, prompt, "- Benchmarking Protocols\n")
	assert.Contains(t, prompt, "F. Timeline and Milestones:")
}

func TestResearchAnalystTemperatureSchedule(t *testing.T) {
	analyst := NewResearchAnalyst()
	want := []float32{0.7, 0.8, 0.9, 0.9, 0.9}
	for i, temp := range want {
		assert.InDelta(t, temp, analyst.TemperatureFor(i+1), 1e-6, "iteration %d", i+1)
	}
	assert.InDelta(t, 0.7, analyst.TemperatureFor(0), 1e-6)
}

func TestResearchAnalystInitialIteration(t *testing.T) {
	provider := &scriptProvider{responses: []string{`Title: Annealing Baselines
Subtitle: Establishing the Field

1. Introduction
Early results (Smith, 2020) set the stage.

7. References
- Smith, J. (2020). Annealing at scale. Nature.`}}
	analyst := NewResearchAnalyst(WithClient(newTestClient(provider)))

	st := pipeline.NewState("quantum annealing", 2)
	st.Framework = "A. Research Objectives"
	out, err := analyst.Run(context.Background(), st)
	require.NoError(t, err)
	require.NotNil(t, out.Iteration)
	assert.Equal(t, 1, out.Iteration.Index)
	assert.Equal(t, "Annealing Baselines", out.Iteration.Title)
	assert.InDelta(t, 0.7, out.Iteration.Temperature, 1e-6)
	require.Len(t, out.Iteration.Citations, 1)
	assert.Equal(t, "smith-2020", out.Iteration.Citations[0].Key)

	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "initial research analysis")
	assert.Contains(t, prompt, "A. Research Objectives")
	assert.NotContains(t, prompt, "Previous iterations")
}

func TestResearchAnalystExpansionIteration(t *testing.T) {
	provider := &scriptProvider{responses: []string{`Title: Beyond Baselines
Subtitle: Noise Revisited

1. Previous Analysis Review
New evidence (Jones, 2022) contradicts the baseline.`}}
	analyst := NewResearchAnalyst(WithClient(newTestClient(provider)))

	st := pipeline.NewState("quantum annealing", 2)
	st.Framework = "A. Research Objectives"
	st.Results = append(st.Results, schema.IterationResult{
		Index:   1,
		Title:   "Annealing Baselines",
		Content: "Early results set the stage.",
	})
	st.Ledger.Add(schema.Citation{Key: "smith-2020", Text: "Smith, J. (2020). Annealing at scale. Nature."})

	out, err := analyst.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Iteration.Index)
	assert.InDelta(t, 0.8, out.Iteration.Temperature, 1e-6)

	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "--- Iteration 1: Annealing Baselines ---")
	assert.Contains(t, prompt, "Early results set the stage.")
	assert.Contains(t, prompt, "Sources already cited")
	assert.Contains(t, prompt, "smith-2020")
	assert.Contains(t, prompt, "iteration #2")
}

func TestResearchAnalystKeepsTextOnCitationFailure(t *testing.T) {
	provider := &scriptProvider{responses: []string{"An analysis with no recognizable sources."}}
	analyst := NewResearchAnalyst(WithClient(newTestClient(provider)))

	out, err := analyst.Run(context.Background(), pipeline.NewState("quantum annealing", 1))
	require.NoError(t, err)
	assert.Equal(t, "An analysis with no recognizable sources.", out.Iteration.Content)
	assert.Empty(t, out.Iteration.Citations)
}

func TestSynthesisExpertRun(t *testing.T) {
	provider := &scriptProvider{responses: []string{`Title: Annealing in Review
Subtitle: A Synthesis

1. Executive Summary
The field has matured (Smith, 2020).

2. Key Insights
Hardware progress outpaces theory.

6. Recommended Readings
- Smith, J. (2020). Annealing at scale.

7. Works Cited
- Hallucinated, H. (1999). Should not appear.`}}
	synthesist := NewSynthesisExpert(WithClient(newTestClient(provider)))

	st := pipeline.NewState("quantum annealing", 1)
	st.Results = append(st.Results, schema.IterationResult{Index: 1, Title: "Annealing Baselines", Content: "body"})
	st.Ledger.Add(schema.Citation{Key: "smith-2020", Text: "Smith, J. (2020). Annealing at scale. Nature."})

	out, err := synthesist.Run(context.Background(), st)
	require.NoError(t, err)
	report := out.Report
	require.NotNil(t, report)
	assert.Equal(t, "Annealing in Review", report.Title)
	assert.Equal(t, "A Synthesis", report.Subtitle)
	assert.Equal(t, "The field has matured (Smith, 2020).", report.ExecutiveSummary)
	assert.Equal(t, []string{"Smith, J. (2020). Annealing at scale."}, report.RecommendedReadings)

	// bibliography comes from the ledger, not the model output
	require.Len(t, report.WorksCited, 1)
	assert.Equal(t, "smith-2020", report.WorksCited[0].Key)
	for _, sec := range report.Sections {
		assert.NotContains(t, sec.Body, "Hallucinated")
	}

	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "--- Iteration 1: Annealing Baselines ---")
	assert.Contains(t, prompt, "Smith, J. (2020). Annealing at scale. Nature.")
}

func TestSynthesisExpertTitleFallback(t *testing.T) {
	provider := &scriptProvider{responses: []string{"A synthesis with no title labels at all."}}
	synthesist := NewSynthesisExpert(WithClient(newTestClient(provider)))

	st := pipeline.NewState("quantum annealing", 1)
	out, err := synthesist.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "quantum annealing", out.Report.Title)
}
