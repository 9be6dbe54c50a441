package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/mara-ai/mara/components/systemprompt"
	"github.com/mara-ai/mara/pipeline"
)

// FrameworkEngineer turns the topic and selected focus areas into a
// structured research framework. The output is free text stored verbatim;
// the only contract is that it is non-empty.
type FrameworkEngineer struct {
	Config
}

var _ pipeline.StageRunner = (*FrameworkEngineer)(nil)

// NewFrameworkEngineer returns a FrameworkEngineer stage agent.
func NewFrameworkEngineer(options ...Option) *FrameworkEngineer {
	a := new(FrameworkEngineer)
	a.Config.apply(options)
	if a.name == "" {
		a.name = "FrameworkEngineer"
	}
	if a.prompt == nil {
		a.prompt = systemprompt.New(
			systemprompt.WithBackground([]string{
				"- This assistant designs rigorous research frameworks for a reasoning agent.",
			}),
			systemprompt.WithOutputInstructs([]string{
				"- For each section and subsection provide detailed content specific to the topic.",
				"- Use clear, academic language while maintaining accessibility.",
			}),
		)
	}
	return a
}

// Stage implements pipeline.StageRunner.
func (a *FrameworkEngineer) Stage() pipeline.Stage { return pipeline.StageFrameworkBuild }

// Run generates the analysis framework.
func (a *FrameworkEngineer) Run(ctx context.Context, st *pipeline.State) (*pipeline.StageOutput, error) {
	text, err := a.generate(ctx, a.buildPrompt(st), a.temperature)
	if err != nil {
		return nil, err
	}
	return &pipeline.StageOutput{Stage: pipeline.StageFrameworkBuild, Framework: text}, nil
}

func (a *FrameworkEngineer) buildPrompt(st *pipeline.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a comprehensive research framework for analyzing '%s'.\n\n", st.Topic)
	if len(st.Selected) > 0 {
		b.WriteString("Pay special attention to these selected focus areas:\n")
		for _, area := range st.Selected {
			b.WriteString("- ")
			b.WriteString(area.Label)
			if area.Rationale != "" {
				b.WriteString(": ")
				b.WriteString(area.Rationale)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(`The framework must follow this exact structure:

A. Research Objectives:
   1. Primary Research Questions
   2. Secondary Research Questions
   3. Expected Outcomes

B. Methodological Approach:
   1. Research Methods
   2. Data Collection Strategies
   3. Analysis Techniques

C. Investigation Areas:
   1. Core Topics
   2. Subtopics
   3. Cross-cutting Themes

D. Ethical Considerations:
   1. Key Ethical Issues
   2. Stakeholder Analysis
   3. Risk Assessment

E. Evaluation Framework:
   1. Success Metrics
   2. Quality Indicators
   3. Validation Methods

F. Timeline and Milestones:
   1. Research Phases
   2. Key Deliverables
   3. Review Points
`)
	return b.String()
}
