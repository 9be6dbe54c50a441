package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mara-ai/mara/components/systemprompt"
	"github.com/mara-ai/mara/pipeline"
	"github.com/mara-ai/mara/schema"
)

// Analyst temperature schedule defaults: iterations grow more exploratory,
// 0.7, 0.8, 0.9, 0.9, ...
const (
	defaultAnalysisBaseTemp  = 0.7
	defaultAnalysisTempStep  = 0.1
	defaultAnalysisMaxTemp   = 0.9
	maxPriorContextPerResult = 4000
)

// ResearchAnalyst runs one deepening analysis iteration per call. Each
// iteration is conditioned on the framework, every prior iteration's
// output and a snapshot of the citation ledger. Citation extraction fails
// soft: an iteration with unparseable citations keeps its analysis text
// and records an empty citation set.
type ResearchAnalyst struct {
	Config
}

var _ pipeline.StageRunner = (*ResearchAnalyst)(nil)

// NewResearchAnalyst returns a ResearchAnalyst stage agent.
func NewResearchAnalyst(options ...Option) *ResearchAnalyst {
	a := new(ResearchAnalyst)
	a.Config.apply(options)
	if a.name == "" {
		a.name = "ResearchAnalyst"
	}
	if a.temperature == 0 {
		a.temperature = defaultAnalysisBaseTemp
	}
	if a.tempIncrement == 0 {
		a.tempIncrement = defaultAnalysisTempStep
	}
	if a.maxTemperature == 0 {
		a.maxTemperature = defaultAnalysisMaxTemp
	}
	if a.prompt == nil {
		a.prompt = systemprompt.New(
			systemprompt.WithBackground([]string{
				"- This assistant is a leading research analyst in the topic's field.",
			}),
			systemprompt.WithOutputInstructs([]string{
				"- Start with 'Title:' and 'Subtitle:' lines.",
				"- Use proper APA in-text citations (Author, Year).",
				"- Each section should have at least 2-3 relevant citations.",
				"- List all cited works in a final References section in APA format.",
			}),
		)
	}
	return a
}

// Stage implements pipeline.StageRunner.
func (a *ResearchAnalyst) Stage() pipeline.Stage { return pipeline.StageAnalysis }

// TemperatureFor returns the temperature for a 1-based iteration. The
// schedule is monotonically non-decreasing and capped at the maximum.
func (a *ResearchAnalyst) TemperatureFor(iteration int) float32 {
	if iteration < 1 {
		iteration = 1
	}
	t := a.temperature + float32(iteration-1)*a.tempIncrement
	if t > a.maxTemperature {
		t = a.maxTemperature
	}
	return t
}

// Run produces the next IterationResult.
func (a *ResearchAnalyst) Run(ctx context.Context, st *pipeline.State) (*pipeline.StageOutput, error) {
	iteration := len(st.Results) + 1
	temperature := a.TemperatureFor(iteration)
	text, err := a.generate(ctx, a.buildPrompt(st, iteration), temperature)
	if err != nil {
		return nil, err
	}
	title, subtitle, content := ParseTitleContent(text)
	if content == "" {
		content = text
	}
	citations := ExtractCitations(content)
	if len(citations) == 0 {
		a.logger.Warn("no citations extracted from iteration",
			zap.Int("iteration", iteration))
	}
	result := &schema.IterationResult{
		Index:       iteration,
		Title:       title,
		Subtitle:    subtitle,
		Content:     content,
		Temperature: temperature,
		Citations:   citations,
	}
	return &pipeline.StageOutput{Stage: pipeline.StageAnalysis, Iteration: result}, nil
}

func (a *ResearchAnalyst) buildPrompt(st *pipeline.State, iteration int) string {
	var b strings.Builder
	if iteration == 1 {
		fmt.Fprintf(&b, "Based on the framework below, conduct an initial research analysis of '%s'.\n", st.Topic)
		b.WriteString("Follow the methodological approaches and evaluation criteria specified in the framework ")
		b.WriteString("and provide detailed findings for each key area of investigation.\n\n")
		fmt.Fprintf(&b, "Framework context:\n%s\n\n", st.Framework)
		b.WriteString(`Structure your analysis using this format:

Title: [Descriptive title reflecting the main focus]
Subtitle: [Specific aspect or approach being analyzed]

1. Introduction
2. Methodology Overview
3. Key Findings
4. Analysis
5. Implications
6. Limitations and Gaps
7. References
`)
	} else {
		fmt.Fprintf(&b, "Review the previous research iterations on '%s' and expand the analysis.\n\n", st.Topic)
		fmt.Fprintf(&b, "Framework context:\n%s\n\n", st.Framework)
		b.WriteString("Previous iterations:\n\n")
		for _, prior := range st.Results {
			fmt.Fprintf(&b, "--- Iteration %d: %s ---\n%s\n\n", prior.Index, prior.Title, truncate(prior.Content, maxPriorContextPerResult))
		}
		if keys := st.Ledger.Keys(); len(keys) > 0 {
			fmt.Fprintf(&b, "Sources already cited (do not re-introduce, build upon them): %s\n\n", strings.Join(keys, ", "))
		}
		fmt.Fprintf(&b, `For iteration #%d, focus on:
1. Identifying gaps or areas needing more depth
2. Exploring new connections and implications
3. Refining and strengthening key arguments
4. Adding new supporting evidence or perspectives

Structure your analysis using this format:

Title: [Descriptive title reflecting the new focus]
Subtitle: [Specific aspect being expanded upon]

1. Previous Analysis Review
2. Expanded Analysis
3. Novel Connections
4. Critical Evaluation
5. Synthesis and Integration
6. References

Note: As this is iteration %d, be more explorative and creative while maintaining academic rigor.
`, iteration, iteration)
	}
	return b.String()
}

// truncate caps prior-iteration context carried into the prompt.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[...]"
}
