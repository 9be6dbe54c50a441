package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/mara-ai/mara/components/systemprompt"
	"github.com/mara-ai/mara/pipeline"
	"github.com/mara-ai/mara/schema"
)

// SynthesisExpert consumes the entire pipeline context and produces the
// final report. The Works Cited list comes from the deduplicated citation
// ledger, not from the model output, so the bibliography invariant holds
// regardless of what the model emits.
type SynthesisExpert struct {
	Config
}

var _ pipeline.StageRunner = (*SynthesisExpert)(nil)

// NewSynthesisExpert returns a SynthesisExpert stage agent.
func NewSynthesisExpert(options ...Option) *SynthesisExpert {
	a := new(SynthesisExpert)
	a.Config.apply(options)
	if a.name == "" {
		a.name = "SynthesisExpert"
	}
	if a.temperature == 0 {
		a.temperature = 0.5
	}
	if a.prompt == nil {
		a.prompt = systemprompt.New(
			systemprompt.WithBackground([]string{
				"- This assistant synthesizes multi-iteration research into a cohesive final report.",
			}),
			systemprompt.WithOutputInstructs([]string{
				"- Start with 'Title:' and 'Subtitle:' lines.",
				"- Maintain an academic tone and cross-reference the analyses.",
				"- Use proper APA in-text citations (Author, Year).",
			}),
		)
	}
	return a
}

// Stage implements pipeline.StageRunner.
func (a *SynthesisExpert) Stage() pipeline.Stage { return pipeline.StageSynthesis }

// Run synthesizes the final report from the accumulated context.
func (a *SynthesisExpert) Run(ctx context.Context, st *pipeline.State) (*pipeline.StageOutput, error) {
	text, err := a.generate(ctx, a.buildPrompt(st), a.temperature)
	if err != nil {
		return nil, err
	}
	report := a.parseReport(st, text)
	return &pipeline.StageOutput{Stage: pipeline.StageSynthesis, Report: report}, nil
}

func (a *SynthesisExpert) buildPrompt(st *pipeline.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a comprehensive research synthesis on '%s' following this exact structure:\n\n", st.Topic)
	b.WriteString(`Title: [Report title]
Subtitle: [Report subtitle]

1. Executive Summary
   - Synthesize key findings with citations
   - Highlight major discoveries
   - Summarize methodology

2. Key Insights
   - Present 4-6 major insights with specific citations

3. Analysis
   - Synthesize all findings, organized by themes
   - Integrate perspectives and evaluate evidence

4. Conclusion
   - Summarize key findings, impacts and future directions

5. Further Considerations
   - Counter-arguments, limitations, uncertainties

6. Recommended Readings
   - List essential sources: seminal works, recent research, methodology guides

7. Works Cited
   - Full bibliography in APA 7th edition format, organized alphabetically

`)
	b.WriteString("Analyses to synthesize:\n\n")
	for _, result := range st.Results {
		fmt.Fprintf(&b, "--- Iteration %d: %s ---\n%s\n\n", result.Index, result.Title, result.Content)
	}
	if entries := st.Ledger.Entries(); len(entries) > 0 {
		b.WriteString("All sources cited across iterations (every one must appear in Works Cited):\n")
		for _, c := range entries {
			fmt.Fprintf(&b, "- %s\n", c.Text)
		}
	}
	return b.String()
}

// parseReport turns the raw synthesis output into a structured Report.
func (a *SynthesisExpert) parseReport(st *pipeline.State, text string) *schema.Report {
	title, subtitle, body := ParseTitleContent(text)
	if title == "" {
		title = st.Topic
	}
	preamble, sections := SplitNumberedSections(body)

	report := &schema.Report{
		Title:      title,
		Subtitle:   subtitle,
		WorksCited: st.Ledger.Entries(),
	}
	if preamble != "" && len(sections) == 0 {
		report.Sections = append(report.Sections, schema.ReportSection{Heading: "Synthesis", Body: preamble})
	}
	for _, sec := range sections {
		heading := strings.ToLower(sec.Heading)
		switch {
		case strings.Contains(heading, "executive summary"):
			report.ExecutiveSummary = sec.Body
			report.Sections = append(report.Sections, sec)
		case strings.Contains(heading, "recommended reading"):
			report.RecommendedReadings = bulletLines(sec.Body)
		case strings.Contains(heading, "works cited"), strings.Contains(heading, "references"):
			// dropped: the bibliography is rendered from the ledger
		default:
			report.Sections = append(report.Sections, sec)
		}
	}
	return report
}
