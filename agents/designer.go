package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mara-ai/mara/components/systemprompt"
	"github.com/mara-ai/mara/pipeline"
)

// PromptDesigner proposes candidate focus areas for the topic. It is the
// first stage of the pipeline and the only one whose parse failures are
// recoverable: the orchestrator substitutes a default focus area when
// fewer than three areas can be parsed.
type PromptDesigner struct {
	Config
}

var _ pipeline.StageRunner = (*PromptDesigner)(nil)

// NewPromptDesigner returns a PromptDesigner stage agent.
func NewPromptDesigner(options ...Option) *PromptDesigner {
	a := new(PromptDesigner)
	a.Config.apply(options)
	if a.name == "" {
		a.name = "PromptDesigner"
	}
	if a.prompt == nil {
		a.prompt = systemprompt.New(
			systemprompt.WithBackground([]string{
				"- This assistant is an expert prompt engineer scoping a research topic.",
			}),
			systemprompt.WithSteps([]string{
				"- Break the topic into core sub-topics, related disciplines, specific angles and key implications.",
				"- Keep every focus area concise (2-5 words), specific and distinct from the others.",
			}),
			systemprompt.WithOutputInstructs([]string{
				"- Return a numbered list of 8-12 focus areas.",
				"- After each focus area add a colon and a one-sentence rationale.",
				"- Return only the list, no additional text.",
			}),
		)
	}
	return a
}

// Stage implements pipeline.StageRunner.
func (a *PromptDesigner) Stage() pipeline.Stage { return pipeline.StagePromptDesign }

// Run generates and parses the focus-area list for the topic.
func (a *PromptDesigner) Run(ctx context.Context, st *pipeline.State) (*pipeline.StageOutput, error) {
	prompt := a.buildPrompt(st.Topic)
	text, err := a.generate(ctx, prompt, a.temperature)
	if err != nil {
		return nil, err
	}
	areas, err := ParseFocusAreas(text)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("focus areas generated",
		zap.String("topic", st.Topic),
		zap.Int("count", len(areas)))
	return &pipeline.StageOutput{Stage: pipeline.StagePromptDesign, FocusAreas: areas}, nil
}

func (a *PromptDesigner) buildPrompt(topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this topic/question and generate a list of 8-12 potential focus areas: '%s'\n\n", topic)
	b.WriteString("The focus areas should include:\n")
	b.WriteString("- Core sub-topics within the main topic\n")
	b.WriteString("- Related fields or disciplines\n")
	b.WriteString("- Specific aspects or angles\n")
	b.WriteString("- Relevant issues or challenges\n")
	b.WriteString("- Key applications or implications\n")
	return b.String()
}
