package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mara-ai/mara/pipeline"
)

func TestStripLabelArtifacts(t *testing.T) {
	cases := map[string]string{
		"Title: Quantum Annealing":       "Quantum Annealing",
		"**Subtitle: Hardware Limits**":  "Hardware Limits",
		"## 1. Introduction":             "1. Introduction",
		"  *Emphasis*  ":                 "Emphasis",
		"plain text":                     "plain text",
		"Title:   spaced   ":             "spaced",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripLabelArtifacts(in), "input %q", in)
	}
	// idempotent
	once := StripLabelArtifacts("**Title: X**")
	assert.Equal(t, once, StripLabelArtifacts(once))
}

func TestParseTitleContent(t *testing.T) {
	title, subtitle, content := ParseTitleContent(`Title: Annealing Advances
Subtitle: Noise and Coherence

1. Introduction
Body text here.`)
	assert.Equal(t, "Annealing Advances", title)
	assert.Equal(t, "Noise and Coherence", subtitle)
	assert.Equal(t, "1. Introduction\nBody text here.", content)
}

func TestParseTitleContentNoLabels(t *testing.T) {
	title, subtitle, content := ParseTitleContent("Just a body.\nMore body.")
	assert.Empty(t, title)
	assert.Empty(t, subtitle)
	assert.Equal(t, "Just a body.\nMore body.", content)
}

func TestParseFocusAreasNumberedList(t *testing.T) {
	areas, err := ParseFocusAreas(`1. Hardware Architectures: the physical qubit substrate
2. Error Mitigation - coping with noise
3. Optimization Applications
4. Benchmarking Protocols: fair comparisons
`)
	require.NoError(t, err)
	require.Len(t, areas, 4)
	assert.Equal(t, "Hardware Architectures", areas[0].Label)
	assert.Equal(t, "the physical qubit substrate", areas[0].Rationale)
	assert.Equal(t, "Error Mitigation", areas[1].Label)
	assert.Equal(t, "coping with noise", areas[1].Rationale)
	assert.Equal(t, "Optimization Applications", areas[2].Label)
	assert.Empty(t, areas[2].Rationale)
}

func TestParseFocusAreasJSONArray(t *testing.T) {
	areas, err := ParseFocusAreas("```json\n[\"Machine Learning Applications\", \"Ethical Implications\", \"Data Privacy\"]\n```")
	require.NoError(t, err)
	require.Len(t, areas, 3)
	assert.Equal(t, "Machine Learning Applications", areas[0].Label)
}

func TestParseFocusAreasDeduplicatesAndCaps(t *testing.T) {
	var text string
	for i := 0; i < 15; i++ {
		text += "- Area " + string(rune('A'+i)) + "\n"
	}
	text += "- Area A\n"
	areas, err := ParseFocusAreas(text)
	require.NoError(t, err)
	assert.Len(t, areas, 12)
}

func TestParseFocusAreasTooFew(t *testing.T) {
	_, err := ParseFocusAreas("1. Only One\n2. And Two\n")
	var perr *pipeline.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, pipeline.StagePromptDesign, perr.Stage)
}

func TestSplitNumberedSections(t *testing.T) {
	preamble, sections := SplitNumberedSections(`lead-in text

1. Executive Summary
Findings overview.

2) Key Insights:
- first insight

## 3. Analysis
Deep dive.`)
	assert.Equal(t, "lead-in text", preamble)
	require.Len(t, sections, 3)
	assert.Equal(t, "Executive Summary", sections[0].Heading)
	assert.Equal(t, "Findings overview.", sections[0].Body)
	assert.Equal(t, "Key Insights", sections[1].Heading)
	assert.Equal(t, "Analysis", sections[2].Heading)
	assert.Equal(t, "Deep dive.", sections[2].Body)
}

func TestExtractCitations(t *testing.T) {
	text := `Recent results (Smith, 2020) refine earlier bounds (Garcia et al., 2019).
Further work (Smith & Jones, 2021) extends this.

7. References
- Smith, J. (2020). Annealing at scale. Nature.
- Garcia, M., Lee, K., & Wu, D. (2019). Noise floors. PRX.
`
	citations := ExtractCitations(text)
	keys := make(map[string]string)
	for _, c := range citations {
		keys[c.Key] = c.Text
	}
	// bibliography text wins over the inline mention for the same key
	assert.Equal(t, "Smith, J. (2020). Annealing at scale. Nature.", keys["smith-2020"])
	assert.Equal(t, "Garcia, M., Lee, K., & Wu, D. (2019). Noise floors. PRX.", keys["garcia-2019"])
	// inline-only citation still recorded
	assert.Contains(t, keys, "smith-2021")
	assert.Len(t, citations, 3)
}

func TestExtractCitationsFailSoft(t *testing.T) {
	assert.Empty(t, ExtractCitations("no citations in sight"))
	assert.Empty(t, ExtractCitations(""))
}
