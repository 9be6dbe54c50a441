package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mara-ai/mara/components"
	"github.com/mara-ai/mara/pipeline"
	"github.com/mara-ai/mara/schema"
)

// minFocusAreas is the parse floor below which focus-area output is
// rejected so the orchestrator can apply its fallback.
const minFocusAreas = 3

var (
	// listItemRe matches numbered or bulleted list lines.
	listItemRe = regexp.MustCompile(`^\s*(?:\d{1,2}[.)]\s*|[-*•]\s+)(.+)$`)

	// sectionHeadRe matches numbered section headers like "1. Introduction",
	// "3) Key Findings" or "## 2. Analysis".
	sectionHeadRe = regexp.MustCompile(`^\s*(?:#{1,3}\s*)?(\d{1,2})[.)]\s+(.+?)\s*:?\s*$`)

	// inlineCiteRe matches APA in-text citations like (Smith, 2020),
	// (Smith & Jones, 2019) or (Garcia et al., 2021).
	inlineCiteRe = regexp.MustCompile(`\(([A-Z][A-Za-z'-]+(?:\s+(?:et\s+al\.?|[&]\s*[A-Z][A-Za-z'-]+|and\s+[A-Z][A-Za-z'-]+))?),?\s+(\d{4})\)`)

	// refEntryRe splits a bibliography line into author part and year.
	refEntryRe = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)`)

	// labelRe strips "Title:"/"Subtitle:" style label artifacts.
	labelRe = regexp.MustCompile(`(?i)^\s*(title|subtitle)\s*:\s*`)

	codeFenceRe = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
)

// StripLabelArtifacts removes residual label prefixes ("Title:",
// "Subtitle:"), leading markdown heading/emphasis markers and surrounding
// whitespace from a single line of model output. It never alters interior
// text, so applying it twice is a no-op.
func StripLabelArtifacts(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "# \t")
	s = strings.Trim(s, "*_ \t")
	s = labelRe.ReplaceAllString(s, "")
	return strings.Trim(strings.TrimSpace(s), "*_ ")
}

// ParseTitleContent splits model output shaped as
//
//	Title: ...
//	Subtitle: ...
//	<body>
//
// into its parts. Missing labels leave the corresponding field empty and
// the whole text becomes the content.
func ParseTitleContent(text string) (title, subtitle, content string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	bodyStart := 0
scan:
	for idx, line := range lines {
		if idx > 6 {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(strings.TrimLeft(trimmed, "#*_ \t"))
		switch {
		case title == "" && strings.HasPrefix(lower, "title:"):
			title = StripLabelArtifacts(trimmed)
			bodyStart = idx + 1
		case subtitle == "" && strings.HasPrefix(lower, "subtitle:"):
			subtitle = StripLabelArtifacts(trimmed)
			bodyStart = idx + 1
		default:
			// first non-label line starts the body
			break scan
		}
	}
	content = strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	return title, subtitle, content
}

// ParseFocusAreas recovers focus areas from a model response that may be a
// JSON string array, a numbered list or a bulleted list, optionally with a
// rationale after a colon or dash. Fewer than three recoverable areas is a
// *pipeline.ParseError.
func ParseFocusAreas(text string) ([]schema.FocusArea, error) {
	text = codeFenceRe.ReplaceAllString(text, "")
	trimmed := strings.TrimSpace(text)

	var areas []schema.FocusArea
	seen := make(map[string]struct{})
	add := func(label, rationale string) {
		label = strings.Trim(StripLabelArtifacts(label), `"',`)
		if label == "" {
			return
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		areas = append(areas, schema.FocusArea{Label: label, Rationale: strings.TrimSpace(rationale)})
	}

	if strings.HasPrefix(trimmed, "[") {
		var labels []string
		if err := json.Unmarshal([]byte(trimmed), &labels); err == nil {
			for _, label := range labels {
				add(label, "")
			}
		}
	}
	if len(areas) == 0 {
		for _, line := range strings.Split(trimmed, "\n") {
			m := listItemRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			label, rationale := splitLabelRationale(m[1])
			add(label, rationale)
		}
	}
	if len(areas) < minFocusAreas {
		return nil, &pipeline.ParseError{
			Stage:  pipeline.StagePromptDesign,
			Reason: fmt.Sprintf("recovered %d focus areas, need at least %d", len(areas), minFocusAreas),
		}
	}
	if len(areas) > 12 {
		areas = areas[:12]
	}
	return areas, nil
}

// splitLabelRationale separates "Label: why it matters" and
// "Label - why it matters" forms.
func splitLabelRationale(s string) (string, string) {
	for _, sep := range []string{": ", " - "} {
		if idx := strings.Index(s, sep); idx > 0 {
			return s[:idx], strings.TrimSpace(s[idx+len(sep):])
		}
	}
	return s, ""
}

// SplitNumberedSections breaks report/analysis output into its numbered
// sections. Text before the first section header is returned as preamble.
func SplitNumberedSections(text string) (preamble string, sections []schema.ReportSection) {
	var (
		current *schema.ReportSection
		pre     []string
		body    []string
	)
	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(strings.Join(body, "\n"))
			sections = append(sections, *current)
		}
		body = body[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if m := sectionHeadRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &schema.ReportSection{Heading: StripLabelArtifacts(m[2])}
			continue
		}
		if current == nil {
			pre = append(pre, line)
		} else {
			body = append(body, line)
		}
	}
	flush()
	return strings.TrimSpace(strings.Join(pre, "\n")), sections
}

// ExtractCitations collects citations from analysis text: full entries from
// a References/Works Cited section plus APA in-text citations found in the
// body. Keys are normalized surname+year so inline mentions and their
// bibliography entries deduplicate to one ledger entry. Extraction never
// fails; unmatched text simply yields no citations.
func ExtractCitations(text string) []schema.Citation {
	var out []schema.Citation
	seen := make(map[string]struct{})
	add := func(key, full string) {
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, schema.Citation{Key: key, Text: full})
	}

	// Bibliography entries first: their text is richer than an inline
	// mention with the same key.
	for _, line := range referenceLines(text) {
		if m := refEntryRe.FindStringSubmatch(line); m != nil {
			add(citationKey(m[1], m[2]), line)
		} else {
			add(components.NormalizeCitationKey(line), line)
		}
	}
	for _, m := range inlineCiteRe.FindAllStringSubmatch(text, -1) {
		add(citationKey(m[1], m[2]), fmt.Sprintf("%s, %s", m[1], m[2]))
	}
	return out
}

// citationKey builds the normalized surname+year deduplication key.
func citationKey(author, year string) string {
	author = strings.TrimSpace(author)
	if idx := strings.IndexAny(author, ", "); idx > 0 {
		author = author[:idx]
	}
	return components.NormalizeCitationKey(author + " " + year)
}

// referenceLines returns the bullet/numbered lines of a trailing
// References or Works Cited section, if present.
func referenceLines(text string) []string {
	lines := strings.Split(text, "\n")
	start := -1
	for idx, line := range lines {
		head := strings.ToLower(StripLabelArtifacts(line))
		head = strings.TrimRight(head, ":")
		head = strings.TrimSpace(sectionNumberPrefixRe.ReplaceAllString(head, ""))
		if head == "references" || head == "works cited" {
			start = idx + 1
		}
	}
	if start < 0 {
		return nil
	}
	var refs []string
	for _, line := range lines[start:] {
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			refs = append(refs, strings.TrimSpace(m[1]))
		} else if sectionHeadRe.MatchString(line) {
			break
		}
	}
	return refs
}

var sectionNumberPrefixRe = regexp.MustCompile(`^\d{1,2}[.)]\s*`)

// bulletLines returns the cleaned bullet items of a section body.
func bulletLines(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}
