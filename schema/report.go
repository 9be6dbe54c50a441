package schema

import "strings"

// ReportSection is one top-level section of the final report.
type ReportSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Report is the synthesized research report. It is built once by the
// synthesis stage and immutable afterwards.
type Report struct {
	Title               string          `json:"title"`
	Subtitle            string          `json:"subtitle,omitempty"`
	ExecutiveSummary    string          `json:"executive_summary,omitempty"`
	Sections            []ReportSection `json:"sections,omitempty"`
	RecommendedReadings []string        `json:"recommended_readings,omitempty"`
	WorksCited          []Citation      `json:"works_cited,omitempty"`
}

// Markdown renders the report as a single markdown document: title,
// subtitle, sections in order, recommended readings and the bibliography.
func (r *Report) Markdown() string {
	var b strings.Builder
	if r.Title != "" {
		b.WriteString("# ")
		b.WriteString(r.Title)
		b.WriteString("\n")
	}
	if r.Subtitle != "" {
		b.WriteString("## ")
		b.WriteString(r.Subtitle)
		b.WriteString("\n")
	}
	for _, sec := range r.Sections {
		b.WriteString("\n## ")
		b.WriteString(sec.Heading)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(sec.Body))
		b.WriteString("\n")
	}
	if len(r.RecommendedReadings) > 0 {
		b.WriteString("\n## Recommended Readings\n\n")
		for _, line := range r.RecommendedReadings {
			b.WriteString("* ")
			b.WriteString(terminate(line))
			b.WriteString("\n")
		}
	}
	if len(r.WorksCited) > 0 {
		b.WriteString("\n## Works Cited\n\n")
		for _, c := range r.WorksCited {
			b.WriteString("* ")
			b.WriteString(terminate(c.Text))
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// terminate makes sure a bibliography line ends with a period.
func terminate(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
