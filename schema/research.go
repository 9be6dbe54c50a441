package schema

// FocusArea is one candidate research angle proposed by the prompt design
// stage. Label is a short phrase (2-5 words); Rationale explains why the
// angle matters for the topic and may be empty when the model omits it.
type FocusArea struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale,omitempty"`
}

// Citation is a single bibliography entry. Key is the normalized
// deduplication key, Text the full citation as emitted by the model.
type Citation struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// IterationResult is the outcome of one analysis iteration. Index is
// 1-based. Results are append-only: once an iteration is recorded it is
// never mutated.
type IterationResult struct {
	Index       int        `json:"index"`
	Title       string     `json:"title,omitempty"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Content     string     `json:"content"`
	Temperature float32    `json:"temperature"`
	Citations   []Citation `json:"citations,omitempty"`
}
