package schema

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) format.
// Field names follow the CSL-YAML schema so the output is consumable by
// Pandoc and reference managers.
type CSLItem struct {
	ID     string    `yaml:"id"`
	Type   string    `yaml:"type"`
	Title  string    `yaml:"title,omitempty"`
	Author []CSLName `yaml:"author,omitempty"`
	Issued *CSLDate  `yaml:"issued,omitempty"`
}

// CSLName is a person's name in CSL format.
type CSLName struct {
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts format.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// apaEntryRe splits an APA-style entry into author part, year and the rest:
// "Smith, J. (2020). Quantum annealing in practice. Nature."
var apaEntryRe = regexp.MustCompile(`^(.*?)\((\d{4})\)\.?\s*(.*)$`)

// WriteBibliographyCSL writes the works-cited list as CSL-YAML to w.
// Entries that do not parse as author-year keep their full text as the
// item title so nothing is dropped from the bibliography.
func WriteBibliographyCSL(w io.Writer, citations []Citation) error {
	items := make([]CSLItem, len(citations))
	for i, c := range citations {
		items[i] = toCSLItem(c)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(c Citation) CSLItem {
	item := CSLItem{ID: c.Key, Type: "article"}
	m := apaEntryRe.FindStringSubmatch(strings.TrimSpace(c.Text))
	if m == nil {
		item.Title = strings.TrimSpace(c.Text)
		return item
	}
	if author := strings.Trim(strings.TrimSpace(m[1]), ". "); author != "" {
		item.Author = []CSLName{{Literal: author}}
	}
	if year, err := strconv.Atoi(m[2]); err == nil {
		item.Issued = &CSLDate{DateParts: [][]int{{year}}}
	}
	rest := strings.TrimSpace(m[3])
	if idx := strings.Index(rest, ". "); idx > 0 {
		item.Title = rest[:idx]
	} else {
		item.Title = strings.TrimSuffix(rest, ".")
	}
	return item
}
