package components

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mara-ai/mara/schema"
)

// asciiFold strips combining marks so accented author names key the same
// as their unaccented spellings.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CitationLedger accumulates citations across analysis iterations and
// deduplicates them by normalized key. Insertion is idempotent: re-adding
// an existing key is a no-op, so the rendered bibliography never holds two
// entries with the same key. Insertion order is preserved for rendering.
type CitationLedger struct {
	mu      sync.RWMutex
	entries map[string]schema.Citation
	order   []string
}

// NewCitationLedger returns an empty ledger.
func NewCitationLedger() *CitationLedger {
	return &CitationLedger{
		entries: make(map[string]schema.Citation),
	}
}

// NormalizeCitationKey lowercases s and collapses it to alphanumeric runs
// joined by single dashes, so "(Smith, 2020)" and "Smith, J. (2020)."
// variants converge on the same key material.
func NormalizeCitationKey(s string) string {
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Add inserts a citation, returning true when it was new. Citations with an
// empty key are keyed off their text.
func (l *CitationLedger) Add(c schema.Citation) bool {
	if c.Key == "" {
		c.Key = NormalizeCitationKey(c.Text)
	}
	if c.Key == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.entries[c.Key]; exists {
		return false
	}
	l.entries[c.Key] = c
	l.order = append(l.order, c.Key)
	return true
}

// Merge adds every citation, returning how many were new.
func (l *CitationLedger) Merge(citations ...schema.Citation) int {
	added := 0
	for _, c := range citations {
		if l.Add(c) {
			added++
		}
	}
	return added
}

// Has reports whether key is present.
func (l *CitationLedger) Has(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[key]
	return ok
}

// Len returns the number of distinct citations.
func (l *CitationLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns the citations in insertion order.
func (l *CitationLedger) Entries() []schema.Citation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]schema.Citation, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.entries[key])
	}
	return out
}

// Keys returns the normalized keys in insertion order.
func (l *CitationLedger) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}
