// Package systemprompt assembles the system prompt for a stage agent from
// its identity, working steps, output instructions and any registered
// context providers.
package systemprompt

import (
	"fmt"
	"strings"
)

// ContextProvider supplies a titled block of extra information appended to
// the generated prompt, e.g. the current analysis framework or the running
// citation list.
type ContextProvider interface {
	Title() string
	Info() string
}

// Generator builds a sectioned system prompt.
type Generator struct {
	background       []string
	steps            []string
	outputInstructs  []string
	contextProviders []ContextProvider
}

// New returns a Generator configured by options.
func New(options ...Option) *Generator {
	g := new(Generator)
	for _, opt := range options {
		opt(g)
	}
	if len(g.background) == 0 {
		g.background = []string{"- This assistant is part of a multi-agent research pipeline."}
	}
	return g
}

// AddContextProviders registers providers, skipping duplicate titles.
func (g *Generator) AddContextProviders(providers ...ContextProvider) {
	for _, p := range providers {
		if g.contextProvider(p.Title()) == nil {
			g.contextProviders = append(g.contextProviders, p)
		}
	}
}

// RemoveContextProvider unregisters the provider with the given title.
func (g *Generator) RemoveContextProvider(title string) {
	for idx, p := range g.contextProviders {
		if p.Title() == title {
			g.contextProviders = append(g.contextProviders[:idx], g.contextProviders[idx+1:]...)
			return
		}
	}
}

func (g *Generator) contextProvider(title string) ContextProvider {
	for _, p := range g.contextProviders {
		if p.Title() == title {
			return p
		}
	}
	return nil
}

// Generate renders the prompt. Empty sections are omitted.
func (g *Generator) Generate() string {
	var parts []string
	sections := []struct {
		title   string
		content []string
	}{
		{"IDENTITY and PURPOSE", g.background},
		{"INTERNAL ASSISTANT STEPS", g.steps},
		{"OUTPUT INSTRUCTIONS", g.outputInstructs},
	}
	for _, sec := range sections {
		if len(sec.content) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("# %s", sec.title))
		parts = append(parts, sec.content...)
		parts = append(parts, "")
	}
	if len(g.contextProviders) > 0 {
		parts = append(parts, "# EXTRA INFORMATION AND CONTEXT")
		for _, provider := range g.contextProviders {
			if info := provider.Info(); info != "" {
				parts = append(parts, fmt.Sprintf("## %s", provider.Title()))
				parts = append(parts, info)
				parts = append(parts, "")
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
