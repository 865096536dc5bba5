// Package synthesis turns extracted sources into a research report.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/lemonbanan4/ai-web-research/internal/llm"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"
)

const (
	DefaultExcerptChars = 8000
	SystemPrompt        = "You are an expert research aggregator."
)

// fallbackListLimit caps the sources listed in a fallback summary.
const fallbackListLimit = 5

type Synthesizer struct {
	client       llm.Client
	excerptChars int
}

// New returns a synthesizer. A nil client makes Summarize return a
// *domain.ConfigError.
func New(client llm.Client, excerptChars int) *Synthesizer {
	if excerptChars <= 0 {
		excerptChars = DefaultExcerptChars
	}
	return &Synthesizer{client: client, excerptChars: excerptChars}
}

// Enabled reports whether an LLM client is configured.
func (s *Synthesizer) Enabled() bool { return s != nil && s.client != nil }

func (s *Synthesizer) Summarize(ctx context.Context, query string, sources []domain.SourceRecord) (string, error) {
	if !s.Enabled() {
		return "", &domain.ConfigError{Key: "llmApiKey"}
	}
	out, err := s.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: BuildPrompt(query, sources, s.excerptChars)},
	})
	if err != nil {
		return "", &domain.SynthesisError{Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &domain.SynthesisError{Err: llm.ErrEmptyCompletion}
	}
	return out, nil
}

// BuildPrompt numbers sources in order so [i] citations line up with the
// result's source list.
func BuildPrompt(query string, sources []domain.SourceRecord, excerptChars int) string {
	var b strings.Builder
	b.WriteString("You are a world-class research analyst.\n\n")
	fmt.Fprintf(&b, "The user asked: %q\n\n", query)
	b.WriteString("You have extracted the following information from multiple real web sources:\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "\n### Source [%d]: %s\n", i+1, src.URL)
		fmt.Fprintf(&b, "Title: %s\n", src.Title)
		fmt.Fprintf(&b, "Content:\n%s\n", domain.TruncateRunes(src.Text, excerptChars))
	}
	b.WriteString(`
---

### TASK

1. Provide a clear, concise **final answer** to the user's query.
2. Provide a **5-bullet summary** of the key findings.
3. Provide a **comparison table** with:
   - Source URL
   - Perspective
   - Strengths
   - Weaknesses
4. Provide **conflicting viewpoints** between sources.
5. Provide **citation markers** like [1], [2], matching the order of sources above.
6. Provide **recommended further reading**.

Respond in clean Markdown.
`)
	return b.String()
}

// Fallback is the summary used when the LLM call failed.
func Fallback(query string, sources []domain.SourceRecord) string {
	if len(sources) == 0 {
		return fmt.Sprintf("No sources could be fetched for '%s'.", query)
	}
	lines := []string{fmt.Sprintf("Fetched %d sources for '%s' but LLM summary failed.", len(sources), query)}
	return strings.Join(append(lines, sourceLines(sources)...), "\n")
}

// DisabledFallback is the summary used when no LLM key is configured.
func DisabledFallback(query string, sources []domain.SourceRecord) string {
	lines := []string{"Summarization disabled: missing LLM API key. Showing gathered sources only."}
	if len(sources) == 0 {
		lines = append(lines, fmt.Sprintf("No sources could be fetched for '%s'.", query))
	} else {
		lines = append(lines, fmt.Sprintf("Sources gathered for '%s':", query))
		lines = append(lines, sourceLines(sources)...)
	}
	return strings.Join(lines, "\n")
}

func sourceLines(sources []domain.SourceRecord) []string {
	n := len(sources)
	if n > fallbackListLimit {
		n = fallbackListLimit
	}
	out := make([]string, 0, n)
	for i, src := range sources[:n] {
		title := strings.TrimSpace(src.Title)
		if title == "" {
			title = src.URL
		}
		if title == "" {
			title = "Untitled"
		}
		out = append(out, fmt.Sprintf("%d. %s — %s", i+1, title, src.URL))
	}
	return out
}
