// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/newsbrief/internal/safety"
	"github.com/jonathan/newsbrief/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for human-readable mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintArticles outputs ranked articles with their source, date and score.
func (p *Printer) PrintArticles(articles []types.Article) {
	var sb strings.Builder
	if len(articles) == 0 {
		p.printBox("ARTICLES", "No articles found.")
		return
	}

	sb.WriteString(fmt.Sprintf("Total articles: %d\n\n", len(articles)))

	count := min(len(articles), maxItemsToShow)
	for i := range count {
		a := articles[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, a.Title))
		meta := []string{}
		if a.Source != "" {
			meta = append(meta, a.Source)
		}
		if a.PublishedAt != nil {
			meta = append(meta, *a.PublishedAt)
		}
		if a.Score != nil {
			meta = append(meta, fmt.Sprintf("score %.3f", *a.Score))
		}
		if len(meta) > 0 {
			sb.WriteString(fmt.Sprintf("    %s\n", strings.Join(meta, " | ")))
		}
		sb.WriteString(fmt.Sprintf("    %s\n", a.Link))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(articles) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more articles", len(articles)-maxItemsToShow))
	}

	p.printBox("ARTICLES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBriefing outputs a briefing's summary, highlights and top links.
func (p *Printer) PrintBriefing(b types.Briefing) {
	var sb strings.Builder

	for _, line := range wrap(b.Summary, boxWidth-4) {
		sb.WriteString(line + "\n")
	}

	if len(b.Highlights) > 0 {
		sb.WriteString("\nHighlights:\n")
		for _, h := range b.Highlights {
			sb.WriteString(fmt.Sprintf("  • %s\n", h))
		}
	}

	if len(b.Top) > 0 {
		sb.WriteString("\nTop stories:\n")
		for i, t := range b.Top {
			sb.WriteString(fmt.Sprintf("  %d. %s\n     %s\n", i+1, t.Title, t.Link))
		}
	}

	p.printBox("BRIEFING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummaries outputs per-link summaries in link order.
func (p *Printer) PrintSummaries(summaries map[string]string) {
	if len(summaries) == 0 {
		p.printBox("SUMMARIES", "No items with links.")
		return
	}

	links := make([]string, 0, len(summaries))
	for link := range summaries {
		links = append(links, link)
	}
	sort.Strings(links)

	var sb strings.Builder
	for i, link := range links {
		sb.WriteString(link + "\n")
		for _, line := range wrap(summaries[link], boxWidth-6) {
			sb.WriteString("  " + line + "\n")
		}
		if i < len(links)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SUMMARIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintModeration outputs a moderation verdict with flags, scores and the redacted text.
func (p *Printer) PrintModeration(res safety.Result, redacted string) {
	var sb strings.Builder

	if res.Safe {
		sb.WriteString("Verdict:  ✓ safe\n")
	} else {
		sb.WriteString("Verdict:  ✗ blocked\n")
	}

	if len(res.Flags) > 0 {
		sb.WriteString("\nFlags:\n")
		for _, name := range sortedKeys(res.Flags) {
			mark := "-"
			if res.Flags[name] {
				mark = "x"
			}
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", mark, name))
		}
	}

	if len(res.Scores) > 0 {
		sb.WriteString("\nScores:\n")
		for _, name := range sortedKeys(res.Scores) {
			sb.WriteString(fmt.Sprintf("  %-16s %.3f\n", name, res.Scores[name]))
		}
	}

	sb.WriteString("\nRedacted:\n")
	for _, line := range wrap(redacted, boxWidth-6) {
		sb.WriteString("  " + line + "\n")
	}

	p.printBox("MODERATION", strings.TrimSuffix(sb.String(), "\n"))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// wrap splits text into lines of at most width runes on word boundaries.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, w := range words {
		wl := len([]rune(w))
		if curLen > 0 && curLen+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteString(" ")
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	return append(lines, cur.String())
}
