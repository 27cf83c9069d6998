// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/orsi-pipeline/internal/discovery"
	"github.com/jonathan/orsi-pipeline/internal/tables"
	"github.com/jonathan/orsi-pipeline/internal/warehouse"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
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

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintCandidates lists the report links found on the listing page and marks
// the selected one.
func (p *Printer) PrintCandidates(candidates []discovery.CandidateLink, selected *discovery.CandidateLink) {
	if len(candidates) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d candidate(s):\n\n", len(candidates)))

	count := min(len(candidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		mark := " "
		if selected != nil && candidates[i].URL == selected.URL {
			mark = "*"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", mark, candidates[i].Filename))
	}
	if len(candidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(candidates)-maxItemsToShow))
	}
	if selected != nil {
		sb.WriteString(fmt.Sprintf("\nSelected: %s", selected.Filename))
	}

	p.printBox("REPORT CANDIDATES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTables previews the first rows of each parsed table.
func (p *Printer) PrintTables(parsed *tables.Parsed) {
	if parsed == nil {
		return
	}

	for _, seg := range parsed.Segments {
		var sb strings.Builder
		if !seg.Found {
			sb.WriteString(fmt.Sprintf("⚠ marker %q not found; table is empty", seg.Marker))
			p.printBox(strings.ToUpper(seg.Name), sb.String())
			continue
		}

		rows := tables.RowTexts(seg.Rows())
		sb.WriteString(fmt.Sprintf("%s  (%d rows)\n\n", seg.Heading, len(rows)))
		for i, text := range rows[:min(len(rows), maxItemsToShow)] {
			sb.WriteString(fmt.Sprintf("%2d  %s\n", i+1, text))
		}
		if len(rows) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("    ... and %d more rows\n", len(rows)-maxItemsToShow))
		}
		p.printBox(strings.ToUpper(seg.Name), strings.TrimSuffix(sb.String(), "\n"))
	}
}

// PrintLoadResults summarises warehouse loads.
func (p *Printer) PrintLoadResults(results []*warehouse.LoadResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%s\n", r.Table))
		sb.WriteString(fmt.Sprintf("  file:     %s\n", r.File))
		sb.WriteString(fmt.Sprintf("  loaded:   %d\n", r.RowsLoaded))
		sb.WriteString(fmt.Sprintf("  rejected: %d\n", r.RowsRejected))
		for _, rej := range r.Rejects {
			sb.WriteString(fmt.Sprintf("  ⚠ line %d: %s\n", rej.Line, rej.Reason))
		}
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("WAREHOUSE LOAD", strings.TrimSuffix(sb.String(), "\n"))
}
