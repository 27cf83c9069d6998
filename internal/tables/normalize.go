package tables

import (
	"regexp"
	"strings"
)

// FieldSeparator replaces each wide whitespace gap in a row.
const FieldSeparator = ","

// wideGap matches a run of two or more whitespace characters, Unicode spaces included.
var wideGap = regexp.MustCompile(`[\s\p{Zs}]{2,}`)

// Row is one normalized source line.
type Row struct {
	RawText string `csv:"RAW_TEXT"`
}

// NormalizeLine trims a line and collapses every gap of two or more whitespace
// characters into FieldSeparator. Single spaces are kept.
func NormalizeLine(line string) string {
	return wideGap.ReplaceAllString(strings.TrimSpace(line), FieldSeparator)
}

// NormalizeLines converts a block into rows, one per non-blank line, in source order.
func NormalizeLines(block string) []Row {
	lines := strings.Split(block, "\n")
	rows := make([]Row, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, Row{RawText: NormalizeLine(line)})
	}
	return rows
}

// RowTexts returns the raw text of each row.
func RowTexts(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.RawText
	}
	return out
}
