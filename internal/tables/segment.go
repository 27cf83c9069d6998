package tables

import (
	"regexp"
	"strings"
)

// Marker is a literal token that opens a table segment (or, when Terminal is set,
// only closes the segment before it).
type Marker struct {
	Name     string `json:"name"`
	Text     string `json:"text"`
	Terminal bool   `json:"terminal,omitempty"`
}

// DefaultMarkers returns the bulletin's markers in priority order.
func DefaultMarkers() []Marker {
	return []Marker{
		{Name: "Table3", Text: "Table 3"},
		{Name: "Table4", Text: "Table 4"},
		{Name: "About", Text: "About", Terminal: true},
	}
}

// Segment is the text owned by one table marker.
// Start and End are byte offsets into the OCR text; Text is text[Start:End].
type Segment struct {
	Name    string
	Marker  string
	Found   bool
	Start   int
	End     int
	Text    string
	Heading string
	Body    string
}

// Rows normalizes the segment body.
func (s *Segment) Rows() []Row {
	return NormalizeLines(s.Body)
}

// Parsed holds every non-terminal segment in marker order.
// Missing lists a *SegmentNotFoundError per absent marker.
type Parsed struct {
	Segments []Segment
	Missing  []error
}

// Table returns the segment with the given name, or nil.
func (p *Parsed) Table(name string) *Segment {
	for i := range p.Segments {
		if p.Segments[i].Name == name {
			return &p.Segments[i]
		}
	}
	return nil
}

// MarkerPattern compiles a marker into a case-insensitive pattern that tolerates
// any amount of whitespace (including none) between the marker's words.
func MarkerPattern(text string) (*regexp.Regexp, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, &MarkerError{Marker: text}
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(quoted, `\s*`))
	if err != nil {
		return nil, &MarkerError{Marker: text, Cause: err}
	}
	return re, nil
}

// Split segments text by markers. A table marker's segment starts at its first match
// and ends where the first later marker (in priority order) matches after it, or at
// end-of-text. An absent table marker yields an empty segment, never an error;
// the error return is reserved for markers that cannot be compiled.
func Split(text string, markers []Marker) (*Parsed, error) {
	patterns := make([]*regexp.Regexp, len(markers))
	for i, m := range markers {
		re, err := MarkerPattern(m.Text)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}

	parsed := &Parsed{}
	for i, m := range markers {
		if m.Terminal {
			continue
		}

		seg := Segment{Name: m.Name, Marker: m.Text}
		loc := patterns[i].FindStringIndex(text)
		if loc == nil {
			parsed.Segments = append(parsed.Segments, seg)
			parsed.Missing = append(parsed.Missing, &SegmentNotFoundError{Table: m.Name, Marker: m.Text})
			continue
		}

		end := len(text)
		for j := i + 1; j < len(markers); j++ {
			next := patterns[j].FindStringIndex(text[loc[1]:])
			if next != nil {
				end = loc[1] + next[0]
				break
			}
		}

		seg.Found = true
		seg.Start = loc[0]
		seg.End = end
		seg.Text = text[loc[0]:end]
		seg.Heading, seg.Body = splitHeading(seg.Text, loc[1]-loc[0])
		parsed.Segments = append(parsed.Segments, seg)
	}

	return parsed, nil
}

// splitHeading separates the marker's own line from the lines that follow it.
// markerLen is the length of the marker match at the start of segment, which may
// itself span lines. Text after the marker on the same line stays in the heading
// unless it holds a wide gap, in which case it is a data row the OCR merged onto
// the heading and opens the body.
func splitHeading(segment string, markerLen int) (heading, body string) {
	line, rest := segment, ""
	if idx := strings.IndexByte(segment[markerLen:], '\n'); idx >= 0 {
		line, rest = segment[:markerLen+idx], segment[markerLen+idx+1:]
	}

	tail := strings.TrimSpace(line[markerLen:])
	if !wideGap.MatchString(tail) {
		return strings.Join(strings.Fields(line), " "), rest
	}
	heading = strings.Join(strings.Fields(line[:markerLen]), " ")
	if rest == "" {
		return heading, tail
	}
	return heading, tail + "\n" + rest
}
