package discovery

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SelectionPolicy names how the latest candidate is chosen.
type SelectionPolicy string

const (
	// PolicyLexical picks the lexicographically greatest URL. It assumes report filenames
	// embed a sortable date or version token; it is an approximation of "most recent",
	// not a date parse. It is the documented floor for every policy.
	PolicyLexical SelectionPolicy = "lexical"
	// PolicyDated parses a year/month token from each filename and picks the newest,
	// falling back to PolicyLexical when any candidate has no recognisable date.
	PolicyDated SelectionPolicy = "dated"
)

// ParsePolicy validates a policy name; empty means PolicyLexical.
func ParsePolicy(s string) (SelectionPolicy, error) {
	switch SelectionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLexical:
		return PolicyLexical, nil
	case PolicyDated:
		return PolicyDated, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q (want %q or %q)", s, PolicyLexical, PolicyDated)
	}
}

// SelectLatest returns the lexicographically greatest candidate URL.
// ok is false when candidates is empty.
func SelectLatest(candidates []CandidateLink) (CandidateLink, bool) {
	if len(candidates) == 0 {
		return CandidateLink{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.URL > best.URL {
			best = c
		}
	}
	return best, true
}

// Select applies policy to candidates.
func Select(candidates []CandidateLink, policy SelectionPolicy) (CandidateLink, bool) {
	if policy != PolicyDated {
		return SelectLatest(candidates)
	}
	if len(candidates) == 0 {
		return CandidateLink{}, false
	}

	type dated struct {
		link  CandidateLink
		stamp int
	}
	all := make([]dated, 0, len(candidates))
	for _, c := range candidates {
		stamp, ok := ReportMonth(c.Filename)
		if !ok {
			return SelectLatest(candidates)
		}
		all = append(all, dated{link: c, stamp: stamp})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].stamp != all[j].stamp {
			return all[i].stamp > all[j].stamp
		}
		return all[i].link.URL > all[j].link.URL
	})
	return all[0].link, true
}

var (
	numericMonth = regexp.MustCompile(`(?:^|[^0-9])(20[0-9]{2})[-_.]?(0[1-9]|1[0-2])(?:[^0-9]|$)`)
	namedMonth   = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[-_ .]?(20[0-9]{2})`)
)

var monthIndex = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ReportMonth extracts a year*100+month stamp from a filename such as
// "ORSI-2024-03.pdf", "orsi_202403.pdf" or "Online-Retail-Sales-Index-March-2024.pdf".
func ReportMonth(filename string) (int, bool) {
	if m := numericMonth.FindStringSubmatch(filename); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return year*100 + month, true
	}
	if m := namedMonth.FindStringSubmatch(filename); m != nil {
		year, _ := strconv.Atoi(m[2])
		return year*100 + monthIndex[strings.ToLower(m[1])], true
	}
	return 0, false
}
