package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(urls ...string) []CandidateLink {
	out := make([]CandidateLink, len(urls))
	for i, u := range urls {
		out[i] = NewCandidate(u)
	}
	return out
}

func TestSelectLatest_LexicographicMaximum(t *testing.T) {
	links := candidates(
		"https://example.com/files/Report-2024-01.pdf",
		"https://example.com/files/Report-2024-03.pdf",
		"https://example.com/files/Report-2024-02.pdf",
	)

	chosen, ok := SelectLatest(links)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/files/Report-2024-03.pdf", chosen.URL)
	assert.Equal(t, "Report-2024-03.pdf", chosen.Filename)
}

func TestSelectLatest_Empty(t *testing.T) {
	_, ok := SelectLatest(nil)
	assert.False(t, ok)
}

func TestSelect_LexicalIgnoresDates(t *testing.T) {
	// "orsi-dec-2023" sorts after "orsi-aug-2024" even though it is older.
	links := candidates(
		"https://example.com/orsi-aug-2024.pdf",
		"https://example.com/orsi-dec-2023.pdf",
	)

	chosen, ok := Select(links, PolicyLexical)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/orsi-dec-2023.pdf", chosen.URL)
}

func TestSelect_Dated(t *testing.T) {
	links := candidates(
		"https://example.com/orsi-aug-2024.pdf",
		"https://example.com/orsi-dec-2023.pdf",
	)

	chosen, ok := Select(links, PolicyDated)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/orsi-aug-2024.pdf", chosen.URL)
}

func TestSelect_DatedFallsBackToLexicalFloor(t *testing.T) {
	links := candidates(
		"https://example.com/orsi-aug-2024.pdf",
		"https://example.com/orsi-special-edition.pdf",
	)

	chosen, ok := Select(links, PolicyDated)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/orsi-special-edition.pdf", chosen.URL)
}

func TestSelect_DatedTieBreaksLexically(t *testing.T) {
	links := candidates(
		"https://example.com/a/orsi-2024-05.pdf",
		"https://example.com/b/orsi-2024-05.pdf",
	)

	chosen, ok := Select(links, PolicyDated)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/b/orsi-2024-05.pdf", chosen.URL)
}

func TestReportMonth(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     int
		ok       bool
	}{
		{"dashed", "Report-2024-03.pdf", 202403, true},
		{"underscored", "orsi_2023_11.pdf", 202311, true},
		{"compact", "orsi202402.pdf", 202402, true},
		{"month name", "Online-Retail-Sales-Index-March-2024.pdf", 202403, true},
		{"short month name", "nab-orsi-sep-2022.pdf", 202209, true},
		{"no date", "online-retail-sales-index.pdf", 0, false},
		{"invalid month", "report-2024-13.pdf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReportMonth(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyLexical, p)

	p, err = ParsePolicy("DATED")
	require.NoError(t, err)
	assert.Equal(t, PolicyDated, p)

	_, err = ParsePolicy("newest")
	assert.Error(t, err)
}
