package discovery

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestAnchorLinks_ResolvesRelative(t *testing.T) {
	html := `
	<html><body>
		<a href="/content/dam/orsi-retail-2024-03.pdf">March</a>
		<a href="../uploads/other.PDF#page=2">Other</a>
		<a href="mailto:someone@example.com">Mail</a>
		<a href="">Empty</a>
		<a name="anchor">No href</a>
	</body></html>`

	links, err := AnchorLinks(html, mustURL(t, "https://business.example.com/category/orsi/"))
	require.NoError(t, err)

	assert.Equal(t, []Link{
		{Href: "/content/dam/orsi-retail-2024-03.pdf", URL: "https://business.example.com/content/dam/orsi-retail-2024-03.pdf"},
		{Href: "../uploads/other.PDF#page=2", URL: "https://business.example.com/category/uploads/other.PDF"},
	}, links)
}

func TestMarkupLinks_FindsScriptEmbeddedURLs(t *testing.T) {
	markup := `<script>var posts = [{"file":"https://cdn.example.com/Online-Retail-2024-02.pdf"}];</script>
	<div data-x='1'><link href='/assets/site.css'></div>`

	links := MarkupLinks(markup, mustURL(t, "https://example.com/listing"))

	var urls []string
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	assert.Contains(t, urls, "https://cdn.example.com/Online-Retail-2024-02.pdf")
	assert.Contains(t, urls, "https://example.com/assets/site.css")
}

func TestMatcher(t *testing.T) {
	m := Matcher{Keyword: "retail"}

	tests := []struct {
		name string
		link Link
		want bool
	}{
		{"keyword in filename", Link{Href: "https://example.com/nab-online-RETAIL-sales.pdf"}, true},
		{"upper-case suffix", Link{Href: "/files/Online-Retail-2024.PDF"}, true},
		{"keyword in href directory", Link{Href: "/retail/report.pdf"}, true},
		{"no keyword", Link{Href: "https://example.com/business-survey.pdf"}, false},
		{"not a pdf", Link{Href: "https://example.com/retail-sales.html"}, false},
		{"query after suffix", Link{Href: "/files/ORSI-retail.pdf?download=1"}, false},
		{"fragment after suffix", Link{Href: "/files/ORSI-retail.pdf#page=4"}, false},
		{
			"keyword only in listing path",
			Link{
				Href: "privacy-policy.pdf",
				URL:  "https://business.example.com/category/online-retail-sales-index/privacy-policy.pdf",
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.link))
		})
	}
}

func TestMatcher_Pattern(t *testing.T) {
	m := Matcher{Keyword: "retail", Pattern: regexp.MustCompile(`(?i)^orsi-\d{4}-\d{2}\.pdf$`)}

	assert.True(t, m.Match(Link{Href: "ORSI-2024-05.pdf", URL: "https://example.com/files/ORSI-2024-05.pdf"}))
	assert.False(t, m.Match(Link{Href: "orsi-summary.pdf", URL: "https://example.com/files/orsi-summary.pdf"}))
}

func TestFilter_RelativeLinkUnderKeywordListing(t *testing.T) {
	base := mustURL(t, "https://business.example.com/category/online-retail-sales-index/")
	links, err := AnchorLinks(`<html><body><a href="privacy-policy.pdf">Privacy</a></body></html>`, base)
	require.NoError(t, err)
	require.Len(t, links, 1)

	assert.Empty(t, Filter(links, Matcher{Keyword: "retail"}))
}

func TestFilter_DeduplicatesInOrder(t *testing.T) {
	links := []Link{
		{Href: "/retail-b.pdf", URL: "https://example.com/retail-b.pdf"},
		{Href: "/about", URL: "https://example.com/about"},
		{Href: "retail-a.pdf", URL: "https://example.com/retail-a.pdf"},
		{Href: "https://example.com/retail-b.pdf", URL: "https://example.com/retail-b.pdf"},
	}

	got := Filter(links, Matcher{Keyword: "retail"})

	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/retail-b.pdf", got[0].URL)
	assert.Equal(t, "retail-b.pdf", got[0].Filename)
	assert.Equal(t, "https://example.com/retail-a.pdf", got[1].URL)
}

func TestNewCandidate_UnescapesFilename(t *testing.T) {
	c := NewCandidate("https://example.com/files/NAB%20Online%20Retail%20Sales.pdf")
	assert.Equal(t, "NAB Online Retail Sales.pdf", c.Filename)
}
