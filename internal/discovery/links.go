package discovery

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CandidateLink is a report link discovered on the listing page.
type CandidateLink struct {
	URL      string
	Filename string
}

// Link is a hyperlink target as written in the markup, plus its absolute form.
type Link struct {
	Href string
	URL  string
}

// Matcher decides whether a link names a report PDF.
type Matcher struct {
	// Keyword must appear in the href as written (case-insensitive), and the href
	// must end in .pdf. The listing URL never counts towards a match.
	Keyword string
	// Pattern, when set, also admits links whose filename matches it.
	Pattern *regexp.Regexp
}

// Match reports whether link is a report candidate.
func (m Matcher) Match(link Link) bool {
	href := strings.ToLower(strings.TrimSpace(link.Href))
	if strings.HasSuffix(href, ".pdf") && strings.Contains(href, strings.ToLower(m.Keyword)) {
		return true
	}
	if m.Pattern != nil {
		if u, err := url.Parse(link.URL); err == nil && m.Pattern.MatchString(filenameOf(u)) {
			return true
		}
	}
	return false
}

var (
	hrefAttr = regexp.MustCompile(`(?i)href\s*=\s*["']([^"'<>]+)["']`)
	bareURL  = regexp.MustCompile(`(?i)https?://[^\s"'<>()]+?\.pdf\b`)
)

// AnchorLinks returns every a[href] target in html resolved against base, in document order.
func AnchorLinks(html string, base *url.URL) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	links := make([]Link, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || strings.TrimSpace(href) == "" {
			return
		}
		if resolved, ok := resolve(base, href); ok {
			links = append(links, Link{Href: href, URL: resolved})
		}
	})
	return links, nil
}

// MarkupLinks is the fallback scan: it pulls href attributes and bare .pdf URLs out of
// raw markup with regular expressions, including markup goquery would not see as anchors
// (inline scripts, JSON blobs).
func MarkupLinks(markup string, base *url.URL) []Link {
	links := make([]Link, 0)
	for _, m := range hrefAttr.FindAllStringSubmatch(markup, -1) {
		if resolved, ok := resolve(base, m[1]); ok {
			links = append(links, Link{Href: m[1], URL: resolved})
		}
	}
	for _, m := range bareURL.FindAllString(markup, -1) {
		if resolved, ok := resolve(base, m); ok {
			links = append(links, Link{Href: m, URL: resolved})
		}
	}
	return links
}

// Filter keeps matching links, deduplicated by absolute URL, in first-seen order.
func Filter(links []Link, m Matcher) []CandidateLink {
	seen := make(map[string]bool)
	candidates := make([]CandidateLink, 0)
	for _, link := range links {
		if seen[link.URL] || !m.Match(link) {
			continue
		}
		seen[link.URL] = true
		candidates = append(candidates, NewCandidate(link.URL))
	}
	return candidates
}

// NewCandidate builds a CandidateLink, inferring the filename from the URL path.
func NewCandidate(rawURL string) CandidateLink {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = filenameOf(u)
	}
	if name == "" {
		name = path.Base(rawURL)
	}
	return CandidateLink{URL: rawURL, Filename: name}
}

func filenameOf(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	linkURL, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(linkURL)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}
