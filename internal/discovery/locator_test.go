package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `
<html><body>
	<nav><a href="/category/business-survey/">Survey</a></nav>
	<article><a href="/wp-content/uploads/Online-Retail-Sales-Index-2024-01.pdf">Jan</a></article>
	<article><a href="/wp-content/uploads/Online-Retail-Sales-Index-2024-03.pdf">Mar</a></article>
	<article><a href="/wp-content/uploads/Online-Retail-Sales-Index-2024-02.pdf">Feb</a></article>
	<article><a href="/wp-content/uploads/Business-Survey-2024-04.pdf">Other report</a></article>
</body></html>`

func newListingServer(t *testing.T, listing string, pdf []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serveListing := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listing))
	}
	mux.HandleFunc("/category/orsi/", serveListing)
	mux.HandleFunc("/category/online-retail-sales-index/", serveListing)
	mux.HandleFunc("/wp-content/uploads/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestLocator(t *testing.T, listingURL string, mutate func(*Options)) *Locator {
	t.Helper()
	opts := Options{
		ListingURL:  listingURL,
		Matcher:     Matcher{Keyword: "retail"},
		DownloadDir: t.TempDir(),
		Logger:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	l, err := NewLocator(opts)
	require.NoError(t, err)
	return l
}

func TestLocator_LocateSelectsLatest(t *testing.T) {
	server := newListingServer(t, listingHTML, nil)
	l := newTestLocator(t, server.URL+"/category/orsi/", nil)

	link, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/wp-content/uploads/Online-Retail-Sales-Index-2024-03.pdf", link.URL)
	assert.Equal(t, "Online-Retail-Sales-Index-2024-03.pdf", link.Filename)
}

func TestLocator_NoCandidates(t *testing.T) {
	server := newListingServer(t, `<html><body><a href="/about">About</a></body></html>`, nil)
	l := newTestLocator(t, server.URL+"/category/orsi/", nil)

	_, err := l.Locate(context.Background())
	require.Error(t, err)

	var discErr *DiscoveryError
	assert.ErrorAs(t, err, &discErr)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocator_KeywordInListingPathDoesNotMatch(t *testing.T) {
	server := newListingServer(t, `<html><body><a href="privacy-policy.pdf">Privacy</a></body></html>`, nil)
	l := newTestLocator(t, server.URL+"/category/online-retail-sales-index/", nil)

	_, err := l.Locate(context.Background())
	require.Error(t, err)

	var discErr *DiscoveryError
	assert.ErrorAs(t, err, &discErr)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocator_ListingFetchFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	l := newTestLocator(t, server.URL, nil)

	_, err := l.Locate(context.Background())
	require.Error(t, err)

	var discErr *DiscoveryError
	assert.ErrorAs(t, err, &discErr)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "503")
}

func TestLocator_RegexFallback(t *testing.T) {
	listing := `<html><body><div id="app"></div>
	<script>window.__POSTS__ = {"pdf": "/wp-content/uploads/online-retail-2024-06.pdf"};</script>
	<script>var x = "https://cdn.example.com/online-retail-2024-05.pdf";</script>
	</body></html>`
	server := newListingServer(t, listing, nil)
	l := newTestLocator(t, server.URL+"/category/orsi/", nil)

	candidates, err := l.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "https://cdn.example.com/online-retail-2024-05.pdf", candidates[0].URL)
}

func TestLocator_BrowserFallback(t *testing.T) {
	server := newListingServer(t, `<html><body><div id="app"></div></body></html>`, nil)

	rendered := false
	l := newTestLocator(t, server.URL+"/category/orsi/", func(o *Options) {
		o.UseBrowser = true
		o.Render = func(_ context.Context, _ string, _ *slog.Logger) (string, error) {
			rendered = true
			return listingHTML, nil
		}
	})

	link, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.True(t, rendered)
	assert.Equal(t, "Online-Retail-Sales-Index-2024-03.pdf", link.Filename)
}

func TestLocator_BrowserNotUsedWhenStaticHTMLMatches(t *testing.T) {
	server := newListingServer(t, listingHTML, nil)

	l := newTestLocator(t, server.URL+"/category/orsi/", func(o *Options) {
		o.UseBrowser = true
		o.Render = func(_ context.Context, _ string, _ *slog.Logger) (string, error) {
			t.Fatal("browser should not be used")
			return "", nil
		}
	})

	_, err := l.Locate(context.Background())
	require.NoError(t, err)
}

func TestLocator_Download(t *testing.T) {
	pdf := []byte("%PDF-1.4\n% test document\n")
	server := newListingServer(t, listingHTML, pdf)
	l := newTestLocator(t, server.URL+"/category/orsi/", nil)

	link, err := l.Locate(context.Background())
	require.NoError(t, err)

	doc, err := l.Download(context.Background(), *link)
	require.NoError(t, err)
	assert.Equal(t, pdf, doc.Bytes)
	assert.Equal(t, "Online-Retail-Sales-Index-2024-03.pdf", doc.Filename)
	assert.Equal(t, doc.Filename, filepath.Base(doc.LocalPath))

	onDisk, err := os.ReadFile(doc.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, pdf, onDisk)
}

func TestLocator_DownloadRejectsNonPDF(t *testing.T) {
	server := newListingServer(t, listingHTML, []byte("<html>Access denied</html>"))
	l := newTestLocator(t, server.URL+"/category/orsi/", nil)

	_, err := l.Download(context.Background(), NewCandidate(server.URL+"/wp-content/uploads/x-retail.pdf"))
	require.Error(t, err)

	var dlErr *DownloadError
	assert.ErrorAs(t, err, &dlErr)
	assert.Contains(t, err.Error(), "not a PDF")
}

func TestNewLocator_InvalidURL(t *testing.T) {
	_, err := NewLocator(Options{ListingURL: "not a url"})
	require.Error(t, err)

	var discErr *DiscoveryError
	assert.ErrorAs(t, err, &discErr)
}

func TestLoadSourceDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0644))

	doc, err := LoadSourceDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "local.pdf", doc.Filename)

	bad := filepath.Join(dir, "bad.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0644))
	_, err = LoadSourceDocument(bad)
	assert.Error(t, err)
}
