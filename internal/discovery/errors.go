// Package discovery locates the latest report PDF on a listing page and downloads it.
package discovery

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by DiscoveryError when no link matches the report naming rules.
var ErrNotFound = errors.New("no matching report link found")

// DiscoveryError represents a failure to locate the report document
type DiscoveryError struct {
	ListingURL string
	Message    string
	Cause      error
}

func (e *DiscoveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("discovery error for %s: %s: %v", e.ListingURL, e.Message, e.Cause)
	}
	return fmt.Sprintf("discovery error for %s: %s", e.ListingURL, e.Message)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// DownloadError represents a failure to download or persist the selected document
type DownloadError struct {
	URL     string
	Message string
	Cause   error
}

func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("download error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("download error for %s: %s", e.URL, e.Message)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}
