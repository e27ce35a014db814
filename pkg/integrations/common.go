package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/reposolve/pkg/requirement"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a package or release doesn't exist in the index.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-200 responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with a standard timeout for index requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NormalizePkgName converts a package name to its canonical PEP 503 form.
func NormalizePkgName(name string) string {
	return requirement.NormalizeName(strings.TrimSpace(name))
}

// Host returns the lowercased host of rawURL, or rawURL itself when it has
// no host. Index hosts are part of cache keys.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Host)
}

// PathEscape percent-encodes a string for use as a URL path segment.
func PathEscape(s string) string { return url.PathEscape(s) }
