package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// chunkSize is the buffer size used when streaming response bodies.
const chunkSize = 32 * 1024

// StatusError reports a response whose status was not 200 OK.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Temporary reports whether the server signalled a transient failure.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// DownloadOption configures [Download].
type DownloadOption func(*downloadOptions)

type downloadOptions struct {
	progress func(size int64) io.Writer
	tempDir  string
}

// WithProgress receives the expected body size (-1 if unknown) and returns
// a writer that every received byte is copied to. A nil writer disables
// progress for that download.
func WithProgress(fn func(size int64) io.Writer) DownloadOption {
	return func(o *downloadOptions) { o.progress = fn }
}

// WithTempDir sets the parent directory for download scopes. The default is
// the system temp directory.
func WithTempDir(dir string) DownloadOption {
	return func(o *downloadOptions) { o.tempDir = dir }
}

// Download fetches rawURL into a fresh temporary directory and calls fn
// with the path of the downloaded file. The directory and everything in it
// is removed before Download returns. The error from fn is returned as is.
func Download(ctx context.Context, client *http.Client, rawURL string, fn func(path string) error, opts ...DownloadOption) error {
	var o downloadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if client == nil {
		client = http.DefaultClient
	}

	scope, err := os.MkdirTemp(o.tempDir, "reposolve-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scope)

	target := filepath.Join(scope, fileName(rawURL))
	if err := fetch(ctx, client, rawURL, target, o); err != nil {
		return err
	}
	return fn(target)
}

func fetch(ctx context.Context, client *http.Client, rawURL, target string, o downloadOptions) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: rawURL}
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}

	var w io.Writer = f
	if o.progress != nil {
		if pw := o.progress(resp.ContentLength); pw != nil {
			w = io.MultiWriter(f, pw)
		}
	}

	_, err = io.CopyBuffer(w, resp.Body, make([]byte, chunkSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// fileName derives a safe local file name from the last path segment.
func fileName(rawURL string) string {
	name := "download"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == ".." || strings.HasPrefix(name, ".") {
		name = "download" + name
	}
	return name
}
