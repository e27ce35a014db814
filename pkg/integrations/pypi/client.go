package pypi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/reposolve/pkg/cache"
	"github.com/matzehuels/reposolve/pkg/integrations"
)

// DefaultURL is the JSON API root of the public index.
const DefaultURL = "https://pypi.org/pypi"

// Package types reported in [File.PackageType].
const (
	TypeWheel = "bdist_wheel"
	TypeSdist = "sdist"
	TypeEgg   = "bdist_egg"
)

// Info is the "info" object of a JSON API response.
type Info struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Summary        string   `json:"summary"`
	RequiresDist   []string `json:"requires_dist"`
	RequiresPython string   `json:"requires_python"`
}

// Digests holds the hashes published for a file.
type Digests struct {
	SHA256 string `json:"sha256"`
}

// File is one uploaded distribution file.
type File struct {
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	Digests     Digests   `json:"digests"`
	UploadTime  time.Time `json:"upload_time_iso_8601"`
	PackageType string    `json:"packagetype"`
	Size        int64     `json:"size"`
	Yanked      bool      `json:"yanked"`
}

// Project is the response of GET {url}/{name}/json: every file of every
// release, keyed by version string.
type Project struct {
	Info     Info              `json:"info"`
	Releases map[string][]File `json:"releases"`
}

// Release is the response of GET {url}/{name}/{version}/json.
type Release struct {
	Info Info   `json:"info"`
	URLs []File `json:"urls"`
}

// Client provides access to a PyPI-compatible JSON API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a client for the JSON API rooted at baseURL
// ([DefaultURL] when empty). Responses are cached in backend for cacheTTL;
// pass a [cache.NullCache] to always hit the network.
func NewClient(backend cache.Cache, cacheTTL time.Duration, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		Client:  integrations.NewClient(backend, "pypi:"+integrations.Host(baseURL)+":", cacheTTL, nil),
		baseURL: baseURL,
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchProject retrieves the release listing of a project. The name is
// normalized before the request.
//
// Returns [integrations.ErrNotFound] if the project doesn't exist and
// [integrations.ErrNetwork] for other HTTP failures. 5xx responses are
// retried.
func (c *Client) FetchProject(ctx context.Context, name string, refresh bool) (*Project, error) {
	name = integrations.NormalizePkgName(name)
	url := fmt.Sprintf("%s/%s/json", c.baseURL, integrations.PathEscape(name))

	var p Project
	err := c.Cached(ctx, "project:"+name, refresh, &p, func() error {
		return c.Get(ctx, url, &p)
	})
	if err != nil {
		return nil, wrapNotFound(err, name)
	}
	return &p, nil
}

// FetchRelease retrieves metadata and files of one release.
func (c *Client) FetchRelease(ctx context.Context, name, version string, refresh bool) (*Release, error) {
	name = integrations.NormalizePkgName(name)
	url := fmt.Sprintf("%s/%s/%s/json", c.baseURL, integrations.PathEscape(name), integrations.PathEscape(version))

	var r Release
	err := c.Cached(ctx, "release:"+name+":"+version, refresh, &r, func() error {
		return c.Get(ctx, url, &r)
	})
	if err != nil {
		return nil, wrapNotFound(err, name+" "+version)
	}
	return &r, nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return fmt.Errorf("%w: pypi package %s", integrations.ErrNotFound, what)
	}
	return err
}

// Preferred picks the file to read metadata from: a wheel if there is one,
// otherwise a source distribution, otherwise any other file. Yanked files
// are never picked.
func Preferred(files []File) (File, bool) {
	rank := func(f File) int {
		switch {
		case f.PackageType == TypeWheel || strings.HasSuffix(f.Filename, ".whl"):
			return 0
		case f.PackageType == TypeSdist:
			return 1
		default:
			return 2
		}
	}

	best, found := File{}, false
	for _, f := range files {
		if f.Yanked || f.URL == "" {
			continue
		}
		if !found || rank(f) < rank(best) {
			best, found = f, true
		}
	}
	return best, found
}
