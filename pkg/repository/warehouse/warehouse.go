// Package warehouse implements a repository backed by a PyPI-compatible
// JSON index (pypi.org, Warehouse mirrors, devpi, or [indexserver]).
//
// Releases come from GET {url}/{name}/json. Dependencies are read from a
// downloaded distribution file (a wheel when there is one) through a
// [converter.Converter]; the per-environment dependency strings of each
// release are cached under (index host, "deps", name, version) so that a
// release is downloaded at most once per cache lifetime. Concurrent
// requests for the same release share one download.
//
// [indexserver]: github.com/matzehuels/reposolve/pkg/indexserver
package warehouse

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/reposolve/pkg/cache"
	"github.com/matzehuels/reposolve/pkg/converter"
	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/httputil"
	"github.com/matzehuels/reposolve/pkg/integrations"
	"github.com/matzehuels/reposolve/pkg/integrations/pypi"
	"github.com/matzehuels/reposolve/pkg/observability"
	"github.com/matzehuels/reposolve/pkg/release"
	"github.com/matzehuels/reposolve/pkg/repository"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

// Repository reads releases and dependencies from a JSON index.
type Repository struct {
	name        string
	url         string
	host        string
	prereleases bool

	client *pypi.Client
	conv   converter.Converter
	cache  cache.Cache
	logger *log.Logger

	indexCache cache.Cache
	indexTTL   time.Duration
	httpClient *http.Client
	progress   func(filename string, size int64) io.Writer
	tempDir    string

	flight singleflight.Group
}

// Option configures a [Repository].
type Option func(*Repository)

// WithName sets the repository name used in logs. Defaults to the host.
func WithName(name string) Option { return func(r *Repository) { r.name = name } }

// WithPrereleases allows prereleases for every query.
func WithPrereleases(allow bool) Option { return func(r *Repository) { r.prereleases = allow } }

// WithConverter replaces the default [converter.Metadata].
func WithConverter(c converter.Converter) Option { return func(r *Repository) { r.conv = c } }

// WithCache sets the cache for dependency lists. Defaults to a fresh
// [cache.Memory].
func WithCache(c cache.Cache) Option { return func(r *Repository) { r.cache = c } }

// WithIndexCache also caches index responses for ttl. By default release
// listings are always fetched fresh.
func WithIndexCache(c cache.Cache, ttl time.Duration) Option {
	return func(r *Repository) { r.indexCache, r.indexTTL = c, ttl }
}

// WithLogger sets the logger. Defaults to [log.Default].
func WithLogger(l *log.Logger) Option { return func(r *Repository) { r.logger = l } }

// WithHTTPClient sets the client for index requests and downloads.
func WithHTTPClient(c *http.Client) Option { return func(r *Repository) { r.httpClient = c } }

// WithProgress reports download progress. fn receives the file name and
// expected size and returns the writer to copy received bytes to.
func WithProgress(fn func(filename string, size int64) io.Writer) Option {
	return func(r *Repository) { r.progress = fn }
}

// WithTempDir sets where download scopes are created.
func WithTempDir(dir string) Option { return func(r *Repository) { r.tempDir = dir } }

// New creates a repository for the JSON API rooted at url
// ([pypi.DefaultURL] when empty).
func New(url string, opts ...Option) *Repository {
	r := &Repository{}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.NewMemory()
	}
	if r.conv == nil {
		r.conv = converter.Metadata{}
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.indexCache == nil {
		r.indexCache = cache.NewNullCache()
	}

	r.client = pypi.NewClient(r.indexCache, r.indexTTL, url)
	if r.httpClient != nil {
		r.client.SetHTTPClient(r.httpClient)
	}
	r.url = r.client.BaseURL()
	r.host = integrations.Host(r.url)
	if r.name == "" {
		r.name = r.host
	}
	return r
}

// Name returns the repository name.
func (r *Repository) Name() string { return r.name }

// AllowsPrereleases reports whether prereleases are returned for every query.
func (r *Repository) AllowsPrereleases() bool { return r.prereleases }

// URL returns the JSON API root.
func (r *Repository) URL() string { return r.url }

// Supports reports the operations this repository can perform.
func (r *Repository) Supports(op repository.Operation) bool {
	return op == repository.OpReleases || op == repository.OpDependencies
}

// Releases lists the releases of q's package. Yanked files are ignored and
// an unknown package yields no releases.
func (r *Repository) Releases(ctx context.Context, q release.Query) ([]release.Release, error) {
	project, err := r.client.FetchProject(ctx, q.RawName, false)
	if errors.Is(err, integrations.ErrNotFound) {
		r.logger.Debug("package not found", "repository", r.name, "package", q.RawName)
		return nil, nil
	}
	if err != nil {
		return nil, r.transportError(err, "cannot list releases of %s", q.RawName)
	}

	var arts []release.Artifact
	for version, files := range project.Releases {
		for _, f := range files {
			if f.Yanked {
				continue
			}
			arts = append(arts, release.Artifact{
				Filename: f.Filename,
				URL:      f.URL,
				Version:  version,
				Hash:     f.Digests.SHA256,
				Time:     f.UploadTime,
			})
		}
	}

	releases, dropped := release.Build(q, arts, r.prereleases)
	for _, a := range dropped {
		r.logger.Debug("ignoring file with invalid version", "file", a.Filename, "version", a.Version)
	}
	return releases, nil
}

// Dependencies returns the requirements of one release that apply under
// extra ("" for none).
func (r *Repository) Dependencies(ctx context.Context, name, version, extra string) ([]requirement.Requirement, error) {
	name = requirement.NormalizeName(name)
	key := cache.Key{Host: r.host, Kind: "deps", Name: name, Version: version}

	deps, ok, err := cache.LoadStrings(ctx, r.cache, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", key.String(), "err", err)
	}
	if !ok {
		deps, err = r.fetchShared(ctx, key)
		if err != nil {
			return nil, err
		}
	}
	return repository.Filter(deps, repository.Source{Name: name, Version: version}, extra,
		repository.WithLogger(r.logger))
}

// fetchShared collapses concurrent misses for the same key into one fetch.
// The fetch is detached from the caller that started it, so cancelling one
// caller never fails the others. Each caller still returns as soon as its
// own context is done.
func (r *Repository) fetchShared(ctx context.Context, key cache.Key) ([]string, error) {
	shared := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key.String(), func() (any, error) {
		deps, err := r.fetch(shared, key.Name, key.Version)
		if err != nil {
			return nil, err
		}
		if err := cache.StoreStrings(shared, r.cache, key, deps); err != nil {
			r.logger.Warn("cache write failed", "key", key.String(), "err", err)
		}
		return deps, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

// fetch downloads the preferred file of a release and returns its
// dependencies, one string per environment.
func (r *Repository) fetch(ctx context.Context, name, version string) ([]string, error) {
	rel, err := r.client.FetchRelease(ctx, name, version, false)
	if errors.Is(err, integrations.ErrNotFound) {
		return nil, errs.Wrap(errs.ErrCodePackageNotFound, err, "%s: release %s %s not found", r.name, name, version)
	}
	if err != nil {
		return nil, r.transportError(err, "cannot fetch release %s %s", name, version)
	}

	file, ok := pypi.Preferred(rel.URLs)
	if !ok {
		return nil, errs.New(errs.ErrCodeNotFound, "%s: release %s %s has no downloadable files", r.name, name, version)
	}
	r.logger.Debug("downloading", "repository", r.name, "file", file.Filename)

	var opts []httputil.DownloadOption
	if r.tempDir != "" {
		opts = append(opts, httputil.WithTempDir(r.tempDir))
	}
	if r.progress != nil {
		opts = append(opts, httputil.WithProgress(func(size int64) io.Writer {
			return r.progress(file.Filename, size)
		}))
	}

	var deps []string
	start := time.Now()
	err = httputil.Download(ctx, r.client.HTTPClient(), file.URL, func(path string) error {
		root, err := r.conv.Load(path)
		if err != nil {
			return err
		}
		deps = root.Strings()
		return nil
	}, opts...)
	observability.Repository().OnDownload(ctx, file.URL, file.Size, time.Since(start), err)
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) {
			return nil, errs.Wrap(errs.ErrCodeNetwork, err, "cannot download %s", file.URL)
		}
		if errs.GetCode(err) != "" || ctx.Err() != nil {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "cannot download %s", file.URL)
	}
	if deps == nil {
		deps = []string{}
	}
	return deps, nil
}

func (r *Repository) transportError(err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.Wrap(errs.ErrCodeNetwork, err, r.name+": "+format, args...)
}

// Search is not supported: the JSON API has no search endpoint.
func (r *Repository) Search(ctx context.Context, query []string) ([]repository.SearchResult, error) {
	return nil, repository.Unsupported(r.name, repository.OpSearch)
}

// Ensure Repository implements repository.Repository.
var _ repository.Repository = (*Repository)(nil)
