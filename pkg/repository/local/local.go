// Package local implements a repository backed by a directory of
// distribution archives.
//
// Releases are discovered by walking the directory tree. Every file with a
// known archive extension whose filename parses to the queried project is
// hashed (SHA-256, streamed) and grouped by version. Unreadable files are
// logged and skipped.
//
// Dependencies are only available when a [converter.Converter] is
// configured. Search is never supported.
package local

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/reposolve/pkg/cache"
	"github.com/matzehuels/reposolve/pkg/converter"
	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/release"
	"github.com/matzehuels/reposolve/pkg/repository"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

// DefaultExtensions are the archive extensions recognized by default.
var DefaultExtensions = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".zip", ".whl", ".egg"}

// File is a distribution archive found in the directory.
type File struct {
	release.Artifact
	Path string // absolute path on disk
}

// Repository reads releases from a directory tree.
type Repository struct {
	name        string
	root        string
	extensions  []string
	prereleases bool
	conv        converter.Converter
	cache       cache.Cache
	logger      *log.Logger
	workers     int
}

// Option configures a [Repository].
type Option func(*Repository)

// WithName sets the repository name used in logs. Defaults to the path.
func WithName(name string) Option { return func(r *Repository) { r.name = name } }

// WithExtensions replaces [DefaultExtensions].
func WithExtensions(exts ...string) Option {
	return func(r *Repository) {
		if len(exts) > 0 {
			r.extensions = slices.Clone(exts)
		}
	}
}

// WithPrereleases allows prereleases for every query.
func WithPrereleases(allow bool) Option { return func(r *Repository) { r.prereleases = allow } }

// WithConverter enables [Repository.Dependencies].
func WithConverter(c converter.Converter) Option { return func(r *Repository) { r.conv = c } }

// WithCache sets the cache for dependency lists. Defaults to a fresh
// [cache.Memory].
func WithCache(c cache.Cache) Option { return func(r *Repository) { r.cache = c } }

// WithLogger sets the logger. Defaults to [log.Default].
func WithLogger(l *log.Logger) Option { return func(r *Repository) { r.logger = l } }

// WithWorkers bounds concurrent hashing. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option { return func(r *Repository) { r.workers = n } }

// New creates a repository rooted at path, which must be a directory.
func New(path string, opts ...Option) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "invalid path %q", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "cannot open %s", path)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.ErrCodeInvalidPath, "%s is not a directory", path)
	}

	r := &Repository{
		name:       abs,
		root:       abs,
		extensions: DefaultExtensions,
		workers:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.NewMemory()
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r, nil
}

// Name returns the repository name.
func (r *Repository) Name() string { return r.name }

// AllowsPrereleases reports whether prereleases are returned for every query.
func (r *Repository) AllowsPrereleases() bool { return r.prereleases }

// Root returns the directory being served.
func (r *Repository) Root() string { return r.root }

// Supports reports the operations this repository can perform.
func (r *Repository) Supports(op repository.Operation) bool {
	switch op {
	case repository.OpReleases:
		return true
	case repository.OpDependencies:
		return r.conv != nil
	}
	return false
}

// Files returns the archives of the named project, hashed, in walk order.
// Files that cannot be read are logged and skipped.
func (r *Repository) Files(ctx context.Context, name string) ([]File, error) {
	found, err := r.walk(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.hash(ctx, found)
}

// walk finds the archives of the named project without reading them.
func (r *Repository) walk(ctx context.Context, name string) ([]File, error) {
	want := requirement.NormalizeName(name)

	var found []File
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("cannot read path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		ext, ok := matchExtension(d.Name(), r.extensions)
		if !ok {
			return nil
		}
		pkg, version, ok := ParseFilename(d.Name(), ext)
		if !ok || requirement.NormalizeName(pkg) != want {
			return nil
		}
		found = append(found, File{
			Artifact: release.Artifact{Filename: d.Name(), Version: version},
			Path:     path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// hash fills in hash and modification time on a bounded worker group.
func (r *Repository) hash(ctx context.Context, files []File) ([]File, error) {
	var (
		mu      sync.Mutex
		skipped = make(map[int]bool)
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i := range files {
		i := i
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f := &files[i]
			sum, mtime, err := hashFile(f.Path)
			if err != nil {
				r.logger.Warn("skipping unreadable file", "path", f.Path, "err", err)
				mu.Lock()
				skipped[i] = true
				mu.Unlock()
				return nil
			}
			f.Hash, f.Time = sum, mtime
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := files[:0]
	for i, f := range files {
		if !skipped[i] {
			out = append(out, f)
		}
	}
	return out, nil
}

func hashFile(path string) (string, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", time.Time{}, err
	}
	sum, err := cache.HashFile(path)
	if err != nil {
		return "", time.Time{}, err
	}
	return sum, info.ModTime(), nil
}

// Releases lists the releases of q's package found under the root.
func (r *Repository) Releases(ctx context.Context, q release.Query) ([]release.Release, error) {
	files, err := r.Files(ctx, q.RawName)
	if err != nil {
		return nil, err
	}
	arts := make([]release.Artifact, len(files))
	for i, f := range files {
		arts[i] = f.Artifact
	}
	releases, dropped := release.Build(q, arts, r.prereleases)
	for _, a := range dropped {
		r.logger.Debug("ignoring file with invalid version", "file", a.Filename, "version", a.Version)
	}
	return releases, nil
}

// Dependencies reads the dependencies of one release through the
// configured converter. Without a converter it reports unsupported.
func (r *Repository) Dependencies(ctx context.Context, name, version, extra string) ([]requirement.Requirement, error) {
	if r.conv == nil {
		return nil, repository.Unsupported(r.name, repository.OpDependencies)
	}
	name = requirement.NormalizeName(name)
	key := cache.Key{Host: cache.LocalHost, Kind: "deps", Name: name, Version: version}

	deps, ok, err := cache.LoadStrings(ctx, r.cache, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", key.String(), "err", err)
	}
	if !ok {
		deps, err = r.load(ctx, name, version)
		if err != nil {
			return nil, err
		}
		if err := cache.StoreStrings(ctx, r.cache, key, deps); err != nil {
			r.logger.Warn("cache write failed", "key", key.String(), "err", err)
		}
	}
	return repository.Filter(deps, repository.Source{Name: name, Version: version}, extra,
		repository.WithLogger(r.logger))
}

func (r *Repository) load(ctx context.Context, name, version string) ([]string, error) {
	files, err := r.walk(ctx, name)
	if err != nil {
		return nil, err
	}
	f, ok := pick(files, version)
	if !ok {
		return nil, errs.New(errs.ErrCodeNotFound, "%s: no archive for %s %s", r.name, name, version)
	}
	root, err := r.conv.Load(f.Path)
	if err != nil {
		return nil, err
	}
	deps := root.Strings()
	if deps == nil {
		deps = []string{}
	}
	return deps, nil
}

// pick returns the archive of version to read metadata from, preferring
// wheels. Versions compare by PEP 440 equality when both parse.
func pick(files []File, version string) (File, bool) {
	var best File
	found := false
	for _, f := range files {
		if !sameVersion(f.Version, version) {
			continue
		}
		if !found || (filepath.Ext(f.Filename) == ".whl" && filepath.Ext(best.Filename) != ".whl") {
			best, found = f, true
		}
	}
	return best, found
}

func sameVersion(a, b string) bool {
	if a == b {
		return true
	}
	va, err := pep440.Parse(a)
	if err != nil {
		return false
	}
	vb, err := pep440.Parse(b)
	return err == nil && va.Equal(vb)
}

// Search is not supported by directory repositories.
func (r *Repository) Search(ctx context.Context, query []string) ([]repository.SearchResult, error) {
	return nil, repository.Unsupported(r.name, repository.OpSearch)
}

// Ensure Repository implements repository.Repository.
var _ repository.Repository = (*Repository)(nil)

// Lookup finds an archive by file name anywhere under the root. The name
// must be a plain file name with a known extension.
func (r *Repository) Lookup(ctx context.Context, filename string) (string, bool) {
	if errs.ValidateFilename(filename) != nil {
		return "", false
	}
	if _, ok := matchExtension(filename, r.extensions); !ok {
		return "", false
	}
	var found string
	filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}
