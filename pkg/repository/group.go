package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/reposolve/pkg/observability"
	"github.com/matzehuels/reposolve/pkg/release"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

// Group queries several repositories as one. Releases are fetched from all
// members concurrently and merged per version. Dependencies come from the
// first member, in order, that supports them and knows the release.
type Group struct {
	repos  []Repository
	logger *log.Logger
}

// NewGroup creates a group over repos. A nil logger uses [log.Default].
func NewGroup(logger *log.Logger, repos ...Repository) *Group {
	if logger == nil {
		logger = log.Default()
	}
	return &Group{repos: repos, logger: logger}
}

// Repositories returns the members in query order.
func (g *Group) Repositories() []Repository { return g.repos }

// Name joins the member names with "+".
func (g *Group) Name() string {
	names := make([]string, len(g.repos))
	for i, r := range g.repos {
		names[i] = r.Name()
	}
	return strings.Join(names, "+")
}

// Supports reports whether any member supports op.
func (g *Group) Supports(op Operation) bool {
	for _, r := range g.repos {
		if r.Supports(op) {
			return true
		}
	}
	return false
}

// Releases queries every member that lists releases. A failing member is
// logged and skipped; the query fails only when every member fails.
//
// Members fall back to prereleases on their own when they have nothing
// stable. Once any member contributes a stable release, prereleases from
// members that do not allow them are dropped again, unless q allows them.
func (g *Group) Releases(ctx context.Context, q release.Query) (releases []release.Release, err error) {
	start := time.Now()
	defer func() {
		observability.Repository().OnReleases(ctx, g.Name(), q.RawName, len(releases), time.Since(start), err)
	}()

	if !g.Supports(OpReleases) {
		return nil, Unsupported(g.Name(), OpReleases)
	}

	var (
		mu       sync.Mutex
		lists    = make([][]release.Release, len(g.repos))
		failures []error
		queried  int
	)
	eg, gctx := errgroup.WithContext(ctx)
	for i, r := range g.repos {
		if !r.Supports(OpReleases) {
			continue
		}
		queried++
		i, r := i, r
		eg.Go(func() error {
			rels, err := r.Releases(gctx, q)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				g.logger.Warn("repository failed", "repository", r.Name(), "package", q.RawName, "err", err)
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}
			lists[i] = rels
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if len(failures) == queried {
		return nil, errors.Join(failures...)
	}
	if !q.Prereleases && hasStable(lists) {
		for i, r := range g.repos {
			if lists[i] != nil && !allowsPrereleases(r) {
				lists[i] = release.Stable(lists[i])
			}
		}
	}
	return release.Merge(lists...), nil
}

func hasStable(lists [][]release.Release) bool {
	for _, list := range lists {
		for _, r := range list {
			if !r.IsPrerelease() {
				return true
			}
		}
	}
	return false
}

// Dependencies asks members in order. Members that don't support the
// operation or don't know the release are skipped.
func (g *Group) Dependencies(ctx context.Context, name, version, extra string) (deps []requirement.Requirement, err error) {
	start := time.Now()
	defer func() {
		observability.Repository().OnDependencies(ctx, g.Name(), name, version, len(deps), time.Since(start), err)
	}()

	var notFound error
	for _, r := range g.repos {
		if !r.Supports(OpDependencies) {
			continue
		}
		found, err := r.Dependencies(ctx, name, version, extra)
		if err == nil {
			return found, nil
		}
		if IsNotFound(err) || IsUnsupported(err) {
			notFound = err
			continue
		}
		return nil, err
	}
	if notFound != nil {
		return nil, notFound
	}
	return nil, Unsupported(g.Name(), OpDependencies)
}

// Search concatenates the results of every member that can search.
func (g *Group) Search(ctx context.Context, query []string) ([]SearchResult, error) {
	if !g.Supports(OpSearch) {
		return nil, Unsupported(g.Name(), OpSearch)
	}
	var out []SearchResult
	for _, r := range g.repos {
		if !r.Supports(OpSearch) {
			continue
		}
		res, err := r.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// Ensure Group implements Repository.
var _ Repository = (*Group)(nil)
