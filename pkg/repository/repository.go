// Package repository defines the contract every package source implements
// and the logic shared between sources.
//
// # Capabilities
//
// Sources differ in what they can do: a local directory can list releases
// but cannot search, and only reads dependencies when it has a converter.
// Callers check [Repository.Supports] before calling an operation. Calling
// an unsupported operation anyway returns an error for which
// [IsUnsupported] is true, never an empty result.
//
// # Filtering
//
// [Filter] turns the dependency strings of one release into the
// requirements that apply under a requested extra.
//
// # Implementations
//
//   - [local]: a directory of distribution archives
//   - [warehouse]: a PyPI-compatible JSON index
//   - [Group]: several repositories queried as one
//
// [local]: github.com/matzehuels/reposolve/pkg/repository/local
// [warehouse]: github.com/matzehuels/reposolve/pkg/repository/warehouse
package repository

import (
	"context"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/release"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

// Operation names a repository capability.
type Operation string

// Operations a repository may support.
const (
	OpReleases     Operation = "releases"
	OpDependencies Operation = "dependencies"
	OpSearch       Operation = "search"
)

// SearchResult is one match of [Repository.Search].
type SearchResult struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Repository is a source of releases and their dependencies.
// Implementations are safe for concurrent use.
type Repository interface {
	// Name identifies the repository in logs and errors.
	Name() string

	// Supports reports whether op can be performed.
	Supports(op Operation) bool

	// Releases returns the releases of q's package, newest first.
	// An unknown package yields an empty slice.
	Releases(ctx context.Context, q release.Query) ([]release.Release, error)

	// Dependencies returns the requirements of one release that apply
	// under extra ("" for none).
	Dependencies(ctx context.Context, name, version, extra string) ([]requirement.Requirement, error)

	// Search finds packages matching all query words.
	Search(ctx context.Context, query []string) ([]SearchResult, error)
}

// PrereleasePolicy is implemented by repositories that can be configured
// to return prereleases for every query.
type PrereleasePolicy interface {
	AllowsPrereleases() bool
}

func allowsPrereleases(r Repository) bool {
	p, ok := r.(PrereleasePolicy)
	return ok && p.AllowsPrereleases()
}

// Unsupported returns the error reported when repo cannot perform op.
func Unsupported(repo string, op Operation) error {
	return errs.New(errs.ErrCodeUnsupported, "%s: %s is not supported", repo, op)
}

// IsUnsupported reports whether err signals an unsupported operation.
func IsUnsupported(err error) bool {
	return errs.Is(err, errs.ErrCodeUnsupported)
}

// IsNotFound reports whether err signals an unknown package or release.
func IsNotFound(err error) bool {
	return errs.Is(err, errs.ErrCodeNotFound) || errs.Is(err, errs.ErrCodePackageNotFound)
}
