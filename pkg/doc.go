// Package pkg provides the libraries behind reposolve: release discovery and
// dependency extraction for Python packages.
//
// # Overview
//
// A resolver asks two questions about a package: which releases exist, and
// what does a given release require. The pkg directory answers them from
// several kinds of sources behind one interface:
//
//  1. [repository] - The capability contract, requirement filtering and
//     multi-repository groups
//  2. [repository/local] - Archives in a directory tree
//  3. [repository/warehouse] - A PyPI-compatible JSON index
//  4. [indexserver] - Serves a local directory as such an index
//
// Supporting packages:
//
//   - [requirement], [marker] - Requirement specifiers and environment markers
//   - [release] - Release grouping, ordering and prerelease policy
//   - [converter] - Reads declared dependencies from distribution archives
//   - [cache] - Memory, file, redis and mongo caches
//   - [httputil], [integrations] - Downloads, retries and the index client
//   - [config] - TOML/YAML configuration
//   - [observability] - Hooks for metrics and tracing
//
// # Data Flow
//
//	release.Query
//	     ↓
//	repository.Repository.Releases  →  []release.Release (newest first)
//	     ↓
//	repository.Repository.Dependencies
//	     ↓  (cache hit, or download + converter.Converter)
//	per-environment dependency strings
//	     ↓
//	repository.Filter  →  []requirement.Requirement
//
// # Quick Start
//
//	repo := warehouse.New(pypi.DefaultURL)
//	releases, _ := repo.Releases(ctx, release.Query{RawName: "requests"})
//	reqs, _ := repo.Dependencies(ctx, "requests", releases[0].Version.String(), "socks")
//
// [repository]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/repository
// [repository/local]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/repository/local
// [repository/warehouse]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/repository/warehouse
// [indexserver]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/indexserver
// [requirement]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/requirement
// [marker]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/marker
// [release]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/release
// [converter]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/converter
// [cache]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/httputil
// [integrations]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/integrations
// [config]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/reposolve/pkg/observability
package pkg
