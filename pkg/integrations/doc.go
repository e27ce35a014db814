// Package integrations provides HTTP clients for package index APIs.
//
// # Overview
//
// The [Client] type is the shared transport used by index clients:
//
//   - JSON GET requests with default headers
//   - retry of network errors and 5xx responses through [httputil.Retry]
//   - optional response caching through any [cache.Cache] backend
//
// Index-specific clients live in subpackages:
//
//   - [pypi]: the PyPI JSON API (also served by Warehouse mirrors and
//     by [indexserver])
//
// # Errors
//
// A 404 response is reported as [ErrNotFound]. Other failures wrap
// [ErrNetwork], and non-200 responses also wrap an [httputil.StatusError]
// that carries the status code and URL.
//
// [pypi]: github.com/matzehuels/reposolve/pkg/integrations/pypi
// [indexserver]: github.com/matzehuels/reposolve/pkg/indexserver
// [httputil.Retry]: github.com/matzehuels/reposolve/pkg/httputil.Retry
// [httputil.StatusError]: github.com/matzehuels/reposolve/pkg/httputil.StatusError
// [cache.Cache]: github.com/matzehuels/reposolve/pkg/cache.Cache
package integrations
