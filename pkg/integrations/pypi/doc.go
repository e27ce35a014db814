// Package pypi provides an HTTP client for PyPI-compatible JSON APIs.
//
// # Overview
//
// Two endpoints are used:
//
//	GET {url}/{name}/json            -> [Project]: all releases and their files
//	GET {url}/{name}/{version}/json  -> [Release]: files of one release
//
// Names are normalized following PEP 503 before every request.
//
// # Usage
//
//	client := pypi.NewClient(cache.NewNullCache(), 0, pypi.DefaultURL)
//	project, err := client.FetchProject(ctx, "requests", false)
//	for version, files := range project.Releases {
//	    ...
//	}
//
// # Caching
//
// Decoded responses can be cached in any [cache.Cache] backend for a TTL
// set at construction. Pass refresh=true to bypass the cache.
//
// [cache.Cache]: github.com/matzehuels/reposolve/pkg/cache.Cache
package pypi
