// Package release models the resolvable versions of a package as seen by
// one repository, and the policy that orders and filters them.
//
// A repository reports every distribution file it discovers as an
// [Artifact]. [Build] groups artifacts by version into [Release] values,
// applies the prerelease policy and returns them newest first.
package release

import (
	"slices"
	"time"

	pep440 "github.com/aquasecurity/go-pep440-version"

	"github.com/matzehuels/reposolve/pkg/requirement"
)

// Query is what a resolver asks a repository for.
type Query struct {
	RawName     string // package name as spelled by the requester
	Extra       string // extra the release is requested under, "" for none
	Prereleases bool   // allow prereleases for this request only
}

// Name returns the normalized package name of the query.
func (q Query) Name() string { return requirement.NormalizeName(q.RawName) }

// Artifact is one distribution file discovered for a package.
type Artifact struct {
	Filename string    // basename of the file
	URL      string    // download location, empty for local files
	Version  string    // version string as published
	Hash     string    // hex-encoded sha256 of the file content
	Time     time.Time // upload or modification time
}

// Release is one resolvable version of a package. Releases are built fresh
// for each query and are never mutated afterwards.
type Release struct {
	RawName string         // name as spelled by the requester
	Name    string         // normalized name
	Version pep440.Version // parsed version
	Time    time.Time      // latest upload/modification time among its artifacts
	Hashes  []string       // one digest per artifact, deduplicated
	Extra   string         // extra the release was requested under
}

// IsPrerelease reports whether the release version is a prerelease.
func (r Release) IsPrerelease() bool { return r.Version.IsPreRelease() }

// String returns "name==version".
func (r Release) String() string {
	return r.RawName + "==" + r.Version.String()
}

// Compare orders releases by version.
func Compare(a, b Release) int { return a.Version.Compare(b.Version) }

// Build turns discovered artifacts into releases for q.
//
// Artifacts are grouped by version: hashes are merged as a set and the latest
// time is kept. Byte-identical copies of one file share a digest and so
// contribute a single hash. Artifacts whose version does not parse are returned in dropped and
// otherwise ignored. Prereleases are excluded unless allowPrereleases or
// q.Prereleases is set; when that leaves no stable release but prereleases
// exist, the prereleases are returned instead so that packages published only
// as prereleases still resolve. The result is sorted newest first.
func Build(q Query, artifacts []Artifact, allowPrereleases bool) (releases []Release, dropped []Artifact) {
	var groups []*Release
	for _, a := range artifacts {
		v, err := pep440.Parse(a.Version)
		if err != nil {
			dropped = append(dropped, a)
			continue
		}
		g := find(groups, v)
		if g == nil {
			g = &Release{
				RawName: q.RawName,
				Name:    q.Name(),
				Version: v,
				Extra:   q.Extra,
			}
			groups = append(groups, g)
		}
		if a.Hash != "" && !slices.Contains(g.Hashes, a.Hash) {
			g.Hashes = append(g.Hashes, a.Hash)
		}
		if a.Time.After(g.Time) {
			g.Time = a.Time
		}
	}

	var stable, pre []Release
	for _, g := range groups {
		if g.IsPrerelease() {
			pre = append(pre, *g)
			continue
		}
		stable = append(stable, *g)
	}

	switch {
	case allowPrereleases || q.Prereleases:
		releases = append(stable, pre...)
	case len(stable) == 0:
		releases = pre
	default:
		releases = stable
	}

	slices.SortStableFunc(releases, func(a, b Release) int { return Compare(b, a) })
	return releases, dropped
}

func find(groups []*Release, v pep440.Version) *Release {
	for _, g := range groups {
		if g.Version.Equal(v) {
			return g
		}
	}
	return nil
}

// Stable returns the releases that are not prereleases, in order.
func Stable(releases []Release) []Release {
	var out []Release
	for _, r := range releases {
		if !r.IsPrerelease() {
			out = append(out, r)
		}
	}
	return out
}

// Versions returns the version strings of releases, in order.
func Versions(releases []Release) []string {
	out := make([]string, len(releases))
	for i, r := range releases {
		out[i] = r.Version.String()
	}
	return out
}

// Merge combines release lists from several repositories. Releases with
// equal versions collapse into one whose hashes are the union and whose
// time is the latest. The first list's names and extra win. The result is
// sorted newest first.
func Merge(lists ...[]Release) []Release {
	var groups []*Release
	for _, list := range lists {
		for _, r := range list {
			g := find(groups, r.Version)
			if g == nil {
				c := r
				c.Hashes = slices.Clone(r.Hashes)
				groups = append(groups, &c)
				continue
			}
			for _, h := range r.Hashes {
				if !slices.Contains(g.Hashes, h) {
					g.Hashes = append(g.Hashes, h)
				}
			}
			if r.Time.After(g.Time) {
				g.Time = r.Time
			}
		}
	}

	out := make([]Release, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortStableFunc(out, func(a, b Release) int { return Compare(b, a) })
	return out
}
