// Package requirement parses PEP 508 dependency specifiers.
//
// A specifier has the form
//
//	name [extras] (version-constraint | @ url) ; marker
//
// for example "requests[socks]>=2.8,<3; python_version >= '3.7'". [Parse]
// produces an immutable [Requirement]; the package name is PEP 503
// normalized for comparison while the original spelling is kept for display.
package requirement

import (
	"regexp"
	"slices"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/marker"
)

var (
	nameRE   = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*`)
	extrasRE = regexp.MustCompile(`^\[([^\]]*)\]\s*`)
	extraRE  = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	nameSep  = regexp.MustCompile(`[-_.]+`)
)

// Requirement is a parsed dependency specifier. The zero value is not a
// valid requirement; use [Parse].
type Requirement struct {
	Name      string      // PEP 503 normalized name, used for comparison
	RawName   string      // name as written in the specifier
	Extras    []string    // requested extras of the dependency, normalized
	Specifier string      // version constraint without spaces, e.g. ">=1.0,<2"
	URL       string      // direct reference after "@", if any
	Marker    marker.Expr // environment marker, nil when absent
}

// NormalizeName returns the PEP 503 normalized form of a distribution name.
func NormalizeName(name string) string {
	return nameSep.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Parse parses a PEP 508 specifier. Legacy parenthesized constraints as
// found in old core metadata ("foo (>=1.0)") are accepted.
func Parse(s string) (Requirement, error) {
	head, markerText, hasMarker := strings.Cut(s, ";")

	m := nameRE.FindStringSubmatch(head)
	if m == nil {
		return Requirement{}, errs.New(errs.ErrCodeInvalidRequirement, "missing package name in %q", s)
	}
	r := Requirement{RawName: m[1], Name: NormalizeName(m[1])}
	rest := head[len(m[0]):]

	if em := extrasRE.FindStringSubmatch(rest); em != nil {
		extras, err := parseExtras(em[1])
		if err != nil {
			return Requirement{}, errs.Wrap(errs.ErrCodeInvalidRequirement, err, "invalid extras in %q", s)
		}
		r.Extras = extras
		rest = rest[len(em[0]):]
	} else if strings.HasPrefix(rest, "[") {
		return Requirement{}, errs.New(errs.ErrCodeInvalidRequirement, "unterminated extras in %q", s)
	}

	rest = strings.TrimSpace(rest)
	switch {
	case strings.HasPrefix(rest, "@"):
		r.URL = strings.TrimSpace(rest[1:])
		if r.URL == "" || strings.ContainsAny(r.URL, " \t") {
			return Requirement{}, errs.New(errs.ErrCodeInvalidRequirement, "invalid URL in %q", s)
		}
	case rest != "":
		if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
			rest = strings.TrimSpace(rest[1 : len(rest)-1])
		}
		spec := strings.Join(strings.Fields(rest), "")
		if spec != "" {
			if _, err := pep440.NewSpecifiers(spec); err != nil {
				return Requirement{}, errs.Wrap(errs.ErrCodeInvalidRequirement, err, "invalid version constraint in %q", s)
			}
			r.Specifier = spec
		}
	}

	if hasMarker {
		if strings.TrimSpace(markerText) == "" {
			return Requirement{}, errs.New(errs.ErrCodeInvalidRequirement, "empty marker in %q", s)
		}
		expr, err := marker.Parse(markerText)
		if err != nil {
			return Requirement{}, errs.Wrap(errs.ErrCodeInvalidRequirement, err, "invalid marker in %q", s)
		}
		r.Marker = expr
	}
	return r, nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(s string) Requirement {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseExtras(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !extraRE.MatchString(part) {
			return nil, errs.New(errs.ErrCodeInvalidRequirement, "invalid extra name %q", part)
		}
		name := marker.NormalizeExtra(part)
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// String renders the requirement in canonical PEP 508 form.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.RawName)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	switch {
	case r.URL != "":
		b.WriteString(" @ " + r.URL)
		if r.Marker != nil {
			b.WriteString(" ")
		}
	case r.Specifier != "":
		b.WriteString(r.Specifier)
	}
	if r.Marker != nil {
		b.WriteString("; " + r.Marker.String())
	}
	return b.String()
}

// Key identifies the requirement for filtering purposes: two requirements
// with equal keys are interchangeable regardless of how they were spelled.
func (r Requirement) Key() string {
	k := r.Name + "|" + r.Specifier + "|" + r.URL
	if r.Marker != nil {
		k += "|" + r.Marker.String()
	}
	return k
}

// Condition reports which extra, if any, the requirement's marker gates it on.
func (r Requirement) Condition() marker.Condition {
	return marker.Extras(r.Marker)
}

// WithMarker returns a copy of r carrying m as its marker.
func (r Requirement) WithMarker(m marker.Expr) Requirement {
	r.Marker = m
	r.Extras = slices.Clone(r.Extras)
	return r
}

// Allows reports whether version v satisfies the constraint. Requirements
// without a constraint allow every version. Prereleases only match when
// prereleases is true.
func (r Requirement) Allows(v pep440.Version, prereleases bool) bool {
	if r.Specifier == "" {
		return prereleases || !v.IsPreRelease()
	}
	specs, err := pep440.NewSpecifiers(r.Specifier, pep440.WithPreRelease(prereleases))
	if err != nil {
		return false
	}
	return specs.Check(v)
}
