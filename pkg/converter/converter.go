// Package converter reads the dependency declarations of a distribution
// archive.
//
// A [Converter] loads a file into a [Root]: the project's name, version and
// declared dependencies. Each [Dependency] carries the environments it
// belongs to. The environment [MainEnv] holds unconditional dependencies;
// every other environment is the name of an extra.
//
// [Metadata] is the built-in converter. It reads core metadata from wheels,
// eggs and source distributions:
//
//	root, err := converter.Metadata{}.Load("requests-2.31.0-py3-none-any.whl")
//	for _, dep := range root.Dependencies {
//	    for _, one := range dep.Split() {
//	        fmt.Println(one) // "urllib3<3,>=1.21.1", "PySocks!=1.5.7,>=1.5.6; extra == \"socks\""
//	    }
//	}
package converter

import (
	"slices"

	"github.com/matzehuels/reposolve/pkg/marker"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

// MainEnv is the environment of dependencies that apply without any extra.
const MainEnv = "main"

// Converter loads declared dependencies from a file on disk.
type Converter interface {
	Load(path string) (*Root, error)
}

// Root is a loaded project.
type Root struct {
	Name           string
	Version        string
	RequiresPython string
	Extras         []string // declared extras, normalized
	Dependencies   []Dependency
}

// Dependency is a requirement together with the environments that need it.
// Requirement.Marker never tests "extra"; the extra condition lives in Envs.
//
// A declaration that does not parse is kept verbatim in Raw, with
// Requirement and Envs left empty. Deciding what to do with it is left to
// the consumer of the rendered strings.
type Dependency struct {
	Requirement requirement.Requirement
	Envs        []string
	Raw         string
}

// Split returns one Dependency per environment, in Envs order.
func (d Dependency) Split() []Dependency {
	if d.Raw != "" {
		return []Dependency{d}
	}
	out := make([]Dependency, 0, len(d.Envs))
	for _, env := range d.Envs {
		out = append(out, Dependency{Requirement: d.Requirement, Envs: []string{env}})
	}
	return out
}

// Main reports whether the dependency applies without extras.
func (d Dependency) Main() bool {
	return len(d.Envs) == 0 || slices.Contains(d.Envs, MainEnv)
}

// String renders the dependency as a PEP 508 specifier. Extra environments
// become extra == "<env>" clauses joined to the remaining marker.
func (d Dependency) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	if d.Main() {
		return d.Requirement.String()
	}
	var extras marker.Expr
	for _, env := range d.Envs {
		eq := marker.ExtraEquals(env)
		if extras == nil {
			extras = eq
		} else {
			extras = marker.Or{Left: extras, Right: eq}
		}
	}
	return d.Requirement.WithMarker(marker.Join(d.Requirement.Marker, extras)).String()
}

// Strings returns every dependency split per environment and rendered with
// [Dependency.String].
func (r *Root) Strings() []string {
	var out []string
	for _, d := range r.Dependencies {
		for _, one := range d.Split() {
			out = append(out, one.String())
		}
	}
	return out
}

// add records req under env, merging with an existing dependency that has
// the same requirement key.
func (r *Root) add(req requirement.Requirement, env string) {
	key := req.Key()
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		if d.Raw == "" && d.Requirement.Key() == key {
			if !slices.Contains(d.Envs, env) {
				d.Envs = append(d.Envs, env)
			}
			return
		}
	}
	r.Dependencies = append(r.Dependencies, Dependency{Requirement: req, Envs: []string{env}})
}

func (r *Root) addRaw(s string) {
	r.Dependencies = append(r.Dependencies, Dependency{Raw: s})
}

// addRequirement splits the extra condition off req and records it under
// each extra, or under MainEnv when it has none. Markers that test extra in
// an unsupported way are kept whole under MainEnv.
func (r *Root) addRequirement(req requirement.Requirement) {
	cond := req.Condition()
	if !cond.Conditioned() {
		r.add(req, MainEnv)
		return
	}
	stripped := req.WithMarker(marker.WithoutExtras(req.Marker))
	for _, extra := range cond.Extras {
		r.add(stripped, extra)
	}
}
