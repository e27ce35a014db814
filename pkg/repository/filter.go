package repository

import (
	"strings"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/marker"
	"github.com/matzehuels/reposolve/pkg/requirement"
)

// Source identifies the release whose dependencies are being filtered.
type Source struct {
	Name    string
	Version string
}

// FilterOption configures [Filter].
type FilterOption func(*filterOptions)

type filterOptions struct {
	logger *log.Logger
	env    marker.Environment
}

// WithLogger sets the logger that receives degraded-parse warnings.
// The default is [log.Default].
func WithLogger(l *log.Logger) FilterOption {
	return func(o *filterOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEnvironment additionally drops requirements whose markers evaluate to
// false in env. Markers that cannot be evaluated keep the requirement.
func WithEnvironment(env marker.Environment) FilterOption {
	return func(o *filterOptions) { o.env = env }
}

// Filter parses the dependency strings of src and returns those that apply
// when src is requested under extra ("" for none). Output order follows
// input order.
//
// A string that does not parse is retried without its marker. If that
// succeeds the requirement is kept unconditionally and a warning is logged;
// otherwise Filter fails with an INVALID_REQUIREMENT error naming the string
// and src.
//
// Inclusion follows the extra condition of each marker:
//
//	requirement extra | requested extra | included
//	none              | none            | yes
//	none              | some            | no
//	some              | none            | no
//	some              | some, equal     | yes
//	some              | some, different | no
func Filter(deps []string, src Source, extra string, opts ...FilterOption) ([]requirement.Requirement, error) {
	o := filterOptions{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	extra = marker.NormalizeExtra(extra)

	var out []requirement.Requirement
	for _, dep := range deps {
		req, err := parseLenient(dep, src, o.logger)
		if err != nil {
			return nil, err
		}
		if !req.Condition().Allows(extra) {
			continue
		}
		if o.env != nil && req.Marker != nil {
			env := o.env
			if extra != "" {
				env = env.With(marker.VarExtra, extra)
			}
			if ok, err := marker.Evaluate(req.Marker, env); err == nil && !ok {
				continue
			}
		}
		out = append(out, req)
	}
	return out, nil
}

func parseLenient(dep string, src Source, logger *log.Logger) (requirement.Requirement, error) {
	req, err := requirement.Parse(dep)
	if err == nil {
		return req, nil
	}
	head, _, _ := strings.Cut(dep, ";")
	req, err2 := requirement.Parse(head)
	if err2 != nil {
		return requirement.Requirement{}, errs.Wrap(errs.ErrCodeInvalidRequirement, err,
			"cannot parse requirement: %s from %s %s", dep, src.Name, src.Version)
	}
	logger.Warn("cannot parse marker",
		"requirement", dep,
		"source_name", src.Name,
		"source_version", src.Version,
	)
	return req, nil
}
