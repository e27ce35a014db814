package marker

import (
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"

	errs "github.com/matzehuels/reposolve/pkg/errors"
)

// Environment maps marker variables to the values of a target interpreter
// and platform.
type Environment map[string]string

// PythonEnvironment returns a CPython on Linux environment for the given
// python version ("3.11" or "3.11.4").
func PythonEnvironment(version string) Environment {
	short := version
	if parts := strings.SplitN(version, ".", 3); len(parts) == 3 {
		short = parts[0] + "." + parts[1]
	}
	full := version
	if short == version {
		full = version + ".0"
	}
	return Environment{
		VarOSName:                       "posix",
		VarSysPlatform:                  "linux",
		VarPlatformMachine:              "x86_64",
		VarPlatformPythonImplementation: "CPython",
		VarPlatformSystem:               "Linux",
		VarPythonVersion:                short,
		VarPythonFullVersion:            full,
		VarImplementationName:           "cpython",
		VarImplementationVersion:        full,
	}
}

// With returns a copy of env with key set to value.
func (env Environment) With(key, value string) Environment {
	out := make(Environment, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out[key] = value
	return out
}

// Evaluate decides e against env. A nil marker is always true.
// Variables missing from env evaluate as the empty string.
func Evaluate(e Expr, env Environment) (bool, error) {
	switch n := e.(type) {
	case nil:
		return true, nil
	case And:
		l, err := Evaluate(n.Left, env)
		if err != nil || !l {
			return false, err
		}
		return Evaluate(n.Right, env)
	case Or:
		l, err := Evaluate(n.Left, env)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return Evaluate(n.Right, env)
	case Compare:
		return compare(n, env)
	}
	return false, errs.New(errs.ErrCodeInvalidMarker, "unknown marker node %T", e)
}

func compare(c Compare, env Environment) (bool, error) {
	lhs, rhs := resolve(c.Left, env), resolve(c.Right, env)
	variable := c.Left.Variable
	if variable == "" {
		variable = c.Right.Variable
	}
	if variable == VarExtra {
		lhs, rhs = NormalizeExtra(lhs), NormalizeExtra(rhs)
	}

	switch c.Op {
	case OpIn:
		return strings.Contains(rhs, lhs), nil
	case OpNotIn:
		return !strings.Contains(rhs, lhs), nil
	case OpArbitrary:
		return lhs == rhs, nil
	}

	if versionVars[variable] {
		if ok, handled := compareVersions(lhs, c.Op, rhs); handled {
			return ok, nil
		}
	}

	switch c.Op {
	case OpEqual:
		return lhs == rhs, nil
	case OpNotEqual:
		return lhs != rhs, nil
	case OpLess:
		return lhs < rhs, nil
	case OpLessEqual:
		return lhs <= rhs, nil
	case OpGreater:
		return lhs > rhs, nil
	case OpGreaterEqual:
		return lhs >= rhs, nil
	}
	return false, errs.New(errs.ErrCodeInvalidMarker, "operator %s needs version operands, got %q and %q", c.Op, lhs, rhs)
}

func resolve(v Value, env Environment) string {
	if v.IsVariable() {
		return env[v.Variable]
	}
	return v.Literal
}

// compareVersions applies PEP 440 semantics. handled is false when either
// side is not a valid version, so the caller falls back to string comparison.
func compareVersions(lhs string, op Op, rhs string) (ok, handled bool) {
	v, err := pep440.Parse(lhs)
	if err != nil {
		return false, false
	}
	spec, err := pep440.NewSpecifiers(string(op) + rhs)
	if err != nil {
		return false, false
	}
	return spec.Check(v), true
}
