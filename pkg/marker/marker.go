package marker

import (
	"regexp"
	"strings"
)

// Variables recognised on either side of a comparison.
const (
	VarOSName                       = "os_name"
	VarSysPlatform                  = "sys_platform"
	VarPlatformMachine              = "platform_machine"
	VarPlatformPythonImplementation = "platform_python_implementation"
	VarPlatformRelease              = "platform_release"
	VarPlatformSystem               = "platform_system"
	VarPlatformVersion              = "platform_version"
	VarPythonVersion                = "python_version"
	VarPythonFullVersion            = "python_full_version"
	VarImplementationName           = "implementation_name"
	VarImplementationVersion        = "implementation_version"
	VarExtra                        = "extra"
)

var variables = map[string]bool{
	VarOSName:                       true,
	VarSysPlatform:                  true,
	VarPlatformMachine:              true,
	VarPlatformPythonImplementation: true,
	VarPlatformRelease:              true,
	VarPlatformSystem:               true,
	VarPlatformVersion:              true,
	VarPythonVersion:                true,
	VarPythonFullVersion:            true,
	VarImplementationName:           true,
	VarImplementationVersion:        true,
	VarExtra:                        true,
}

// aliases maps legacy variable spellings still found in old metadata.
var aliases = map[string]string{
	"os.name":                        VarOSName,
	"sys.platform":                   VarSysPlatform,
	"platform.version":               VarPlatformVersion,
	"platform.machine":               VarPlatformMachine,
	"platform.python_implementation": VarPlatformPythonImplementation,
	"python_implementation":          VarPlatformPythonImplementation,
}

// versionVars are compared with PEP 440 semantics when both sides parse.
var versionVars = map[string]bool{
	VarPythonVersion:         true,
	VarPythonFullVersion:     true,
	VarImplementationVersion: true,
	VarPlatformRelease:       true,
}

// Op is a marker comparison operator.
type Op string

const (
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpNotEqual     Op = "!="
	OpEqual        Op = "=="
	OpGreaterEqual Op = ">="
	OpGreater      Op = ">"
	OpCompatible   Op = "~="
	OpArbitrary    Op = "==="
	OpIn           Op = "in"
	OpNotIn        Op = "not in"
)

// Value is one side of a comparison: either an environment variable or a
// quoted literal.
type Value struct {
	Variable string // set for variables, canonical name
	Literal  string // set for literals, unquoted
}

// IsVariable reports whether v names an environment variable.
func (v Value) IsVariable() bool { return v.Variable != "" }

func (v Value) String() string {
	if v.IsVariable() {
		return v.Variable
	}
	if strings.Contains(v.Literal, `"`) {
		return "'" + v.Literal + "'"
	}
	return `"` + v.Literal + `"`
}

// Expr is a node of a parsed marker.
type Expr interface {
	String() string
	expr()
}

// Compare is a leaf comparison such as python_version >= "3.8".
type Compare struct {
	Left  Value
	Op    Op
	Right Value
}

// And is a conjunction of two markers.
type And struct{ Left, Right Expr }

// Or is a disjunction of two markers.
type Or struct{ Left, Right Expr }

func (Compare) expr() {}
func (And) expr()     {}
func (Or) expr()      {}

func (c Compare) String() string {
	return c.Left.String() + " " + string(c.Op) + " " + c.Right.String()
}

func (a And) String() string {
	return group(a.Left, true) + " and " + group(a.Right, true)
}

func (o Or) String() string {
	return group(o.Left, false) + " or " + group(o.Right, false)
}

// group parenthesizes an "or" nested inside an "and" so the rendered text
// keeps the tree's precedence.
func group(e Expr, inAnd bool) string {
	if _, ok := e.(Or); ok && inAnd {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Join combines markers with "and", skipping nil operands.
// It returns nil when every operand is nil.
func Join(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		switch {
		case e == nil:
		case out == nil:
			out = e
		default:
			out = And{Left: out, Right: e}
		}
	}
	return out
}

// ExtraEquals builds the comparison extra == "<name>".
func ExtraEquals(name string) Expr {
	return Compare{
		Left:  Value{Variable: VarExtra},
		Op:    OpEqual,
		Right: Value{Literal: name},
	}
}

var extraSep = regexp.MustCompile(`[-_.]+`)

// NormalizeExtra returns the PEP 685 form of an extra name.
func NormalizeExtra(name string) string {
	return extraSep.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
