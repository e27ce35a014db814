package marker

import "slices"

// Condition describes how a marker gates a requirement on extras.
type Condition struct {
	// Extras lists the normalized extras that enable the requirement, in the
	// order they appear in the marker. Empty when the marker is not
	// extra-conditioned.
	Extras []string

	// Unsupported is set when the marker tests "extra" in a way that cannot
	// be reduced to a set of names (extra != "x", extra in "..."). Such a
	// marker is reported as not extra-conditioned.
	Unsupported bool
}

// Conditioned reports whether the requirement applies only under an extra.
func (c Condition) Conditioned() bool { return len(c.Extras) > 0 }

// Allows reports whether requesting extra satisfies the condition.
// An empty extra means no extra was requested.
func (c Condition) Allows(extra string) bool {
	if !c.Conditioned() {
		return extra == ""
	}
	if extra == "" {
		return false
	}
	return slices.Contains(c.Extras, NormalizeExtra(extra))
}

// Extras extracts the extra condition of a marker.
// A nil marker and markers that only test other variables are not
// extra-conditioned.
func Extras(e Expr) Condition {
	var c Condition
	collectExtras(e, &c)
	if c.Unsupported {
		return Condition{Unsupported: true}
	}
	return c
}

func collectExtras(e Expr, c *Condition) {
	switch n := e.(type) {
	case nil:
	case And:
		collectExtras(n.Left, c)
		collectExtras(n.Right, c)
	case Or:
		collectExtras(n.Left, c)
		collectExtras(n.Right, c)
	case Compare:
		name, ok := extraOperand(n)
		if !ok {
			return
		}
		if n.Op != OpEqual && n.Op != OpArbitrary {
			c.Unsupported = true
			return
		}
		name = NormalizeExtra(name)
		if !slices.Contains(c.Extras, name) {
			c.Extras = append(c.Extras, name)
		}
	}
}

// extraOperand returns the literal compared against "extra", if any.
func extraOperand(c Compare) (string, bool) {
	switch {
	case c.Left.Variable == VarExtra && !c.Right.IsVariable():
		return c.Right.Literal, true
	case c.Right.Variable == VarExtra && !c.Left.IsVariable():
		return c.Left.Literal, true
	}
	return "", false
}

// WithoutExtras returns e with every extra comparison removed, or nil when
// nothing else remains. Useful to re-attach a single extra to the remaining
// environment conditions.
func WithoutExtras(e Expr) Expr {
	switch n := e.(type) {
	case And:
		return joinWith(WithoutExtras(n.Left), WithoutExtras(n.Right), true)
	case Or:
		return joinWith(WithoutExtras(n.Left), WithoutExtras(n.Right), false)
	case Compare:
		if _, ok := extraOperand(n); ok {
			return nil
		}
		return n
	}
	return e
}

func joinWith(l, r Expr, and bool) Expr {
	switch {
	case l == nil:
		return r
	case r == nil:
		return l
	case and:
		return And{Left: l, Right: r}
	default:
		return Or{Left: l, Right: r}
	}
}
