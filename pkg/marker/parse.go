package marker

import (
	"fmt"
	"strings"
	"unicode"

	errs "github.com/matzehuels/reposolve/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokString
	tokOp
	tokWord
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse parses marker text into an expression tree.
// Surrounding whitespace is ignored; empty text is an error.
func Parse(s string) (Expr, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &parser{src: s, toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return e, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// package-level literals.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, errs.New(errs.ErrCodeInvalidMarker, "unterminated string at %d in %q", i, s)
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end], i})
			i += end + 2
		case strings.ContainsRune("<>=!~", rune(c)):
			op := readOp(s[i:])
			if op == "" {
				return nil, errs.New(errs.ErrCodeInvalidMarker, "invalid operator at %d in %q", i, s)
			}
			toks = append(toks, token{tokOp, op, i})
			i += len(op)
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, token{tokWord, s[i:j], i})
			i = j
		default:
			return nil, errs.New(errs.ErrCodeInvalidMarker, "unexpected character %q at %d in %q", c, i, s)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

var operators = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

func readOp(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return c == '_' || c == '.' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return errs.New(errs.ErrCodeInvalidMarker, "%s at %d in %q", fmt.Sprintf(format, args...), t.pos, p.src)
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokWord && p.peek().text == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokWord && p.peek().text == "and" {
		p.next()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAtom() (Expr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, p.errorf(t, "expected \")\"")
		}
		return e, nil
	}

	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if !left.IsVariable() && !right.IsVariable() {
		return nil, p.errorf(p.peek(), "comparison %s %s %s has no variable", left, op, right)
	}
	return Compare{Left: left, Op: op, Right: right}, nil
}

func (p *parser) parseValue() (Value, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return Value{Literal: t.text}, nil
	case tokWord:
		if canonical, ok := aliases[t.text]; ok {
			return Value{Variable: canonical}, nil
		}
		if variables[t.text] {
			return Value{Variable: t.text}, nil
		}
		return Value{}, p.errorf(t, "unknown marker variable %q", t.text)
	case tokEOF:
		return Value{}, p.errorf(t, "unexpected end of marker")
	default:
		return Value{}, p.errorf(t, "expected variable or string, got %q", t.text)
	}
}

func (p *parser) parseOp() (Op, error) {
	t := p.next()
	switch {
	case t.kind == tokOp:
		return Op(t.text), nil
	case t.kind == tokWord && t.text == "in":
		return OpIn, nil
	case t.kind == tokWord && t.text == "not":
		if n := p.next(); n.kind != tokWord || n.text != "in" {
			return "", p.errorf(n, "expected \"in\" after \"not\"")
		}
		return OpNotIn, nil
	case t.kind == tokEOF:
		return "", p.errorf(t, "unexpected end of marker")
	default:
		return "", p.errorf(t, "expected operator, got %q", t.text)
	}
}
