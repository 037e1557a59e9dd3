package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// -----------------------------------------------------------------------
// AST nodes
// -----------------------------------------------------------------------

// Expr is the common interface for all AST nodes.
type Expr interface {
	exprNode()
}

// BinaryExpr represents "+" or "*".
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// PowerExpr represents <base> ^ <exponent>. The exponent is always a literal.
type PowerExpr struct {
	Base     Expr
	Exponent float64
}

// CallExpr represents a function call such as sin(x).
type CallExpr struct {
	Func string
	Args []Expr
}

// IdentExpr names an input or an earlier formula.
type IdentExpr struct {
	Name string
}

// NumberExpr holds a numeric literal.
type NumberExpr struct {
	Value float64
}

func (*BinaryExpr) exprNode() {}
func (*PowerExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*IdentExpr) exprNode()  {}
func (*NumberExpr) exprNode() {}

// Identifiers returns the distinct names referenced by expr, in order of
// first appearance.
func Identifiers(expr Expr) []string {
	var out []string
	seen := make(map[string]struct{})
	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *BinaryExpr:
			walk(e.Left)
			walk(e.Right)
		case *PowerExpr:
			walk(e.Base)
		case *CallExpr:
			for _, a := range e.Args {
				walk(a)
			}
		case *IdentExpr:
			if _, ok := seen[e.Name]; !ok {
				seen[e.Name] = struct{}{}
				out = append(out, e.Name)
			}
		}
	}
	walk(expr)
	return out
}

// -----------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------

type tokenKind int

const (
	tokIdent  tokenKind = iota // identifier or function name
	tokOp                      // + * ^
	tokNumber                  // 42 | 3.14 | -1.5 | 1e-3
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		ch := src[i]
		if unicode.IsSpace(rune(ch)) {
			i++
			continue
		}
		switch ch {
		case '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
			continue
		case ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
			continue
		case ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
			continue
		case '+', '*', '^':
			tokens = append(tokens, token{tokOp, string(ch), i})
			i++
			continue
		}
		// Numbers. '-' is only accepted as the sign of a literal.
		if unicode.IsDigit(rune(ch)) || ch == '.' || (ch == '-' && i+1 < len(src) && (unicode.IsDigit(rune(src[i+1])) || src[i+1] == '.')) {
			j := i
			if src[j] == '-' {
				j++
			}
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			// Exponent part.
			if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
				k := j + 1
				if k < len(src) && (src[k] == '+' || src[k] == '-') {
					k++
				}
				if k < len(src) && unicode.IsDigit(rune(src[k])) {
					for k < len(src) && unicode.IsDigit(rune(src[k])) {
						k++
					}
					j = k
				}
			}
			tokens = append(tokens, token{tokNumber, src[i:j], i})
			i = j
			continue
		}
		if isIdentStart(ch) {
			j := i
			for j < len(src) && (isIdentStart(src[j]) || unicode.IsDigit(rune(src[j]))) {
				j++
			}
			tokens = append(tokens, token{tokIdent, src[i:j], i})
			i = j
			continue
		}
		r, _ := utf8.DecodeRuneInString(src[i:])
		return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
	}
	tokens = append(tokens, token{tokEOF, "", len(src)})
	return tokens, nil
}

// isIdentStart reports whether ch may start an identifier. Identifiers are
// ASCII only.
func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

// -----------------------------------------------------------------------
// Recursive-descent parser
// -----------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) consume() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) expect(kind tokenKind, val string) error {
	t := p.peek()
	if t.kind != kind {
		if t.kind == tokEOF {
			return fmt.Errorf("expected %q but reached end of formula", val)
		}
		return fmt.Errorf("expected %q but got %q at position %d", val, t.val, t.pos)
	}
	p.consume()
	return nil
}

// Parse parses a formula into an AST.
func Parse(src string) (Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected token %q at position %d after formula", t.val, t.pos)
	}
	return node, nil
}

// sum = product ( "+" product )*
func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().val == "+" {
		p.consume()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "+", Left: left, Right: right}
	}
	return left, nil
}

// product = power ( "*" power )*
func (p *parser) parseProduct() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().val == "*" {
		p.consume()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "*", Left: left, Right: right}
	}
	return left, nil
}

// power = atom [ "^" number ]
func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokOp && p.peek().val == "^" {
		p.consume()
		exp, err := p.parseNumber("exponent")
		if err != nil {
			return nil, err
		}
		return &PowerExpr{Base: base, Exponent: exp}, nil
	}
	return base, nil
}

// atom = number | ident | call | "(" sum ")"
func (p *parser) parseAtom() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		v, err := p.parseNumber("number")
		if err != nil {
			return nil, err
		}
		return &NumberExpr{Value: v}, nil
	case tokIdent:
		p.consume()
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		return &IdentExpr{Name: t.val}, nil
	case tokLParen:
		p.consume()
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of formula")
	default:
		return nil, fmt.Errorf("expected operand, got %q at position %d", t.val, t.pos)
	}
}

// call = name "(" sum ( "," number )* ")"
func (p *parser) parseCall(name token) (Expr, error) {
	fn, ok := functions[strings.ToLower(name.val)]
	if !ok {
		return nil, fmt.Errorf("unknown function %q at position %d", name.val, name.pos)
	}
	p.consume() // "("
	arg, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	call := &CallExpr{Func: fn.name, Args: []Expr{arg}}
	for p.peek().kind == tokComma {
		p.consume()
		v, err := p.parseNumber("argument")
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, &NumberExpr{Value: v})
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	if len(call.Args) != fn.arity {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d", fn.name, fn.arity, len(call.Args))
	}
	return call, nil
}

func (p *parser) parseNumber(what string) (float64, error) {
	t := p.peek()
	if t.kind != tokNumber {
		if t.kind == tokEOF {
			return 0, fmt.Errorf("expected %s but reached end of formula", what)
		}
		return 0, fmt.Errorf("expected %s, got %q at position %d", what, t.val, t.pos)
	}
	p.consume()
	v, err := strconv.ParseFloat(t.val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q at position %d", t.val, t.pos)
	}
	return v, nil
}
