package trait

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrSyntax is returned for a malformed trigger expression.
	ErrSyntax = errors.New("trigger syntax error")
	// ErrUnknownMetric is returned when an expression names a metric the engine does not compute.
	ErrUnknownMetric = errors.New("unknown metric")
)

// Predicate is a compiled trigger condition over a fixed metric set.
// Grammar:
//
//	expr  := and { ("or" | "||") and }
//	and   := not { ("and" | "&&") not }
//	not   := ("not" | "!") not | cmp
//	cmp   := sum { ("<" | "<=" | ">" | ">=" | "==" | "!=") sum }
//	sum   := prod { ("+" | "-") prod }
//	prod  := unary { ("*" | "/") unary }
//	unary := "-" unary | number | metric | "true" | "false" | "(" expr ")"
//
// Chained comparisons read as in math: 0 < x <= 5 means 0 < x and x <= 5.
type Predicate struct {
	src  string
	root node
	refs []string
}

// Compile parses src and checks every identifier against the known metrics.
func Compile(src string) (*Predicate, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
	for _, name := range p.refs {
		if !IsMetric(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
	}
	return &Predicate{src: src, root: root, refs: p.refs}, nil
}

// Eval reports whether the condition holds. Missing metrics read as 0.
func (p *Predicate) Eval(m Metrics) bool {
	return truthy(p.root.eval(m))
}

// Metrics lists the metric names referenced, in first-use order.
func (p *Predicate) Metrics() []string { return p.refs }

func (p *Predicate) String() string { return p.src }

type node interface {
	eval(m Metrics) float64
}

type numNode float64

func (n numNode) eval(Metrics) float64 { return float64(n) }

type metricNode string

func (n metricNode) eval(m Metrics) float64 { return m[string(n)] }

type notNode struct{ x node }

func (n notNode) eval(m Metrics) float64 { return boolNum(!truthy(n.x.eval(m))) }

type negNode struct{ x node }

func (n negNode) eval(m Metrics) float64 { return -n.x.eval(m) }

type logicNode struct {
	and  bool
	l, r node
}

func (n logicNode) eval(m Metrics) float64 {
	l := truthy(n.l.eval(m))
	if n.and {
		return boolNum(l && truthy(n.r.eval(m)))
	}
	return boolNum(l || truthy(n.r.eval(m)))
}

type binNode struct {
	op   string
	l, r node
}

func (n binNode) eval(m Metrics) float64 {
	l, r := n.l.eval(m), n.r.eval(m)
	switch n.op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		if r == 0 {
			return math.NaN()
		}
		return l / r
	}
	return math.NaN()
}

// chainNode holds operands x0 op0 x1 op1 x2 ...
type chainNode struct {
	ops   []string
	terms []node
}

func (n chainNode) eval(m Metrics) float64 {
	l := n.terms[0].eval(m)
	for i, op := range n.ops {
		r := n.terms[i+1].eval(m)
		if !compare(op, l, r) {
			return 0
		}
		l = r
	}
	return 1
}

func compare(op string, l, r float64) bool {
	if math.IsNaN(l) || math.IsNaN(r) {
		return false
	}
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	case "==":
		return l == r
	case "!=":
		return l != r
	}
	return false
}

func truthy(v float64) bool { return v != 0 && !math.IsNaN(v) }

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c) || (c == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.' || rs[j] == '_') {
				j++
			}
			text := strings.ReplaceAll(string(rs[i:j]), "_", "")
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, string(rs[i:j]), i)
			}
			toks = append(toks, token{kind: tokNum, text: text, num: v, pos: i})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[i:j]), pos: i})
			i = j
		default:
			two := ""
			if i+1 < len(rs) {
				two = string(rs[i : i+2])
			}
			switch two {
			case "<=", ">=", "==", "!=", "&&", "||":
				toks = append(toks, token{kind: tokOp, text: two, pos: i})
				i += 2
				continue
			}
			if strings.ContainsRune("<>!+-*/()", c) {
				toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
				i++
				continue
			}
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, string(c), i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(rs)}), nil
}

type parser struct {
	toks []token
	i    int
	refs []string
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// accept consumes the next token if it is one of the given operators or keywords.
func (p *parser) accept(words ...string) bool {
	t := p.peek()
	if t.kind != tokOp && t.kind != tokIdent {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(t.text, w) && (t.kind == tokOp || isKeyword(t.text)) {
			p.i++
			return true
		}
	}
	return false
}

func isKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "and", "or", "not", "true", "false":
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("or", "||") {
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = logicNode{and: false, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept("and", "&&") {
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = logicNode{and: true, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseNot() (node, error) {
	if p.accept("not", "!") {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{x}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	first, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	chain := chainNode{terms: []node{first}}
	for {
		t := p.peek()
		if t.kind != tokOp || !isComparison(t.text) {
			break
		}
		p.next()
		r, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		chain.ops = append(chain.ops, t.text)
		chain.terms = append(chain.terms, r)
	}
	if len(chain.ops) == 0 {
		return first, nil
	}
	return chain, nil
}

func isComparison(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==", "!=":
		return true
	}
	return false
}

func (p *parser) parseSum() (node, error) {
	l, err := p.parseProd()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return l, nil
		}
		p.next()
		r, err := p.parseProd()
		if err != nil {
			return nil, err
		}
		l = binNode{op: t.text, l: l, r: r}
	}
}

func (p *parser) parseProd() (node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return l, nil
		}
		p.next()
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = binNode{op: t.text, l: l, r: r}
	}
}

func (p *parser) parseUnary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return numNode(t.num), nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return numNode(1), nil
		case "false":
			return numNode(0), nil
		case "and", "or", "not":
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
		}
		p.ref(t.text)
		return metricNode(t.text), nil
	case tokOp:
		switch t.text {
		case "-":
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return negNode{x}, nil
		case "(":
			x, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if c := p.next(); c.kind != tokOp || c.text != ")" {
				return nil, fmt.Errorf("%w: expected ) at %d", ErrSyntax, c.pos)
			}
			return x, nil
		}
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
}

func (p *parser) ref(name string) {
	for _, r := range p.refs {
		if r == name {
			return
		}
	}
	p.refs = append(p.refs, name)
}
