package jobs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/quatton/qsys/pkg/jobstore"
)

// ErrInvalidFilter marks filter and orderBy strings the service cannot parse.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter is a compiled query-jobs filter.
type Filter struct {
	root boolNode
}

// Match reports whether j satisfies the filter. The zero Filter matches all.
func (f *Filter) Match(j *jobstore.Job) bool {
	if f == nil || f.root == nil {
		return true
	}
	return f.root.eval(j)
}

// ParseFilter compiles expr. The grammar is:
//
//	expr    = or
//	or      = and { ("||" | "or") and }
//	and     = unary { ("&&" | "and") unary }
//	unary   = ("!" | "not") unary | primary
//	primary = "(" expr ")" | operand [ ("=" | "==" | "!=") operand ]
//	operand = string | word | path [ "." method "(" string ")" ]
//
// A bare word is a literal when it is a number, true/false or a UUID, and a
// field path otherwise. Unknown fields are rejected, so `jid=abc` is an error
// while `jid="abc"` matches nothing.
func ParseFilter(expr string) (*Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return &Filter{}, nil
	}
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	cond, ok := root.(boolNode)
	if !ok {
		return nil, fmt.Errorf("%w: expression is not a condition", ErrInvalidFilter)
	}
	return &Filter{root: cond}, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokString
	tokWord
	tokLParen
	tokRParen
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-'
}

func lex(s string) ([]token, error) {
	var toks []token
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{tokEq, "==", i})
				i += 2
			} else {
				toks = append(toks, token{tokEq, "=", i})
				i++
			}
		case r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{tokNeq, "!=", i})
				i += 2
			} else {
				toks = append(toks, token{tokNot, "!", i})
				i++
			}
		case r == '&' || r == '|':
			if i+1 >= len(runes) || runes[i+1] != r {
				return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrInvalidFilter, string(r), i)
			}
			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}
			toks = append(toks, token{kind, string([]rune{r, r}), i})
			i += 2
		case r == '"' || r == '\'':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					b.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if c == r {
					closed = true
					i++
					break
				}
				b.WriteRune(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated string at position %d", ErrInvalidFilter, start)
			}
			toks = append(toks, token{tokString, b.String(), start})
		case isWordRune(r):
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			kind := tokWord
			switch strings.ToLower(word) {
			case "and":
				kind = tokAnd
			case "or":
				kind = tokOr
			case "not":
				kind = tokNot
			}
			toks = append(toks, token{kind, word, start})
		default:
			return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrInvalidFilter, string(r), i)
		}
	}
	toks = append(toks, token{tokEOF, "", len(runes)})
	return toks, nil
}

type parser struct {
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
	return fmt.Errorf("%w: %s at position %d", ErrInvalidFilter, fmt.Sprintf(format, args...), t.pos)
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		op := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l, r, err := p.bothBool(op, left, right)
		if err != nil {
			return nil, err
		}
		left = orNode{l, r}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l, r, err := p.bothBool(op, left, right)
		if err != nil {
			return nil, err
		}
		left = andNode{l, r}
	}
	return left, nil
}

func (p *parser) bothBool(op token, left, right node) (boolNode, boolNode, error) {
	l, ok1 := left.(boolNode)
	r, ok2 := right.(boolNode)
	if !ok1 || !ok2 {
		return nil, nil, p.errorf(op, "%q needs conditions on both sides", op.text)
	}
	return l, r, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokNot {
		op := p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		b, ok := inner.(boolNode)
		if !ok {
			return nil, p.errorf(op, "%q needs a condition", op.text)
		}
		return notNode{b}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, p.errorf(t, "expected \")\"")
		}
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if k := p.peek().kind; k != tokEq && k != tokNeq {
		return left, nil
	}
	op := p.next()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	lv, ok1 := left.(valueNode)
	rv, ok2 := right.(valueNode)
	if !ok1 || !ok2 {
		return nil, p.errorf(op, "%q compares values, not conditions", op.text)
	}
	if lv.kind() == kindList || rv.kind() == kindList {
		return nil, p.errorf(op, "lists cannot be compared with %q; use Contains", op.text)
	}
	return compareNode{left: lv, right: rv, negate: op.kind == tokNeq}, nil
}

func (p *parser) parseOperand() (node, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return literal(t.text), nil
	case tokWord:
		if isLiteralWord(t.text) {
			return literal(t.text), nil
		}
	default:
		return nil, p.errorf(t, "unexpected %q", t.text)
	}

	path := t.text
	var method string
	if p.peek().kind == tokLParen {
		i := strings.LastIndex(path, ".")
		if i <= 0 {
			return nil, p.errorf(t, "unknown function %q", path)
		}
		path, method = path[:i], path[i+1:]
	}

	field, err := resolveField(path)
	if err != nil {
		return nil, p.errorf(t, "%v", err)
	}
	if method == "" {
		return field, nil
	}

	p.next() // (
	arg := p.next()
	if arg.kind != tokString && !(arg.kind == tokWord && isLiteralWord(arg.text)) {
		return nil, p.errorf(arg, "%s expects a string argument", method)
	}
	if c := p.next(); c.kind != tokRParen {
		return nil, p.errorf(c, "expected \")\"")
	}

	switch method {
	case "Contains":
		return methodNode{field: field, arg: arg.text, fn: contains}, nil
	case "StartsWith", "EndsWith":
		if field.kind() == kindList {
			return nil, p.errorf(t, "%s is not defined on list field %q", method, path)
		}
		fn := strings.HasPrefix
		if method == "EndsWith" {
			fn = strings.HasSuffix
		}
		return methodNode{field: field, arg: arg.text, fn: stringFn(fn)}, nil
	}
	return nil, p.errorf(t, "unknown function %q", method)
}

func isLiteralWord(w string) bool {
	switch strings.ToLower(w) {
	case "true", "false":
		return true
	}
	if _, err := strconv.ParseFloat(w, 64); err == nil {
		return true
	}
	if _, err := uuid.Parse(w); err == nil {
		return true
	}
	return false
}

type valueKind int

const (
	kindScalar valueKind = iota
	kindList
	kindAny
)

type node any

type boolNode interface {
	eval(j *jobstore.Job) bool
}

type valueNode interface {
	kind() valueKind
	value(j *jobstore.Job) any
}

type literal string

func (literal) kind() valueKind           { return kindScalar }
func (l literal) value(*jobstore.Job) any { return string(l) }

type fieldNode struct {
	k   valueKind
	get func(j *jobstore.Job) any
}

func (f fieldNode) kind() valueKind           { return f.k }
func (f fieldNode) value(j *jobstore.Job) any { return f.get(j) }

func resolveField(path string) (fieldNode, error) {
	switch path {
	case "jid":
		return fieldNode{kindScalar, func(j *jobstore.Job) any { return j.JID }}, nil
	case "id":
		return fieldNode{kindScalar, func(j *jobstore.Job) any { return j.SystemID }}, nil
	case "state":
		return fieldNode{kindScalar, func(j *jobstore.Job) any { return string(j.State) }}, nil
	case "config.user":
		return fieldNode{kindScalar, func(j *jobstore.Job) any { return j.User }}, nil
	case "config.tgt":
		return fieldNode{kindList, func(j *jobstore.Job) any { return j.Targets }}, nil
	case "config.fun":
		return fieldNode{kindList, func(j *jobstore.Job) any { return j.Functions }}, nil
	}
	if key, ok := strings.CutPrefix(path, "metadata."); ok && key != "" {
		keys := strings.Split(key, ".")
		return fieldNode{kindAny, func(j *jobstore.Job) any { return lookup(j.Metadata, keys) }}, nil
	}
	return fieldNode{}, fmt.Errorf("no property or field %q exists on job", path)
}

func lookup(m map[string]any, keys []string) any {
	var cur any = m
	for _, k := range keys {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[k]
	}
	return cur
}

type compareNode struct {
	left, right valueNode
	negate      bool
}

func (c compareNode) eval(j *jobstore.Job) bool {
	eq := equal(c.left.value(j), c.right.value(j))
	return eq != c.negate
}

type methodNode struct {
	field fieldNode
	arg   string
	fn    func(v any, arg string) bool
}

func (m methodNode) eval(j *jobstore.Job) bool {
	return m.fn(m.field.value(j), m.arg)
}

// contains is substring match on strings and element match on lists.
func contains(v any, arg string) bool {
	switch t := v.(type) {
	case string:
		return strings.Contains(t, arg)
	case []string:
		for _, s := range t {
			if s == arg {
				return true
			}
		}
	case []any:
		for _, s := range t {
			if equal(s, arg) {
				return true
			}
		}
	}
	return false
}

func stringFn(fn func(s, affix string) bool) func(any, string) bool {
	return func(v any, arg string) bool {
		s, ok := v.(string)
		return ok && fn(s, arg)
	}
}

type andNode struct{ l, r boolNode }

func (n andNode) eval(j *jobstore.Job) bool { return n.l.eval(j) && n.r.eval(j) }

type orNode struct{ l, r boolNode }

func (n orNode) eval(j *jobstore.Job) bool { return n.l.eval(j) || n.r.eval(j) }

type notNode struct{ inner boolNode }

func (n notNode) eval(j *jobstore.Job) bool { return !n.inner.eval(j) }

// equal compares scalars by text, numerically when both sides are numbers
// and case-insensitively for booleans.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	if af, err := strconv.ParseFloat(as, 64); err == nil {
		if bf, err := strconv.ParseFloat(bs, 64); err == nil {
			return af == bf
		}
	}
	if _, ok := a.(bool); ok {
		return strings.EqualFold(as, bs)
	}
	if _, ok := b.(bool); ok {
		return strings.EqualFold(as, bs)
	}
	return as == bs
}
