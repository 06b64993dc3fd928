package symbolic

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric/exact"
)

// ErrSyntax is returned for text the evaluator cannot parse.
var ErrSyntax = errors.New("symbolic: syntax error")

// Env maps variable names to concrete values.
type Env struct {
	vars map[string]*big.Rat
}

func NewEnv() *Env {
	return &Env{vars: make(map[string]*big.Rat)}
}

// Get returns nil if name is unbound.
func (e *Env) Get(name string) *big.Rat {
	return e.vars[name]
}

func (e *Env) Set(name string, val *big.Rat) {
	e.vars[name] = val
}

// SetUint64 binds name to an integer value.
func (e *Env) SetUint64(name string, v uint64) {
	e.Set(name, new(big.Rat).SetInt(new(big.Int).SetUint64(v)))
}

// EvalProgram evaluates the assignment statements of a Gappa program in
// order, starting from the free variables bound in env. Directive lines
// beginning with '@' are skipped and evaluation stops at the query block.
// Each assignment is added to env and returned in order.
func EvalProgram(program string, env *Env) ([]numeric.Binding[*big.Rat], error) {
	var bindings []numeric.Binding[*big.Rat]
	for lineno, line := range strings.Split(program, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "@") {
			continue
		}
		if strings.HasPrefix(line, "{") {
			break
		}

		name, rhs, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || !isIdent(name) || !strings.HasSuffix(rhs, ";") {
			return nil, fmt.Errorf("%w: line %d: %q", ErrSyntax, lineno+1, line)
		}
		val, err := EvalExpr(strings.TrimSuffix(rhs, ";"), env)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno+1, err)
		}
		env.Set(name, val)
		bindings = append(bindings, numeric.Binding[*big.Rat]{Name: name, Value: val})
	}
	return bindings, nil
}

// EvalExpr evaluates a single expression over env.
func EvalExpr(text string, env *Env) (*big.Rat, error) {
	p := &parser{src: text, env: env}
	p.next()
	val, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.tok != "" {
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, p.tok)
	}
	return val, nil
}

// parser is a recursive-descent evaluator over the expression grammar the
// symbolic Domain emits:
//
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = "-" unary | primary
//	primary = number | ident | ("floor" | "ceil") "(" sum ")" | "(" sum ")"
type parser struct {
	src string
	pos int
	tok string
	env *Env
}

func (p *parser) next() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = ""
		return
	}
	start := p.pos
	c := p.src[p.pos]
	switch {
	case isDigit(c):
		p.pos++
		for p.pos < len(p.src) && (isIdentByte(p.src[p.pos]) ||
			(p.src[p.pos] == '-' && (p.src[p.pos-1] == 'p' || p.src[p.pos-1] == 'P'))) {
			p.pos++
		}
	case isIdentByte(c):
		for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
			p.pos++
		}
	default:
		p.pos++
	}
	p.tok = p.src[start:p.pos]
}

func (p *parser) sum() (*big.Rat, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.tok == "+" || p.tok == "-" {
		op := p.tok
		p.next()
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left = new(big.Rat).Add(left, right)
		} else {
			left = new(big.Rat).Sub(left, right)
		}
	}
	return left, nil
}

func (p *parser) product() (*big.Rat, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.tok == "*" || p.tok == "/" {
		op := p.tok
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "*" {
			left = new(big.Rat).Mul(left, right)
			continue
		}
		if right.Sign() == 0 {
			return nil, fmt.Errorf("symbolic: division by zero")
		}
		left = new(big.Rat).Quo(left, right)
	}
	return left, nil
}

func (p *parser) unary() (*big.Rat, error) {
	if p.tok == "-" {
		p.next()
		val, err := p.unary()
		if err != nil {
			return nil, err
		}
		return new(big.Rat).Neg(val), nil
	}
	return p.primary()
}

func (p *parser) primary() (*big.Rat, error) {
	tok := p.tok
	switch {
	case tok == "":
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	case tok == "(":
		p.next()
		return p.parenthesised()
	case tok == "floor" || tok == "ceil":
		p.next()
		if p.tok != "(" {
			return nil, fmt.Errorf("%w: expected ( after %s", ErrSyntax, tok)
		}
		p.next()
		val, err := p.parenthesised()
		if err != nil {
			return nil, err
		}
		if tok == "floor" {
			return new(big.Rat).SetInt(exact.Floor(val)), nil
		}
		return new(big.Rat).SetInt(exact.Ceil(val)), nil
	case isDigit(tok[0]):
		p.next()
		return parseNumber(tok)
	case isIdent(tok):
		p.next()
		val := p.env.Get(tok)
		if val == nil {
			return nil, fmt.Errorf("symbolic: unbound variable %q", tok)
		}
		return val, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, tok)
	}
}

func (p *parser) parenthesised() (*big.Rat, error) {
	val, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.tok != ")" {
		return nil, fmt.Errorf("%w: expected ), got %q", ErrSyntax, p.tok)
	}
	p.next()
	return val, nil
}

// parseNumber accepts decimal integers, hex integers and hex floats of
// the form 0x<mantissa>p<exp>.
func parseNumber(tok string) (*big.Rat, error) {
	lower := strings.ToLower(tok)
	if !strings.HasPrefix(lower, "0x") {
		n, ok := new(big.Int).SetString(tok, 10)
		if !ok {
			return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, tok)
		}
		return new(big.Rat).SetInt(n), nil
	}

	mant, exp, hasExp := strings.Cut(lower[2:], "p")
	n, ok := new(big.Int).SetString(mant, 16)
	if !ok {
		return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, tok)
	}
	val := new(big.Rat).SetInt(n)
	if !hasExp {
		return val, nil
	}
	e, err := strconv.Atoi(exp)
	if err != nil {
		return nil, fmt.Errorf("%w: bad exponent in %q", ErrSyntax, tok)
	}
	scale := new(big.Int).Lsh(big.NewInt(1), uint(max(e, -e)))
	if e < 0 {
		return val.Quo(val, new(big.Rat).SetInt(scale)), nil
	}
	return val.Mul(val, new(big.Rat).SetInt(scale)), nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}
