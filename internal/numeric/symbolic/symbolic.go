// Package symbolic implements the numeric contract by building Gappa
// expressions over free variables instead of computing anything. Running
// the division algorithm through it writes one Gappa assignment per
// named intermediate value.
package symbolic

import (
	"fmt"
	"io"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric"
)

// Expr holds the text of a Gappa expression. Every compound expression is
// fully parenthesised so operator precedence never matters when it is
// embedded in a larger one.
type Expr struct {
	text string
}

// Var returns an expression naming a free variable or an earlier binding.
func Var(name string) Expr {
	return Expr{text: name}
}

func (e Expr) String() string {
	return e.text
}

func (e Expr) Add(o Expr) Expr {
	return Expr{text: fmt.Sprintf("(%s + %s)", e.text, o.text)}
}

func (e Expr) Sub(o Expr) Expr {
	return Expr{text: fmt.Sprintf("(%s - %s)", e.text, o.text)}
}

func (e Expr) Neg() Expr {
	return Expr{text: fmt.Sprintf("-(%s)", e.text)}
}

func (e Expr) Mul(o Expr) Expr {
	return Expr{text: fmt.Sprintf("(%s * %s)", e.text, o.text)}
}

func (e Expr) Div(o Expr) Expr {
	return Expr{text: fmt.Sprintf("(%s / %s)", e.text, o.text)}
}

func (e Expr) Floor() Expr {
	return Expr{text: fmt.Sprintf("floor(%s)", e.text)}
}

func (e Expr) Ceil() Expr {
	return Expr{text: fmt.Sprintf("ceil(%s)", e.text)}
}

// PowerOf2Literal is the Gappa spelling of 2^exp: "1" for 2^0 and the
// C hex-float form 0x1pN otherwise.
func PowerOf2Literal(exp int) string {
	if exp == 0 {
		return "1"
	}
	return fmt.Sprintf("0x1p%d", exp)
}

// Domain writes each binding as a Gappa assignment statement.
type Domain struct {
	w   io.Writer
	err error
}

var _ numeric.Domain[Expr] = (*Domain)(nil)

func NewDomain(w io.Writer) *Domain {
	return &Domain{w: w}
}

func (d *Domain) PowerOf2(exp int) Expr {
	return Expr{text: PowerOf2Literal(exp)}
}

// Define emits "name = expr;" and returns a reference to name, so the
// generated text grows linearly with the number of stages.
func (d *Domain) Define(name string, v Expr) Expr {
	if d.err == nil {
		_, d.err = fmt.Fprintf(d.w, "%s = %s;\n", name, v.text)
	}
	return Var(name)
}

// Debug is a no-op: symbolic inputs have no value to show.
func (d *Domain) Debug(string, Expr) {}

// Err returns the first error the underlying writer reported.
func (d *Domain) Err() error {
	return d.err
}
