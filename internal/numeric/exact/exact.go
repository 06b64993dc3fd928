package exact

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric"
)

// Rational is an exact fraction. The zero value is not usable; build one
// with FromUint64, FromInt64 or FromRat.
type Rational struct {
	r *big.Rat
}

func FromUint64(v uint64) Rational {
	return Rational{r: new(big.Rat).SetInt(new(big.Int).SetUint64(v))}
}

func FromInt64(v int64) Rational {
	return Rational{r: new(big.Rat).SetInt64(v)}
}

// FromRat copies r, so later changes to r do not affect the result.
func FromRat(r *big.Rat) Rational {
	return Rational{r: new(big.Rat).Set(r)}
}

// Rat returns a copy of the underlying fraction.
func (x Rational) Rat() *big.Rat {
	return new(big.Rat).Set(x.r)
}

func (x Rational) Add(y Rational) Rational {
	return Rational{r: new(big.Rat).Add(x.r, y.r)}
}

func (x Rational) Sub(y Rational) Rational {
	return Rational{r: new(big.Rat).Sub(x.r, y.r)}
}

func (x Rational) Neg() Rational {
	return Rational{r: new(big.Rat).Neg(x.r)}
}

func (x Rational) Mul(y Rational) Rational {
	return Rational{r: new(big.Rat).Mul(x.r, y.r)}
}

// Div panics if y is zero, like big.Rat.Quo.
func (x Rational) Div(y Rational) Rational {
	return Rational{r: new(big.Rat).Quo(x.r, y.r)}
}

func (x Rational) Floor() Rational {
	return Rational{r: new(big.Rat).SetInt(Floor(x.r))}
}

func (x Rational) Ceil() Rational {
	return Rational{r: new(big.Rat).SetInt(Ceil(x.r))}
}

func (x Rational) Cmp(y Rational) int {
	return x.r.Cmp(y.r)
}

func (x Rational) String() string {
	return Format(x.r)
}

// Floor returns the largest integer not greater than r.
func Floor(r *big.Rat) *big.Int {
	// Rat denominators are always positive, so Euclidean division
	// rounds toward negative infinity.
	return new(big.Int).Div(r.Num(), r.Denom())
}

// Ceil returns the smallest integer not less than r.
func Ceil(r *big.Rat) *big.Int {
	f := Floor(new(big.Rat).Neg(r))
	return f.Neg(f)
}

var two64 = new(big.Int).Lsh(big.NewInt(1), 64)

// Format renders r the way the division routine's diagnostic build prints
// its registers: an optional sign, the integer part in uppercase hex, and
// for non-integers a point followed by exactly 16 hex digits holding the
// fractional part scaled by 2^64 and truncated.
func Format(r *big.Rat) string {
	sign := ""
	val := new(big.Rat).Set(r)
	if val.Sign() < 0 {
		sign = "-"
		val.Neg(val)
	}

	intval := Floor(val)
	text := sign + "0x" + strings.ToUpper(intval.Text(16))
	if val.IsInt() {
		return text
	}

	frac := new(big.Rat).Sub(val, new(big.Rat).SetInt(intval))
	frac.Mul(frac, new(big.Rat).SetInt(two64))
	digits := strings.ToUpper(Floor(frac).Text(16))
	return text + "." + strings.Repeat("0", 16-len(digits)) + digits
}

// Domain evaluates the algorithm over concrete values. Every binding and
// debug value is printed to the writer as "name = value" and kept in
// order for later inspection.
type Domain struct {
	w     io.Writer
	trace []numeric.Binding[Rational]
}

var _ numeric.Domain[Rational] = (*Domain)(nil)

// NewDomain returns a Domain printing to w. A nil w only records.
func NewDomain(w io.Writer) *Domain {
	return &Domain{w: w}
}

func (d *Domain) PowerOf2(exp int) Rational {
	p := new(big.Int).Lsh(big.NewInt(1), uint(abs(exp)))
	if exp < 0 {
		return Rational{r: new(big.Rat).SetFrac(big.NewInt(1), p)}
	}
	return Rational{r: new(big.Rat).SetInt(p)}
}

func (d *Domain) Debug(name string, v Rational) {
	d.trace = append(d.trace, numeric.Binding[Rational]{Name: name, Value: v})
	if d.w != nil {
		fmt.Fprintf(d.w, "%s = %s\n", name, Format(v.r))
	}
}

// Define prints the binding and returns v itself.
func (d *Domain) Define(name string, v Rational) Rational {
	d.Debug(name, v)
	return v
}

// Trace returns the values reported so far, inputs first.
func (d *Domain) Trace() []numeric.Binding[Rational] {
	return d.trace
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
