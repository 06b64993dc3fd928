// Package division describes the reciprocal and quotient approximation
// performed by the ddiv.S division routine. The description is generic
// over numeric.Domain, so the same code either computes exact results for
// concrete mantissas or emits Gappa definitions for the prover.
package division

import "github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric"

// Result is the normalised approximate quotient and the true quotient at
// the same scale. nquot - NQuot is the approximation error in units of the
// last place of the 64-bit result.
type Result[T any] struct {
	NQuot     T
	TrueNQuot T
}

// Calculate runs the algorithm. a and b are the numerator and denominator
// mantissas with their leading 1 bit, scaled into [2^63,2^64). recip08 is
// the table entry for the top 8 bits of b. aBigger reports which input is
// expected to be greater; when it is false the quotient is shifted left by
// one bit to renormalise it.
func Calculate[T numeric.Value[T]](d numeric.Domain[T], a, b, recip08 T, aBigger bool) Result[T] {
	p := d.PowerOf2

	d.Debug("a", a)
	d.Debug("b", b)
	d.Debug("recip08", recip08)

	// True reciprocal at the scale of recip08.
	d.Define("Recip08", p(71).Div(b))

	// 8 -> 16 bits, from the top 16 bits of b. The shift by 14 puts the
	// result in [2^16,2^17).
	recip16 := d.Define("recip16",
		recip08.Mul(p(24).Sub(recip08.Mul(b.Div(p(48)).Floor()))).Div(p(14)).Floor())
	d.Define("Recip16", p(80).Div(b))

	// 16 -> 32 bits, from the top 31 bits of b.
	recip32 := d.Define("recip32",
		recip16.Mul(p(48).Sub(recip16.Mul(b.Div(p(33)).Floor()))).Div(p(32)).Floor())
	d.Define("Recip32", p(95).Div(b))

	// 32 -> 64 bits, from all of b. The routine negates the top half of
	// recip32*b with a one's complement, i.e. 2^64 - (floor(x/2^32) + 1).
	// For integer x that equals 2^64 - ceil((x+1)/2^32), which is the form
	// Gappa can reason about.
	recip64 := d.Define("recip64",
		recip32.Mul(p(64).Sub(recip32.Mul(b).Add(p(0)).Div(p(32)).Ceil())).Div(p(32)).Floor())
	trueRecip64 := d.Define("Recip64", p(126).Div(b))

	// Truncated 64x64 -> top 64 multiply of a by recip64, from 32-bit
	// halves. al*rl is never computed and the low halves of the two
	// middle products are dropped instead of being carried.
	ah := d.Define("ah", a.Div(p(32)).Floor())
	al := d.Define("al", a.Div(p(32)).Sub(ah))
	rh := d.Define("rh", recip64.Div(p(32)).Floor())
	rl := d.Define("rl", recip64.Div(p(32)).Sub(rh))

	// The full 128-bit product, scaled so its top half is the integer part.
	d.Define("fullquot", a.Mul(recip64).Div(p(64)))
	// What the truncation throws away. Unused below; the multiply hint
	// refers to it by name.
	d.Define("mul_error",
		al.Neg().Mul(rl).
			Sub(ah.Mul(rl).Sub(ah.Mul(rl).Floor())).
			Sub(al.Mul(rh).Sub(al.Mul(rh).Floor())))
	quot := d.Define("quot", ah.Mul(rh).Add(ah.Mul(rl).Floor()).Add(al.Mul(rh).Floor()))
	trueQuot := d.Define("Quot", a.Mul(trueRecip64).Div(p(64)))

	renorm := 1
	if aBigger {
		renorm = 0
	}
	return Result[T]{
		NQuot:     d.Define("nquot", quot.Mul(p(renorm))),
		TrueNQuot: d.Define("NQuot", trueQuot.Mul(p(renorm))),
	}
}
