package gappa

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/division"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric/symbolic"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/recip"
)

const preamble = `@floor = int<dn>;
@ceil = int<up>;

`

// Each Newton-Raphson hint rewrites the error of one iteration, with the
// floor and ceil operations removed, into a form with a squared factor of
// the previous iteration's error. Gappa verifies that both sides agree;
// the hint only tells it the rewrite is worth trying.
const iterationHints = `
(recip08 * (0x1p24 - recip08 * (b/0x1p48))) / 0x1p14 - Recip16 ->
  (-(recip08 - Recip08) * (recip08 - Recip08) * b / 0x1p62)
  { b <> 0 };

(recip16 * (0x1p48 - recip16 * (b/0x1p33))) / 0x1p32 - Recip32 ->
  (-(recip16 - Recip16) * (recip16 - Recip16) * b / 0x1p65)
  { b <> 0 };

(recip32 * ((0x1p64 - (recip32 * b + 1) / 0x1p32)) / 0x1p32) - Recip64 ->
  (-(recip32 - Recip32) * (recip32 - Recip32) * b / 0x1p64) - recip32/0x1p64
  { b <> 0 };
`

// The truncated multiply differs from the full product only by the
// discarded terms collected in mul_error.
const multiplyHint = `
quot - Quot -> fullquot - Quot + mul_error { b <> 0 };
`

// Input returns a Gappa program bounding nquot - NQuot for denominators in
// [bmin,bmax] (inclusive) and numerators on the side of b given by aBigger.
//
// With a nil errbound Gappa is asked to find the error interval. Otherwise
// it is asked to prove the error lies in [errbound,0], so errbound should
// be negative.
//
// Input panics unless 2^63 <= bmin <= bmax < 2^64 and both bounds share
// their top 8 bits, since a single table entry must cover the range.
func Input(bmin, bmax uint64, aBigger bool, errbound *big.Rat) string {
	if bmin < 1<<63 || bmin > bmax {
		panic(fmt.Sprintf("gappa: bad denominator range [0x%016X,0x%016X]", bmin, bmax))
	}
	topbits := int(bmin >> 56)
	if topbits != int(bmax>>56) {
		panic(fmt.Sprintf("gappa: range [0x%016X,0x%016X] spans more than one table entry", bmin, bmax))
	}
	r08 := recip.Entry(topbits)

	var sb strings.Builder
	sb.WriteString(preamble)

	d := symbolic.NewDomain(&sb)
	division.Calculate[symbolic.Expr](d,
		symbolic.Var("a"), symbolic.Var("b"), symbolic.Var("recip08"), aBigger)

	abConstraint := "a/b <= 1"
	if aBigger {
		abConstraint = "a/b >= 1"
	}
	interval := "?"
	if errbound != nil {
		interval = fmt.Sprintf("[%s,0]", errbound.FloatString(4))
	}
	fmt.Fprintf(&sb, `
{ b in [0x%016X,0x%016X] /\
  recip08 = 0x%02X /\
  a in [0x8000000000000000, 0xFFFFFFFFFFFFFFFF] /\ %s ->
  nquot - NQuot in %s }
`, bmin, bmax, r08, abConstraint, interval)

	sb.WriteString(iterationHints)
	sb.WriteString(multiplyHint)
	return sb.String()
}
