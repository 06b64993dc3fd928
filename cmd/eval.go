package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/division"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric/exact"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/numeric/symbolic"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/recip"
)

var evalSymbolic bool

var evalCmd = &cobra.Command{
	Use:   "eval NUM DENOM",
	Short: "Trace the quotient estimate for one pair of mantissas",
	Long: `Runs the division algorithm on exact rationals for the 64-bit mantissas
NUM and DENOM, whose top bits must be set, and prints every intermediate
value. Integers print as hex; other values print with 64 fractional bits
in hex. The trace can be compared line by line with the diagnostics of
the assembly implementation.

With --symbolic the algorithm is instead turned into the Gappa program used
for proofs, and that program is evaluated on the same inputs. Both ways
must print the same trace.`,
	Example: `  ddiv-prove eval 0xC34F0D52F2478800 0xACE0971C2073F800`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := parseMantissa(args[0])
		if err != nil {
			return err
		}
		b, err := parseMantissa(args[1])
		if err != nil {
			return err
		}
		logger.Debug("evaluating",
			zap.String("a", fmt.Sprintf("0x%016X", a)),
			zap.String("b", fmt.Sprintf("0x%016X", b)),
			zap.Bool("symbolic", evalSymbolic))

		if evalSymbolic {
			return traceSymbolic(cmd.OutOrStdout(), a, b)
		}
		return traceExact(cmd.OutOrStdout(), a, b)
	},
}

func init() {
	evalCmd.Flags().BoolVar(&evalSymbolic, "symbolic", false, "Evaluate the generated Gappa program instead")
}

// parseMantissa accepts decimal, or hex, octal and binary with their Go
// prefixes.
func parseMantissa(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid mantissa %q: %w", s, err)
	}
	if v < 1<<63 {
		return 0, fmt.Errorf("mantissa 0x%X does not have its top bit set", v)
	}
	return v, nil
}

func traceExact(w io.Writer, a, b uint64) error {
	r08 := recip.Entry(int(b >> 56))
	d := exact.NewDomain(w)
	division.Calculate[exact.Rational](d,
		exact.FromUint64(a), exact.FromUint64(b), exact.FromInt64(int64(r08)), a > b)
	return nil
}

func traceSymbolic(w io.Writer, a, b uint64) error {
	r08 := recip.Entry(int(b >> 56))

	var program strings.Builder
	d := symbolic.NewDomain(&program)
	division.Calculate[symbolic.Expr](d,
		symbolic.Var("a"), symbolic.Var("b"), symbolic.Var("recip08"), a > b)
	if err := d.Err(); err != nil {
		return err
	}

	env := symbolic.NewEnv()
	env.SetUint64("a", a)
	env.SetUint64("b", b)
	env.SetUint64("recip08", uint64(r08))
	bindings, err := symbolic.EvalProgram(program.String(), env)
	if err != nil {
		return fmt.Errorf("failed to evaluate generated program: %w", err)
	}

	for _, name := range []string{"a", "b", "recip08"} {
		fmt.Fprintf(w, "%s = %s\n", name, exact.Format(env.Get(name)))
	}
	for _, bind := range bindings {
		fmt.Fprintf(w, "%s = %s\n", bind.Name, exact.Format(bind.Value))
	}
	return nil
}
