package cmd

import (
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var proveCmd = &cobra.Command{
	Use:   "prove ULPS",
	Short: "Prove that the error never exceeds ULPS in any cell",
	Long: `Asks Gappa to prove, for every partition cell, that the approximation error
lies in [ULPS,0], writes the Coq proof script Gappa produces, and checks it
with coqc. ULPS must be negative and may be a decimal or a fraction, for
example -63.9 or -639/10. Put -- before a negative ULPS so it is not read
as a flag.`,
	Example: `  ddiv-prove prove -- -63.9
  ddiv-prove --output-dir proofs --jobs 8 prove -- -639/10`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bound, err := parseBound(args[0])
		if err != nil {
			logger.Error("Invalid error bound", zap.Error(err))
			os.Exit(1)
		}

		ctx, cancel := runContext()
		defer cancel()

		ok, err := runCertify(ctx, newRunOptions(cmd), bound)
		if err != nil {
			logger.Fatal("Certification aborted", zap.Error(err))
		}
		if !ok {
			os.Exit(1)
		}
	},
}

func parseBound(s string) (*big.Rat, error) {
	bound, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	if bound.Sign() >= 0 {
		return nil, fmt.Errorf("bound %s must be negative", s)
	}
	return bound, nil
}
