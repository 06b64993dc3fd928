package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Ask Gappa for the error bound of every cell and report the worst",
	Long: `Runs Gappa once per partition cell to find an interval containing the
approximation error of the normalised quotient, prints the lower end for
each cell and the smallest over all cells.

The upper end is expected to be 0 and is only warned about, so a bound
found here should be confirmed with the prove command.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := runContext()
		defer cancel()

		ok, err := runSearch(ctx, newRunOptions(cmd))
		if err != nil {
			logger.Fatal("Search aborted", zap.Error(err))
		}
		if !ok {
			os.Exit(1)
		}
	},
}
