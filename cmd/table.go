package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/recip"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the reciprocal lookup table as assembler directives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return recip.WriteTable(cmd.OutOrStdout())
	},
}
