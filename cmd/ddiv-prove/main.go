package main

import (
	"fmt"
	"os"

	"github.com/ARM-software/optimized-routines/ddiv-prove/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
