// Package workdir provides the directory that prover inputs, reports and
// proof files are written to.
package workdir

import (
	"fmt"
	"os"
)

// Acquire returns a directory to work in and a function that gives it
// back. A non-empty dir is created if missing and kept after release.
// An empty dir yields a fresh temporary directory that release removes
// along with its contents.
func Acquire(dir string) (path string, release func() error, err error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		return dir, func() error { return nil }, nil
	}

	tmp, err := os.MkdirTemp("", "ddiv-prove-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	return tmp, func() error { return os.RemoveAll(tmp) }, nil
}
