package gappa

import (
	"fmt"
	"math/big"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/types"
)

// File extensions for the files written per cell.
const (
	ExtInput  = "g"
	ExtReport = "gappa_output"
	ExtProof  = "v"
)

// FileName returns the path of a per-cell file in dir. The base name
// encodes the denominator range and ordering.
func FileName(dir string, bmin, bmax uint64, aBigger bool, ext string) string {
	bigger := "b_bigger"
	if aBigger {
		bigger = "a_bigger"
	}
	return filepath.Join(dir, fmt.Sprintf("ddiv_%016X_%016X_%s.%s", bmin, bmax, bigger, ext))
}

// Gappa reports a discovered interval on the second line of its output:
//
//	Results:
//	  nquot - NQuot in [-1023p-4 {-63.9375, -2^(5.99887)}, 0]
//
// The braces hold a decimal rendering of the lower bound.
var (
	lowerBoundRe = regexp.MustCompile(`\{([^,]+)`)
	upperBoundRe = regexp.MustCompile(`\},\s*([^\]]+)\]\s*$`)
)

// ParseLowerBound extracts the lower end of the interval Gappa found.
func ParseLowerBound(report string) (*big.Rat, error) {
	lines := strings.Split(report, "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: gappa report has %d line(s)", types.ErrParse, len(lines))
	}
	m := lowerBoundRe.FindStringSubmatch(lines[1])
	if m == nil {
		return nil, fmt.Errorf("%w: no bound in %q", types.ErrParse, lines[1])
	}
	bound, ok := new(big.Rat).SetString(strings.TrimSpace(m[1]))
	if !ok {
		return nil, fmt.Errorf("%w: bad number %q", types.ErrParse, m[1])
	}
	return bound, nil
}

// UpperBoundIsZero reports whether the interval Gappa found ends at
// exactly 0. Anything it cannot recognise counts as false.
func UpperBoundIsZero(report string) bool {
	lines := strings.Split(report, "\n")
	if len(lines) < 2 {
		return false
	}
	m := upperBoundRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
	return m != nil && strings.TrimSpace(m[1]) == "0"
}
