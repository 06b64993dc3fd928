package types

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrToolFailed marks a prover or checker run that exited non-zero.
	ErrToolFailed = errors.New("external tool failed")
	// ErrParse marks tool output that could not be understood.
	ErrParse = errors.New("unparseable tool output")
)

// NumCells is the number of partition cells: 128 table entries, each
// split by the ordering of a and b.
const NumCells = 256

// Cell is one region of the input space: denominators sharing their top
// 8 bits, and numerators either no smaller or no larger than the
// denominator.
type Cell struct {
	TopBits int
	ABigger bool
}

// BMin returns the smallest denominator in the cell.
func (c Cell) BMin() uint64 { return uint64(c.TopBits) << 56 }

// BMax returns the largest denominator in the cell.
func (c Cell) BMax() uint64 { return uint64(c.TopBits)<<56 | (1<<56 - 1) }

func (c Cell) String() string {
	return fmt.Sprintf("topbits=%02x a_bigger=%s", c.TopBits, pyBool(c.ABigger))
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// CellStatus tracks a cell through a run.
type CellStatus int

const (
	Pending CellStatus = iota
	ProverRunning
	ProverFailed
	CheckerRunning
	CheckerFailed
	// Bounded means search mode obtained a usable lower bound.
	Bounded
	Certified
	// BoundNotNegative means the prover ran but the bound it found for
	// the cell is zero or positive, so the cell cannot be certified.
	BoundNotNegative
)

var statusNames = [...]string{
	Pending:          "pending",
	ProverRunning:    "prover running",
	ProverFailed:     "gappa failed",
	CheckerRunning:   "checker running",
	CheckerFailed:    "coqc failed",
	Bounded:          "bounded",
	Certified:        "ok",
	BoundNotNegative: "bound not negative",
}

func (s CellStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("CellStatus(%d)", int(s))
	}
	return statusNames[s]
}

// Failed reports whether the status is a terminal failure.
func (s CellStatus) Failed() bool {
	return s == ProverFailed || s == CheckerFailed || s == BoundNotNegative
}

// CellResult is the outcome of processing one cell.
type CellResult struct {
	Cell   Cell
	Status CellStatus
	// LowerBound is the error bound found in search mode.
	LowerBound *big.Rat
	InputFile  string
	OutputFile string
	// Err says why a failed cell failed. It wraps ErrToolFailed when a
	// tool exited non-zero.
	Err    error
	Cached bool
}
