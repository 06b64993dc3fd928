package partition

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/cache"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/config"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/gappa"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/runner"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	args := m.Called(ctx, cmd)
	res, _ := args.Get(0).(*runner.Result)
	return res, args.Error(1)
}

func report(lower string) string {
	return "Results:\n  nquot - NQuot in [" + lower + " {" + lower + ", -2^(5)}, 0]\n"
}

func isProver(cmd runner.Command) bool  { return cmd.Binary == "gappa" }
func isChecker(cmd runner.Command) bool { return cmd.Binary == "coqc" }

// forCell matches prover or checker commands for the cell with the given
// table index and ordering, by file name or by the query on stdin.
func forCell(topbits int, aBigger bool) func(runner.Command) bool {
	cell := types.Cell{TopBits: topbits, ABigger: aBigger}
	name := strings.TrimSuffix(gappa.FileName("", cell.BMin(), cell.BMax(), aBigger, gappa.ExtInput), ".g")
	query := fmt.Sprintf("b in [0x%016X,0x%016X]", cell.BMin(), cell.BMax())
	ordering := "a/b <= 1"
	if aBigger {
		ordering = "a/b >= 1"
	}
	return func(cmd runner.Command) bool {
		for _, a := range cmd.Args {
			if strings.Contains(a, name) {
				return true
			}
		}
		return strings.Contains(cmd.Stdin, query) && strings.Contains(cmd.Stdin, ordering)
	}
}

func newDriver(t *testing.T, m *mockRunner) *Driver {
	t.Helper()
	m.Test(t)
	return &Driver{
		Runner: m,
		Config: config.Default(),
		Dir:    t.TempDir(),
		Jobs:   4,
	}
}

func countCalls(m *mockRunner, match func(runner.Command) bool) int {
	n := 0
	for _, c := range m.Calls {
		if match(c.Arguments.Get(1).(runner.Command)) {
			n++
		}
	}
	return n
}

func TestCells(t *testing.T) {
	t.Parallel()
	cells := Cells()
	require.Len(t, cells, types.NumCells)
	assert.Equal(t, types.Cell{TopBits: 0x80, ABigger: false}, cells[0])
	assert.Equal(t, types.Cell{TopBits: 0x80, ABigger: true}, cells[1])
	assert.Equal(t, types.Cell{TopBits: 0xFF, ABigger: true}, cells[255])

	seen := make(map[types.Cell]bool)
	for _, c := range cells {
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
		assert.Equal(t, uint64(c.TopBits), c.BMin()>>56)
		assert.Equal(t, uint64(c.TopBits), c.BMax()>>56)
		assert.Equal(t, c.BMin()+(1<<56-1), c.BMax())
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	m.On("Run", mock.Anything, mock.MatchedBy(forCell(0x80, true))).
		Return(&runner.Result{Stderr: report("-63.9375")}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(forCell(0xC3, false))).
		Return(&runner.Result{Stderr: report("-40.5")}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(isProver)).
		Return(&runner.Result{Stderr: report("-12.25")}, nil)

	d := newDriver(t, m)
	rep, err := d.Search(context.Background())
	require.NoError(t, err)

	assert.Zero(t, rep.Failed)
	assert.Equal(t, "-63.9375", rep.Worst.FloatString(4))
	require.Len(t, rep.Results, types.NumCells)
	for i, res := range rep.Results {
		assert.Equal(t, Cells()[i], res.Cell)
		assert.Equal(t, types.Bounded, res.Status)
		assert.Negative(t, res.LowerBound.Sign())
		assert.FileExists(t, res.InputFile)
		assert.FileExists(t, res.OutputFile)
	}
	assert.Equal(t, "-40.5000", rep.Results[2*(0xC3-0x80)].LowerBound.FloatString(4))
	assert.Equal(t, types.NumCells, countCalls(m, isProver))

	saved, err := os.ReadFile(rep.Results[1].OutputFile)
	require.NoError(t, err)
	assert.Equal(t, report("-63.9375"), string(saved))
}

func TestSearchFailedCell(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	m.On("Run", mock.Anything, mock.MatchedBy(forCell(0x9A, false))).
		Return(&runner.Result{ExitCode: 1, Stderr: "Error: nothing to prove\n"}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(forCell(0x9B, false))).
		Return(&runner.Result{Stderr: "Results:\n  x in [0 {0, 0}, 1 {1, 1}]\n"}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(isProver)).
		Return(&runner.Result{Stderr: report("-2")}, nil)

	d := newDriver(t, m)
	rep, err := d.Search(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, "-2.0000", rep.Worst.FloatString(4))

	failed := rep.Results[2*(0x9A-0x80)]
	assert.Equal(t, types.ProverFailed, failed.Status)
	assert.ErrorIs(t, failed.Err, types.ErrToolFailed)
	assert.Contains(t, failed.Err.Error(), "nothing to prove")

	nonNegative := rep.Results[2*(0x9B-0x80)]
	assert.Equal(t, types.BoundNotNegative, nonNegative.Status)
	assert.Equal(t, "bound not negative", nonNegative.Status.String())
	assert.NotErrorIs(t, nonNegative.Err, types.ErrToolFailed)
	assert.EqualError(t, nonNegative.Err, "lower bound 0.0000 is not negative")
	assert.Equal(t, 0, nonNegative.LowerBound.Sign())
}

func TestSearchUnparseableReport(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	m.On("Run", mock.Anything, mock.Anything).
		Return(&runner.Result{Stderr: "something unexpected\n"}, nil)

	d := newDriver(t, m)
	d.Jobs = 1
	_, err := d.Search(context.Background())
	assert.ErrorIs(t, err, types.ErrParse)
	assert.Equal(t, 1, countCalls(m, isProver))
}

func TestSearchRunnerError(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	m.On("Run", mock.Anything, mock.Anything).
		Return(nil, errors.New("exec: \"gappa\": executable file not found"))

	d := newDriver(t, m)
	_, err := d.Search(context.Background())
	assert.ErrorContains(t, err, "executable file not found")
}

func TestSearchOrderedCallback(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	m.On("Run", mock.Anything, mock.Anything).
		Return(&runner.Result{Stderr: report("-1")}, nil)

	var (
		mu   sync.Mutex
		seen []types.Cell
	)
	d := newDriver(t, m)
	d.Jobs = 16
	d.OnCellDone = func(res types.CellResult) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, res.Cell)
	}
	_, err := d.Search(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Cells(), seen)
}

func TestSearchReuse(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c, err := cache.New(dir)
	require.NoError(t, err)

	first := new(mockRunner)
	first.On("Run", mock.Anything, mock.Anything).
		Return(&runner.Result{Stderr: report("-7.5")}, nil)
	d := newDriver(t, first)
	d.Dir = dir
	d.Cache = c
	_, err = d.Search(context.Background())
	require.NoError(t, err)

	// Every cell is settled, so the second run never starts the prover.
	second := new(mockRunner)
	d2 := newDriver(t, second)
	d2.Dir = dir
	d2.Cache = c
	rep, err := d2.Search(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "-7.5000", rep.Worst.FloatString(4))
	for _, res := range rep.Results {
		assert.True(t, res.Cached)
	}
	assert.Empty(t, second.Calls)
}

func TestCertify(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	m.On("Run", mock.Anything, mock.MatchedBy(isProver)).
		Return(&runner.Result{Stdout: "Require Import Gappa.Gappa_library.\n"}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(isChecker)).
		Return(&runner.Result{}, nil)

	d := newDriver(t, m)
	rep, err := d.Certify(context.Background(), big.NewRat(-64, 1))
	require.NoError(t, err)

	assert.True(t, rep.OK)
	for _, res := range rep.Results {
		assert.Equal(t, types.Certified, res.Status)
		assert.NoError(t, res.Err)
	}
	assert.Equal(t, types.NumCells, countCalls(m, isProver))
	assert.Equal(t, types.NumCells, countCalls(m, isChecker))

	first := rep.Results[0]
	proof, err := os.ReadFile(first.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "Require Import Gappa.Gappa_library.\n", string(proof))

	input, err := os.ReadFile(first.InputFile)
	require.NoError(t, err)
	assert.Contains(t, string(input), "nquot - NQuot in [-64.0000,0] }")

	// The prover reads its input on stdin and the checker gets the proof file.
	for _, c := range m.Calls {
		cmd := c.Arguments.Get(1).(runner.Command)
		switch {
		case isProver(cmd):
			assert.Equal(t, []string{"-Bcoq"}, cmd.Args)
			assert.NotEmpty(t, cmd.Stdin)
		case isChecker(cmd):
			require.Len(t, cmd.Args, 1)
			assert.True(t, strings.HasSuffix(cmd.Args[0], ".v"))
		}
	}
}

func TestCertifyFailures(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	m.On("Run", mock.Anything, mock.MatchedBy(forCell(0x80, false))).
		Return(&runner.Result{ExitCode: 1}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(isProver)).
		Return(&runner.Result{Stdout: "proof"}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(forCell(0xFF, true))).
		Return(&runner.Result{ExitCode: 1, Stderr: "Error: tactic failed\n"}, nil)
	m.On("Run", mock.Anything, mock.MatchedBy(isChecker)).
		Return(&runner.Result{}, nil)

	d := newDriver(t, m)
	rep, err := d.Certify(context.Background(), big.NewRat(-639, 10))
	require.NoError(t, err)

	assert.False(t, rep.OK)
	assert.Equal(t, types.ProverFailed, rep.Results[0].Status)
	assert.Equal(t, "gappa failed", rep.Results[0].Status.String())
	assert.Equal(t, types.CheckerFailed, rep.Results[255].Status)
	assert.Equal(t, "coqc failed", rep.Results[255].Status.String())
	assert.ErrorIs(t, rep.Results[255].Err, types.ErrToolFailed)
	for _, res := range rep.Results[1:255] {
		assert.Equal(t, types.Certified, res.Status)
	}

	// A cell the prover failed on never reaches the checker.
	assert.Equal(t, types.NumCells-1, countCalls(m, isChecker))
}

func TestCertifyInsufficientBound(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	tooTight := func(cmd runner.Command) bool {
		return isProver(cmd) && strings.Contains(cmd.Stdin, "in [-1.0000,0]")
	}
	m.On("Run", mock.Anything, mock.MatchedBy(tooTight)).
		Return(&runner.Result{ExitCode: 1, Stderr: "Error: some properties were not satisfied\n"}, nil)
	m.On("Run", mock.Anything, mock.Anything).
		Return(&runner.Result{}, nil)

	d := newDriver(t, m)
	rep, err := d.Certify(context.Background(), big.NewRat(-1, 1))
	require.NoError(t, err)
	assert.False(t, rep.OK)
	for _, res := range rep.Results {
		assert.Equal(t, types.ProverFailed, res.Status)
	}
	assert.Zero(t, countCalls(m, isChecker))
}

func TestCertifyRejectsNonNegativeBound(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	d := newDriver(t, m)

	for _, bound := range []*big.Rat{nil, big.NewRat(0, 1), big.NewRat(1, 2)} {
		_, err := d.Certify(context.Background(), bound)
		assert.Error(t, err)
	}
	assert.Empty(t, m.Calls)
}

func TestCertifyCanceled(t *testing.T) {
	t.Parallel()
	m := new(mockRunner)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDriver(t, m)
	_, err := d.Certify(ctx, big.NewRat(-64, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.Calls)
}
