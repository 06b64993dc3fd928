package partition

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/cache"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/config"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/gappa"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/runner"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/types"
)

const (
	modeSearch  = "search"
	modeCertify = "certify"
)

// Driver runs the prover over all cells.
type Driver struct {
	Runner runner.Runner
	Config config.Config
	// Logger may be nil.
	Logger *zap.Logger
	// Dir receives the per-cell files. It must exist.
	Dir string
	// Jobs bounds how many cells are processed at once. Values below 1
	// mean 1.
	Jobs int
	// Cache, when set, lets cells settled by an earlier run over the
	// same Dir be skipped.
	Cache *cache.Cache
	// OnCellDone is called once per cell, in the order of Cells, as soon
	// as that cell and all earlier ones have finished. Calls never
	// overlap.
	OnCellDone func(types.CellResult)
}

// SearchReport is the outcome of Search.
type SearchReport struct {
	Results []types.CellResult
	// Worst is the smallest lower bound over all bounded cells, or 0 if
	// there are none.
	Worst *big.Rat
	// Failed counts cells without a usable bound.
	Failed int
}

// CertifyReport is the outcome of Certify.
type CertifyReport struct {
	Results []types.CellResult
	Bound   *big.Rat
	// OK is true only if every cell was certified.
	OK bool
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Search finds a lower bound on the approximation error of every cell.
// A cell whose prover run fails, or whose bound is not negative, is
// reported as failed and the run continues. Unreadable prover output
// and I/O errors end the run with an error.
func (d *Driver) Search(ctx context.Context) (*SearchReport, error) {
	results, err := d.run(ctx, d.searchCell)
	if err != nil {
		return nil, err
	}

	report := &SearchReport{Results: results, Worst: new(big.Rat)}
	for _, res := range results {
		if res.Status != types.Bounded {
			report.Failed++
			continue
		}
		if res.LowerBound.Cmp(report.Worst) < 0 {
			report.Worst.Set(res.LowerBound)
		}
	}
	d.logger().Info("search finished",
		zap.String("worst", report.Worst.FloatString(4)),
		zap.Int("failed", report.Failed))
	return report, nil
}

// Certify tries to prove that the error of every cell lies in
// [bound,0]. bound must be negative. Cell failures are recorded and the
// run continues.
func (d *Driver) Certify(ctx context.Context, bound *big.Rat) (*CertifyReport, error) {
	if bound == nil || bound.Sign() >= 0 {
		return nil, errors.New("error bound must be negative")
	}
	bound = new(big.Rat).Set(bound)

	results, err := d.run(ctx, func(ctx context.Context, cell types.Cell) (types.CellResult, error) {
		return d.certifyCell(ctx, cell, bound)
	})
	if err != nil {
		return nil, err
	}

	report := &CertifyReport{Results: results, Bound: bound, OK: true}
	failed := 0
	for _, res := range results {
		if res.Status != types.Certified {
			report.OK = false
			failed++
		}
	}
	d.logger().Info("certification finished",
		zap.String("bound", bound.FloatString(4)),
		zap.Bool("ok", report.OK),
		zap.Int("failed", failed))
	return report, nil
}

type cellFunc func(ctx context.Context, cell types.Cell) (types.CellResult, error)

func (d *Driver) run(ctx context.Context, process cellFunc) ([]types.CellResult, error) {
	cells := Cells()
	jobs := d.Jobs
	if jobs < 1 {
		jobs = 1
	}

	em := newEmitter(len(cells), d.OnCellDone)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, cell := range cells {
		i, cell := i, cell
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := process(ctx, cell)
			if err != nil {
				d.logger().Error("cell aborted", zap.Stringer("cell", cell), zap.Error(err))
				return fmt.Errorf("%s: %w", cell, err)
			}
			em.finish(i, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return em.results, nil
}

func (d *Driver) transition(res *types.CellResult, to types.CellStatus) {
	d.logger().Debug("cell status",
		zap.Stringer("cell", res.Cell),
		zap.Stringer("from", res.Status),
		zap.Stringer("to", to))
	res.Status = to
}

func (d *Driver) writeInput(cell types.Cell, input string) (string, error) {
	name := gappa.FileName(d.Dir, cell.BMin(), cell.BMax(), cell.ABigger, gappa.ExtInput)
	if err := os.WriteFile(name, []byte(input), 0o644); err != nil {
		return "", fmt.Errorf("failed to write prover input: %w", err)
	}
	return name, nil
}

func (d *Driver) searchCell(ctx context.Context, cell types.Cell) (types.CellResult, error) {
	res := types.CellResult{Cell: cell}
	input := gappa.Input(cell.BMin(), cell.BMax(), cell.ABigger, nil)
	inFile, err := d.writeInput(cell, input)
	if err != nil {
		return res, err
	}
	res.InputFile = inFile
	res.OutputFile = gappa.FileName(d.Dir, cell.BMin(), cell.BMax(), cell.ABigger, gappa.ExtReport)

	key := cache.Key(modeSearch, input)
	if d.Cache != nil {
		if entry, ok := d.Cache.Get(key); ok {
			if bound, ok := new(big.Rat).SetString(entry.LowerBound); ok {
				res.LowerBound = bound
				res.Cached = true
				d.transition(&res, types.Bounded)
				return res, nil
			}
		}
	}

	d.transition(&res, types.ProverRunning)
	out, err := d.Runner.Run(ctx, runner.Command{
		Binary: d.Config.Prover,
		Args:   joinArgs(d.Config.ProverArgs, inFile),
	})
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(res.OutputFile, []byte(out.Stderr), 0o644); err != nil {
		return res, fmt.Errorf("failed to write prover report: %w", err)
	}
	if !out.Success() {
		res.Err = toolFailure(d.Config.Prover, out)
		d.transition(&res, types.ProverFailed)
		return res, nil
	}

	bound, err := gappa.ParseLowerBound(out.Stderr)
	if err != nil {
		return res, fmt.Errorf("%s: %w", res.OutputFile, err)
	}
	if !gappa.UpperBoundIsZero(out.Stderr) {
		d.logger().Warn("error interval does not end at 0",
			zap.Stringer("cell", cell),
			zap.String("report", res.OutputFile))
	}
	res.LowerBound = bound
	if bound.Sign() >= 0 {
		res.Err = fmt.Errorf("lower bound %s is not negative", bound.FloatString(4))
		d.transition(&res, types.BoundNotNegative)
		return res, nil
	}
	d.transition(&res, types.Bounded)

	if d.Cache != nil {
		entry := cache.Entry{LowerBound: bound.RatString(), Artifact: res.OutputFile}
		if err := d.Cache.Set(key, entry); err != nil {
			d.logger().Warn("failed to cache result", zap.Stringer("cell", cell), zap.Error(err))
		}
	}
	return res, nil
}

func (d *Driver) certifyCell(ctx context.Context, cell types.Cell, bound *big.Rat) (types.CellResult, error) {
	res := types.CellResult{Cell: cell}
	input := gappa.Input(cell.BMin(), cell.BMax(), cell.ABigger, bound)
	inFile, err := d.writeInput(cell, input)
	if err != nil {
		return res, err
	}
	res.InputFile = inFile
	res.OutputFile = gappa.FileName(d.Dir, cell.BMin(), cell.BMax(), cell.ABigger, gappa.ExtProof)

	key := cache.Key(modeCertify, input)
	if d.Cache != nil {
		if _, ok := d.Cache.Get(key); ok {
			res.Cached = true
			d.transition(&res, types.Certified)
			return res, nil
		}
	}

	d.transition(&res, types.ProverRunning)
	out, err := d.Runner.Run(ctx, runner.Command{
		Binary: d.Config.Prover,
		Args:   joinArgs(d.Config.ProverArgs, "-Bcoq"),
		Stdin:  input,
	})
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(res.OutputFile, []byte(out.Stdout), 0o644); err != nil {
		return res, fmt.Errorf("failed to write proof script: %w", err)
	}
	if !out.Success() {
		res.Err = toolFailure(d.Config.Prover, out)
		d.transition(&res, types.ProverFailed)
		return res, nil
	}

	d.transition(&res, types.CheckerRunning)
	out, err = d.Runner.Run(ctx, runner.Command{
		Binary: d.Config.Checker,
		Args:   joinArgs(d.Config.CheckerArgs, res.OutputFile),
	})
	if err != nil {
		return res, err
	}
	if !out.Success() {
		res.Err = toolFailure(d.Config.Checker, out)
		d.transition(&res, types.CheckerFailed)
		return res, nil
	}
	d.transition(&res, types.Certified)

	if d.Cache != nil {
		if err := d.Cache.Set(key, cache.Entry{Artifact: res.OutputFile}); err != nil {
			d.logger().Warn("failed to cache result", zap.Stringer("cell", cell), zap.Error(err))
		}
	}
	return res, nil
}

func joinArgs(base []string, extra ...string) []string {
	args := make([]string, 0, len(base)+len(extra))
	args = append(args, base...)
	return append(args, extra...)
}

// toolFailure keeps the last line a failed tool wrote, which is usually
// the one naming the problem.
func toolFailure(binary string, out *runner.Result) error {
	text := strings.TrimSpace(out.Stderr)
	if text == "" {
		text = strings.TrimSpace(out.Stdout)
	}
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	if text == "" {
		return fmt.Errorf("%w: %s: exit status %d", types.ErrToolFailed, binary, out.ExitCode)
	}
	return fmt.Errorf("%w: %s: exit status %d: %s", types.ErrToolFailed, binary, out.ExitCode, text)
}

// emitter hands finished results to a callback in cell order.
type emitter struct {
	mu      sync.Mutex
	results []types.CellResult
	done    []bool
	next    int
	fn      func(types.CellResult)
}

func newEmitter(n int, fn func(types.CellResult)) *emitter {
	return &emitter{
		results: make([]types.CellResult, n),
		done:    make([]bool, n),
		fn:      fn,
	}
}

func (e *emitter) finish(i int, res types.CellResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.results[i] = res
	e.done[i] = true
	for e.next < len(e.done) && e.done[e.next] {
		if e.fn != nil {
			e.fn(e.results[e.next])
		}
		e.next++
	}
}
