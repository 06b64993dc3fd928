package cmd

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ARM-software/optimized-routines/ddiv-prove/formatter"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/cache"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/config"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/runner"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/types"
	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/workdir"
	"github.com/ARM-software/optimized-routines/ddiv-prove/partition"
)

// runOptions carries everything a search or certification run needs, so
// tests can swap the runner and the output streams.
type runOptions struct {
	out      io.Writer
	errOut   io.Writer
	runner   runner.Runner
	cfg      config.Config
	logger   *zap.Logger
	progress bool
	reuse    bool
	fresh    bool
	verbose  bool
}

func newRunOptions(cmd *cobra.Command) runOptions {
	return runOptions{
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		runner:   &runner.Exec{Logger: logger},
		cfg:      conf,
		logger:   logger,
		progress: progress,
		reuse:    reuse,
		fresh:    fresh,
		verbose:  verbose,
	}
}

// prepareDriver sets up the work directory, the optional cache and the
// per-cell report. The returned cleanup must run once the driver is done.
func prepareDriver(opts runOptions, mode formatter.Mode) (*partition.Driver, func(), error) {
	dir, release, err := workdir.Acquire(opts.cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	opts.logger.Debug("working directory", zap.String("dir", dir))

	var c *cache.Cache
	if opts.reuse || opts.fresh {
		if opts.cfg.OutputDir == "" {
			opts.logger.Warn("--reuse has no effect without --output-dir")
		} else if c, err = openCache(dir, opts); err != nil {
			_ = release()
			return nil, nil, err
		}
	}

	var bar *progressbar.ProgressBar
	if opts.progress {
		bar = progressbar.NewOptions(types.NumCells,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(modeName(mode)),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	d := &partition.Driver{
		Runner: opts.runner,
		Config: opts.cfg,
		Logger: opts.logger,
		Dir:    dir,
		Jobs:   opts.cfg.Jobs,
		Cache:  c,
		OnCellDone: func(res types.CellResult) {
			fmt.Fprint(opts.out, formatter.FormatCell(res, mode, opts.verbose))
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	}

	cleanup := func() {
		if bar != nil {
			_ = bar.Finish()
		}
		if err := release(); err != nil {
			opts.logger.Warn("failed to remove working directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	return d, cleanup, nil
}

// openCache loads the cell cache kept in dir, dropping every entry first
// when --fresh is set.
func openCache(dir string, opts runOptions) (*cache.Cache, error) {
	c, err := cache.New(dir)
	if err != nil {
		return nil, err
	}
	c.SetMaxAge(opts.cfg.CacheMaxAge)
	if opts.fresh {
		if err := c.InvalidateAll(); err != nil {
			return nil, err
		}
	}
	opts.logger.Debug("cell cache", zap.String("dir", dir), zap.Int("entries", c.Len()))
	return c, nil
}

func modeName(mode formatter.Mode) string {
	if mode == formatter.Certify {
		return "certifying"
	}
	return "searching"
}

// runSearch reports the bound of every cell and the worst of them. It
// returns false if some cell has no usable bound.
func runSearch(ctx context.Context, opts runOptions) (bool, error) {
	d, cleanup, err := prepareDriver(opts, formatter.Search)
	if err != nil {
		return false, err
	}
	defer cleanup()

	rep, err := d.Search(ctx)
	if err != nil {
		return false, err
	}
	fmt.Fprint(opts.out, formatter.FormatWorst(rep.Worst))
	if rep.Failed > 0 {
		opts.logger.Error("some cells have no usable bound", zap.Int("failed", rep.Failed))
		return false, nil
	}
	return true, nil
}

// runCertify reports the verdict for every cell and overall.
func runCertify(ctx context.Context, opts runOptions, bound *big.Rat) (bool, error) {
	d, cleanup, err := prepareDriver(opts, formatter.Certify)
	if err != nil {
		return false, err
	}
	defer cleanup()

	rep, err := d.Certify(ctx, bound)
	if err != nil {
		return false, err
	}
	if rep.OK {
		fmt.Fprint(opts.out, formatter.FormatVerdict(true))
	} else {
		fmt.Fprint(opts.errOut, formatter.FormatVerdict(false))
	}
	return rep.OK, nil
}
