package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ARM-software/optimized-routines/ddiv-prove/internal/config"
)

var (
	cfgFile   string
	outputDir string
	jobs      int
	timeout   time.Duration
	verbose   bool
	progress  bool
	reuse     bool
	fresh     bool

	logger *zap.Logger
	conf   config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ddiv-prove",
	Short: "ddiv-prove - error bounds for the Newton-Raphson double-precision division",
	Long: `ddiv-prove models the reciprocal approximation and quotient estimate used by
the double-precision division routine, prints its 8-bit reciprocal table,
and drives the Gappa prover and the Coq checker to find and certify a bound
on the quotient's approximation error.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogger(); err != nil {
			return err
		}

		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output-dir") {
			c.OutputDir = outputDir
		}
		if cmd.Flags().Changed("jobs") {
			c.Jobs = jobs
		}
		if err := c.Validate(); err != nil {
			return err
		}
		conf = c
		logger.Debug("configuration loaded",
			zap.String("prover", conf.Prover),
			zap.String("checker", conf.Checker),
			zap.String("output_dir", conf.OutputDir),
			zap.Int("jobs", conf.Jobs))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	logger = zap.NewNop()
	conf = config.Default()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Configuration file (default "+config.DefaultPath+")")
	flags.StringVar(&outputDir, "output-dir", "", "Keep prover inputs, reports and proofs in this directory")
	flags.IntVar(&jobs, "jobs", 1, "Number of cells processed concurrently")
	flags.DurationVar(&timeout, "timeout", 0, "Abort the run after this long (0 means no limit)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and failure details")
	flags.BoolVar(&progress, "progress", false, "Show a progress bar on stderr")
	flags.BoolVar(&reuse, "reuse", false, "Skip cells settled by an earlier run in --output-dir")
	flags.BoolVar(&fresh, "fresh", false, "Forget cells settled by earlier runs in --output-dir (implies --reuse)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(evalCmd)
}

func setupLogger() error {
	l, err := newLogger(verbose)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// runContext ends a run on SIGINT or SIGTERM, and after --timeout when it
// is set. Running tools are killed and the working directory is released
// before the process exits.
func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
