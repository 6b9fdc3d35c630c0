package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/cwbudde/mandelvec/internal/store"
	"github.com/cwbudde/mandelvec/internal/tune"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	tuneImage      imageFlags
	tuneVariant    string
	tuneIters      int
	tuneSeed       int64
	tuneRepeat     int
	tuneMaxBlock   int
	tuneMaxWorkers int
	tunePatience   int
	tuneTrace      bool
	tuneSave       bool
	tuneDataDir    string
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Search block size and worker count for the fastest render",
	Long: `Runs a mayfly search over the speculative block size and the number of render
goroutines for one variant and reports the fastest configuration found.
With --trace every evaluation is appended to <data-dir>/runs/<id>/trace.jsonl.`,
	RunE: runTune,
}

func init() {
	tuneImage.register(tuneCmd)
	tuneCmd.Flags().StringVarP(&tuneVariant, "variant", "p", "auto", "Kernel variant or alias")
	tuneCmd.Flags().IntVar(&tuneIters, "tune-iters", 10, "Optimizer iterations")
	tuneCmd.Flags().Int64Var(&tuneSeed, "seed", 42, "Random seed")
	tuneCmd.Flags().IntVar(&tuneRepeat, "repeat", 3, "Renders per configuration; the fastest is used")
	tuneCmd.Flags().IntVar(&tuneMaxBlock, "max-block", 64, "Largest block size to try")
	tuneCmd.Flags().IntVar(&tuneMaxWorkers, "max-workers", 0, "Most workers to try (0 = GOMAXPROCS)")
	tuneCmd.Flags().IntVar(&tunePatience, "patience", tune.DefaultConvergenceConfig().Patience, "Stop after N new configurations without a 2% gain (0 = never)")
	tuneCmd.Flags().BoolVar(&tuneTrace, "trace", false, "Write every evaluation to a trace file under --data-dir")
	tuneCmd.Flags().BoolVar(&tuneSave, "save", false, "Store a run record of the best configuration")
	tuneCmd.Flags().StringVar(&tuneDataDir, "data-dir", "./data", "Base directory for run records and traces")

	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	p, err := tuneImage.params()
	if err != nil {
		return err
	}
	v, err := escape.ParseVariant(tuneVariant)
	if err != nil {
		return err
	}

	tuner := tune.NewTuner(v, p, tuneIters, tuneSeed)
	tuner.Repeats = tuneRepeat
	tuner.MaxBlockSize = tuneMaxBlock
	tuner.MaxWorkers = tuneMaxWorkers
	tuner.Convergence.Patience = tunePatience
	tuner.Convergence.Enabled = tunePatience > 0

	runID := uuid.New().String()
	if tuneTrace {
		tw, err := store.NewTraceWriter(tuneDataDir, runID, false)
		if err != nil {
			return err
		}
		defer func() {
			if err := tw.Close(); err != nil {
				slog.Warn("Failed to close trace", "error", err)
			}
		}()
		tuner.Trace = tw
		slog.Info("Writing tuning trace", "path", tw.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.HeaderLine(p))

	res, err := tuner.Tune(ctx)
	if err != nil && res.Measured == 0 {
		return err
	}
	if err != nil {
		slog.Warn("Tuning interrupted, reporting best so far", "error", err)
	}

	fmt.Fprintf(out, "%s best: block=%d workers=%d, %d us (%d evaluations, %d configurations)\n",
		v, res.Best.BlockSize, res.Best.Workers, res.Elapsed.Microseconds(), res.Evaluations, res.Measured)
	if res.Converged {
		fmt.Fprintln(out, "search converged early")
	}

	if tuneSave {
		r, err := escape.NewRenderer(v, escape.WithWorkers(res.Best.Workers), escape.WithBlockSize(res.Best.BlockSize))
		if err != nil {
			return err
		}
		counts := make([]uint16, p.Pixels())
		r.Render(p, counts)

		runStore, err := store.NewFSStore(tuneDataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		record := store.NewRunRecord(v, p, res.Best.Workers, res.Best.BlockSize, res.Elapsed, report.Summarize(counts, p.MaxIters))
		record.ID = runID
		record.Source = "tune"
		if err := runStore.SaveRun(record); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		fmt.Fprintf(out, "saved run %s\n", record.ID)
	}
	return nil
}
