package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/cwbudde/mandelvec/internal/store"
	"github.com/spf13/cobra"
)

var (
	benchImage    imageFlags
	benchVariants []string
	benchRepeat   int
	benchBaseline string
	benchSave     bool
	benchDataDir  string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time every variant and check it against the reference",
	Long: `Renders the same window with each selected variant, keeps the best of
--repeat runs and prints throughput, speed-up over the baseline and whether the
counts match the fpu reference.`,
	RunE: runBench,
}

func init() {
	benchImage.register(benchCmd)
	benchCmd.Flags().StringSliceVar(&benchVariants, "variants", nil, "Variants to run (default: all)")
	benchCmd.Flags().IntVar(&benchRepeat, "repeat", 3, "Renders per variant; the fastest is reported")
	benchCmd.Flags().StringVar(&benchBaseline, "baseline", "fpu", "Variant the speed-up is relative to")
	benchCmd.Flags().BoolVar(&benchSave, "save", false, "Store a run record per variant under --data-dir")
	benchCmd.Flags().StringVar(&benchDataDir, "data-dir", "./data", "Base directory for run records")

	rootCmd.AddCommand(benchCmd)
}

// benchTargets resolves the requested names, dropping duplicates. No names
// selects every supported variant.
func benchTargets(names []string) ([]escape.Variant, error) {
	if len(names) == 0 {
		return escape.SupportedVariants(), nil
	}
	seen := make(map[escape.Variant]bool)
	var out []escape.Variant
	for _, n := range names {
		v, err := escape.ParseVariant(n)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	p, err := benchImage.params()
	if err != nil {
		return err
	}
	targets, err := benchTargets(benchVariants)
	if err != nil {
		return err
	}
	baseline, err := escape.ParseVariant(benchBaseline)
	if err != nil {
		return err
	}

	var runStore store.Store
	if benchSave {
		if runStore, err = store.NewFSStore(benchDataDir); err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.HeaderLine(p))

	want := reference(p, benchImage.workers)
	got := make([]uint16, p.Pixels())

	rows := make([]report.BenchRow, 0, len(targets))
	failed := 0
	for _, v := range targets {
		r, err := escape.NewRenderer(v, benchImage.options()...)
		if err != nil {
			return err
		}

		best := time.Duration(-1)
		for i := 0; i < max(benchRepeat, 1); i++ {
			clear(got)
			if d := timeRender(r, p, got); best < 0 || d < best {
				best = d
			}
		}

		count, _ := report.Mismatch(want, got)
		if count > 0 {
			failed++
			slog.Error("Variant disagrees with reference", "variant", v.String(), "pixels", count)
		}
		summary := report.Summarize(got, p.MaxIters)
		rows = append(rows, report.BenchRow{
			Variant:  v.String(),
			Elapsed:  best,
			Pixels:   p.Pixels(),
			Checksum: summary.Checksum,
			Match:    count == 0,
		})

		if runStore != nil {
			record := store.NewRunRecord(v, p, r.Workers(), r.BlockSize(), best, summary)
			record.Source = "bench"
			if err := runStore.SaveRun(record); err != nil {
				return fmt.Errorf("failed to save run: %w", err)
			}
		}
	}

	report.WriteBench(out, rows, baseline.String())

	if failed > 0 {
		return fmt.Errorf("%d variant(s) disagree with the fpu reference", failed)
	}
	return nil
}
