package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/cwbudde/mandelvec/internal/store"
	"github.com/spf13/cobra"
)

var (
	runsDataDir   string
	keepLast      int
	olderThanDays int
	forceClean    bool
	showTrace     bool
	traceOnly     bool
	orphanTraces  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage saved run records",
	Long: `Manage the run records written by 'render --save', 'bench --save', 'tune --save'
and the HTTP server.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved runs",
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run record as JSON",
	Long: `Print one run record as JSON. With --trace the tuning trace written by
'tune --trace' is printed as a table as well; runs that only have a trace print
just the table.`,
	Args: cobra.ExactArgs(1),
	RunE: runShowRun,
}

var deleteRunCmd = &cobra.Command{
	Use:   "delete <run-id>...",
	Short: "Delete run records and their traces",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeleteRuns,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old runs",
	Long: `Delete old runs based on retention policy.
You can keep the newest N runs or delete runs older than N days.
--orphan-traces also removes tuning traces that have no run record.`,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(showRunCmd)
	runsCmd.AddCommand(deleteRunCmd)
	runsCmd.AddCommand(cleanRunsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Base directory for run records")

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
	cleanRunsCmd.Flags().BoolVar(&orphanTraces, "orphan-traces", false, "Also delete traces without a run record")

	showRunCmd.Flags().BoolVar(&showTrace, "trace", false, "Also print the tuning trace")
	deleteRunCmd.Flags().BoolVar(&traceOnly, "trace-only", false, "Delete only the tuning trace and keep the record")
}

func openRunStore() (*store.FSStore, error) {
	runStore, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create run store: %w", err)
	}
	return runStore, nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	runStore, err := openRunStore()
	if err != nil {
		return err
	}

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	rows := make([]report.RunRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, report.RunRow{
			ID:        shortID(info.ID),
			Variant:   info.Variant,
			Width:     info.Width,
			Height:    info.Height,
			MaxIters:  info.MaxIters,
			Elapsed:   time.Duration(info.ElapsedMicros) * time.Microsecond,
			Checksum:  info.Checksum,
			CreatedAt: info.Timestamp,
		})
	}
	report.WriteRuns(out, rows)

	sizeStr := "unknown"
	if size, err := getDirSize(filepath.Join(runStore.BaseDir(), "runs")); err == nil {
		sizeStr = formatBytes(size)
	}
	fmt.Fprintf(out, "\nTotal runs: %d (%s on disk)\n", len(infos), sizeStr)
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runStore, err := openRunStore()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	record, err := runStore.LoadRun(args[0])
	switch {
	case err == nil:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(record); err != nil {
			return err
		}
	case showTrace && errors.Is(err, store.ErrNotFound):
		// Trace-only run from "tune --trace" without "--save".
	default:
		return err
	}

	if !showTrace {
		return nil
	}
	entries, err := store.ReadTrace(runStore.BaseDir(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	rows := make([]report.TraceRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, report.TraceRow{
			Evaluation: e.Evaluation,
			BlockSize:  e.BlockSize,
			Workers:    e.Workers,
			Elapsed:    time.Duration(e.ElapsedMicros) * time.Microsecond,
			Cached:     e.Cached,
		})
	}
	report.WriteTrace(out, rows)
	return nil
}

func runDeleteRuns(cmd *cobra.Command, args []string) error {
	runStore, err := openRunStore()
	if err != nil {
		return err
	}
	for _, id := range args {
		if traceOnly {
			if err := deleteTrace(runStore, id); err != nil {
				return err
			}
			slog.Info("Deleted trace", "run_id", id)
			continue
		}
		if err := runStore.DeleteRun(id); err != nil {
			return err
		}
		slog.Info("Deleted run", "run_id", id)
	}
	what := "run"
	if traceOnly {
		what = "trace"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d %s(s).\n", len(args), what)
	return nil
}

// deleteTrace removes a run's trace. A directory left without a record is
// removed as well.
func deleteTrace(runStore *store.FSStore, id string) error {
	if err := store.DeleteTrace(runStore.BaseDir(), id); err != nil {
		return err
	}
	if _, err := runStore.LoadRun(id); !errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err := runStore.DeleteRun(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 && !orphanTraces {
		return fmt.Errorf("must specify --keep-last, --older-than or --orphan-traces")
	}

	runStore, err := openRunStore()
	if err != nil {
		return err
	}

	infos, err := runStore.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	var orphans []string
	if orphanTraces {
		if orphans, err = runStore.TraceOnlyRuns(); err != nil {
			return fmt.Errorf("failed to list traces: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 && len(orphans) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) and %d orphan trace(s) to delete:\n", len(toDelete), len(orphans))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n",
			shortID(info.ID),
			info.Variant,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}
	for _, id := range orphans {
		fmt.Fprintf(out, "  - %s (trace only)\n", shortID(id))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := runStore.DeleteRun(info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted run", "run_id", info.ID)
			deleted++
		}
	}
	for _, id := range orphans {
		if err := deleteTrace(runStore, id); err != nil {
			slog.Error("Failed to delete trace", "run_id", id, "error", err)
			failed++
		} else {
			slog.Info("Deleted trace", "run_id", id)
			deleted++
		}
	}

	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion applies the retention policy: runs older than
// olderThanDays, plus everything beyond the newest keepLast. Zero disables a
// rule. The result is ordered oldest first.
func selectRunsForDeletion(infos []store.RunInfo, keepLast int, olderThanDays int, now time.Time) []store.RunInfo {
	sorted := slices.Clone(infos)
	slices.SortStableFunc(sorted, func(a, b store.RunInfo) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = now.AddDate(0, 0, -olderThanDays)
	}
	excess := 0
	if keepLast > 0 && len(sorted) > keepLast {
		excess = len(sorted) - keepLast
	}

	var toDelete []store.RunInfo
	for i, info := range sorted {
		if i < excess || (olderThanDays > 0 && info.Timestamp.Before(cutoff)) {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
