package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/report"
	"github.com/cwbudde/mandelvec/internal/store"
	"github.com/spf13/cobra"
)

// imageFlags are the window, iteration and execution flags shared by the
// render, bench and tune commands.
type imageFlags struct {
	width, height          int
	xmin, xmax, ymin, ymax float32
	threshold              float32
	iters                  int
	center                 bool
	workers                int
	block                  int
}

func (f *imageFlags) register(cmd *cobra.Command) {
	d := escape.DefaultParams()
	fs := cmd.Flags()
	fs.IntVarP(&f.width, "width", "w", d.Width, "Image width in pixels (multiple of 16)")
	fs.IntVar(&f.height, "height", d.Height, "Image height in pixels (multiple of 16)")
	fs.Float32Var(&f.xmin, "xmin", d.ReMin, "Left edge of the window")
	fs.Float32Var(&f.xmax, "xmax", d.ReMax, "Right edge of the window")
	fs.Float32Var(&f.ymin, "ymin", d.ImMin, "Bottom edge of the window")
	fs.Float32Var(&f.ymax, "ymax", d.ImMax, "Top edge of the window")
	fs.Float32VarP(&f.threshold, "threshold", "t", d.Threshold, "Escape threshold on |z|^2")
	fs.IntVarP(&f.iters, "iters", "i", d.MaxIters, "Maximum iterations (0-65535)")
	fs.BoolVar(&f.center, "center", false, "Sample pixel centers instead of corners")
	fs.IntVar(&f.workers, "workers", 0, "Render goroutines (0 = GOMAXPROCS)")
	fs.IntVar(&f.block, "block", escape.DefaultBlockSize, "Speculative block size for fma and stitch variants")
}

// params builds and validates the render parameters.
func (f *imageFlags) params() (escape.Params, error) {
	p := escape.Params{
		ReMin:     f.xmin,
		ReMax:     f.xmax,
		ImMin:     f.ymin,
		ImMax:     f.ymax,
		Threshold: f.threshold,
		MaxIters:  f.iters,
		Width:     f.width,
		Height:    f.height,
	}
	if f.center {
		p.Sampling = escape.SampleCenter
	}
	if err := p.Validate(); err != nil {
		return escape.Params{}, err
	}
	return p, nil
}

func (f *imageFlags) options() []escape.Option {
	return []escape.Option{escape.WithWorkers(f.workers), escape.WithBlockSize(f.block)}
}

var (
	renderImage   imageFlags
	renderVariant string
	renderVerify  bool
	renderSave    bool
	renderDataDir string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one image and report the elapsed time",
	Long: `Renders the escape counts of one window with the selected variant and prints
the image description and the render time in microseconds.`,
	RunE: runRender,
}

func init() {
	renderImage.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderVariant, "variant", "p", "auto", "Kernel variant or alias (see 'variants')")
	renderCmd.Flags().BoolVar(&renderVerify, "verify", false, "Compare the result against the fpu reference")
	renderCmd.Flags().BoolVar(&renderSave, "save", false, "Store a run record under --data-dir")
	renderCmd.Flags().StringVar(&renderDataDir, "data-dir", "./data", "Base directory for run records")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	p, err := renderImage.params()
	if err != nil {
		return err
	}
	v, err := escape.ParseVariant(renderVariant)
	if err != nil {
		return err
	}
	r, err := escape.NewRenderer(v, renderImage.options()...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.HeaderLine(p))

	counts := make([]uint16, p.Pixels())
	elapsed := timeRender(r, p, counts)
	fmt.Fprintln(out, report.TimingLine(strings.ToUpper(v.String()), elapsed.Microseconds()))

	summary := report.Summarize(counts, p.MaxIters)
	slog.Info("Render complete",
		"variant", v.String(),
		"workers", r.Workers(),
		"blockSize", r.BlockSize(),
		"elapsed", elapsed,
		"inside", summary.Inside,
		"checksum", summary.Checksum)

	if renderVerify {
		if err := verify(p, counts, r.Workers()); err != nil {
			return err
		}
		fmt.Fprintln(out, "verified against fpu")
	}

	if renderSave {
		runStore, err := store.NewFSStore(renderDataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		record := store.NewRunRecord(v, p, r.Workers(), r.BlockSize(), elapsed, summary)
		record.Source = "cli"
		if err := runStore.SaveRun(record); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		fmt.Fprintf(out, "saved run %s\n", record.ID)
	}
	return nil
}

func timeRender(r *escape.Renderer, p escape.Params, dst []uint16) time.Duration {
	start := time.Now()
	r.Render(p, dst)
	return time.Since(start)
}

// reference renders p with the scalar fpu kernel.
func reference(p escape.Params, workers int) []uint16 {
	r, _ := escape.NewRenderer(escape.Variant{Kind: escape.KindFPU, Width: 1}, escape.WithWorkers(workers))
	want := make([]uint16, p.Pixels())
	r.Render(p, want)
	return want
}

func verify(p escape.Params, got []uint16, workers int) error {
	count, first := report.Mismatch(reference(p, workers), got)
	if count == 0 {
		return nil
	}
	return fmt.Errorf("verification failed: %d pixels differ, first at (%d, %d)",
		count, first%p.Width, first/p.Width)
}
